package model

import "strings"

// Severity levels on the normalized scale. Higher is more severe.
// LevelUnknown sorts above everything so records with unrecognized
// levels are never hidden by a severity floor.
const (
	LevelDebug   = 0
	LevelInfo    = 1
	LevelWarn    = 2
	LevelError   = 3
	LevelFatal   = 4
	LevelUnknown = 255
)

// LogRecord is the normalized, display-ready view of one log message.
// Immutable once constructed; produced from a datatype-specific payload
// by the normalization registry.
type LogRecord struct {
	Timestamp int64  `json:"timestamp"` // unix nanos
	Level     uint8  `json:"level"`
	Name      string `json:"name,omitempty"` // emitter identifier, may be empty
	Message   string `json:"message"`
	Topic     string `json:"topic"` // raw topic the record arrived on
}

// TopicDescriptor describes a named, typed stream from the data source.
type TopicDescriptor struct {
	Name     string `json:"name"`
	Datatype string `json:"datatype"`
}

// FilterSpec is the user-controlled predicate configuration for the
// message filter. SearchTerms is a set: order is irrelevant and matching
// is OR across terms.
type FilterSpec struct {
	MinLevel    uint8    `json:"minLogLevel"`
	SearchTerms []string `json:"searchTerms"`
}

// PanelConfig is the wholesale-persisted panel configuration.
type PanelConfig struct {
	SearchTerms   []string `json:"searchTerms"`
	MinLogLevel   int      `json:"minLogLevel"`
	TopicToRender string   `json:"topicToRender,omitempty"`
}

// Spec converts the persisted form to a FilterSpec. An out-of-range
// stored level is clamped instead of wrapping: a negative value means no
// floor, anything above the scale behaves as LevelUnknown.
func (c PanelConfig) Spec() FilterSpec {
	lvl := c.MinLogLevel
	if lvl < 0 {
		lvl = LevelDebug
	} else if lvl > LevelUnknown {
		lvl = LevelUnknown
	}
	return FilterSpec{
		MinLevel:    uint8(lvl),
		SearchTerms: c.SearchTerms,
	}
}

// EncodeLevel converts a level name to the normalized scale.
func EncodeLevel(l string) uint8 {
	switch strings.ToUpper(l) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelUnknown
	}
}

// DecodeLevel converts a normalized level to its display name.
func DecodeLevel(l uint8) string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}
