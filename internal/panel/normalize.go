package panel

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmespath/go-jmespath"
	"github.com/valyala/fastjson"

	"github.com/jasmine-z2a/studio/internal/model"
)

// NormalizeFunc converts one datatype-specific payload into a LogRecord.
// ts is the arrival timestamp in unix nanos, used when the payload carries
// no usable stamp of its own. ok=false means the payload could not be
// normalized and the record is dropped from rendering.
type NormalizeFunc func(topic string, ts int64, payload *fastjson.Value) (rec model.LogRecord, ok bool)

// Registry maps datatype identifiers to normalization functions. Dispatch
// is by the declared datatype string, never by inspecting the payload
// shape. Unregistered datatypes are a soft failure: the record is silently
// dropped.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]NormalizeFunc
}

// NewRegistry returns a registry preloaded with the stock robotics log
// datatypes.
func NewRegistry() *Registry {
	r := &Registry{rules: make(map[string]NormalizeFunc)}
	r.Register("rosgraph_msgs/Log", normalizeROS1)
	r.Register("rcl_interfaces/msg/Log", normalizeROS2)
	r.Register("foxglove_msgs/Log", normalizeFoxglove)
	r.Register("foxglove.Log", normalizeFoxglove)
	return r
}

func (r *Registry) Register(datatype string, fn NormalizeFunc) {
	r.mu.Lock()
	r.rules[datatype] = fn
	r.mu.Unlock()
}

// Datatypes returns the set of datatypes the registry can normalize,
// which doubles as the topic selector's allow-list.
func (r *Registry) Datatypes() map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]struct{}, len(r.rules))
	for dt := range r.rules {
		out[dt] = struct{}{}
	}
	return out
}

// Normalize dispatches on datatype. ok=false when no rule is registered or
// the rule rejects the payload.
func (r *Registry) Normalize(datatype, topic string, ts int64, payload *fastjson.Value) (model.LogRecord, bool) {
	r.mu.RLock()
	fn, exists := r.rules[datatype]
	r.mu.RUnlock()
	if !exists || payload == nil {
		return model.LogRecord{}, false
	}
	return fn(topic, ts, payload)
}

// ROS1 byte levels: 1 debug, 2 info, 4 warn, 8 error, 16 fatal.
func ros1Level(l int) uint8 {
	switch l {
	case 1:
		return model.LevelDebug
	case 2:
		return model.LevelInfo
	case 4:
		return model.LevelWarn
	case 8:
		return model.LevelError
	case 16:
		return model.LevelFatal
	default:
		return model.LevelUnknown
	}
}

// ROS2 levels: 10 debug, 20 info, 30 warn, 40 error, 50 fatal.
func ros2Level(l int) uint8 {
	switch l {
	case 10:
		return model.LevelDebug
	case 20:
		return model.LevelInfo
	case 30:
		return model.LevelWarn
	case 40:
		return model.LevelError
	case 50:
		return model.LevelFatal
	default:
		return model.LevelUnknown
	}
}

// Foxglove levels: 1 debug through 5 fatal, 0 unknown.
func foxgloveLevel(l int) uint8 {
	if l >= 1 && l <= 5 {
		return uint8(l - 1)
	}
	return model.LevelUnknown
}

// stampNanos reads a {sec, nsec|nanosec} stamp object. Returns 0 when the
// stamp is absent or empty.
func stampNanos(v *fastjson.Value) int64 {
	if v == nil {
		return 0
	}
	sec := v.GetInt64("sec")
	nsec := v.GetInt64("nsec")
	if nsec == 0 {
		nsec = v.GetInt64("nanosec")
	}
	return sec*1_000_000_000 + nsec
}

func normalizeROS1(topic string, ts int64, payload *fastjson.Value) (model.LogRecord, bool) {
	msg := string(payload.GetStringBytes("msg"))
	if msg == "" && payload.Get("msg") == nil {
		return model.LogRecord{}, false
	}
	if stamp := stampNanos(payload.Get("header", "stamp")); stamp > 0 {
		ts = stamp
	}
	return model.LogRecord{
		Timestamp: ts,
		Level:     ros1Level(payload.GetInt("level")),
		Name:      string(payload.GetStringBytes("name")),
		Message:   msg,
		Topic:     topic,
	}, true
}

func normalizeROS2(topic string, ts int64, payload *fastjson.Value) (model.LogRecord, bool) {
	msg := string(payload.GetStringBytes("msg"))
	if msg == "" && payload.Get("msg") == nil {
		return model.LogRecord{}, false
	}
	if stamp := stampNanos(payload.Get("stamp")); stamp > 0 {
		ts = stamp
	}
	return model.LogRecord{
		Timestamp: ts,
		Level:     ros2Level(payload.GetInt("level")),
		Name:      string(payload.GetStringBytes("name")),
		Message:   msg,
		Topic:     topic,
	}, true
}

func normalizeFoxglove(topic string, ts int64, payload *fastjson.Value) (model.LogRecord, bool) {
	msg := string(payload.GetStringBytes("message"))
	if msg == "" && payload.Get("message") == nil {
		return model.LogRecord{}, false
	}
	if stamp := stampNanos(payload.Get("timestamp")); stamp > 0 {
		ts = stamp
	}
	return model.LogRecord{
		Timestamp: ts,
		Level:     foxgloveLevel(payload.GetInt("level")),
		Name:      string(payload.GetStringBytes("name")),
		Message:   msg,
		Topic:     topic,
	}, true
}

// FieldRule describes a custom datatype mapping in terms of JMESPath
// expressions evaluated against the payload. Message is required; the
// others may be empty. Level may resolve to a level name or a number on
// the normalized scale.
type FieldRule struct {
	Datatype  string `json:"datatype"`
	Level     string `json:"level,omitempty"`
	Name      string `json:"name,omitempty"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// RegisterFieldRule compiles the rule's expressions and registers the
// resulting normalizer under the rule's datatype.
func (r *Registry) RegisterFieldRule(rule FieldRule) error {
	if rule.Datatype == "" {
		return fmt.Errorf("field rule: datatype is required")
	}
	if rule.Message == "" {
		return fmt.Errorf("field rule %s: message expression is required", rule.Datatype)
	}
	exprs := map[string]*jmespath.JMESPath{}
	for field, src := range map[string]string{
		"level":     rule.Level,
		"name":      rule.Name,
		"message":   rule.Message,
		"timestamp": rule.Timestamp,
	} {
		if src == "" {
			continue
		}
		compiled, err := jmespath.Compile(src)
		if err != nil {
			return fmt.Errorf("field rule %s: compile %s: %w", rule.Datatype, field, err)
		}
		exprs[field] = compiled
	}

	r.Register(rule.Datatype, func(topic string, ts int64, payload *fastjson.Value) (model.LogRecord, bool) {
		var doc any
		if err := json.Unmarshal(payload.MarshalTo(nil), &doc); err != nil {
			return model.LogRecord{}, false
		}

		msg, ok := searchString(exprs["message"], doc)
		if !ok {
			return model.LogRecord{}, false
		}
		rec := model.LogRecord{
			Timestamp: ts,
			Level:     model.LevelUnknown,
			Message:   msg,
			Topic:     topic,
		}
		if name, ok := searchString(exprs["name"], doc); ok {
			rec.Name = name
		}
		if expr := exprs["level"]; expr != nil {
			if res, err := expr.Search(doc); err == nil {
				switch v := res.(type) {
				case string:
					rec.Level = model.EncodeLevel(v)
				case float64:
					rec.Level = uint8(v)
				}
			}
		}
		if expr := exprs["timestamp"]; expr != nil {
			if res, err := expr.Search(doc); err == nil {
				if f, isNum := res.(float64); isNum && f > 0 {
					rec.Timestamp = int64(f)
				}
			}
		}
		return rec, true
	})
	return nil
}

func searchString(expr *jmespath.JMESPath, doc any) (string, bool) {
	if expr == nil {
		return "", false
	}
	res, err := expr.Search(doc)
	if err != nil {
		return "", false
	}
	s, ok := res.(string)
	if !ok {
		return "", false
	}
	return s, true
}
