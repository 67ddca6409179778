package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/jasmine-z2a/studio/internal/model"
	"github.com/jasmine-z2a/studio/internal/panel"
	"github.com/jasmine-z2a/studio/internal/pkg/searchquery"
)

func (s *PanelServer) handleTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	topics := s.store.Topics()
	if topics == nil {
		topics = []model.TopicDescriptor{}
	}
	writeJSON(w, topics)
}

// handleRecords returns the filtered view of one topic's history for
// non-streaming clients. Parameters: topic (selector-resolved when
// absent), q (filter-bar syntax), min_level (overrides any level
// directive in q), limit (tail).
func (s *PanelServer) handleRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()

	spec, err := searchquery.Parse(q.Get("q"))
	if err != nil {
		http.Error(w, "Invalid query: "+err.Error(), http.StatusBadRequest)
		return
	}
	if lvlStr := q.Get("min_level"); lvlStr != "" {
		lvl, err := strconv.Atoi(lvlStr)
		if err != nil || lvl < 0 || lvl > int(model.LevelUnknown) {
			http.Error(w, "Invalid min_level", http.StatusBadRequest)
			return
		}
		spec.MinLevel = uint8(lvl)
	}

	topic := q.Get("topic")
	if topic == "" {
		topic = panel.SelectTopic(s.store.Topics(), s.registry.Datatypes(), "", s.defaultTopic)
	}

	// An unknown or empty topic renders an empty list, never an error.
	records := panel.Apply(s.store.Records(topic), spec)
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && len(records) > limit {
			records = records[len(records)-limit:]
		}
	}
	if records == nil {
		records = []model.LogRecord{}
	}
	writeJSON(w, records)
}

func (s *PanelServer) handleNames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.names.List())
}

// handlePanelConfig reads or replaces the persisted panel config. Writes
// are wholesale, matching how the panel itself persists changes.
func (s *PanelServer) handlePanelConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg, _, err := s.cfg.LoadPanelConfig(r.Context())
		if err != nil {
			log.Printf("Config load failed: %v", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		if cfg.SearchTerms == nil {
			cfg.SearchTerms = []string{}
		}
		writeJSON(w, cfg)

	case http.MethodPost:
		var cfg model.PanelConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if cfg.MinLogLevel < 0 || cfg.MinLogLevel > int(model.LevelUnknown) {
			http.Error(w, "Invalid minLogLevel", http.StatusBadRequest)
			return
		}
		if err := s.cfg.SavePanelConfig(r.Context(), cfg); err != nil {
			log.Printf("Config save failed: %v", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}
