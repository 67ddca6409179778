package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/valyala/fastjson"

	"github.com/jasmine-z2a/studio/internal/model"
)

// maxIngestBody caps request bodies at 10MB.
const maxIngestBody = 10 << 20

type ingestResult struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

// handleIngest accepts a single message or a batch. Each message is
// {topic, datatype, timestamp?, payload}; the payload is normalized by the
// datatype registry. Messages with no registered normalization rule are
// dropped silently (soft failure), only counted in the response.
func (s *PanelServer) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxIngestBody)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read body or body too large", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	p := s.parser.Get()
	defer s.parser.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	var result ingestResult

	// Batches are appended per topic in encounter order, so arrival order
	// within a topic is preserved.
	type topicBatch struct {
		datatype string
		records  []model.LogRecord
	}
	batches := make(map[string]*topicBatch)
	var order []string

	processMessage := func(val *fastjson.Value) {
		topic := string(val.GetStringBytes("topic"))
		datatype := string(val.GetStringBytes("datatype"))
		if topic == "" || datatype == "" {
			result.Dropped++
			return
		}
		ts := val.GetInt64("timestamp")
		if ts == 0 {
			ts = time.Now().UnixNano()
		}

		rec, ok := s.registry.Normalize(datatype, topic, ts, val.Get("payload"))
		if !ok {
			result.Dropped++
			return
		}

		s.names.Observe(rec.Name)
		b, exists := batches[topic]
		if !exists {
			b = &topicBatch{datatype: datatype}
			batches[topic] = b
			order = append(order, topic)
		}
		b.records = append(b.records, rec)
		result.Accepted++
	}

	if v.Type() == fastjson.TypeArray {
		arr, _ := v.Array()
		for _, val := range arr {
			processMessage(val)
		}
	} else {
		processMessage(v)
	}

	for _, topic := range order {
		b := batches[topic]
		s.store.Append(topic, b.datatype, b.records...)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}
