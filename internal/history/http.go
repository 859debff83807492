package history

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rewindhq/rewind/pkg/logger"
	"github.com/rewindhq/rewind/pkg/replaylib"
)

// Routes served by Handler.
const (
	PathCount = "/api/history/count"
	PathEvent = "/api/history"
	PathFind  = "/api/history/find"
	PathTime  = "/api/time"
)

// CountResponse is the body of PathCount.
type CountResponse struct {
	Count int `json:"count"`
}

// FindResponse is the body of PathFind.
type FindResponse struct {
	Index int `json:"index"`
}

// TimeResponse is the body of PathTime.
type TimeResponse struct {
	EpochMs int64  `json:"epochMs"`
	Now     string `json:"now"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves a HistorySource over HTTP.
type Handler struct {
	src replaylib.HistorySource
	log logger.Logger
}

// NewHandler returns a Handler for src.
func NewHandler(src replaylib.HistorySource, l logger.Logger) *Handler {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Handler{src: src, log: l}
}

// Register adds the history routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+PathCount, h.count)
	mux.HandleFunc("GET "+PathEvent, h.event)
	mux.HandleFunc("GET "+PathFind, h.find)
	mux.HandleFunc("GET "+PathTime, h.time)
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	n, err := h.src.Count(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

func (h *Handler) event(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("index")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "index parameter required"})
		return
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid index format"})
		return
	}
	ev, err := h.src.Fetch(r.Context(), index)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *Handler) find(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := q.Get("atOrAfter")
	if raw == "" {
		raw = q.Get("epochMs")
	}
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "atOrAfter parameter required"})
		return
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid atOrAfter format"})
		return
	}
	idx, err := h.src.FindIndexAtOrAfter(r.Context(), time.UnixMilli(ms))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FindResponse{Index: idx})
}

func (h *Handler) time(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	if ts, ok := h.src.(replaylib.TimeSource); ok {
		t, err := ts.ServerTime(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		now = t
	}
	writeJSON(w, http.StatusOK, TimeResponse{EpochMs: now.UnixMilli(), Now: now.Format(time.RFC3339Nano)})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, replaylib.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, replaylib.ErrUnreachable):
		h.log.Error("history: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error("history: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
