package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/StreamCatalog/internal/app"
	"github.com/StreamCatalog/internal/domain"
	"github.com/StreamCatalog/internal/query"
	"github.com/gorilla/mux"
)

const defaultLiveLimit = 50

// StreamsHandler serves the streams query state and stored snapshots.
type StreamsHandler struct {
	client  *app.QueryClient
	streams query.Descriptor[[]domain.Stream]
	repo    domain.StreamReader
}

func NewStreamsHandler(client *app.QueryClient, streams query.Descriptor[[]domain.Stream], repo domain.StreamReader) *StreamsHandler {
	return &StreamsHandler{client: client, streams: streams, repo: repo}
}

type streamsResponse struct {
	Status    app.QueryStatus `json:"status"`
	Streams   []domain.Stream `json:"streams"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// List returns the streams query result, serving cached data while it is fresh.
// A failed fetch with earlier data still answers 200 and reports the error.
func (h *StreamsHandler) List(w http.ResponseWriter, r *http.Request) {
	_, fetchErr := app.Fetch(r.Context(), h.client, h.streams)
	h.writeState(w, fetchErr)
}

// Refresh forces a refetch before answering.
func (h *StreamsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	_, fetchErr := app.Refetch(r.Context(), h.client, h.streams)
	h.writeState(w, fetchErr)
}

func (h *StreamsHandler) writeState(w http.ResponseWriter, fetchErr error) {
	st := app.State(h.client, h.streams)

	if fetchErr != nil && !st.HasData {
		writeJSON(w, statusFor(fetchErr), errorResponse{Error: fetchErr.Error()})
		return
	}

	resp := streamsResponse{Status: st.Status, Streams: st.Data}
	if resp.Streams == nil {
		resp.Streams = []domain.Stream{}
	}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	if !st.UpdatedAt.IsZero() {
		updated := st.UpdatedAt.UTC()
		resp.UpdatedAt = &updated
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *StreamsHandler) ListLive(w http.ResponseWriter, r *http.Request) {
	limit := defaultLiveLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	streams, err := h.repo.ListLive(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list live streams", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list live streams"})
		return
	}
	writeJSON(w, http.StatusOK, streams)
}

func (h *StreamsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "stream not found"})
		return
	}
	if err != nil {
		slog.Error("Failed to get stream", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to get stream"})
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// statusFor maps a query failure to the status reported to API clients.
func statusFor(err error) int {
	var statusErr *domain.HTTPStatusError
	var transportErr *domain.TransportError
	switch {
	case errors.As(err, &statusErr), errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}
