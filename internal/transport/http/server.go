package http

import (
	"fmt"
	"net/http"

	"github.com/StreamCatalog/pkg/config"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(api *StreamsHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK")
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())

	r.HandleFunc("/streams", api.List).Methods(http.MethodGet)
	r.HandleFunc("/streams/live", api.ListLive).Methods(http.MethodGet)
	r.HandleFunc("/streams/refresh", api.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/streams/{id}", api.Get).Methods(http.MethodGet)
	return r
}

func NewHTTPServer(cfg *config.Config, api *StreamsHandler) *http.Server {
	return &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: NewRouter(api),
	}
}
