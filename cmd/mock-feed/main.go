package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"
)

func main() {
	http.HandleFunc("/streams", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		response := []map[string]interface{}{
			{
				"id":        101,
				"title":     "Morning speedruns",
				"channel":   "dummy_runner",
				"url":       "http://localhost:8081/watch/101",
				"thumbnail": "http://localhost:8081/thumbs/101.jpg",
				"category":  "Gaming",
				"live":      true,
				"viewers":   1200 + time.Now().Second(),
				"startedAt": time.Now().Add(-45 * time.Minute).Format(time.RFC3339),
				"tags":      []string{"english", "speedrun"},
			},
			{
				"id":        "102",
				"title":     "Cooking with leftovers",
				"channel":   "dummy_chef",
				"url":       "http://localhost:8081/watch/102",
				"category":  "Food",
				"live":      false,
				"viewers":   0,
				"startedAt": time.Now().Add(-26 * time.Hour).Format(time.RFC3339),
			},
		}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	})

	slog.Info("Mock streams API running on :8081")
	if err := http.ListenAndServe(":8081", nil); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
