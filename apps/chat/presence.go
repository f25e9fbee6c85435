package main

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/gardenly/chat-service/pkg/presence"
)

type presenceHandler struct {
	mirror *presence.Mirror
	log    *zap.Logger
}

// list handles GET /presence: the user ids with at least one live
// connection, read from the Redis mirror.
func (h *presenceHandler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.mirror.Online(r.Context())
	if err != nil {
		h.log.Error("fetch presence failed", zap.Error(err))
		http.Error(w, "Failed to fetch presence", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}
