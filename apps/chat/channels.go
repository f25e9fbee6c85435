package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/gardenly/chat-service/pkg/chat"
	"github.com/gardenly/chat-service/pkg/store"
)

type channelHandler struct {
	service *chat.Service
	log     *zap.Logger
}

type createChannelRequest struct {
	Name     string `json:"name"`
	GardenID string `json:"gardenId"`
}

type createChannelResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// create handles POST /channel: 201 with the new channel, 409 on a
// (gardenId, name) collision.
func (h *channelHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	channel, err := h.service.CreateChannel(r.Context(), req.Name, req.GardenID)
	if err != nil {
		var ve *chat.ValidationError
		switch {
		case errors.As(err, &ve):
			http.Error(w, ve.Reason, http.StatusBadRequest)
		case errors.Is(err, store.ErrDuplicateChannel):
			http.Error(w, "channel already exists in this garden", http.StatusConflict)
		default:
			h.log.Error("create channel failed", zap.Error(err))
			http.Error(w, "Failed to create channel", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(createChannelResponse{ID: channel.ID.Hex(), Name: channel.Name})
}

// list handles GET /channel: every channel across all gardens.
func (h *channelHandler) list(w http.ResponseWriter, r *http.Request) {
	channels, err := h.service.ListChannels(r.Context())
	if err != nil {
		h.log.Error("list channels failed", zap.Error(err))
		http.Error(w, "Failed to list channels", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(channels)
}
