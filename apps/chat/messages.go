package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/gardenly/chat-service/pkg/chat"
	"github.com/gardenly/chat-service/pkg/model"
	"github.com/gardenly/chat-service/pkg/store"
)

type messageHandler struct {
	service *chat.Service
	log     *zap.Logger
}

// list handles GET /messages: the read side of the ledger, flattened the way
// the socket sends them, ascending by creation time. The optional ?channel
// query narrows the result server-side.
func (h *messageHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		messages []model.Message
		err      error
	)
	if channelID := r.URL.Query().Get("channel"); channelID != "" {
		messages, err = h.service.ChannelMessages(r.Context(), channelID)
	} else {
		messages, err = h.service.ListMessages(r.Context())
	}
	if err != nil {
		var ve *chat.ValidationError
		switch {
		case errors.As(err, &ve):
			http.Error(w, ve.Reason, http.StatusBadRequest)
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "channel does not exist", http.StatusNotFound)
		default:
			h.log.Error("list messages failed", zap.Error(err))
			http.Error(w, "Failed to retrieve messages", http.StatusInternalServerError)
		}
		return
	}

	payloads := make([]model.MessagePayload, 0, len(messages))
	for i := range messages {
		payloads = append(payloads, model.FlattenMessage(&messages[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payloads)
}
