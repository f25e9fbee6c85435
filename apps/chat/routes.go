package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/gardenly/chat-service/pkg/auth"
	"github.com/gardenly/chat-service/pkg/chat"
	"github.com/gardenly/chat-service/pkg/presence"
	"github.com/gardenly/chat-service/pkg/ws"
)

// newRouter assembles the service surface: the websocket endpoint, the REST
// companion routes, and the public health check. mirror may be nil; the
// presence route is only registered when the Redis mirror is configured.
func newRouter(verifier *auth.Verifier, service *chat.Service, wsHandler *ws.Handler, mirror *presence.Mirror, log *zap.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler { return loggingMiddleware(log, next) })

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// The socket does its own credential check so it can answer with a
	// close frame instead of an HTTP status.
	r.Handle("/ws", wsHandler).Methods(http.MethodGet)

	channels := &channelHandler{service: service, log: log}
	r.Handle("/channel", authMiddleware(verifier, http.HandlerFunc(channels.list))).Methods(http.MethodGet)
	r.Handle("/channel", authMiddleware(verifier, http.HandlerFunc(channels.create))).Methods(http.MethodPost)

	messages := &messageHandler{service: service, log: log}
	r.Handle("/messages", authMiddleware(verifier, http.HandlerFunc(messages.list))).Methods(http.MethodGet)

	if mirror != nil {
		online := &presenceHandler{mirror: mirror, log: log}
		r.Handle("/presence", authMiddleware(verifier, http.HandlerFunc(online.list))).Methods(http.MethodGet)
	}

	// CORS wraps the whole router so preflight requests are answered even
	// on routes registered for other methods.
	return corsMiddleware(r)
}
