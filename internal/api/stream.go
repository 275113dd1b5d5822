package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/ivlev/scene2video/internal/extract"
	"github.com/ivlev/scene2video/internal/logging"
)

// ResetMessage sent as a text frame restarts extraction from empty input.
const ResetMessage = "\x00reset"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     isLocalOrigin,
}

// isLocalOrigin accepts non-browser clients and pages served from this
// machine.
func isLocalOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || strings.EqualFold(u.Host, r.Host)
}

// streamHandler follows a model's output as it is generated: every text
// message is the next chunk, every reply the scenes completed so far.
func streamHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already answered the client.
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxBodyBytes)

		requestID, _ := r.Context().Value(RequestIDKey).(string)
		logger := logging.WithRequestID(logging.WithComponent(cfg.Logger, "stream"), requestID)
		logger.Info("stream opened")

		ext := extract.New()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				if errors.Is(err, websocket.ErrReadLimit) {
					logger.Warn("stream message too large", "limit", maxBodyBytes)
				} else if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warn("stream closed unexpectedly", "error", err)
				}
				return
			}
			if kind != websocket.TextMessage {
				continue
			}

			if string(data) == ResetMessage {
				ext.Reset()
			} else {
				ext.Feed(string(data))
			}

			payload, err := json.Marshal(ScenesToResponse(ext.Scenes()))
			if err != nil {
				logger.Error("failed to encode scenes", "error", err)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Warn("failed to write to stream", "error", err)
				return
			}
		}
	}
}
