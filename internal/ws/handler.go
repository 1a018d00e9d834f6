package ws

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/agrilink/messaging/internal/config"
	"github.com/agrilink/messaging/internal/domain"
	"github.com/agrilink/messaging/internal/realtime"
	"github.com/agrilink/messaging/internal/security"
	"github.com/agrilink/messaging/internal/service"
)

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			token := parts[1]
			if token != "" {
				return token, nil
			}
		}
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

// safeConn serializes writes: the event pump and the read loop's error
// replies both write to the same connection.
type safeConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *safeConn) sendError(msg string) {
	_ = c.writeJSON(map[string]string{"type": "error", "error": msg})
}

type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// MakeHandler returns an HTTP handler for the /ws endpoint.
// Authenticates via Bearer token (Authorization header or Sec-WebSocket-Protocol),
// subscribes the user to the event hub and pushes message_new,
// conversation_updated and messages_read events. Inbound frames:
//   - message   -> append to the conversation
//   - mark_read -> mark all unread from the other participant
func MakeHandler(
	cfg *config.Config,
	log *zap.SugaredLogger,
	tokens *security.TokenService,
	hub *realtime.Hub,
	msgSvc *service.MessageService,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(cfg.CORSOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			if authErr, ok := err.(wsAuthError); ok {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		userID, _ := claims["sub"].(string)
		if userID == "" {
			http.Error(w, "invalid token subject", http.StatusUnauthorized)
			return
		}

		rawConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := &safeConn{conn: rawConn}
		defer rawConn.Close()

		sub := hub.Subscribe(userID)
		defer sub.Close()

		// Event pump: hub -> socket. Ends when the subscription closes.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range sub.Events() {
				if err := conn.writeJSON(outboundFrame(ev)); err != nil {
					return
				}
			}
		}()

		ctx := r.Context()
		for {
			var frame inboundFrame
			if err := rawConn.ReadJSON(&frame); err != nil {
				break
			}
			switch frame.Type {
			case "message":
				if frame.ConversationID == "" {
					conn.sendError("message requires conversation_id")
					continue
				}
				if _, err := msgSvc.Send(ctx, frame.ConversationID, userID, frame.Content); err != nil {
					log.Warnw("ws send", "user_id", userID, "error", err)
					conn.sendError(clientErrorMessage(err, "failed to send message"))
				}

			case "mark_read":
				if frame.ConversationID == "" {
					continue
				}
				if _, err := msgSvc.MarkRead(ctx, frame.ConversationID, userID); err != nil {
					log.Warnw("ws mark_read", "user_id", userID, "error", err)
					conn.sendError(clientErrorMessage(err, "failed to mark messages as read"))
				}

			default:
				conn.sendError("unknown frame type")
			}
		}

		sub.Close()
		<-done
	}
}

// clientErrorMessage reports validation failures with the same wording the
// HTTP layer uses; anything else gets the generic fallback.
func clientErrorMessage(err error, fallback string) string {
	for _, sentinel := range []error{
		domain.ErrEmptyMessage,
		domain.ErrNotAParticipant,
		domain.ErrConversationNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return fallback
}

// outboundFrame flattens a hub event into the wire shape clients consume.
func outboundFrame(ev domain.Event) map[string]any {
	frame := map[string]any{
		"type":            ev.Type,
		"conversation_id": ev.ConversationID,
	}
	switch ev.Type {
	case domain.EventMessageNew:
		if ev.Message != nil {
			frame["message"] = ev.Message
		}
	case domain.EventConversationUpdated:
		frame["last_message_preview"] = ev.LastMessagePreview
		frame["last_message_at"] = ev.LastMessageAt
	case domain.EventMessagesRead:
		frame["reader_id"] = ev.ReaderID
	}
	return frame
}
