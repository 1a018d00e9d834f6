package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agrilink/messaging/internal/domain"
	"github.com/agrilink/messaging/internal/service"
)

type conversationCreateRequest struct {
	OtherUserID string `json:"other_user_id"`
}

// handleCreateConversation resolves or creates the conversation between the
// caller and the requested user. Returns 200 in both cases: the operation is
// idempotent and the caller cannot tell (and does not care) which happened.
func handleCreateConversation(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req conversationCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		conv, err := convSvc.GetOrCreate(r.Context(), CurrentUserID(r), req.OtherUserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

func handleListConversations(convSvc *service.ConversationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := convSvc.ListInbox(r.Context(), CurrentUserID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

type conversationResponse struct {
	*domain.Conversation
	OtherUser domain.Profile `json:"other_user"`
}

// handleGetConversation returns the thread header: the conversation plus the
// other participant's display identity.
func handleGetConversation(convSvc *service.ConversationService, profSvc *service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID := CurrentUserID(r)
		conv, err := convSvc.Get(r.Context(), chi.URLParam(r, "conversationID"), viewerID)
		if err != nil {
			writeError(w, err)
			return
		}

		otherID := conv.OtherParticipant(viewerID)
		other := domain.Profile{ID: otherID, DisplayName: "Unknown User"}
		if p, err := profSvc.Get(r.Context(), otherID); err == nil {
			other = *p
		}

		writeJSON(w, http.StatusOK, conversationResponse{Conversation: conv, OtherUser: other})
	}
}

func handleMarkConversationRead(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := msgSvc.MarkRead(r.Context(), chi.URLParam(r, "conversationID"), CurrentUserID(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"marked": n})
	}
}
