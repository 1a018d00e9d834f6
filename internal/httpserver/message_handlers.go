package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/agrilink/messaging/internal/service"
)

type messageCreateRequest struct {
	Content string `json:"content"`
}

func handleCreateMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		msg, err := msgSvc.Send(r.Context(), chi.URLParam(r, "conversationID"), CurrentUserID(r), req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

// handleListMessages returns the thread history. Loading a thread counts as
// reading it, so incoming messages are marked read after the fetch; a failure
// there never hides the history.
func handleListMessages(msgSvc *service.MessageService, log *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "conversationID")
		viewerID := CurrentUserID(r)

		msgs, err := msgSvc.List(r.Context(), conversationID, viewerID)
		if err != nil {
			writeError(w, err)
			return
		}
		if _, err := msgSvc.MarkRead(r.Context(), conversationID, viewerID); err != nil {
			log.Warnw("mark read on thread load",
				"conversation_id", conversationID, "error", err)
		}

		writeJSON(w, http.StatusOK, msgs)
	}
}
