package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/chatdocs/chatdocs/internal/conversation"
)

const (
	msgMissingUser = "Please provide the userId"
	msgSaved       = "Message saved"
)

// saveMessageRequest is the POST /api/v1/messages body: an explicit
// persistence request for one completed exchange.
type saveMessageRequest struct {
	ConversationID string `json:"conversationId"`
	HumanMessage   string `json:"humanMessage"`
	AIMessage      string `json:"aiMessage"`
}

type conversationJSON struct {
	ConversationID string    `json:"conversationId"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"createdAt"`
}

type messageJSON struct {
	HumanMessage string    `json:"humanMessage"`
	AIMessage    string    `json:"aiMessage"`
	CreatedAt    time.Time `json:"createdAt"`
}

type messagesHandler struct {
	logger        *slog.Logger
	conversations ConversationStore
	corpusLabel   string
}

// save persists one exchange. The conversation is resolved through the
// same upsert as the streaming path, so saving into a fresh token
// creates the conversation.
func (h *messagesHandler) save(w http.ResponseWriter, r *http.Request) {
	var req saveMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgMissingQuestion, h.logger)
		return
	}

	if strings.TrimSpace(req.HumanMessage) == "" {
		writeError(w, http.StatusBadRequest, msgMissingQuestion, h.logger)
		return
	}
	if strings.TrimSpace(req.ConversationID) == "" {
		writeError(w, http.StatusBadRequest, msgMissingConversation, h.logger)
		return
	}

	conv, err := h.conversations.FindOrCreate(r.Context(), req.ConversationID, nil, req.HumanMessage, h.corpusLabel)
	if err != nil {
		h.logger.Error("resolving conversation for save", "error", err)
		writeError(w, http.StatusInternalServerError, msgStreamFailed, h.logger)
		return
	}

	if err := h.conversations.SaveExchange(r.Context(), conv.ID, req.HumanMessage, req.AIMessage); err != nil {
		h.logger.Error("saving exchange", "conversation_id", conv.ID, "error", err)
		writeError(w, http.StatusInternalServerError, msgStreamFailed, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": msgSaved}, h.logger)
}

// list returns a user's conversations, newest first.
func (h *messagesHandler) list(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, msgMissingUser, h.logger)
		return
	}

	convs, err := h.conversations.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing conversations", "error", err)
		writeError(w, http.StatusInternalServerError, msgStreamFailed, h.logger)
		return
	}

	out := make([]conversationJSON, 0, len(convs))
	for _, c := range convs {
		out = append(out, conversationJSON{
			ConversationID: c.Token,
			Title:          c.Title,
			CreatedAt:      c.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": out}, h.logger)
}

// messages returns a conversation's exchanges, oldest first.
func (h *messagesHandler) messages(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	conv, err := h.conversations.Get(r.Context(), token)
	if errors.Is(err, conversation.ErrNotFound) || errors.Is(err, conversation.ErrMissingIdentity) {
		writeError(w, http.StatusNotFound, "Conversation not found", h.logger)
		return
	}
	if err != nil {
		h.logger.Error("getting conversation", "error", err)
		writeError(w, http.StatusInternalServerError, msgStreamFailed, h.logger)
		return
	}

	msgs, err := h.conversations.Messages(r.Context(), conv.ID, 0)
	if err != nil {
		h.logger.Error("listing messages", "conversation_id", conv.ID, "error", err)
		writeError(w, http.StatusInternalServerError, msgStreamFailed, h.logger)
		return
	}

	out := make([]messageJSON, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageJSON{
			HumanMessage: m.HumanMessage,
			AIMessage:    m.AIMessage,
			CreatedAt:    m.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversationId": conv.Token,
		"title":          conv.Title,
		"messages":       out,
	}, h.logger)
}
