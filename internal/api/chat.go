package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chatdocs/chatdocs/internal/chat"
	"github.com/chatdocs/chatdocs/internal/relay"
)

// Error bodies the frontend matches on.
const (
	msgMissingQuestion     = "Please provide the user question"
	msgMissingConversation = "Please provide the conversationId"
	msgStreamFailed        = "Something went wrong"
)

// chatMessage is one element of the request history.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the POST /api/v1/chat body.
type chatRequest struct {
	Messages       []chatMessage `json:"messages"`
	ConversationID string        `json:"conversationId"`
	UserID         string        `json:"userId,omitempty"`
}

type chatHandler struct {
	logger        *slog.Logger
	producer      AnswerStreamer
	conversations ConversationStore
	tracker       *relay.Tracker
	corpusLabel   string
}

// send streams the answer to the trailing user message as a raw
// text/plain body, one flush per model chunk. The completed exchange is
// persisted in the background after the stream ends cleanly; failed or
// abandoned streams persist nothing.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgMissingQuestion, h.logger)
		return
	}

	question := ""
	if len(req.Messages) > 0 {
		question = strings.TrimSpace(req.Messages[len(req.Messages)-1].Content)
	}
	if question == "" {
		writeError(w, http.StatusBadRequest, msgMissingQuestion, h.logger)
		return
	}

	if strings.TrimSpace(req.ConversationID) == "" {
		writeError(w, http.StatusBadRequest, msgMissingConversation, h.logger)
		return
	}

	var userID *string
	if req.UserID != "" {
		userID = &req.UserID
	}

	conv, err := h.conversations.FindOrCreate(r.Context(), req.ConversationID, userID, question, h.corpusLabel)
	if err != nil {
		h.logger.Error("resolving conversation", "error", err)
		writeError(w, http.StatusInternalServerError, msgStreamFailed, h.logger)
		return
	}

	history := historyTurns(req.Messages[:len(req.Messages)-1])

	source, err := h.producer.Stream(r.Context(), history, question)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyQuestion) {
			writeError(w, http.StatusBadRequest, msgMissingQuestion, h.logger)
			return
		}
		h.logger.Error("starting answer stream", "error", err)
		writeError(w, http.StatusInternalServerError, msgStreamFailed, h.logger)
		return
	}

	stream := relay.New(r.Context(), source, h.conversations, h.tracker, conv.ID, question, h.logger)
	defer func() {
		_ = stream.Close()
	}()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 4096)
	wroteAny := false

	for {
		n, readErr := stream.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				// Client went away mid-stream.
				panic(http.ErrAbortHandler)
			}
			if flusher != nil {
				flusher.Flush()
			}
			wroteAny = true
		}

		if errors.Is(readErr, io.EOF) {
			return
		}
		if readErr != nil {
			h.logger.Error("answer stream failed",
				"conversation_id", conv.ID,
				"mid_stream", wroteAny,
				"error", readErr,
			)
			if !wroteAny {
				writeError(w, http.StatusInternalServerError, msgStreamFailed, h.logger)
				return
			}
			// Headers and partial body already sent. Abort the
			// connection so the client sees a broken stream instead of
			// a truncated answer that looks complete.
			panic(http.ErrAbortHandler)
		}
	}
}

// historyTurns converts request history to producer turns. The
// frontend sends "assistant" for model turns; anything else is treated
// as the user.
func historyTurns(messages []chatMessage) []chat.Turn {
	turns := make([]chat.Turn, 0, len(messages))
	for _, m := range messages {
		role := chat.RoleUser
		if m.Role == "assistant" || m.Role == "ai" || m.Role == "model" {
			role = chat.RoleAssistant
		}
		turns = append(turns, chat.Turn{Role: role, Text: m.Content})
	}
	return turns
}
