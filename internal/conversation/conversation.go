// Package conversation manages persisted conversations and their
// message exchanges.
//
// A conversation is identified by an opaque client-supplied token.
// FindOrCreate resolves the token to exactly one row: creation is an
// upsert against a unique constraint on the token column, so concurrent
// first turns for the same token converge on a single conversation.
package conversation

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// TitleMaxRunes bounds the title derived from the first question.
const TitleMaxRunes = 20

// Sentinel errors for conversation operations. Check with errors.Is.
var (
	// ErrMissingIdentity indicates no conversation token was supplied.
	ErrMissingIdentity = errors.New("missing conversation identity")

	// ErrNotFound indicates the requested conversation does not exist.
	ErrNotFound = errors.New("conversation not found")

	// ErrEmptyQuestion indicates the human question text is empty.
	ErrEmptyQuestion = errors.New("empty question")
)

// Conversation is a persisted conversation row.
type Conversation struct {
	ID          uuid.UUID
	Token       string
	Title       string
	UserID      *string // nil for anonymous sessions
	CorpusLabel string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Message is one completed human/AI exchange within a conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	HumanMessage   string
	AIMessage      string
	CreatedAt      time.Time
}

// TitleFromQuestion derives a conversation title from the first
// question: at most TitleMaxRunes runes, cut back to a word boundary
// when one exists past the halfway point.
func TitleFromQuestion(question string) string {
	question = strings.TrimSpace(question)
	runes := []rune(question)
	if len(runes) <= TitleMaxRunes {
		return question
	}

	cut := TitleMaxRunes
	for i := cut; i > TitleMaxRunes/2; i-- {
		if unicode.IsSpace(runes[i-1]) {
			cut = i - 1
			break
		}
	}
	return strings.TrimRight(string(runes[:cut]), " ")
}
