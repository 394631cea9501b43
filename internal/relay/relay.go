// Package relay adapts a chunked answer stream into an io.ReadCloser
// and hands the completed exchange off for persistence.
//
// A Relay pulls chunks from a Source, serves their text to the reader
// verbatim and in order, and accumulates the full answer as it goes.
// Only when the source is fully drained does the relay schedule a
// single background save of the exchange. A stream that fails or is
// abandoned mid-way persists nothing.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// saveTimeout bounds the background persistence call. The save runs on
// a fresh context so a client disconnect after completion cannot
// cancel it.
const saveTimeout = 30 * time.Second

// Chunk is one unit of the upstream answer stream. A chunk with an
// empty AnswerDelta carries no answer text and is skipped.
type Chunk struct {
	AnswerDelta string
}

// Source produces the answer stream for one question.
//
// Next returns the next chunk, or io.EOF when the stream completed
// normally. Any other error means the stream failed. Close releases
// the source's resources and must be safe to call more than once.
type Source interface {
	Next(ctx context.Context) (Chunk, error)
	Close() error
}

// Exchange is one completed question/answer pair ready to persist.
type Exchange struct {
	ConversationID uuid.UUID
	Question       string
	Answer         string
}

// Saver persists a completed exchange. *conversation.Store satisfies it.
type Saver interface {
	SaveExchange(ctx context.Context, conversationID uuid.UUID, humanMessage, aiMessage string) error
}

// stream lifecycle states
type state int

const (
	stateIdle state = iota
	stateStreaming
	stateCompleted
	stateFailed
)

// ErrClosed is returned by Read after Close on an unfinished relay.
var ErrClosed = errors.New("relay closed")

// Relay is the io.ReadCloser handed to the HTTP layer.
//
// Relay is not safe for concurrent Read calls, matching the io.Reader
// contract. Close may be called from another goroutine.
type Relay struct {
	ctx     context.Context
	source  Source
	saver   Saver
	tracker *Tracker
	logger  *slog.Logger

	conversationID uuid.UUID
	question       string

	mu     sync.Mutex
	state  state
	buf    []byte
	answer []byte
	err    error
}

// New builds a Relay over source. ctx governs pulls from the source;
// the eventual save runs on its own context.
func New(ctx context.Context, source Source, saver Saver, tracker *Tracker, conversationID uuid.UUID, question string, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		ctx:            ctx,
		source:         source,
		saver:          saver,
		tracker:        tracker,
		logger:         logger,
		conversationID: conversationID,
		question:       question,
		state:          stateIdle,
	}
}

// Read serves the next stretch of answer bytes. It returns io.EOF only
// after the source reported a clean end of stream, at which point the
// completed exchange has been scheduled for persistence.
func (r *Relay) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buf) > 0 {
		n := copy(p, r.buf)
		r.buf = r.buf[n:]
		return n, nil
	}

	switch r.state {
	case stateCompleted:
		return 0, io.EOF
	case stateFailed:
		if r.err != nil {
			return 0, r.err
		}
		return 0, ErrClosed
	case stateIdle:
		r.state = stateStreaming
	}

	// Pull until a chunk carries text. Chunks without an answer delta
	// advance the stream but produce no bytes.
	for {
		if err := r.ctx.Err(); err != nil {
			return 0, r.fail(err)
		}

		chunk, err := r.source.Next(r.ctx)
		if errors.Is(err, io.EOF) {
			r.complete()
			return 0, io.EOF
		}
		if err != nil {
			return 0, r.fail(err)
		}
		if chunk.AnswerDelta == "" {
			continue
		}

		r.answer = append(r.answer, chunk.AnswerDelta...)
		n := copy(p, chunk.AnswerDelta)
		if n < len(chunk.AnswerDelta) {
			r.buf = append(r.buf, chunk.AnswerDelta[n:]...)
		}
		return n, nil
	}
}

// Close releases the source. A relay closed before the source drained
// transitions to failed and persists nothing. Close after a clean end
// of stream leaves the scheduled save untouched.
func (r *Relay) Close() error {
	// Close the source before taking the lock so a Read blocked inside
	// Next can be unblocked by a concurrent Close.
	err := r.source.Close()

	r.mu.Lock()
	if r.state != stateCompleted && r.state != stateFailed {
		r.state = stateFailed
		if r.err == nil {
			r.err = ErrClosed
		}
	}
	r.mu.Unlock()

	return err
}

// Answer returns the text accumulated so far. After io.EOF it is the
// full answer.
func (r *Relay) Answer() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.answer)
}

// complete transitions to completed and schedules the save. Caller
// holds r.mu.
func (r *Relay) complete() {
	r.state = stateCompleted

	ex := Exchange{
		ConversationID: r.conversationID,
		Question:       r.question,
		Answer:         string(r.answer),
	}

	if r.saver == nil {
		return
	}

	r.tracker.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()

		if err := r.saver.SaveExchange(ctx, ex.ConversationID, ex.Question, ex.Answer); err != nil {
			r.logger.Error("saving exchange failed",
				"conversation_id", ex.ConversationID,
				"error", err,
			)
			return
		}
		r.logger.Debug("exchange saved",
			"conversation_id", ex.ConversationID,
			"answer_len", len(ex.Answer),
		)
	})
}

// fail transitions to failed and records err. Caller holds r.mu.
func (r *Relay) fail(err error) error {
	r.state = stateFailed
	r.err = fmt.Errorf("streaming answer: %w", err)
	return r.err
}
