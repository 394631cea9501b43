// Package chat produces streamed answers to documentation questions.
//
// A Producer runs the retrieval-augmented pipeline for one question:
// rephrase the question into a standalone search query when history
// exists, retrieve matching documentation chunks, then stream the
// model's answer grounded in that context.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/chatdocs/chatdocs/internal/relay"
)

// Pipeline timeouts.
const (
	// rephraseTimeout limits the standalone-query generation per request.
	rephraseTimeout = 10 * time.Second

	// retrievalTimeout limits how long document retrieval can take.
	// Retrieval failures degrade to answering without context rather
	// than failing the request.
	retrievalTimeout = 5 * time.Second
)

// rephrasePrompt asks the model to turn the conversation into a
// standalone search query.
const rephrasePrompt = "Given the above conversation, generate a search query to look up in order to get information relevant to the conversation"

// answerSystemPrompt grounds the answer in the retrieved context.
const answerSystemPrompt = "Answer the user's questions based on the below context:\n\n%s"

// Conversation roles accepted in request history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Sentinel errors for producer operations.
var (
	// ErrEmptyQuestion indicates the question text is blank.
	ErrEmptyQuestion = errors.New("empty question")
)

// Turn is one prior exchange element supplied as history.
type Turn struct {
	Role string
	Text string
}

// Config contains all required parameters for a Producer.
type Config struct {
	Genkit    *genkit.Genkit
	Logger    *slog.Logger
	ModelName string // provider-qualified, e.g. "googleai/gemini-2.5-flash"

	// Retriever is optional. When nil, answers are generated without
	// documentation context.
	Retriever ai.Retriever

	// RetryConfig tunes retries for the non-streaming rephrase call
	// (zero-value uses defaults).
	RetryConfig RetryConfig

	// RateLimiter throttles outbound model calls (nil = use default).
	RateLimiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Producer runs the question-answering pipeline.
//
// Producer is stateless and safe for concurrent use.
type Producer struct {
	g         *genkit.Genkit
	retriever ai.Retriever
	logger    *slog.Logger

	modelName   string
	retryConfig RetryConfig
	rateLimiter *rate.Limiter
}

// New creates a Producer with required configuration.
func New(cfg Config) (*Producer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	// Default: 10 requests/sec sustained, burst of 30.
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	return &Producer{
		g:           cfg.Genkit,
		retriever:   cfg.Retriever,
		logger:      cfg.Logger,
		modelName:   cfg.ModelName,
		retryConfig: retryConfig,
		rateLimiter: rl,
	}, nil
}

// Stream starts answering question and returns a relay.Source yielding
// the answer chunks. The source must be closed by the caller.
//
// ctx governs the whole stream: canceling it aborts generation.
func (p *Producer) Stream(ctx context.Context, history []Turn, question string) (relay.Source, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	searchQuery := question
	if len(history) > 0 {
		if rephrased, err := p.rephrase(ctx, history, question); err != nil {
			// Degrade to searching with the raw question.
			p.logger.Warn("query rephrase failed, using raw question", "error", err)
		} else if rephrased != "" {
			searchQuery = rephrased
		}
	}

	contextText := p.retrieveContext(ctx, searchQuery)

	messages := historyToMessages(history)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(question)))

	genCtx, cancel := context.WithCancel(ctx)
	src := &streamSource{
		chunks: make(chan relay.Chunk),
		errCh:  make(chan error, 1),
		cancel: cancel,
	}

	go func() {
		defer close(src.chunks)

		if err := p.rateLimiter.Wait(genCtx); err != nil {
			src.errCh <- fmt.Errorf("rate limit wait: %w", err)
			return
		}

		_, err := genkit.Generate(genCtx, p.g,
			ai.WithSystem(fmt.Sprintf(answerSystemPrompt, contextText)),
			ai.WithMessages(messages...),
			ai.WithModelName(p.modelName),
			ai.WithStreaming(func(_ context.Context, chunk *ai.ModelResponseChunk) error {
				select {
				case src.chunks <- relay.Chunk{AnswerDelta: chunk.Text()}:
					return nil
				case <-genCtx.Done():
					return genCtx.Err()
				}
			}),
		)
		if err != nil {
			src.errCh <- fmt.Errorf("generating answer: %w", err)
		}
	}()

	return src, nil
}

// rephrase condenses the conversation into a standalone search query.
func (p *Producer) rephrase(ctx context.Context, history []Turn, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, rephraseTimeout)
	defer cancel()

	messages := historyToMessages(history)
	messages = append(messages,
		ai.NewUserMessage(ai.NewTextPart(question)),
		ai.NewUserMessage(ai.NewTextPart(rephrasePrompt)),
	)

	resp, err := p.generateWithRetry(ctx, messages)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// retrieveContext fetches documentation chunks for the search query and
// joins them into one context block. Returns empty on any failure so
// the answer degrades instead of erroring.
func (p *Producer) retrieveContext(ctx context.Context, searchQuery string) string {
	if p.retriever == nil {
		return ""
	}

	ragCtx, cancel := context.WithTimeout(ctx, retrievalTimeout)
	defer cancel()

	resp, err := p.retriever.Retrieve(ragCtx, &ai.RetrieverRequest{
		Query: ai.DocumentFromText(searchQuery, nil),
	})
	if err != nil {
		p.logger.Warn("document retrieval failed, answering without context", "error", err)
		return ""
	}

	parts := make([]string, 0, len(resp.Documents))
	for _, doc := range resp.Documents {
		if len(doc.Content) > 0 && doc.Content[0].Text != "" {
			parts = append(parts, doc.Content[0].Text)
		}
	}

	p.logger.Debug("retrieved documentation context",
		"query_length", len(searchQuery),
		"documents", len(parts),
	)
	return strings.Join(parts, "\n\n")
}

// historyToMessages converts request history to model messages.
// Unknown roles are treated as user turns.
func historyToMessages(history []Turn) []*ai.Message {
	messages := make([]*ai.Message, 0, len(history)+2)
	for _, turn := range history {
		if turn.Text == "" {
			continue
		}
		switch turn.Role {
		case RoleAssistant:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(turn.Text)))
		default:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(turn.Text)))
		}
	}
	return messages
}

// streamSource adapts the generation callback to relay.Source.
type streamSource struct {
	chunks chan relay.Chunk
	errCh  chan error
	cancel context.CancelFunc
}

// Next returns the next chunk, io.EOF on clean completion, or the
// generation error.
func (s *streamSource) Next(ctx context.Context) (relay.Chunk, error) {
	select {
	case <-ctx.Done():
		return relay.Chunk{}, ctx.Err()
	case chunk, ok := <-s.chunks:
		if !ok {
			select {
			case err := <-s.errCh:
				return relay.Chunk{}, err
			default:
				return relay.Chunk{}, io.EOF
			}
		}
		return chunk, nil
	}
}

// Close aborts generation. Safe to call multiple times.
func (s *streamSource) Close() error {
	s.cancel()
	return nil
}
