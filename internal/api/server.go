// Package api serves the documentation chatbot's HTTP surface: the
// streaming chat endpoint, explicit exchange persistence, conversation
// history reads, and direct corpus search.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatdocs/chatdocs/internal/chat"
	"github.com/chatdocs/chatdocs/internal/conversation"
	"github.com/chatdocs/chatdocs/internal/knowledge"
	"github.com/chatdocs/chatdocs/internal/relay"
)

// AnswerStreamer produces the answer stream for one question.
// *chat.Producer satisfies it.
type AnswerStreamer interface {
	Stream(ctx context.Context, history []chat.Turn, question string) (relay.Source, error)
}

// ConversationStore persists conversations and exchanges.
// *conversation.Store satisfies it.
type ConversationStore interface {
	FindOrCreate(ctx context.Context, token string, userID *string, firstQuestion, corpusLabel string) (*conversation.Conversation, error)
	Get(ctx context.Context, token string) (*conversation.Conversation, error)
	SaveExchange(ctx context.Context, conversationID uuid.UUID, humanMessage, aiMessage string) error
	Messages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*conversation.Message, error)
	ListByUser(ctx context.Context, userID string) ([]*conversation.Conversation, error)
}

// DocumentSearcher runs similarity search over the documentation
// corpus. *knowledge.Store satisfies it.
type DocumentSearcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger        *slog.Logger
	Producer      AnswerStreamer    // Required
	Conversations ConversationStore // Required
	Searcher      DocumentSearcher  // Optional: nil disables /api/v1/search
	Tracker       *relay.Tracker    // Required: background save tracking
	Pool          *pgxpool.Pool     // Optional: nil degrades /ready to liveness
	CorpusLabel   string            // Corpus new conversations are tagged with
	CORSOrigins   []string          // Allowed origins for CORS
	IsDev         bool              // Disables HSTS
	TrustProxy    bool              // Trust X-Real-IP/X-Forwarded-For
	RateBurst     int               // Rate limiter burst per IP (0 = default 60)
}

// Server is the chatbot HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates an API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Producer == nil {
		return nil, errors.New("producer is required")
	}
	if cfg.Conversations == nil {
		return nil, errors.New("conversation store is required")
	}
	if cfg.Tracker == nil {
		return nil, errors.New("tracker is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{
		logger:        logger,
		producer:      cfg.Producer,
		conversations: cfg.Conversations,
		tracker:       cfg.Tracker,
		corpusLabel:   cfg.CorpusLabel,
	}
	mh := &messagesHandler{
		logger:        logger,
		conversations: cfg.Conversations,
		corpusLabel:   cfg.CorpusLabel,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("POST /api/v1/messages", mh.save)
	mux.HandleFunc("GET /api/v1/conversations", mh.list)
	mux.HandleFunc("GET /api/v1/conversations/{token}/messages", mh.messages)

	if cfg.Searcher != nil {
		sh := &searchHandler{logger: logger, searcher: cfg.Searcher, corpusLabel: cfg.CorpusLabel}
		mux.HandleFunc("GET /api/v1/search", sh.search)
	}

	// Rate limiter: per-IP token bucket (1 token/sec refill).
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID before Logging so request_id is available in log attrs.
	// CORS before RateLimit so preflight OPTIONS gets CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux keeps health probes outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
