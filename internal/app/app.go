// Package app wires the chatbot's components together: Genkit and the
// AI provider plugins, the PostgreSQL pool, the document and
// conversation stores, the retriever, and the answer producer.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatdocs/chatdocs/internal/chat"
	"github.com/chatdocs/chatdocs/internal/config"
	"github.com/chatdocs/chatdocs/internal/conversation"
	"github.com/chatdocs/chatdocs/internal/knowledge"
	"github.com/chatdocs/chatdocs/internal/rag"
	"github.com/chatdocs/chatdocs/internal/relay"
)

// App is the core application container.
type App struct {
	Config *config.Config

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Knowledge     *knowledge.Store
	Conversations *conversation.Store
	Retriever     ai.Retriever
	Indexer       *rag.Indexer
	Producer      *chat.Producer
	Tracker       *relay.Tracker

	logger      *slog.Logger
	otelCleanup func()
	dbCleanup   func()
}

// Close shuts down all resources. Pending background saves are drained
// before the pool closes so completed exchanges are not lost.
func (a *App) Close() error {
	if a.logger != nil {
		a.logger.Info("shutting down application")
	}

	if a.Tracker != nil {
		a.Tracker.Wait()
	}

	if a.dbCleanup != nil {
		a.dbCleanup()
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
