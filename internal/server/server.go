// Package server implements the HTTP API for managing formats, instances,
// and deployments.
package server

import (
	"context"
	"log/slog"

	"github.com/groblegark/formsync/internal/engine"
	"github.com/groblegark/formsync/internal/events"
	"github.com/groblegark/formsync/internal/store"
)

// Server holds the handler dependencies.
type Server struct {
	store     store.Store
	publisher events.Publisher
	deployer  engine.Deployer
	logger    *slog.Logger
}

// New returns a Server backed by the given store, publisher, and deployer.
func New(s store.Store, p events.Publisher, d engine.Deployer, logger *slog.Logger) *Server {
	return &Server{
		store:     s,
		publisher: p,
		deployer:  d,
		logger:    logger,
	}
}

// publish emits an event. Publishing is best-effort; failures are logged but
// never surfaced to the API caller.
func (s *Server) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
}

// inputError indicates invalid user input.
// Transport layers map this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }
