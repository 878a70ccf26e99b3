package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// TransactionService records transactions and fans out the side effects.
type TransactionService struct {
	store       TransactionStore
	publisher   Publisher
	invalidator Invalidator
	logger      *applog.StructuredLogger
}

func NewTransactionService(store TransactionStore, publisher Publisher, invalidator Invalidator) *TransactionService {
	return &TransactionService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		logger:      applog.NewStructuredLogger(applog.Default(applog.ComponentApp)),
	}
}

// Record validates and stores tx. Cache invalidation and event publishing
// happen after the insert and never fail the call.
func (s *TransactionService) Record(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.AddTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.LogTransactionRecorded(ctx, saved.UserID, saved.ID, string(saved.Type), saved.Amount, saved.Category)

	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, saved.UserID)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping transaction event", applog.FieldTxID, saved.ID)
		return saved, nil
	}
	if err := s.publisher.PublishTransactionRecorded(ctx, saved); err != nil {
		// The export sweep picks the row up later.
		s.logger.LogError(ctx, "Failed to publish transaction event", err, applog.OpCreate,
			applog.NewFields().WithTransaction(saved.ID, string(saved.Type), saved.Amount, saved.Category))
	}

	return saved, nil
}
