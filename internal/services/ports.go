// Package services orchestrates the core analysis, the store, the dashboard
// cache and the event publisher behind the HTTP API and the admin CLI.
package services

import (
	"context"

	"fintrack/internal/core"
)

type (
	TransactionStore interface {
		AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	}

	// Publisher announces stored transactions; nil disables publishing.
	Publisher interface {
		PublishTransactionRecorded(ctx context.Context, tx core.Transaction) error
	}

	// Invalidator drops cached views derived from a user's transactions.
	Invalidator interface {
		Invalidate(ctx context.Context, userID int64)
	}

	AccountStore interface {
		CreateUser(ctx context.Context, username, passwordHash string) (core.User, error)
		UserByUsername(ctx context.Context, username string) (core.User, error)
		UserByID(ctx context.Context, id int64) (core.User, error)
		GetProfile(ctx context.Context, userID int64) (core.Profile, error)
		UpsertProfile(ctx context.Context, p core.Profile) error
	}
)
