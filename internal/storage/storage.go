// Package storage keeps the audit journal of workflow invocations.
package storage

import (
	"context"

	"yieldpilot/internal/model"
)

// Journal is a sink for finished workflow invocations.
type Journal interface {
	PutEntries(ctx context.Context, entries []model.JournalEntry) error
	Append(ctx context.Context, entry model.JournalEntry) error
}

// History reads entries back, newest first. An empty owner matches every
// entry.
type History interface {
	Recent(ctx context.Context, owner string, limit int) ([]model.JournalEntry, error)
}
