// Package store provides the task-history storage interface and its
// in-memory implementation.
//
// History is an append-only, in-process sequence with optional JSON
// snapshot persistence; it is not a database. The orchestrator owns one
// Store instance; there is no ambient module-level history.
package store

import (
	"context"

	"github.com/inboxpilot/inboxpilot/pkg/models"
)

// Store is the task-history interface the orchestrator and API depend on.
// The interface/implementation split keeps tests on a fresh in-memory
// store.
type Store interface {
	// AppendTask assigns the next monotonic task id, stores the record,
	// and returns the id. Records are never mutated after append.
	AppendTask(ctx context.Context, record *models.TaskRecord) (int, error)

	// ListTasks returns all records in append order.
	ListTasks(ctx context.Context) ([]models.TaskRecord, error)

	// GetTask returns one record by task id.
	GetTask(ctx context.Context, id int) (*models.TaskRecord, error)

	// ResetTasks clears the history. Task ids restart from 0 afterwards.
	ResetTasks(ctx context.Context) error

	// ExportTasks writes the full history as indented JSON to a file.
	ExportTasks(ctx context.Context, path string) error

	// Close releases resources held by the store.
	Close() error
}
