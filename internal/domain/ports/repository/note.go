package repository

import (
	"context"

	"notes-credit-ledger/internal/domain/model"
)

// NoteRepository is the port for notes and their uploads.
type NoteRepository interface {
	Save(ctx context.Context, tx Tx, n *model.Note) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Note, error)

	SaveUpload(ctx context.Context, tx Tx, u *model.Upload) error
	ListUploads(ctx context.Context, tx Tx, noteID string) ([]*model.Upload, error)

	// FetchAndMarkProcessing atomically claims the oldest queued note and
	// flips it to processing, so concurrent workers never grab the same one.
	// Returns domain.ErrNotFound when the queue is empty.
	FetchAndMarkProcessing(ctx context.Context) (*model.Note, error)
}
