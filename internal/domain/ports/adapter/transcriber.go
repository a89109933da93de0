package adapter

import (
	"context"

	"notes-credit-ledger/internal/domain/model"
)

// NoteTranscriber converts a note's uploads into structured note text via a
// generative AI model. The ledger treats it as an external collaborator: the
// worker deducts before calling it and refunds when it fails.
type NoteTranscriber interface {
	TranscribeNote(ctx context.Context, note *model.Note, uploads []*model.Upload) (string, error)
}
