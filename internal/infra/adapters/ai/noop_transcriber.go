package ai

import (
	"context"
	"fmt"
	"time"

	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/adapter"
)

var _ adapter.NoteTranscriber = (*NoopTranscriber)(nil)

// NoopTranscriber is for local/dev runs: it produces a canned note without
// calling any real AI provider.
type NoopTranscriber struct{}

func NewNoopTranscriber() *NoopTranscriber {
	return &NoopTranscriber{}
}

func (a *NoopTranscriber) TranscribeNote(ctx context.Context, note *model.Note, uploads []*model.Upload) (string, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return fmt.Sprintf("# %s\n\nGenerated placeholder notes from %d upload(s).\n", note.Title, len(uploads)), nil
}
