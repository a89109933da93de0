package ai

import (
	"context"

	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.NoteTranscriber = (*limitedTranscriber)(nil)

type limitedTranscriber struct {
	inner adapter.NoteTranscriber
	sem   chan struct{}
}

// NewLimitedTranscriber caps concurrent provider calls with a semaphore.
func NewLimitedTranscriber(inner adapter.NoteTranscriber, maxConcurrent int) adapter.NoteTranscriber {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedTranscriber{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedTranscriber) TranscribeNote(ctx context.Context, note *model.Note, uploads []*model.Upload) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.TranscribeNote(ctx, note, uploads)
}
