// File: internal/infra/adapters/ai/fallback_transcriber.go
package ai

import (
	"context"
	"errors"

	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/adapter"
)

var _ adapter.NoteTranscriber = (*FallbackTranscriber)(nil)

// FallbackTranscriber tries providers in order until one succeeds. A context
// cancellation stops the chain immediately; provider errors move on to the
// next one.
type FallbackTranscriber struct {
	providers []adapter.NoteTranscriber
}

func NewFallbackTranscriber(providers ...adapter.NoteTranscriber) *FallbackTranscriber {
	return &FallbackTranscriber{providers: providers}
}

func (f *FallbackTranscriber) TranscribeNote(ctx context.Context, note *model.Note, uploads []*model.Upload) (string, error) {
	if len(f.providers) == 0 {
		return "", errors.New("no transcription providers configured")
	}
	var lastErr error
	for _, p := range f.providers {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := p.TranscribeNote(ctx, note, uploads)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", lastErr
}
