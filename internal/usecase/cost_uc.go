// File: internal/usecase/cost_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"notes-credit-ledger/internal/domain"
	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/adapter"
	"notes-credit-ledger/internal/domain/ports/repository"
)

// CostUseCase computes the billable cost of uploads and notes. It is a pure
// reader: probing a file never mutates any stored state, so the same note
// always prices to the same total.
type CostUseCase struct {
	noteRepo  repository.NoteRepository
	prober    adapter.MediaProber
	imageCost model.Minutes
	log       *zerolog.Logger
}

func NewCostUseCase(noteRepo repository.NoteRepository, prober adapter.MediaProber, imageCost model.Minutes, logger *zerolog.Logger) *CostUseCase {
	l := logger.With().Str("component", "CostUseCase").Logger()
	return &CostUseCase{noteRepo: noteRepo, prober: prober, imageCost: imageCost, log: &l}
}

// EstimateUpload returns the billable minutes for one upload. Audio and video
// are billed by real duration (fractional minutes, two decimal places);
// images cost a fixed constant regardless of content. A probe failure or an
// unrecognized type surfaces as a domain error and never a partial estimate.
func (uc *CostUseCase) EstimateUpload(ctx context.Context, u *model.Upload) (model.Minutes, error) {
	switch u.FileType {
	case model.FileTypeAudio, model.FileTypeVideo:
		if u.DurationSeconds != nil {
			return model.MinutesFromSeconds(*u.DurationSeconds), nil
		}
		sec, err := uc.prober.ProbeDuration(ctx, u.StoragePath)
		if err != nil {
			return 0, err
		}
		return model.MinutesFromSeconds(sec), nil
	case model.FileTypeImage:
		return uc.imageCost, nil
	default:
		uc.log.Warn().Str("upload_id", u.ID).Str("file_type", string(u.FileType)).Msg("unsupported file type")
		return 0, domain.ErrUnsupportedFileType
	}
}

// NoteCost sums EstimateUpload over every upload of the note. If any single
// estimate fails the whole calculation fails: cost must be exact before a
// deduction commits, never a best-effort total.
func (uc *CostUseCase) NoteCost(ctx context.Context, noteID string) (model.Minutes, error) {
	uploads, err := uc.noteRepo.ListUploads(ctx, repository.NoTX, noteID)
	if err != nil {
		return 0, err
	}
	if len(uploads) == 0 {
		uc.log.Warn().Str("note_id", noteID).Msg("note has no uploads")
		return 0, nil
	}
	var total model.Minutes
	for _, u := range uploads {
		m, err := uc.EstimateUpload(ctx, u)
		if err != nil {
			return 0, err
		}
		total += m
	}
	return total, nil
}
