//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"notes-credit-ledger/internal/domain"
	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/usecase"
)

func floatPtr(f float64) *float64 { return &f }

func TestCostUseCase_EstimateUpload(t *testing.T) {
	ctx := context.Background()
	log := newTestLogger()

	t.Run("audio is billed by probed duration", func(t *testing.T) {
		prober := &mockProber{ProbeFunc: func(ctx context.Context, path string) (float64, error) {
			if path != "/store/lecture.mp3" {
				t.Errorf("probed unexpected path %q", path)
			}
			return 754.2, nil // 12.57 minutes
		}}
		uc := usecase.NewCostUseCase(newMemNoteRepo(), prober, mustMinutes(t, "0.50"), log)

		got, err := uc.EstimateUpload(ctx, &model.Upload{ID: "u1", FileType: model.FileTypeAudio, StoragePath: "/store/lecture.mp3"})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if got != mustMinutes(t, "12.57") {
			t.Errorf("estimate = %s, want 12.57", got)
		}
	})

	t.Run("a cached duration skips the probe", func(t *testing.T) {
		prober := &mockProber{ProbeFunc: func(ctx context.Context, path string) (float64, error) {
			t.Error("probe must not be called when duration is cached")
			return 0, nil
		}}
		uc := usecase.NewCostUseCase(newMemNoteRepo(), prober, mustMinutes(t, "0.50"), log)

		got, err := uc.EstimateUpload(ctx, &model.Upload{ID: "u1", FileType: model.FileTypeVideo, DurationSeconds: floatPtr(90)})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if got != mustMinutes(t, "1.50") {
			t.Errorf("estimate = %s, want 1.50", got)
		}
	})

	t.Run("images cost the fixed constant", func(t *testing.T) {
		prober := &mockProber{ProbeFunc: func(ctx context.Context, path string) (float64, error) {
			t.Error("probe must not be called for images")
			return 0, nil
		}}
		uc := usecase.NewCostUseCase(newMemNoteRepo(), prober, mustMinutes(t, "0.50"), log)

		got, err := uc.EstimateUpload(ctx, &model.Upload{ID: "u1", FileType: model.FileTypeImage, StoragePath: "/store/board.jpg"})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if got != mustMinutes(t, "0.50") {
			t.Errorf("estimate = %s, want 0.50", got)
		}
	})

	t.Run("unsupported types are rejected", func(t *testing.T) {
		uc := usecase.NewCostUseCase(newMemNoteRepo(), &mockProber{}, mustMinutes(t, "0.50"), log)

		_, err := uc.EstimateUpload(ctx, &model.Upload{ID: "u1", FileType: model.FileTypeOther, StoragePath: "/store/slides.pdf"})
		if !errors.Is(err, domain.ErrUnsupportedFileType) {
			t.Fatalf("expected ErrUnsupportedFileType, got: %v", err)
		}
	})

	t.Run("probe failures surface unchanged", func(t *testing.T) {
		prober := &mockProber{ProbeFunc: func(ctx context.Context, path string) (float64, error) {
			return 0, domain.ErrDurationProbeFailed
		}}
		uc := usecase.NewCostUseCase(newMemNoteRepo(), prober, mustMinutes(t, "0.50"), log)

		_, err := uc.EstimateUpload(ctx, &model.Upload{ID: "u1", FileType: model.FileTypeAudio, StoragePath: "/store/corrupt.mp3"})
		if !errors.Is(err, domain.ErrDurationProbeFailed) {
			t.Fatalf("expected ErrDurationProbeFailed, got: %v", err)
		}
	})
}

func TestCostUseCase_NoteCost(t *testing.T) {
	ctx := context.Background()
	log := newTestLogger()

	t.Run("sums mixed uploads", func(t *testing.T) {
		notes := newMemNoteRepo()
		_ = notes.Save(ctx, nil, &model.Note{ID: "note-1", UserID: "user-1", Status: model.NoteStatusQueued})
		_ = notes.SaveUpload(ctx, nil, &model.Upload{ID: "u1", NoteID: "note-1", FileType: model.FileTypeAudio, DurationSeconds: floatPtr(180)})
		_ = notes.SaveUpload(ctx, nil, &model.Upload{ID: "u2", NoteID: "note-1", FileType: model.FileTypeImage})
		_ = notes.SaveUpload(ctx, nil, &model.Upload{ID: "u3", NoteID: "note-1", FileType: model.FileTypeImage})

		uc := usecase.NewCostUseCase(notes, &mockProber{}, mustMinutes(t, "0.50"), log)
		got, err := uc.NoteCost(ctx, "note-1")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if got != mustMinutes(t, "4.00") { // 3.00 audio + 2 x 0.50 images
			t.Errorf("note cost = %s, want 4.00", got)
		}
	})

	t.Run("a note with no uploads costs zero", func(t *testing.T) {
		notes := newMemNoteRepo()
		_ = notes.Save(ctx, nil, &model.Note{ID: "note-1", UserID: "user-1", Status: model.NoteStatusQueued})

		uc := usecase.NewCostUseCase(notes, &mockProber{}, mustMinutes(t, "0.50"), log)
		got, err := uc.NoteCost(ctx, "note-1")
		if err != nil || got != 0 {
			t.Errorf("cost = %s, err = %v, want 0.00 and nil", got, err)
		}
	})

	t.Run("one failing upload fails the whole note", func(t *testing.T) {
		notes := newMemNoteRepo()
		_ = notes.Save(ctx, nil, &model.Note{ID: "note-1", UserID: "user-1", Status: model.NoteStatusQueued})
		_ = notes.SaveUpload(ctx, nil, &model.Upload{ID: "u1", NoteID: "note-1", FileType: model.FileTypeImage})
		_ = notes.SaveUpload(ctx, nil, &model.Upload{ID: "u2", NoteID: "note-1", FileType: model.FileTypeAudio, StoragePath: "/store/bad.mp3"})

		prober := &mockProber{ProbeFunc: func(ctx context.Context, path string) (float64, error) {
			return 0, domain.ErrDurationProbeFailed
		}}
		uc := usecase.NewCostUseCase(notes, prober, mustMinutes(t, "0.50"), log)
		_, err := uc.NoteCost(ctx, "note-1")
		if !errors.Is(err, domain.ErrDurationProbeFailed) {
			t.Fatalf("expected ErrDurationProbeFailed, got: %v", err)
		}
	})
}
