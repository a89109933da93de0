// File: internal/infra/worker/note_processor.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"notes-credit-ledger/internal/domain"
	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/adapter"
	"notes-credit-ledger/internal/domain/ports/repository"
	"notes-credit-ledger/internal/infra/logging"
	"notes-credit-ledger/internal/infra/metrics"
	"notes-credit-ledger/internal/infra/security"
	"notes-credit-ledger/internal/usecase"
)

// NoteProcessor drains the note queue: claim a queued note, price it, charge
// the user, run the transcriber, and store the encrypted result. Any failure
// after the charge refunds what was deducted, so a failed note never costs
// the user anything.
type NoteProcessor struct {
	noteRepo    repository.NoteRepository
	cost        *usecase.CostUseCase
	ledger      *usecase.LedgerUseCase
	transcriber adapter.NoteTranscriber
	enc         *security.EncryptionService
	maxRetries  int
	log         *zerolog.Logger
}

func NewNoteProcessor(
	noteRepo repository.NoteRepository,
	cost *usecase.CostUseCase,
	ledger *usecase.LedgerUseCase,
	transcriber adapter.NoteTranscriber,
	enc *security.EncryptionService,
	maxRetries int,
	logger *zerolog.Logger,
) *NoteProcessor {
	if maxRetries < 0 {
		maxRetries = 0
	}
	l := logger.With().Str("component", "NoteProcessor").Logger()
	return &NoteProcessor{
		noteRepo:    noteRepo,
		cost:        cost,
		ledger:      ledger,
		transcriber: transcriber,
		enc:         enc,
		maxRetries:  maxRetries,
		log:         &l,
	}
}

// Start polls for queued notes and submits them to the pool.
// This should be run in a goroutine.
func (p *NoteProcessor) Start(ctx context.Context, pool *Pool, pollInterval time.Duration) {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	p.log.Info().Dur("poll_interval", pollInterval).Msg("note processor started")
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("note processor stopping")
			return
		case <-ticker.C:
			_ = pool.Submit(func(ctx context.Context) error {
				p.ProcessOne(ctx)
				return nil
			})
		}
	}
}

// ProcessOne claims and fully handles a single note. It is a no-op when the
// queue is empty.
func (p *NoteProcessor) ProcessOne(ctx context.Context) {
	note, err := p.noteRepo.FetchAndMarkProcessing(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			p.log.Error().Err(err).Msg("failed to claim note")
		}
		return
	}

	ctx = logging.WithNoteID(logging.WithUserID(ctx, note.UserID), note.ID)
	log := logging.With(ctx, p.log)
	log.Info().Msg("processing note")
	start := time.Now()

	err = p.handleNote(ctx, note)
	elapsed := time.Since(start)

	if err == nil {
		note.Status = model.NoteStatusCompleted
		note.FailureCategory = model.FailureNone
	} else {
		p.fail(ctx, note, err)
	}
	note.UpdatedAt = time.Now().UTC()
	// Final status write uses a background context so shutdown cannot leave
	// the note stuck in processing.
	if saveErr := p.noteRepo.Save(context.Background(), repository.NoTX, note); saveErr != nil {
		log.Error().Err(saveErr).Msg("failed to store final note status")
	}

	metrics.IncNoteProcessed(string(note.Status))
	metrics.ObserveNoteProcessing(elapsed.Seconds())
	log.Info().
		Str("status", string(note.Status)).
		Str("failure_category", string(note.FailureCategory)).
		Dur("duration_ms", elapsed).
		Msg("note finished")
}

// handleNote runs the billable pipeline: price, deduct, transcribe, encrypt.
func (p *NoteProcessor) handleNote(ctx context.Context, note *model.Note) error {
	required, err := p.cost.NoteCost(ctx, note.ID)
	if err != nil {
		return fmt.Errorf("pricing note: %w", err)
	}
	if required > 0 {
		txns, err := p.ledger.Deduct(ctx, note.UserID, required, note.ID, "")
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInsufficientCredit):
				metrics.IncInsufficientCredit()
			case errors.Is(err, domain.ErrLockTimeout):
				metrics.IncLockTimeout()
			}
			return fmt.Errorf("charging note: %w", err)
		}
		for _, t := range txns {
			metrics.ObserveLedgerEntry(string(t.Type), t.Amount.Float64())
		}
		note.ChargedMinutes = required
	}

	uploads, err := p.noteRepo.ListUploads(ctx, repository.NoTX, note.ID)
	if err != nil {
		return fmt.Errorf("loading uploads: %w", err)
	}
	text, err := p.transcriber.TranscribeNote(ctx, note, uploads)
	if err != nil {
		return &transcriptionError{inner: err}
	}

	cipher, err := p.enc.Encrypt(text)
	if err != nil {
		return fmt.Errorf("encrypting note content: %w", err)
	}
	note.Content = cipher
	return nil
}

// fail classifies the error, refunds anything already charged, and decides
// between a retry and a terminal failure.
func (p *NoteProcessor) fail(ctx context.Context, note *model.Note, cause error) {
	log := logging.With(ctx, p.log)
	category := classify(cause)
	log.Error().Err(cause).Str("failure_category", string(category)).Msg("note processing failed")

	if note.ChargedMinutes > 0 {
		txns, err := p.ledger.Refund(ctx, note.UserID, note.ChargedMinutes, note.ID,
			fmt.Sprintf("refund for failed note %s", note.ID))
		if err != nil {
			// The charge stands in the ledger; an operator can replay it from
			// the transaction log.
			log.Error().Err(err).Str("amount", note.ChargedMinutes.String()).Msg("refund after failure did not apply")
		} else {
			for _, t := range txns {
				metrics.ObserveLedgerEntry(string(t.Type), t.Amount.Float64())
			}
			note.ChargedMinutes = 0
		}
	}

	note.FailureCategory = category
	if retriable(category) && note.Retries < p.maxRetries {
		note.Retries++
		note.Status = model.NoteStatusQueued
		log.Info().Int("retries", note.Retries).Msg("note requeued")
		return
	}
	note.Status = model.NoteStatusFailed
}

// classify maps pipeline errors onto user-facing failure categories. The raw
// error text stays in the logs only.
func classify(err error) model.FailureCategory {
	switch {
	case errors.Is(err, domain.ErrInsufficientCredit):
		return model.FailureInsufficientCredit
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return model.FailureUnsupportedFile
	case errors.Is(err, domain.ErrDurationProbeFailed):
		return model.FailureMediaUnreadable
	case errors.Is(err, domain.ErrLockTimeout):
		return model.FailureInternal
	default:
		var te *transcriptionError
		if errors.As(err, &te) {
			return model.FailureTranscription
		}
		return model.FailureInternal
	}
}

type transcriptionError struct{ inner error }

func (t *transcriptionError) Error() string { return "transcribing note: " + t.inner.Error() }
func (t *transcriptionError) Unwrap() error { return t.inner }

// retriable failures come from transient infrastructure, not from the note
// itself. Deterministic failures (bad file, not enough credit) never retry.
func retriable(c model.FailureCategory) bool {
	return c == model.FailureTranscription || c == model.FailureInternal
}
