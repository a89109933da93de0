package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"notes-credit-ledger/internal/domain"
	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/repository"
)

// Ensure noteRepo implements repository.NoteRepository
var _ repository.NoteRepository = (*noteRepo)(nil)

type noteRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
}

func NewNoteRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *noteRepo {
	return &noteRepo{pool: pool, tm: tm}
}

const noteColumns = `id, user_id, title, status, failure_category, content, charged_minutes, retries, created_at, updated_at`

func (r *noteRepo) Save(ctx context.Context, tx repository.Tx, n *model.Note) error {
	const q = `
INSERT INTO notes (` + noteColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  title=$3, status=$4, failure_category=$5, content=$6, charged_minutes=$7, retries=$8, updated_at=$10;`

	_, err := execSQL(ctx, r.pool, tx, q,
		n.ID, n.UserID, n.Title, string(n.Status), string(n.FailureCategory),
		n.Content, int64(n.ChargedMinutes), n.Retries, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *noteRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Note, error) {
	const q = `SELECT ` + noteColumns + ` FROM notes WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanNote(row)
}

func (r *noteRepo) SaveUpload(ctx context.Context, tx repository.Tx, u *model.Upload) error {
	const q = `
INSERT INTO uploads (id, note_id, file_type, storage_path, duration_seconds, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET duration_seconds=$5;`

	_, err := execSQL(ctx, r.pool, tx, q,
		u.ID, u.NoteID, string(u.FileType), u.StoragePath, u.DurationSeconds, u.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *noteRepo) ListUploads(ctx context.Context, tx repository.Tx, noteID string) ([]*model.Upload, error) {
	const q = `
SELECT id, note_id, file_type, storage_path, duration_seconds, created_at
  FROM uploads
 WHERE note_id=$1
 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, noteID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Upload
	for rows.Next() {
		u := &model.Upload{}
		var ft string
		if err := rows.Scan(&u.ID, &u.NoteID, &ft, &u.StoragePath, &u.DurationSeconds, &u.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		u.FileType = model.FileType(ft)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// FetchAndMarkProcessing claims the oldest queued note inside one
// transaction. FOR UPDATE SKIP LOCKED lets concurrent workers claim
// different notes without ever blocking on each other.
func (r *noteRepo) FetchAndMarkProcessing(ctx context.Context) (*model.Note, error) {
	var note *model.Note

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const fetchQuery = `
SELECT ` + noteColumns + `
  FROM notes
 WHERE status='queued'
 ORDER BY created_at
 LIMIT 1
FOR UPDATE SKIP LOCKED;`

		row, err := pickRow(ctx, r.pool, tx, fetchQuery)
		if err != nil {
			return err
		}
		fetched, err := scanNote(row)
		if err != nil {
			return err
		}

		fetched.Status = model.NoteStatusProcessing
		fetched.UpdatedAt = time.Now().UTC()
		if err := r.Save(ctx, tx, fetched); err != nil {
			return err
		}
		note = fetched
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return note, nil
}

func scanNote(row pgx.Row) (*model.Note, error) {
	n := &model.Note{}
	var status, failure string
	var charged int64
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &status, &failure, &n.Content, &charged, &n.Retries, &n.CreatedAt, &n.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	n.Status = model.NoteStatus(status)
	n.FailureCategory = model.FailureCategory(failure)
	n.ChargedMinutes = model.Minutes(charged)
	return n, nil
}
