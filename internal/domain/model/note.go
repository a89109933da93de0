package model

import (
	"strings"
	"time"
)

type NoteStatus string

const (
	NoteStatusQueued     NoteStatus = "queued"
	NoteStatusProcessing NoteStatus = "processing"
	NoteStatusCompleted  NoteStatus = "completed"
	NoteStatusFailed     NoteStatus = "failed"
)

// FailureCategory classifies why a note failed, for user display. The raw
// error never reaches the user; the web layer translates the category.
type FailureCategory string

const (
	FailureNone               FailureCategory = ""
	FailureInsufficientCredit FailureCategory = "insufficient_credit"
	FailureUnsupportedFile    FailureCategory = "unsupported_file"
	FailureMediaUnreadable    FailureCategory = "media_unreadable"
	FailureTranscription      FailureCategory = "transcription_failed"
	FailureInternal           FailureCategory = "internal_error"
)

// Note is the unit of work whose processing cost is computed and charged.
type Note struct {
	ID              string
	UserID          string
	Title           string
	Status          NoteStatus
	FailureCategory FailureCategory
	Content         string // generated note text, encrypted at rest
	ChargedMinutes  Minutes
	Retries         int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type FileType string

const (
	FileTypeAudio FileType = "audio"
	FileTypeVideo FileType = "video"
	FileTypeImage FileType = "image"
	FileTypeOther FileType = "other"
)

// FileTypeFromMIME maps a MIME type (audio/mpeg, video/mp4, image/jpeg) or a
// bare type name onto a FileType.
func FileTypeFromMIME(mime string) FileType {
	m := strings.ToLower(mime)
	switch {
	case m == "audio" || strings.HasPrefix(m, "audio/"):
		return FileTypeAudio
	case m == "video" || strings.HasPrefix(m, "video/"):
		return FileTypeVideo
	case m == "image" || strings.HasPrefix(m, "image/"):
		return FileTypeImage
	default:
		return FileTypeOther
	}
}

// Upload is one file belonging to a note. DurationSeconds is nil until the
// file has been probed.
type Upload struct {
	ID              string
	NoteID          string
	FileType        FileType
	StoragePath     string
	DurationSeconds *float64
	CreatedAt       time.Time
}
