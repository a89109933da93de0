// File: internal/infra/adapters/ai/gemini_transcriber.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/adapter"
)

var _ adapter.NoteTranscriber = (*GeminiTranscriber)(nil)

// notePrompt instructs the model to turn raw lecture media into study notes.
const notePrompt = `You are given recordings and photos from a university lecture.
Produce well-structured study notes in Markdown: a title, the key concepts,
definitions, worked examples, and a short summary. Write in the language
spoken in the recordings.`

type GeminiTranscriber struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiTranscriber creates a transcriber using the official Gemini SDK.
func NewGeminiTranscriber(ctx context.Context, apiKey, defaultModel string) (*GeminiTranscriber, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if defaultModel == "" {
		defaultModel = "gemini-2.0-flash"
	}
	return &GeminiTranscriber{client: c, defaultModel: defaultModel}, nil
}

func (g *GeminiTranscriber) TranscribeNote(ctx context.Context, note *model.Note, uploads []*model.Upload) (string, error) {
	if len(uploads) == 0 {
		return "", errors.New("gemini: note has no uploads")
	}

	parts := []*genai.Part{{Text: notePrompt}}
	if note.Title != "" {
		parts = append(parts, &genai.Part{Text: fmt.Sprintf("Lecture title: %s", note.Title)})
	}
	for _, u := range uploads {
		data, err := os.ReadFile(u.StoragePath)
		if err != nil {
			return "", fmt.Errorf("gemini: read upload %s: %w", u.ID, err)
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: mimeForUpload(u),
				Data:     data,
			},
		})
	}

	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.defaultModel,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}},
		nil,
	)
	if err != nil {
		return "", err
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if t := resp.Candidates[0].Content.Parts[0].Text; t != "" {
			text = t
		}
	}
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

// mimeForUpload guesses a MIME type from the stored file's extension,
// falling back to a generic type for the upload's category.
func mimeForUpload(u *model.Upload) string {
	ext := strings.ToLower(u.StoragePath)
	switch {
	case strings.HasSuffix(ext, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(ext, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(ext, ".m4a"):
		return "audio/mp4"
	case strings.HasSuffix(ext, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(ext, ".mp4"):
		return "video/mp4"
	case strings.HasSuffix(ext, ".webm"):
		return "video/webm"
	case strings.HasSuffix(ext, ".png"):
		return "image/png"
	case strings.HasSuffix(ext, ".jpg"), strings.HasSuffix(ext, ".jpeg"):
		return "image/jpeg"
	}
	switch u.FileType {
	case model.FileTypeAudio:
		return "audio/mpeg"
	case model.FileTypeVideo:
		return "video/mp4"
	case model.FileTypeImage:
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
