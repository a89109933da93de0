// File: internal/infra/adapters/ai/openai_transcriber.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/domain/ports/adapter"
)

var _ adapter.NoteTranscriber = (*OpenAITranscriber)(nil)

// OpenAITranscriber transcribes audio/video uploads with Whisper, then asks a
// chat model to structure the transcripts into study notes. Image uploads are
// referenced but not OCR'd by this provider.
type OpenAITranscriber struct {
	client openai.Client
	model  string
}

func NewOpenAITranscriber(apiKey, chatModel string) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, errors.New("openai: empty api key")
	}
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	return &OpenAITranscriber{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  chatModel,
	}, nil
}

func (o *OpenAITranscriber) TranscribeNote(ctx context.Context, note *model.Note, uploads []*model.Upload) (string, error) {
	if len(uploads) == 0 {
		return "", errors.New("openai: note has no uploads")
	}

	var sb strings.Builder
	if note.Title != "" {
		fmt.Fprintf(&sb, "Lecture title: %s\n\n", note.Title)
	}
	for i, u := range uploads {
		switch u.FileType {
		case model.FileTypeAudio, model.FileTypeVideo:
			text, err := o.transcribeFile(ctx, u.StoragePath)
			if err != nil {
				return "", fmt.Errorf("openai: transcribe upload %s: %w", u.ID, err)
			}
			fmt.Fprintf(&sb, "Transcript of recording %d:\n%s\n\n", i+1, text)
		case model.FileTypeImage:
			fmt.Fprintf(&sb, "(An image of lecture material was also attached.)\n\n")
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(notePrompt),
			openai.UserMessage(sb.String()),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAITranscriber) transcribeFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	tr, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModelWhisper1,
	})
	if err != nil {
		return "", err
	}
	return tr.Text, nil
}
