package adapter

import "context"

// MediaProber determines the duration of an audio/video file.
type MediaProber interface {
	// ProbeDuration returns the media duration in seconds. Failures (missing
	// file, corrupt media, tool crash, timeout) surface as
	// domain.ErrDurationProbeFailed.
	ProbeDuration(ctx context.Context, path string) (float64, error)
}
