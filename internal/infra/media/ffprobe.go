package media

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"notes-credit-ledger/internal/domain"
	"notes-credit-ledger/internal/domain/ports/adapter"
)

// Ensure compile-time conformance
var _ adapter.MediaProber = (*FFprobeProber)(nil)

// FFprobeProber shells out to ffprobe to read the duration of an audio or
// video file. Any failure (missing binary, unreadable file, missing duration
// field) surfaces as domain.ErrDurationProbeFailed; the raw cause is logged,
// never billed.
type FFprobeProber struct {
	binPath string
	timeout time.Duration
	log     *zerolog.Logger
}

func NewFFprobeProber(binPath string, timeout time.Duration, logger *zerolog.Logger) *FFprobeProber {
	if binPath == "" {
		binPath = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	l := logger.With().Str("component", "FFprobeProber").Logger()
	return &FFprobeProber{binPath: binPath, timeout: timeout, log: &l}
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (p *FFprobeProber) ProbeDuration(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binPath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		p.log.Warn().Err(err).Str("path", path).Msg("ffprobe failed")
		return 0, domain.ErrDurationProbeFailed
	}
	sec, err := ParseDuration(out)
	if err != nil {
		p.log.Warn().Err(err).Str("path", path).Msg("ffprobe output unusable")
		return 0, domain.ErrDurationProbeFailed
	}
	return sec, nil
}

// ParseDuration extracts format.duration (seconds) from ffprobe JSON output.
func ParseDuration(out []byte) (float64, error) {
	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, err
	}
	if parsed.Format.Duration == "" {
		return 0, domain.ErrDurationProbeFailed
	}
	sec, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil {
		return 0, err
	}
	if sec <= 0 {
		return 0, domain.ErrDurationProbeFailed
	}
	return sec, nil
}
