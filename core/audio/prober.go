package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/goccy/go-json"
)

// ErrUnknownDuration is returned when a prober has no duration for a source.
var ErrUnknownDuration = errors.New("duration unknown")

// DurationProber discovers the duration (seconds) of a playable source.
type DurationProber interface {
	Probe(ctx context.Context, src string) (float64, error)
}

// ProberFunc adapts a function to DurationProber.
type ProberFunc func(ctx context.Context, src string) (float64, error)

func (f ProberFunc) Probe(ctx context.Context, src string) (float64, error) { return f(ctx, src) }

// FFprobe probes sources with the ffprobe binary.
type FFprobe struct {
	path string
}

// NewFFprobe creates an FFprobe using the binary at path.
func NewFFprobe(path string) *FFprobe {
	return &FFprobe{path: path}
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe uses ffprobe to get the duration of src in seconds.
func (p *FFprobe) Probe(ctx context.Context, src string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		src,
	}

	cmd := exec.CommandContext(ctx, p.path, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", src, err, stderr.String())
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output for %s: %w", src, err)
	}
	if probeData.Format.Duration == "" {
		return 0, fmt.Errorf("duration not found in ffprobe output for %s: %w", src, ErrUnknownDuration)
	}

	duration, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration string %q for %s: %w", probeData.Format.Duration, src, err)
	}
	return duration, nil
}

// FallbackProber tries each prober in order and returns the first success.
type FallbackProber []DurationProber

func (f FallbackProber) Probe(ctx context.Context, src string) (float64, error) {
	var errs []error
	for _, p := range f {
		d, err := p.Probe(ctx, src)
		if err == nil {
			return d, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return 0, ErrUnknownDuration
	}
	return 0, errors.Join(errs...)
}
