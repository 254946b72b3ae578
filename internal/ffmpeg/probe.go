package ffmpeg

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Default silence detection parameters.
const (
	// defaultNoiseDB is the silence threshold in dB. -30dB suits narrated
	// voice tracks with typical background noise.
	defaultNoiseDB = -30.0

	// defaultMinSilence is the minimum silence duration to report. 300ms
	// catches pauses between sentences without flagging every breath.
	defaultMinSilence = 300 * time.Millisecond
)

// Prober inspects media files through FFmpeg.
type Prober struct {
	ffmpegPath string
	noiseDB    float64
	minSilence time.Duration

	cmd commandRunner
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithNoiseDB sets the silence detection threshold in dB. Lower values
// (more negative) treat quieter sounds as speech.
func WithNoiseDB(db float64) ProberOption {
	return func(p *Prober) { p.noiseDB = db }
}

// WithMinSilence sets the minimum silence duration to detect.
func WithMinSilence(d time.Duration) ProberOption {
	return func(p *Prober) { p.minSilence = d }
}

// WithCommandRunner sets the command runner (for testing).
func WithCommandRunner(r commandRunner) ProberOption {
	return func(p *Prober) { p.cmd = r }
}

// NewProber creates a Prober bound to an ffmpeg binary.
func NewProber(ffmpegPath string, opts ...ProberOption) (*Prober, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ErrNotFound)
	}

	p := &Prober{
		ffmpegPath: ffmpegPath,
		noiseDB:    defaultNoiseDB,
		minSilence: defaultMinSilence,
		cmd:        osCommandRunner{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Duration returns the duration of a media file.
func (p *Prober) Duration(ctx context.Context, path string) (time.Duration, error) {
	args := []string{
		"-i", path,
		"-f", "null", "-",
	}
	output, err := p.cmd.CombinedOutput(ctx, p.ffmpegPath, args)
	if err != nil && len(output) == 0 {
		// FFmpeg exits non-zero for null-sink runs; only fail when there
		// is no output to parse.
		return 0, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	return parseDurationFromFFmpegOutput(string(output))
}

// SilenceLog runs silencedetect over the audio and returns the raw FFmpeg
// log plus the total duration. Callers parse silence intervals out of the
// log themselves.
func (p *Prober) SilenceLog(ctx context.Context, path string) (string, time.Duration, error) {
	args := []string{
		"-i", path,
		"-af", fmt.Sprintf("silencedetect=noise=%ddB:d=%.2f",
			int(p.noiseDB),
			p.minSilence.Seconds()),
		"-f", "null",
		"-",
	}

	output, err := p.cmd.CombinedOutput(ctx, p.ffmpegPath, args)
	if err != nil && len(output) == 0 {
		return "", 0, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}

	log := string(output)
	duration, err := parseDurationFromFFmpegOutput(log)
	if err != nil {
		return log, 0, fmt.Errorf("could not determine audio duration: %w", err)
	}

	return log, duration, nil
}

var (
	// Pattern: Duration: 00:05:23.45
	probeDurationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

	// Fallback pattern: time=00:05:23.45 (from progress output)
	probeTimeRe = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
)

// parseDurationFromFFmpegOutput extracts duration from FFmpeg stderr.
// Looks for "Duration: HH:MM:SS.ms", falling back to the last "time=" mark.
func parseDurationFromFFmpegOutput(output string) (time.Duration, error) {
	if matches := probeDurationRe.FindStringSubmatch(output); matches != nil {
		return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
	}

	allMatches := probeTimeRe.FindAllStringSubmatch(output, -1)
	if len(allMatches) > 0 {
		matches := allMatches[len(allMatches)-1]
		return parseTimeComponents(matches[1], matches[2], matches[3], matches[4])
	}

	return 0, fmt.Errorf("%w: could not parse duration from ffmpeg output", ErrProbeFailed)
}

// parseTimeComponents converts HH:MM:SS.frac strings to Duration. The
// fractional part may carry 1-6+ digits and is normalized to milliseconds.
func parseTimeComponents(hours, minutes, seconds, fractional string) (time.Duration, error) {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	frac, _ := strconv.Atoi(fractional)
	ms := frac
	switch n := len(fractional); {
	case n == 1:
		ms = frac * 100
	case n == 2:
		ms = frac * 10
	case n == 3:
		// Already milliseconds.
	case n > 3:
		for i := n; i > 3; i-- {
			ms /= 10
		}
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

// FormatTime formats a duration for FFmpeg -ss/-to/-t arguments.
func FormatTime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := d.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}
