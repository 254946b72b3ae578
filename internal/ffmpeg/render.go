package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Frame sizes for the two output layouts.
const (
	PortraitWidth   = 1080
	PortraitHeight  = 1920
	LandscapeWidth  = 1920
	LandscapeHeight = 1080
)

// Rendering defaults.
const (
	// renderFPS is the frame rate of slideshow output.
	renderFPS = 25

	// DefaultMusicVolume is the background music gain before ducking.
	DefaultMusicVolume = 0.18

	// Ken Burns zoom ramp over each scene.
	defaultZoomStart = 1.00
	defaultZoomEnd   = 1.10

	// defaultShutdownTimeout bounds the wait for FFmpeg to finalize the
	// container after a cancellation.
	defaultShutdownTimeout = 10 * time.Second

	// progressPollInterval is how often the progress file is re-read.
	progressPollInterval = 500 * time.Millisecond
)

// EscapeFilterPath escapes a path for use inside a filter argument such as
// ass='...'. Backslashes become slashes, colons and apostrophes are escaped
// (the colon form is required on Windows drive letters).
func EscapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.ReplaceAll(p, ":", `\:`)
	p = strings.ReplaceAll(p, "'", `\'`)
	return p
}

func ffSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// ---------------------------------------------------------------------------
// Mix - voice over music with sidechain ducking
// ---------------------------------------------------------------------------

// MixSpec describes a voice-plus-music mixdown.
type MixSpec struct {
	VoicePath string
	MusicPath string
	OutPath   string

	// Duration is the exact output length in seconds; the voice track is
	// padded or trimmed to it.
	Duration float64

	// MusicVolume is the music gain before ducking. Zero means
	// DefaultMusicVolume.
	MusicVolume float64
}

// MixArgs assembles the FFmpeg arguments for a ducked voice/music mix.
// Inputs are decoded and mixed as PCM to avoid double lossy compression;
// output is AAC 256k. The music is compressed by the voice via
// sidechaincompress so narration stays intelligible.
func MixArgs(spec MixSpec) []string {
	vol := spec.MusicVolume
	if vol <= 0 {
		vol = DefaultMusicVolume
	}
	d := ffSeconds(spec.Duration)

	// 0:a = voice, 1:a = music. The highpass removes rumble, the short
	// fade-ins remove start clicks, atrim/apad pin the exact duration.
	filter := strings.Join([]string{
		"[0:a]" +
			"aresample=async=1:first_pts=0," +
			"highpass=f=80," +
			"afade=t=in:st=0:d=0.06," +
			"apad=pad_dur=" + d + "," +
			"atrim=0:" + d + "," +
			"asetpts=N/SR/TB," +
			"alimiter=limit=0.97" +
			"[voice]",
		"[1:a]" +
			"atrim=0:" + d + "," +
			"asetpts=N/SR/TB," +
			"volume=" + strconv.FormatFloat(vol, 'f', -1, 64) + "," +
			"afade=t=in:st=0:d=0.08" +
			"[music]",
		"[music][voice]" +
			"sidechaincompress=threshold=0.05:ratio=12:attack=20:release=250" +
			"[ducked]",
		"[voice][ducked]" +
			"amix=inputs=2:duration=longest:dropout_transition=2," +
			"atrim=0:" + d + "," +
			"alimiter=limit=0.97" +
			"[aout]",
	}, ";")

	return []string{
		"-y",
		"-i", spec.VoicePath,
		"-i", spec.MusicPath,
		"-filter_complex", filter,
		"-map", "[aout]",
		"-t", d,
		"-c:a", "aac",
		"-b:a", "256k",
		"-movflags", "+faststart",
		spec.OutPath,
	}
}

// ---------------------------------------------------------------------------
// Slideshow - Ken Burns scenes with burned-in subtitles
// ---------------------------------------------------------------------------

// SlideshowSpec describes a narrated slideshow render.
type SlideshowSpec struct {
	// Images holds one background per scene. Empty renders on black.
	Images []string

	AudioPath    string
	SubtitlePath string // ASS file burned into the video; optional.
	OutPath      string

	Duration float64

	// Frame size. Zero values use the portrait defaults.
	Width  int
	Height int

	// Zoom ramp for the Ken Burns motion. Zero values use the defaults.
	ZoomStart float64
	ZoomEnd   float64
}

func (s SlideshowSpec) dims() (int, int) {
	w, h := s.Width, s.Height
	if w <= 0 {
		w = PortraitWidth
	}
	if h <= 0 {
		h = PortraitHeight
	}
	return w, h
}

func (s SlideshowSpec) zoom() (float64, float64) {
	zs, ze := s.ZoomStart, s.ZoomEnd
	if zs <= 0 {
		zs = defaultZoomStart
	}
	if ze <= 0 {
		ze = defaultZoomEnd
	}
	return zs, ze
}

// SlideshowArgs assembles the FFmpeg arguments for a full video render:
// one Ken Burns segment per image, concatenated, subtitles burned in, and
// the narration track muxed alongside.
func SlideshowArgs(spec SlideshowSpec) []string {
	if len(spec.Images) == 0 {
		return blackArgs(spec)
	}

	sceneDur := spec.Duration / float64(len(spec.Images))

	args := []string{"-y"}
	for _, img := range spec.Images {
		args = append(args, "-loop", "1", "-t", ffSeconds(sceneDur), "-i", img)
	}
	args = append(args, "-i", spec.AudioPath)
	audioIdx := len(spec.Images)

	w, h := spec.dims()
	zs, ze := spec.zoom()
	var parts []string
	var nodes []string
	for i := range spec.Images {
		label := fmt.Sprintf("v%d", i)
		parts = append(parts, kenBurnsFilter(i, label, sceneDur, w, h, zs, ze))
		nodes = append(nodes, "["+label+"]")
	}

	parts = append(parts, fmt.Sprintf("%sconcat=n=%d:v=1:a=0,format=rgba[vbase]",
		strings.Join(nodes, ""), len(nodes)))
	parts = append(parts, subtitleChain("vbase", spec.SubtitlePath)...)

	args = append(args,
		"-filter_complex", strings.Join(parts, ";"),
		"-map", "[vout]",
		"-map", fmt.Sprintf("%d:a", audioIdx),
		"-shortest",
	)
	return append(args, encodeArgs(spec.OutPath)...)
}

// blackArgs renders the narration over a black background, used when no
// scene images are available.
func blackArgs(spec SlideshowSpec) []string {
	w, h := spec.dims()
	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:d=%s", w, h, ffSeconds(spec.Duration)),
		"-i", spec.AudioPath,
	}

	parts := []string{"[0:v]format=rgba[vbase]"}
	parts = append(parts, subtitleChain("vbase", spec.SubtitlePath)...)

	args = append(args,
		"-filter_complex", strings.Join(parts, ";"),
		"-map", "[vout]",
		"-map", "1:a",
		"-shortest",
	)
	return append(args, encodeArgs(spec.OutPath)...)
}

// kenBurnsFilter builds the per-scene zoompan chain: cover-scale and crop
// to the frame, then a linear zoom ramp across the scene duration.
func kenBurnsFilter(inputIdx int, outLabel string, dur float64, w, h int, zoomStart, zoomEnd float64) string {
	frames := max(1, int(dur*renderFPS))
	zoomExpr := fmt.Sprintf("zoom='%g+(%g-%g)*on/%d'", zoomStart, zoomEnd, zoomStart, frames)
	return fmt.Sprintf(
		"[%d:v]"+
			"scale=%d:%d:force_original_aspect_ratio=increase,"+
			"crop=%d:%d,"+
			"zoompan=%s:x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d,"+
			"fps=%d,trim=duration=%s,setpts=PTS-STARTPTS"+
			"[%s]",
		inputIdx, w, h, w, h, zoomExpr, frames, w, h, renderFPS, ffSeconds(dur), outLabel)
}

// subtitleChain appends the ASS burn-in (when present) and the final
// yuv420p conversion, producing the [vout] node.
func subtitleChain(inLabel, assPath string) []string {
	if assPath == "" {
		return []string{fmt.Sprintf("[%s]format=yuv420p[vout]", inLabel)}
	}
	return []string{
		fmt.Sprintf("[%s]ass='%s'[v]", inLabel, EscapeFilterPath(assPath)),
		"[v]format=yuv420p[vout]",
	}
}

func encodeArgs(outPath string) []string {
	return []string{
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-loglevel", "error",
		outPath,
	}
}

// ---------------------------------------------------------------------------
// Renderer - execution with progress reporting
// ---------------------------------------------------------------------------

// ProgressFunc receives render progress: elapsed output time and encoding
// speed as reported by FFmpeg (0 when unknown).
type ProgressFunc func(outTime time.Duration, speed float64)

// Renderer runs render commands with graceful shutdown and optional
// progress reporting via FFmpeg's -progress key=value output.
type Renderer struct {
	ffmpegPath string
	timeout    time.Duration
	interval   time.Duration
	progress   ProgressFunc
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithProgress sets a progress callback.
func WithProgress(fn ProgressFunc) RendererOption {
	return func(r *Renderer) { r.progress = fn }
}

// WithShutdownTimeout bounds the graceful shutdown wait.
func WithShutdownTimeout(d time.Duration) RendererOption {
	return func(r *Renderer) { r.timeout = d }
}

// WithPollInterval sets how often progress is read (for testing).
func WithPollInterval(d time.Duration) RendererOption {
	return func(r *Renderer) { r.interval = d }
}

// NewRenderer creates a Renderer bound to an ffmpeg binary.
func NewRenderer(ffmpegPath string, opts ...RendererOption) (*Renderer, error) {
	if ffmpegPath == "" {
		return nil, fmt.Errorf("ffmpegPath cannot be empty: %w", ErrNotFound)
	}

	r := &Renderer{
		ffmpegPath: ffmpegPath,
		timeout:    defaultShutdownTimeout,
		interval:   progressPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes an assembled FFmpeg command. When a progress callback is
// set, FFmpeg writes -progress output to a temp file that is polled until
// the run finishes. The output path must be the final argument.
func (r *Renderer) Run(ctx context.Context, args []string) error {
	if r.progress == nil || len(args) == 0 {
		return RunGraceful(ctx, r.ffmpegPath, args, r.timeout)
	}

	progFile, err := os.CreateTemp("", "ytstudio-progress-*.txt")
	if err != nil {
		return RunGraceful(ctx, r.ffmpegPath, args, r.timeout)
	}
	progPath := progFile.Name()
	_ = progFile.Close()
	defer func() { _ = os.Remove(progPath) }()

	// Insert the progress flags before the output path.
	full := make([]string, 0, len(args)+4)
	full = append(full, args[:len(args)-1]...)
	full = append(full, "-progress", progPath, "-nostats")
	full = append(full, args[len(args)-1])

	pollCtx, stopPoll := context.WithCancel(context.Background())
	defer stopPoll()
	go r.poll(pollCtx, progPath)

	return RunGraceful(ctx, r.ffmpegPath, full, r.timeout)
}

func (r *Renderer) poll(ctx context.Context, path string) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			data, err := os.ReadFile(path) // #nosec G304 -- temp file created above
			if err != nil {
				continue
			}
			if outTime, speed, ok := parseProgress(string(data)); ok {
				r.progress(outTime, speed)
			}
		}
	}
}

// parseProgress extracts the latest out_time and speed from FFmpeg's
// -progress key=value stream. Later values win; ok is false when no time
// mark was found yet.
func parseProgress(text string) (outTime time.Duration, speed float64, ok bool) {
	for _, line := range strings.Split(text, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "out_time_ms", "out_time_us":
			// Both keys carry microseconds.
			if us, err := strconv.ParseFloat(value, 64); err == nil {
				outTime = time.Duration(us * float64(time.Microsecond))
				ok = true
			}
		case "out_time":
			if d, err := parseClockTime(value); err == nil {
				outTime = d
				ok = true
			}
		case "speed":
			v := strings.TrimSuffix(strings.ToLower(value), "x")
			if s, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				speed = s
			}
		}
	}
	return outTime, speed, ok
}

// parseClockTime parses HH:MM:SS.frac progress timestamps.
func parseClockTime(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed time %q", s)
	}
	h, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	m, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, err
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	return time.Duration((h*3600 + m*60 + sec) * float64(time.Second)), nil
}
