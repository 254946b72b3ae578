package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/HayatoBr/YTStudioAI/internal/config"
	"github.com/HayatoBr/YTStudioAI/internal/format"
	"github.com/HayatoBr/YTStudioAI/internal/subtitle"
)

// supportedAudioFormats lists audio extensions the probe pipeline accepts.
var supportedAudioFormats = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".aac":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
}

// supportedAudioFormatsList returns a sorted, comma-separated list for
// error messages.
func supportedAudioFormatsList() string {
	formats := make([]string, 0, len(supportedAudioFormats))
	for ext := range supportedAudioFormats {
		formats = append(formats, strings.TrimPrefix(ext, "."))
	}
	slices.Sort(formats)
	return strings.Join(formats, ", ")
}

// deriveASSPath converts a narration text path to an .ass output path.
// Example: "narration.txt" -> "narration.ass"
func deriveASSPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + ".ass"
}

// SubtitlesCmd creates the subtitles command.
// The env parameter provides injectable dependencies for testing.
func SubtitlesCmd(env *Env) *cobra.Command {
	var (
		audio    string
		duration float64
		output   string
		long     bool
		autosync bool
	)

	cmd := &cobra.Command{
		Use:   "subtitles <narration-file>",
		Short: "Build a karaoke subtitle file from narration text",
		Long: `Build a karaoke ASS subtitle file from a narration text file.

The narration is split into short chunks, timed against the audio track,
and written as an ASS document with per-word karaoke highlighting.

With --audio the chunk timings follow the measured audio duration, and
--autosync aligns them to the detected speech windows. Without audio,
--duration sets the total length; omitting both distributes chunks over
an open-ended timeline.`,
		Example: `  ytstudio subtitles narration.txt -a voice.mp3 -o short.ass
  ytstudio subtitles narration.txt -a voice.mp3 --autosync
  ytstudio subtitles narration.txt --duration 54.5
  ytstudio subtitles essay.txt -a voice.mp3 --long`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubtitles(cmd, env, args[0], audio, duration, output, long, autosync)
		},
	}

	cmd.Flags().StringVarP(&audio, "audio", "a", "", "Narration audio file to time against")
	cmd.Flags().Float64VarP(&duration, "duration", "d", 0, "Total duration in seconds (when no audio is given)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: <input>.ass)")
	cmd.Flags().BoolVar(&long, "long", false, "Use long-form chunk timing (1.5-3s per chunk)")
	cmd.Flags().BoolVar(&autosync, "autosync", false, "Align chunks to detected speech windows")

	return cmd
}

// runSubtitles executes the standalone subtitle pipeline.
func runSubtitles(cmd *cobra.Command, env *Env, inputPath, audioPath string,
	duration float64, output string, long, autosync bool) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	if _, err := os.Stat(inputPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, inputPath)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}

	if audioPath != "" {
		if _, err := os.Stat(audioPath); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", ErrFileNotFound, audioPath)
			}
			return fmt.Errorf("cannot access audio file: %w", err)
		}
		ext := strings.ToLower(filepath.Ext(audioPath))
		if !supportedAudioFormats[ext] {
			return fmt.Errorf("unsupported format %q (supported: %s): %w",
				ext, supportedAudioFormatsList(), ErrUnsupportedFormat)
		}
	}

	settings := config.LoadSettings(env.Getenv)
	autosync = autosync || settings.Autosync

	cfg, err := config.Load(env.Getenv)
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}
	defaultOutput := deriveASSPath(filepath.Base(inputPath))
	output = config.ResolveOutputPath(output, cfg.OutputDir, defaultOutput)

	// === CHUNKING ===

	raw, err := os.ReadFile(inputPath) // #nosec G304 -- user-specified input file
	if err != nil {
		return fmt.Errorf("cannot read narration: %w", err)
	}

	chunks := subtitle.ChunksFromText(string(raw), settings.SubMaxChars)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyInput, inputPath)
	}

	// === TIMING ===

	var prober AudioProber
	if audioPath != "" {
		ffmpegPath, err := env.FFmpegResolver.Resolve("")
		if err != nil {
			fmt.Fprintf(env.Stderr, "Warning: ffmpeg unavailable, timing without audio: %v\n", err)
		} else if p, err := env.ProberFactory.NewProber(ffmpegPath); err == nil {
			prober = p
		}
	}

	known := time.Duration(duration * float64(time.Second))
	plan := buildSyncPlan(ctx, prober, audioPath, settings, autosync, known, env.Stderr)

	timing := timingFromSettings(settings, long)
	timing.Offset += plan.ExtraOffset

	timeline := subtitle.BuildTimeline(chunks, plan.Total, plan.Segments, timing)

	// === WRITE OUTPUT ===

	var buf bytes.Buffer
	if err := subtitle.WriteKaraokeASS(&buf, timeline, subtitle.DefaultStyle()); err != nil {
		return fmt.Errorf("render subtitles: %w", err)
	}
	if err := writeFileAtomic(output, buf.Bytes()); err != nil {
		return err
	}

	if plan.Total > 0 {
		fmt.Fprintf(env.Stderr, "Done: %s (%d chunks over %s)\n",
			output, len(timeline), format.Seconds(time.Duration(plan.Total*float64(time.Second))))
	} else {
		fmt.Fprintf(env.Stderr, "Done: %s (%d chunks)\n", output, len(timeline))
	}
	return nil
}
