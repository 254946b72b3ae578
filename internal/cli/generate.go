package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/HayatoBr/YTStudioAI/internal/config"
	"github.com/HayatoBr/YTStudioAI/internal/ffmpeg"
	"github.com/HayatoBr/YTStudioAI/internal/format"
	"github.com/HayatoBr/YTStudioAI/internal/images"
	"github.com/HayatoBr/YTStudioAI/internal/script"
	"github.com/HayatoBr/YTStudioAI/internal/subtitle"
)

// Artifact names inside a run directory.
const (
	artifactScript = "script.json"
	artifactVoice  = "voice.mp3"
	artifactMix    = "audio.m4a"
	artifactSubs   = "subtitles.ass"
	artifactVideo  = "video.mp4"

	imageCacheDir = "image-cache"
)

// GenerateCmd creates the generate command.
// The env parameter provides injectable dependencies for testing.
func GenerateCmd(env *Env) *cobra.Command {
	var (
		theme    string
		scenes   int
		music    string
		outDir   string
		long     bool
		noImages bool
		noRender bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a complete narrated video",
		Long: `Generate a complete narrated short-form video.

The pipeline writes a script with the OpenAI chat API, validates its
subtitle chunks, synthesizes the narration, generates one background
image per scene, times the subtitles against the audio, and renders
the final video with burned-in karaoke subtitles.

Each run lands in its own directory under the output root, holding
script.json, voice.mp3, subtitles.ass and video.mp4.

Failures of optional collaborators degrade rather than abort: without
ffmpeg the run stops after the audio, without images the video renders
on black, a failed silence pass falls back to proportional timing.`,
		Example: `  ytstudio generate
  ytstudio generate --theme "experimento de física esquecido"
  ytstudio generate --scenes 5 --music bed.mp3
  ytstudio generate --no-render  # script + audio + subtitles only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, env, generateOpts{
				Theme:    theme,
				Scenes:   scenes,
				Music:    music,
				OutDir:   outDir,
				Long:     long,
				NoImages: noImages,
				NoRender: noRender,
			})
		},
	}

	cmd.Flags().StringVar(&theme, "theme", "", "Editorial theme steering the script")
	cmd.Flags().IntVar(&scenes, "scenes", 0, "Number of scenes (default: generator preset)")
	cmd.Flags().StringVar(&music, "music", "", "Background music file mixed under the narration")
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Output root directory (default: configured output dir)")
	cmd.Flags().BoolVar(&long, "long", false, "Use long-form chunk timing (1.5-3s per chunk)")
	cmd.Flags().BoolVar(&noImages, "no-images", false, "Skip image generation; render on black")
	cmd.Flags().BoolVar(&noRender, "no-render", false, "Skip the video render; keep audio and subtitles")

	return cmd
}

// generateOpts carries the generate command's flag values.
type generateOpts struct {
	Theme    string
	Scenes   int
	Music    string
	OutDir   string
	Long     bool
	NoImages bool
	NoRender bool
}

// runGenerate executes the full production pipeline.
func runGenerate(cmd *cobra.Command, env *Env, opts generateOpts) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	if opts.Music != "" {
		if _, err := os.Stat(opts.Music); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", ErrFileNotFound, opts.Music)
			}
			return fmt.Errorf("cannot access music file: %w", err)
		}
	}

	settings := config.LoadSettings(env.Getenv)

	key, err := requireAPIKey(env)
	if err != nil {
		return err
	}

	cfg, err := config.Load(env.Getenv)
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: failed to load config: %v\n", err)
	}

	outRoot := opts.OutDir
	if outRoot == "" {
		outRoot = cfg.OutputDir
	}
	if outRoot == "" {
		outRoot = settings.OutputDir
	}

	runID := env.NewRunID()
	runDir := filepath.Join(outRoot, runID)
	if err := os.MkdirAll(runDir, 0750); err != nil { // #nosec G301 -- user output dir
		return fmt.Errorf("cannot create run directory: %w", err)
	}

	// === SCRIPT ===

	fmt.Fprintf(env.Stderr, "Run %s\n", runID)
	fmt.Fprintln(env.Stderr, "Generating script...")

	gen, err := env.ScriptFactory.NewGenerator(key, opts.Scenes)
	if err != nil {
		return err
	}

	res, err := gen.Generate(ctx, script.Options{Theme: opts.Theme})
	if err != nil {
		return fmt.Errorf("script generation: %w", err)
	}
	if res.Repaired {
		fmt.Fprintln(env.Stderr, "  Model output needed a JSON repair round")
	}
	for _, d := range res.Defects {
		fmt.Fprintf(env.Stderr, "  Schema fix: %s\n", d)
	}

	s := res.Script
	narration := narrationText(s)
	if strings.TrimSpace(narration) == "" {
		return fmt.Errorf("%w: generated script has no narration", ErrEmptyInput)
	}

	// === SUBTITLE VALIDATION ===

	if !hasChunks(s) {
		s.AssignChunks(settings.SubMaxChars)
	}
	validated, report := subtitle.ValidateScenes(
		s.SubtitleScenes(), subtitle.DefaultRules(), strictRules(settings.Strict))
	s.ApplyScenes(validated)
	fmt.Fprintf(env.Stderr, "  %s\n", report.Summary())

	if err := writeScriptJSON(filepath.Join(runDir, artifactScript), s); err != nil {
		return err
	}

	// === NARRATION ===

	ffmpegPath, ffErr := env.FFmpegResolver.Resolve("")
	if ffErr != nil {
		fmt.Fprintf(env.Stderr, "Warning: ffmpeg unavailable: %v\n", ffErr)
		ffmpegPath = ""
	}

	fmt.Fprintln(env.Stderr, "Synthesizing narration...")
	synth, err := env.SynthesizerFactory.NewSynthesizer(key, ffmpegPath)
	if err != nil {
		return err
	}

	voicePath := filepath.Join(runDir, artifactVoice)
	narr, err := synth.Synthesize(ctx, narration, voicePath)
	if err != nil {
		return fmt.Errorf("narration synthesis: %w", err)
	}
	if narr.Duration > 0 {
		fmt.Fprintf(env.Stderr, "  Narration: %s\n", format.Seconds(narr.Duration))
	} else {
		fmt.Fprintln(env.Stderr, "  Narration duration unknown; using open-ended subtitle timing")
	}

	// === IMAGES ===

	var backgrounds []string
	if !opts.NoImages {
		backgrounds = generateBackgrounds(ctx, env, key, outRoot, settings, s)
	}

	// === SUBTITLE TIMELINE ===

	var prober AudioProber
	if ffmpegPath != "" {
		if p, err := env.ProberFactory.NewProber(ffmpegPath); err == nil {
			prober = p
		}
	}

	plan := buildSyncPlan(ctx, prober, voicePath, settings, settings.Autosync, narr.Duration, env.Stderr)

	chunks := subtitle.ChunksFromScenes(s.SubtitleScenes())
	if len(chunks) == 0 {
		chunks = subtitle.ChunksFromText(narration, settings.SubMaxChars)
	}

	timing := timingFromSettings(settings, opts.Long)
	timing.Offset += plan.ExtraOffset
	timeline := subtitle.BuildTimeline(chunks, plan.Total, plan.Segments, timing)

	subsPath := filepath.Join(runDir, artifactSubs)
	var buf bytes.Buffer
	if err := subtitle.WriteKaraokeASS(&buf, timeline, subtitle.DefaultStyle()); err != nil {
		return fmt.Errorf("render subtitles: %w", err)
	}
	if err := writeFileAtomic(subsPath, buf.Bytes()); err != nil {
		return err
	}

	// === RENDER ===

	if opts.NoRender {
		fmt.Fprintf(env.Stderr, "Done (render skipped): %s\n", runDir)
		return nil
	}
	if ffmpegPath == "" {
		fmt.Fprintf(env.Stderr, "Done (no ffmpeg, render skipped): %s\n", runDir)
		return nil
	}
	if plan.Total <= 0 {
		fmt.Fprintf(env.Stderr, "Warning: audio duration unknown, render skipped: %s\n", runDir)
		return nil
	}

	total := time.Duration(plan.Total * float64(time.Second))
	renderer, err := env.RendererFactory.NewRenderer(ffmpegPath, renderProgress(env.Stderr, total))
	if err != nil {
		return err
	}

	audioPath := voicePath
	if opts.Music != "" {
		fmt.Fprintln(env.Stderr, "Mixing music bed...")
		mixPath := filepath.Join(runDir, artifactMix)
		mixArgs := ffmpeg.MixArgs(ffmpeg.MixSpec{
			VoicePath: voicePath,
			MusicPath: opts.Music,
			OutPath:   mixPath,
			Duration:  plan.Total,
		})
		if err := renderer.Run(ctx, mixArgs); err != nil {
			fmt.Fprintf(env.Stderr, "Warning: music mix failed, using plain narration: %v\n", err)
		} else {
			audioPath = mixPath
		}
	}

	fmt.Fprintln(env.Stderr, "Rendering video...")
	width, height := ffmpeg.PortraitWidth, ffmpeg.PortraitHeight
	if opts.Long {
		width, height = ffmpeg.LandscapeWidth, ffmpeg.LandscapeHeight
	}
	videoPath := filepath.Join(runDir, artifactVideo)
	renderArgs := ffmpeg.SlideshowArgs(ffmpeg.SlideshowSpec{
		Images:       backgrounds,
		AudioPath:    audioPath,
		SubtitlePath: subsPath,
		OutPath:      videoPath,
		Duration:     plan.Total,
		Width:        width,
		Height:       height,
	})
	if err := renderer.Run(ctx, renderArgs); err != nil {
		return fmt.Errorf("video render: %w", err)
	}

	reportFileSize(env.Stderr, "Done", videoPath)
	return nil
}

// narrationText returns the full narration, assembling it from the scenes
// when the top-level field came back empty.
func narrationText(s script.Script) string {
	if strings.TrimSpace(s.Narration) != "" {
		return s.Narration
	}
	parts := make([]string, 0, len(s.Scenes)+1)
	for _, sc := range s.Scenes {
		if t := strings.TrimSpace(sc.NarrationText); t != "" {
			parts = append(parts, t)
		}
	}
	if q := strings.TrimSpace(s.FinalQuestion); q != "" {
		parts = append(parts, q)
	}
	return strings.Join(parts, " ")
}

// generateBackgrounds produces one background image per scene. Any failure
// degrades to fewer (or no) images; the renderer falls back to black.
func generateBackgrounds(ctx context.Context, env *Env, key, outRoot string,
	settings config.Settings, s script.Script) []string {

	if len(s.Scenes) == 0 {
		return nil
	}

	fmt.Fprintf(env.Stderr, "Generating %d background(s)...\n", len(s.Scenes))

	gen, err := env.ImageFactory.NewGenerator(key, filepath.Join(outRoot, imageCacheDir))
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: image generator unavailable: %v\n", err)
		return nil
	}

	prompts := make([]string, len(s.Scenes))
	for i, sc := range s.Scenes {
		prompts[i] = images.ScenePrompt(sc)
	}

	budget := images.NewBudget(settings.MaxImages)
	imgs, err := gen.GenerateAll(ctx, prompts, budget, images.MaxRecommendedParallel)
	if err != nil {
		fmt.Fprintf(env.Stderr, "Warning: image generation failed, rendering on black: %v\n", err)
		return nil
	}
	imgs = images.ReuseMissing(imgs)

	paths := make([]string, 0, len(imgs))
	cached := 0
	for _, img := range imgs {
		if img.Path == "" {
			continue
		}
		if img.FromCache {
			cached++
		}
		paths = append(paths, img.Path)
	}
	fmt.Fprintf(env.Stderr, "  Images: %d ready (%d from cache)\n", len(paths), cached)
	return paths
}

// writeScriptJSON persists the validated script as a run artifact.
func writeScriptJSON(path string, s script.Script) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode script: %w", err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}
