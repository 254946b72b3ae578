package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/HayatoBr/YTStudioAI/internal/config"
	"github.com/HayatoBr/YTStudioAI/internal/ffmpeg"
	"github.com/HayatoBr/YTStudioAI/internal/images"
	"github.com/HayatoBr/YTStudioAI/internal/script"
	"github.com/HayatoBr/YTStudioAI/internal/tts"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
//
// Env must not be nil when passed to command functions. Use DefaultEnv()
// or NewEnv() to create a valid instance.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv config.Getenv

	// NewRunID names one generation run. Defaults to a short random UUID.
	NewRunID func() string

	// Factories for domain objects
	FFmpegResolver     FFmpegResolver
	ScriptFactory      ScriptFactory
	SynthesizerFactory SynthesizerFactory
	ImageFactory       ImageFactory
	ProberFactory      ProberFactory
	RendererFactory    RendererFactory
}

// FFmpegResolver resolves the path to the FFmpeg binary.
type FFmpegResolver interface {
	Resolve(explicit string) (string, error)
}

// ScriptFactory creates script generators. sceneCount zero keeps the
// generator's default.
type ScriptFactory interface {
	NewGenerator(apiKey string, sceneCount int) (script.Generator, error)
}

// SynthesizerFactory creates narration synthesizers. ffmpegPath may be
// empty, in which case narrations come back without a measured duration.
type SynthesizerFactory interface {
	NewSynthesizer(apiKey, ffmpegPath string) (tts.Synthesizer, error)
}

// ImageFactory creates background image generators.
type ImageFactory interface {
	NewGenerator(apiKey, cacheDir string) (images.Generator, error)
}

// AudioProber measures audio files and produces silence logs.
type AudioProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
	SilenceLog(ctx context.Context, path string) (string, time.Duration, error)
}

// ProberFactory creates audio probers bound to an ffmpeg binary.
type ProberFactory interface {
	NewProber(ffmpegPath string) (AudioProber, error)
}

// VideoRenderer runs an assembled ffmpeg command.
type VideoRenderer interface {
	Run(ctx context.Context, args []string) error
}

// RendererFactory creates video renderers bound to an ffmpeg binary.
type RendererFactory interface {
	NewRenderer(ffmpegPath string, progress ffmpeg.ProgressFunc) (VideoRenderer, error)
}

// Compile-time interface compliance checks for the real implementations.
var (
	_ AudioProber   = (*ffmpeg.Prober)(nil)
	_ VideoRenderer = (*ffmpeg.Renderer)(nil)

	_ FFmpegResolver     = (*ffmpeg.Resolver)(nil)
	_ ScriptFactory      = defaultScriptFactory{}
	_ SynthesizerFactory = defaultSynthesizerFactory{}
	_ ImageFactory       = defaultImageFactory{}
	_ ProberFactory      = defaultProberFactory{}
	_ RendererFactory    = defaultRendererFactory{}
)

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the standard output writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) { e.Stdout = w }
}

// WithStderr sets the diagnostic output writer.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) { e.Stderr = w }
}

// WithGetenv sets the environment lookup function.
func WithGetenv(fn config.Getenv) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithNewRunID sets the run identifier source.
func WithNewRunID(fn func() string) EnvOption {
	return func(e *Env) { e.NewRunID = fn }
}

// WithFFmpegResolver sets the ffmpeg resolver.
func WithFFmpegResolver(r FFmpegResolver) EnvOption {
	return func(e *Env) { e.FFmpegResolver = r }
}

// WithScriptFactory sets the script generator factory.
func WithScriptFactory(f ScriptFactory) EnvOption {
	return func(e *Env) { e.ScriptFactory = f }
}

// WithSynthesizerFactory sets the narration synthesizer factory.
func WithSynthesizerFactory(f SynthesizerFactory) EnvOption {
	return func(e *Env) { e.SynthesizerFactory = f }
}

// WithImageFactory sets the image generator factory.
func WithImageFactory(f ImageFactory) EnvOption {
	return func(e *Env) { e.ImageFactory = f }
}

// WithProberFactory sets the audio prober factory.
func WithProberFactory(f ProberFactory) EnvOption {
	return func(e *Env) { e.ProberFactory = f }
}

// WithRendererFactory sets the video renderer factory.
func WithRendererFactory(f RendererFactory) EnvOption {
	return func(e *Env) { e.RendererFactory = f }
}

// DefaultEnv returns an Env wired to the real dependencies.
func DefaultEnv() *Env {
	return NewEnv()
}

// NewEnv creates an Env with production defaults, then applies opts.
func NewEnv(opts ...EnvOption) *Env {
	e := &Env{
		Stdout:             os.Stdout,
		Stderr:             os.Stderr,
		Getenv:             os.Getenv,
		NewRunID:           func() string { return uuid.NewString()[:8] },
		FFmpegResolver:     ffmpeg.NewResolver(),
		ScriptFactory:      defaultScriptFactory{},
		SynthesizerFactory: defaultSynthesizerFactory{},
		ImageFactory:       defaultImageFactory{},
		ProberFactory:      defaultProberFactory{},
		RendererFactory:    defaultRendererFactory{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ---------------------------------------------------------------------------
// Default factory implementations
// ---------------------------------------------------------------------------

type defaultScriptFactory struct{}

func (defaultScriptFactory) NewGenerator(apiKey string, sceneCount int) (script.Generator, error) {
	var opts []script.Option
	if sceneCount > 0 {
		opts = append(opts, script.WithSceneCount(sceneCount))
	}
	return script.NewOpenAIGenerator(apiKey, opts...)
}

type defaultSynthesizerFactory struct{}

func (defaultSynthesizerFactory) NewSynthesizer(apiKey, ffmpegPath string) (tts.Synthesizer, error) {
	var opts []tts.Option
	if ffmpegPath != "" {
		if p, err := ffmpeg.NewProber(ffmpegPath); err == nil {
			opts = append(opts, tts.WithProber(p))
		}
	}
	return tts.NewOpenAISynthesizer(apiKey, opts...)
}

type defaultImageFactory struct{}

func (defaultImageFactory) NewGenerator(apiKey, cacheDir string) (images.Generator, error) {
	return images.NewOpenAIGenerator(apiKey, cacheDir)
}

type defaultProberFactory struct{}

func (defaultProberFactory) NewProber(ffmpegPath string) (AudioProber, error) {
	return ffmpeg.NewProber(ffmpegPath)
}

type defaultRendererFactory struct{}

func (defaultRendererFactory) NewRenderer(ffmpegPath string, progress ffmpeg.ProgressFunc) (VideoRenderer, error) {
	var opts []ffmpeg.RendererOption
	if progress != nil {
		opts = append(opts, ffmpeg.WithProgress(progress))
	}
	return ffmpeg.NewRenderer(ffmpegPath, opts...)
}
