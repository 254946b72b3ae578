package tts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/HayatoBr/YTStudioAI/internal/apierr"
	"github.com/HayatoBr/YTStudioAI/internal/subtitle"
)

// Synthesis defaults. The slight slowdown keeps the final phoneme from
// being clipped at the end of the track.
const (
	defaultModel = "gpt-4o-mini-tts"
	defaultVoice = "cedar"
	defaultSpeed = 0.98
)

// speechCreator is the slice of the OpenAI client the synthesizer needs.
type speechCreator interface {
	CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// durationProber measures the length of an audio file.
type durationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// Compile-time check that the real client satisfies the interface.
var _ speechCreator = (*openai.Client)(nil)

// Compile-time interface compliance check.
var _ Synthesizer = (*OpenAISynthesizer)(nil)

// OpenAISynthesizer produces narration through the OpenAI speech API.
type OpenAISynthesizer struct {
	client speechCreator
	prober durationProber
	model  string
	voice  string
	speed  float64
	retry  apierr.RetryConfig
}

// Option configures an OpenAISynthesizer.
type Option func(*OpenAISynthesizer)

// WithModel sets the speech model.
func WithModel(model string) Option {
	return func(s *OpenAISynthesizer) { s.model = model }
}

// WithVoice sets the narration voice.
func WithVoice(voice string) Option {
	return func(s *OpenAISynthesizer) { s.voice = voice }
}

// WithSpeed sets the speech rate.
func WithSpeed(speed float64) Option {
	return func(s *OpenAISynthesizer) {
		if speed > 0 {
			s.speed = speed
		}
	}
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg apierr.RetryConfig) Option {
	return func(s *OpenAISynthesizer) { s.retry = cfg }
}

// WithClient sets a custom speech client (for testing).
func WithClient(c speechCreator) Option {
	return func(s *OpenAISynthesizer) { s.client = c }
}

// WithProber sets the duration prober. Without one, returned narrations
// carry an unknown (zero) duration.
func WithProber(p durationProber) Option {
	return func(s *OpenAISynthesizer) { s.prober = p }
}

// NewOpenAISynthesizer creates a synthesizer. apiKey is required unless
// a custom client is injected.
func NewOpenAISynthesizer(apiKey string, opts ...Option) (*OpenAISynthesizer, error) {
	s := &OpenAISynthesizer{
		model: defaultModel,
		voice: defaultVoice,
		speed: defaultSpeed,
		retry: apierr.DefaultRetryConfig,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		if apiKey == "" {
			return nil, fmt.Errorf("API key required: %w", apierr.ErrAuthFailed)
		}
		s.client = openai.NewClient(apiKey)
	}
	return s, nil
}

// Synthesize strips control markers, synthesizes the narration to
// outPath, and measures its duration when a prober is available. A
// probe failure is not fatal; the narration comes back with an unknown
// duration and the caller falls back to full-length timing.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text, outPath string) (Narration, error) {
	clean := strings.TrimSpace(subtitle.StripControlMarkers(text))
	if clean == "" {
		return Narration{}, ErrEmptyText
	}
	// Trailing newline gives the model a beat of silence at the end.
	clean += "\n"

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return Narration{}, fmt.Errorf("create output directory: %w", err)
		}
	}

	data, err := s.synthesizeWithRetry(ctx, clean)
	if err != nil {
		return Narration{}, fmt.Errorf("speech synthesis: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0o600); err != nil {
		return Narration{}, fmt.Errorf("write narration: %w", err)
	}

	n := Narration{Path: outPath}
	if s.prober != nil {
		if d, err := s.prober.Duration(ctx, outPath); err == nil {
			n.Duration = d
		}
	}
	return n, nil
}

func (s *OpenAISynthesizer) synthesizeWithRetry(ctx context.Context, text string) ([]byte, error) {
	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Voice:          openai.SpeechVoice(s.voice),
		Input:          text,
		Speed:          s.speed,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	}

	return apierr.RetryWithBackoff(ctx, s.retry, func() ([]byte, error) {
		resp, err := s.client.CreateSpeech(ctx, req)
		if err != nil {
			return nil, apierr.Classify(err)
		}
		defer func() { _ = resp.Close() }()

		data, err := io.ReadAll(resp)
		if err != nil {
			return nil, fmt.Errorf("read speech response: %w", err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("speech response: %w", apierr.ErrEmptyResponse)
		}
		return data, nil
	}, apierr.IsRetryable)
}
