package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/HayatoBr/YTStudioAI/internal/apierr"
)

// Generation defaults.
const (
	defaultModel = "gpt-image-1"
	defaultSize  = "1024x1024"

	// MaxRecommendedParallel bounds concurrent image requests; the API
	// rate limits aggressively beyond this.
	MaxRecommendedParallel = 4
)

// imageCreator is the slice of the OpenAI client the generator needs.
type imageCreator interface {
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
}

// Compile-time check that the real client satisfies the interface.
var _ imageCreator = (*openai.Client)(nil)

// Compile-time interface compliance check.
var _ Generator = (*OpenAIGenerator)(nil)

// OpenAIGenerator generates images with a disk cache keyed on
// prompt+model+size.
type OpenAIGenerator struct {
	client   imageCreator
	cacheDir string
	model    string
	size     string
	retry    apierr.RetryConfig
}

// Option configures an OpenAIGenerator.
type Option func(*OpenAIGenerator)

// WithModel sets the image model.
func WithModel(model string) Option {
	return func(g *OpenAIGenerator) { g.model = model }
}

// WithSize sets the image size (e.g. "1024x1024").
func WithSize(size string) Option {
	return func(g *OpenAIGenerator) { g.size = size }
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg apierr.RetryConfig) Option {
	return func(g *OpenAIGenerator) { g.retry = cfg }
}

// WithClient sets a custom image client (for testing).
func WithClient(c imageCreator) Option {
	return func(g *OpenAIGenerator) { g.client = c }
}

// NewOpenAIGenerator creates an image generator caching into cacheDir.
// apiKey is required unless a custom client is injected.
func NewOpenAIGenerator(apiKey, cacheDir string, opts ...Option) (*OpenAIGenerator, error) {
	if cacheDir == "" {
		return nil, errors.New("cacheDir cannot be empty")
	}

	g := &OpenAIGenerator{
		cacheDir: cacheDir,
		model:    defaultModel,
		size:     defaultSize,
		retry:    apierr.DefaultRetryConfig,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.client == nil {
		if apiKey == "" {
			return nil, fmt.Errorf("API key required: %w", apierr.ErrAuthFailed)
		}
		g.client = openai.NewClient(apiKey)
	}
	return g, nil
}

// Generate returns the image for one prompt, from cache when possible.
// A fresh generation consumes one budget unit; ErrBudgetExhausted is
// returned when none is left.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, budget *Budget) (Image, error) {
	key := CacheKey(prompt, g.model, g.size)
	if p := lookupCache(g.cacheDir, key); p != "" {
		return Image{Path: p, FromCache: true}, nil
	}

	if budget != nil && !budget.TrySpend() {
		return Image{}, ErrBudgetExhausted
	}

	data, err := g.generateWithRetry(ctx, prompt)
	if err != nil {
		return Image{}, fmt.Errorf("image generation: %w", err)
	}

	if err := os.MkdirAll(g.cacheDir, 0o750); err != nil {
		return Image{}, fmt.Errorf("create cache directory: %w", err)
	}
	p := cachePath(g.cacheDir, key)
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return Image{}, fmt.Errorf("write image: %w", err)
	}
	return Image{Path: p}, nil
}

// GenerateAll generates images for all prompts in parallel, bounded by
// maxParallel, results in prompt order. Budget exhaustion skips a slot
// instead of failing the run; any other error aborts. Use ReuseMissing
// to fill the skipped slots afterwards.
func (g *OpenAIGenerator) GenerateAll(ctx context.Context, prompts []string, budget *Budget, maxParallel int) ([]Image, error) {
	if len(prompts) == 0 {
		return nil, nil
	}
	if maxParallel < 1 || maxParallel > MaxRecommendedParallel {
		maxParallel = MaxRecommendedParallel
	}

	results := make([]Image, len(prompts))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallel)
	for i, prompt := range prompts {
		i, prompt := i, prompt
		eg.Go(func() error {
			img, err := g.Generate(ctx, prompt, budget)
			if errors.Is(err, ErrBudgetExhausted) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("prompt %d: %w", i+1, err)
			}
			results[i] = img
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (g *OpenAIGenerator) generateWithRetry(ctx context.Context, prompt string) ([]byte, error) {
	req := openai.ImageRequest{
		Model:          g.model,
		Prompt:         prompt,
		Size:           g.size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	}

	return apierr.RetryWithBackoff(ctx, g.retry, func() ([]byte, error) {
		resp, err := g.client.CreateImage(ctx, req)
		if err != nil {
			// Some endpoints reject response_format outright; retry the
			// attempt once without it, the payload is base64 either way.
			if isUnknownResponseFormat(err) {
				bare := req
				bare.ResponseFormat = ""
				resp, err = g.client.CreateImage(ctx, bare)
			}
			if err != nil {
				return nil, apierr.Classify(err)
			}
		}
		return decodeImagePayload(resp)
	}, apierr.IsRetryable)
}

func isUnknownResponseFormat(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "response_format") &&
		(strings.Contains(msg, "Unknown parameter") || strings.Contains(msg, "unknown_parameter"))
}

func decodeImagePayload(resp openai.ImageResponse) ([]byte, error) {
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, ErrNoImageData
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return data, nil
}
