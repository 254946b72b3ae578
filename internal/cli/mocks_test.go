package cli

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/HayatoBr/YTStudioAI/internal/ffmpeg"
	"github.com/HayatoBr/YTStudioAI/internal/images"
	"github.com/HayatoBr/YTStudioAI/internal/script"
	"github.com/HayatoBr/YTStudioAI/internal/subtitle"
	"github.com/HayatoBr/YTStudioAI/internal/tts"
)

// ---------------------------------------------------------------------------
// Mock FFmpegResolver
// ---------------------------------------------------------------------------

type mockFFmpegResolver struct {
	ResolveFunc func(explicit string) (string, error)

	mu           sync.Mutex
	resolveCalls int
}

func (m *mockFFmpegResolver) Resolve(explicit string) (string, error) {
	m.mu.Lock()
	m.resolveCalls++
	m.mu.Unlock()

	if m.ResolveFunc != nil {
		return m.ResolveFunc(explicit)
	}
	return "/usr/bin/ffmpeg", nil
}

func (m *mockFFmpegResolver) ResolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveCalls
}

// ---------------------------------------------------------------------------
// Mock ScriptFactory + Generator
// ---------------------------------------------------------------------------

type mockScriptFactory struct {
	NewGeneratorFunc func(apiKey string, sceneCount int) (script.Generator, error)
	Generator        *mockScriptGenerator

	mu    sync.Mutex
	calls []string // API keys passed
}

func (m *mockScriptFactory) NewGenerator(apiKey string, sceneCount int) (script.Generator, error) {
	m.mu.Lock()
	m.calls = append(m.calls, apiKey)
	m.mu.Unlock()

	if m.NewGeneratorFunc != nil {
		return m.NewGeneratorFunc(apiKey, sceneCount)
	}
	if m.Generator == nil {
		m.Generator = &mockScriptGenerator{}
	}
	return m.Generator, nil
}

type mockScriptGenerator struct {
	GenerateFunc func(ctx context.Context, opts script.Options) (script.Result, error)

	mu    sync.Mutex
	calls []script.Options
}

func (m *mockScriptGenerator) Generate(ctx context.Context, opts script.Options) (script.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, opts)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, opts)
	}
	return script.Result{Script: testScript()}, nil
}

func (m *mockScriptGenerator) Calls() []script.Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]script.Options(nil), m.calls...)
}

// testScript returns a small but complete generated script.
func testScript() script.Script {
	return script.Script{
		Title:     "O Caso do Farol Apagado",
		Narration: "Em 1952 o farol apagou sem aviso. O relatorio oficial sumiu do arquivo. Um documento recuperado mostra outra data. Ninguem reabriu o caso ate hoje.",
		Scenes: []script.Scene{
			{Scene: subtitle.Scene{SceneID: 1, NarrativeRole: "hook", VisualAnchor: "farol na neblina", NarrationText: "Em 1952 o farol apagou sem aviso."}, Camera: "wide"},
			{Scene: subtitle.Scene{SceneID: 2, NarrativeRole: "evidencia", VisualAnchor: "relatorio carimbado", NarrationText: "O relatorio oficial sumiu do arquivo."}, Camera: "close"},
			{Scene: subtitle.Scene{SceneID: 3, NarrativeRole: "resolucao", VisualAnchor: "arquivo aberto", NarrationText: "Ninguem reabriu o caso ate hoje."}, Camera: "medium"},
		},
	}
}

// ---------------------------------------------------------------------------
// Mock SynthesizerFactory + Synthesizer
// ---------------------------------------------------------------------------

type mockSynthesizerFactory struct {
	NewSynthesizerFunc func(apiKey, ffmpegPath string) (tts.Synthesizer, error)
	Synthesizer        *mockSynthesizer

	mu    sync.Mutex
	calls []string // ffmpeg paths passed
}

func (m *mockSynthesizerFactory) NewSynthesizer(apiKey, ffmpegPath string) (tts.Synthesizer, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ffmpegPath)
	m.mu.Unlock()

	if m.NewSynthesizerFunc != nil {
		return m.NewSynthesizerFunc(apiKey, ffmpegPath)
	}
	if m.Synthesizer == nil {
		m.Synthesizer = &mockSynthesizer{}
	}
	return m.Synthesizer, nil
}

type mockSynthesizer struct {
	SynthesizeFunc func(ctx context.Context, text, outPath string) (tts.Narration, error)
	Duration       time.Duration

	mu    sync.Mutex
	texts []string
}

func (m *mockSynthesizer) Synthesize(ctx context.Context, text, outPath string) (tts.Narration, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text, outPath)
	}
	if err := os.WriteFile(outPath, []byte("mp3"), 0o600); err != nil {
		return tts.Narration{}, err
	}
	d := m.Duration
	if d == 0 {
		d = 30 * time.Second
	}
	return tts.Narration{Path: outPath, Duration: d}, nil
}

func (m *mockSynthesizer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// ---------------------------------------------------------------------------
// Mock ImageFactory + Generator
// ---------------------------------------------------------------------------

type mockImageFactory struct {
	NewGeneratorFunc func(apiKey, cacheDir string) (images.Generator, error)
	Generator        *mockImageGenerator

	mu        sync.Mutex
	cacheDirs []string
}

func (m *mockImageFactory) NewGenerator(apiKey, cacheDir string) (images.Generator, error) {
	m.mu.Lock()
	m.cacheDirs = append(m.cacheDirs, cacheDir)
	m.mu.Unlock()

	if m.NewGeneratorFunc != nil {
		return m.NewGeneratorFunc(apiKey, cacheDir)
	}
	if m.Generator == nil {
		m.Generator = &mockImageGenerator{}
	}
	return m.Generator, nil
}

type mockImageGenerator struct {
	GenerateAllFunc func(ctx context.Context, prompts []string, budget *images.Budget, maxParallel int) ([]images.Image, error)

	mu      sync.Mutex
	prompts [][]string
}

func (m *mockImageGenerator) GenerateAll(ctx context.Context, prompts []string, budget *images.Budget, maxParallel int) ([]images.Image, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, append([]string(nil), prompts...))
	m.mu.Unlock()

	if m.GenerateAllFunc != nil {
		return m.GenerateAllFunc(ctx, prompts, budget, maxParallel)
	}
	out := make([]images.Image, len(prompts))
	for i := range prompts {
		if budget != nil && !budget.TrySpend() {
			continue
		}
		out[i] = images.Image{Path: filepath.Join("img", "bg.png")}
	}
	return out, nil
}

func (m *mockImageGenerator) Prompts() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prompts
}

// ---------------------------------------------------------------------------
// Mock ProberFactory + AudioProber
// ---------------------------------------------------------------------------

type mockProberFactory struct {
	NewProberFunc func(ffmpegPath string) (AudioProber, error)
	Prober        *mockProber
}

func (m *mockProberFactory) NewProber(ffmpegPath string) (AudioProber, error) {
	if m.NewProberFunc != nil {
		return m.NewProberFunc(ffmpegPath)
	}
	if m.Prober == nil {
		m.Prober = &mockProber{}
	}
	return m.Prober, nil
}

type mockProber struct {
	DurationFunc   func(ctx context.Context, path string) (time.Duration, error)
	SilenceLogFunc func(ctx context.Context, path string) (string, time.Duration, error)

	mu              sync.Mutex
	durationCalls   int
	silenceLogCalls int
}

func (m *mockProber) Duration(ctx context.Context, path string) (time.Duration, error) {
	m.mu.Lock()
	m.durationCalls++
	m.mu.Unlock()

	if m.DurationFunc != nil {
		return m.DurationFunc(ctx, path)
	}
	return 30 * time.Second, nil
}

func (m *mockProber) SilenceLog(ctx context.Context, path string) (string, time.Duration, error) {
	m.mu.Lock()
	m.silenceLogCalls++
	m.mu.Unlock()

	if m.SilenceLogFunc != nil {
		return m.SilenceLogFunc(ctx, path)
	}
	return "", 30 * time.Second, nil
}

func (m *mockProber) SilenceLogCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.silenceLogCalls
}

// ---------------------------------------------------------------------------
// Mock RendererFactory + VideoRenderer
// ---------------------------------------------------------------------------

type mockRendererFactory struct {
	NewRendererFunc func(ffmpegPath string, progress ffmpeg.ProgressFunc) (VideoRenderer, error)
	Renderer        *mockRenderer
}

func (m *mockRendererFactory) NewRenderer(ffmpegPath string, progress ffmpeg.ProgressFunc) (VideoRenderer, error) {
	if m.NewRendererFunc != nil {
		return m.NewRendererFunc(ffmpegPath, progress)
	}
	if m.Renderer == nil {
		m.Renderer = &mockRenderer{}
	}
	return m.Renderer, nil
}

type mockRenderer struct {
	RunFunc func(ctx context.Context, args []string) error

	mu   sync.Mutex
	runs [][]string
}

func (m *mockRenderer) Run(ctx context.Context, args []string) error {
	m.mu.Lock()
	m.runs = append(m.runs, append([]string(nil), args...))
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, args)
	}
	return nil
}

func (m *mockRenderer) Runs() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs
}
