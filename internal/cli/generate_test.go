package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HayatoBr/YTStudioAI/internal/images"
	"github.com/HayatoBr/YTStudioAI/internal/script"
	"github.com/HayatoBr/YTStudioAI/internal/tts"
)

// Notes:
// - Tests drive the command through GenerateCmd/cobra so flag wiring is
//   exercised together with the pipeline.
// - Collaborator degradation (no ffmpeg, failed images) must not abort
//   the run; those paths are asserted on the surviving artifacts.

func runDirArtifacts(t *testing.T, runDir string) []string {
	t.Helper()
	entries, err := os.ReadDir(runDir)
	if err != nil {
		t.Fatalf("read run dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestGenerate_FullPipeline(t *testing.T) {
	t.Parallel()

	mocks := newTestMocks()
	stderr := &syncBuffer{}
	env := newTestEnv(mocks, stderr, nil)
	outRoot := t.TempDir()

	err := executeCmd(t, GenerateCmd(env), "-o", outRoot)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	runDir := filepath.Join(outRoot, "run01")
	names := strings.Join(runDirArtifacts(t, runDir), " ")
	for _, want := range []string{artifactScript, artifactVoice, artifactSubs} {
		if !strings.Contains(names, want) {
			t.Errorf("missing artifact %s (got: %s)", want, names)
		}
	}

	// Script artifact round-trips with the validated chunks.
	raw, err := os.ReadFile(filepath.Join(runDir, artifactScript))
	if err != nil {
		t.Fatalf("read script artifact: %v", err)
	}
	var s script.Script
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("parse script artifact: %v", err)
	}
	if len(s.Scenes) != 3 {
		t.Errorf("scenes = %d, want 3", len(s.Scenes))
	}
	if !hasChunks(s) {
		t.Error("script artifact has no subtitle chunks")
	}

	// The render ran exactly once (no music bed).
	runs := mocks.renderers.Renderer.Runs()
	if len(runs) != 1 {
		t.Fatalf("render runs = %d, want 1", len(runs))
	}
	last := runs[0][len(runs[0])-1]
	if filepath.Base(last) != artifactVideo {
		t.Errorf("render output = %s, want %s", last, artifactVideo)
	}
}

func TestGenerate_ThemeReachesGenerator(t *testing.T) {
	t.Parallel()

	mocks := newTestMocks()
	env := newTestEnv(mocks, nil, nil)

	err := executeCmd(t, GenerateCmd(env), "-o", t.TempDir(), "--theme", "farois abandonados")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	calls := mocks.scripts.Generator.Calls()
	if len(calls) != 1 || calls[0].Theme != "farois abandonados" {
		t.Errorf("generator calls = %+v, want one with the theme", calls)
	}
}

func TestGenerate_APIKeyMissing(t *testing.T) {
	t.Parallel()

	mocks := newTestMocks()
	env := newTestEnv(mocks, nil, map[string]string{"OPENAI_API_KEY": ""})

	err := executeCmd(t, GenerateCmd(env), "-o", t.TempDir())
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("err = %v, want ErrAPIKeyMissing", err)
	}
}

func TestGenerate_ScriptFailureAborts(t *testing.T) {
	t.Parallel()

	mocks := newTestMocks()
	boom := errors.New("model down")
	mocks.scripts.Generator = &mockScriptGenerator{
		GenerateFunc: func(ctx context.Context, opts script.Options) (script.Result, error) {
			return script.Result{}, boom
		},
	}
	env := newTestEnv(mocks, nil, nil)

	err := executeCmd(t, GenerateCmd(env), "-o", t.TempDir())
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped model error", err)
	}
}

func TestGenerate_NoFFmpegSkipsRender(t *testing.T) {
	t.Parallel()

	mocks := newTestMocks()
	mocks.ffmpegResolver.ResolveFunc = func(string) (string, error) {
		return "", errors.New("not installed")
	}
	stderr := &syncBuffer{}
	env := newTestEnv(mocks, stderr, nil)
	outRoot := t.TempDir()

	err := executeCmd(t, GenerateCmd(env), "-o", outRoot)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// Audio and subtitles still land; no renderer was created.
	runDir := filepath.Join(outRoot, "run01")
	names := strings.Join(runDirArtifacts(t, runDir), " ")
	if !strings.Contains(names, artifactVoice) || !strings.Contains(names, artifactSubs) {
		t.Errorf("artifacts = %s, want voice and subtitles", names)
	}
	if mocks.renderers.Renderer != nil {
		t.Error("renderer was created without ffmpeg")
	}
	if !strings.Contains(stderr.String(), "render skipped") {
		t.Errorf("stderr = %q, want render-skipped notice", stderr.String())
	}

	// The synthesizer got no ffmpeg path, so it cannot probe.
	if paths := mocks.synths.calls; len(paths) != 1 || paths[0] != "" {
		t.Errorf("synthesizer ffmpeg paths = %v, want one empty", paths)
	}
}

func TestGenerate_ImageFailureFallsBackToBlack(t *testing.T) {
	t.Parallel()

	mocks := newTestMocks()
	mocks.imgs.Generator = &mockImageGenerator{
		GenerateAllFunc: func(ctx context.Context, prompts []string, budget *images.Budget, maxParallel int) ([]images.Image, error) {
			return nil, errors.New("image API down")
		},
	}
	stderr := &syncBuffer{}
	env := newTestEnv(mocks, stderr, nil)

	err := executeCmd(t, GenerateCmd(env), "-o", t.TempDir())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if !strings.Contains(stderr.String(), "rendering on black") {
		t.Errorf("stderr = %q, want black-fallback warning", stderr.String())
	}

	// Render still happened, on the black background path.
	runs := mocks.renderers.Renderer.Runs()
	if len(runs) != 1 {
		t.Fatalf("render runs = %d, want 1", len(runs))
	}
	joined := strings.Join(runs[0], " ")
	if !strings.Contains(joined, "color=c=black") {
		t.Errorf("render args = %q, want black source", joined)
	}
}

func TestGenerate_NoRenderFlag(t *testing.T) {
	t.Parallel()

	mocks := newTestMocks()
	env := newTestEnv(mocks, nil, nil)

	err := executeCmd(t, GenerateCmd(env), "-o", t.TempDir(), "--no-render")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if mocks.renderers.Renderer != nil {
		t.Error("renderer was created with --no-render")
	}
}

func TestGenerate_MusicMixesBeforeRender(t *testing.T) {
	t.Parallel()

	mocks := newTestMocks()
	env := newTestEnv(mocks, nil, nil)
	outRoot := t.TempDir()

	music := filepath.Join(t.TempDir(), "bed.mp3")
	if err := os.WriteFile(music, []byte("mp3"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := executeCmd(t, GenerateCmd(env), "-o", outRoot, "--music", music)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	runs := mocks.renderers.Renderer.Runs()
	if len(runs) != 2 {
		t.Fatalf("render runs = %d, want mix + render", len(runs))
	}
	if !strings.Contains(strings.Join(runs[0], " "), "sidechaincompress") {
		t.Errorf("first run = %q, want ducking mix", strings.Join(runs[0], " "))
	}
	if got := filepath.Base(runs[1][len(runs[1])-1]); got != artifactVideo {
		t.Errorf("second run output = %s, want %s", got, artifactVideo)
	}
}

func TestGenerate_MusicFileMissing(t *testing.T) {
	t.Parallel()

	mocks := newTestMocks()
	env := newTestEnv(mocks, nil, nil)

	err := executeCmd(t, GenerateCmd(env), "-o", t.TempDir(), "--music", "nope.mp3")
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("err = %v, want ErrFileNotFound", err)
	}
}

func TestGenerate_UnknownDurationSkipsRender(t *testing.T) {
	t.Parallel()

	mocks := newTestMocks()
	mocks.synths.Synthesizer = &mockSynthesizer{
		SynthesizeFunc: func(ctx context.Context, text, outPath string) (tts.Narration, error) {
			if err := os.WriteFile(outPath, []byte("mp3"), 0o600); err != nil {
				return tts.Narration{}, err
			}
			return tts.Narration{Path: outPath}, nil
		},
	}
	mocks.probers.NewProberFunc = func(string) (AudioProber, error) {
		return nil, errors.New("probe unavailable")
	}
	stderr := &syncBuffer{}
	env := newTestEnv(mocks, stderr, nil)

	err := executeCmd(t, GenerateCmd(env), "-o", t.TempDir())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if mocks.renderers.Renderer != nil {
		t.Error("renderer was created with unknown duration")
	}
	if !strings.Contains(stderr.String(), "duration unknown") {
		t.Errorf("stderr = %q, want duration warning", stderr.String())
	}
}

func TestGenerate_AutosyncUsesSilenceLog(t *testing.T) {
	t.Parallel()

	mocks := newTestMocks()
	env := newTestEnv(mocks, nil, map[string]string{"YTSTUDIO_SUB_AUTOSYNC": "1"})

	err := executeCmd(t, GenerateCmd(env), "-o", t.TempDir())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if calls := mocks.probers.Prober.SilenceLogCalls(); calls != 1 {
		t.Errorf("silence log calls = %d, want 1", calls)
	}
}
