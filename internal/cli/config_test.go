package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

// Notes:
// - XDG_CONFIG_HOME is injected through Env.Getenv and pointed at a temp
//   dir, so the real user config is never touched and tests stay parallel.

func configEnv(t *testing.T, stdout *bytes.Buffer, vars map[string]string) *Env {
	t.Helper()
	merged := map[string]string{"XDG_CONFIG_HOME": t.TempDir()}
	for k, v := range vars {
		merged[k] = v
	}
	env := newTestEnv(newTestMocks(), nil, merged)
	env.Stdout = stdout
	return env
}

func TestConfig_SetGetRoundTrip(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	env := configEnv(t, &stdout, nil)
	dir := t.TempDir()

	if err := executeCmd(t, ConfigCmd(env), "set", "output-dir", dir); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if err := executeCmd(t, ConfigCmd(env), "get", "output-dir"); err != nil {
		t.Fatalf("config get: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != dir {
		t.Errorf("config get = %q, want %q", got, dir)
	}
}

func TestConfig_GetFallsBackToEnv(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	env := configEnv(t, &stdout, map[string]string{
		"YTSTUDIO_OUTPUT_DIR": "/tmp/from-env",
	})

	if err := executeCmd(t, ConfigCmd(env), "get", "output-dir"); err != nil {
		t.Fatalf("config get: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "/tmp/from-env" {
		t.Errorf("config get = %q, want env fallback", got)
	}
}

func TestConfig_List(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	env := configEnv(t, &stdout, nil)
	dir := t.TempDir()

	if err := executeCmd(t, ConfigCmd(env), "set", "output-dir", dir); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if err := executeCmd(t, ConfigCmd(env), "list"); err != nil {
		t.Fatalf("config list: %v", err)
	}
	if !strings.Contains(stdout.String(), "output-dir="+dir) {
		t.Errorf("config list = %q, want output-dir entry", stdout.String())
	}
}

func TestConfig_UnknownKey(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	env := configEnv(t, &stdout, nil)

	err := executeCmd(t, ConfigCmd(env), "set", "voice-speed", "1.2")
	if err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Errorf("err = %v, want unknown-key error", err)
	}

	err = executeCmd(t, ConfigCmd(env), "get", "voice-speed")
	if err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Errorf("err = %v, want unknown-key error", err)
	}
}

func TestConfig_IsolatedPerEnv(t *testing.T) {
	t.Parallel()

	// Each Env carries its own XDG_CONFIG_HOME; a value set through one
	// must not leak into another (or into the process environment).
	var stdoutA, stdoutB bytes.Buffer
	envA := configEnv(t, &stdoutA, nil)
	envB := configEnv(t, &stdoutB, nil)
	dir := t.TempDir()

	if err := executeCmd(t, ConfigCmd(envA), "set", "output-dir", dir); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if err := executeCmd(t, ConfigCmd(envB), "get", "output-dir"); err != nil {
		t.Fatalf("config get: %v", err)
	}
	if got := strings.TrimSpace(stdoutB.String()); got != "" {
		t.Errorf("config get in second env = %q, want empty", got)
	}
}

func TestConfig_SetCreatesDirectory(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	env := configEnv(t, &stdout, nil)
	dir := filepath.Join(t.TempDir(), "renders", "shorts")

	if err := executeCmd(t, ConfigCmd(env), "set", "output-dir", dir); err != nil {
		t.Fatalf("config set: %v", err)
	}
}
