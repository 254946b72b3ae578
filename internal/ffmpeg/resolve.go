package ffmpeg

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// Environment variable for a custom ffmpeg path.
const envFFmpegPath = "FFMPEG_PATH"

// binaryName is the base name of the ffmpeg binary.
const binaryName = "ffmpeg"

// probeBinaryName is the base name of the ffprobe binary.
const probeBinaryName = "ffprobe"

// ---------------------------------------------------------------------------
// Resolver - testable FFmpeg resolution with dependency injection
// ---------------------------------------------------------------------------

// Resolver locates the FFmpeg and ffprobe binaries.
type Resolver struct {
	env  envProvider
	goos string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEnvProvider sets the environment provider implementation.
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// WithGOOS sets the target OS (for testing cross-platform behavior).
func WithGOOS(goos string) ResolverOption {
	return func(r *Resolver) { r.goos = goos }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		env:  osEnvProvider{},
		goos: runtime.GOOS,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the path to the ffmpeg binary.
// Resolution order: explicit path argument, FFMPEG_PATH, then PATH lookup.
func (r *Resolver) Resolve(explicit string) (string, error) {
	if explicit != "" && r.isFile(explicit) {
		return explicit, nil
	}

	if p := r.env.Getenv(envFFmpegPath); p != "" && r.isFile(p) {
		return p, nil
	}

	if p, err := r.env.LookPath(r.binary(binaryName)); err == nil {
		return p, nil
	}

	return "", fmt.Errorf("%w: install FFmpeg, add it to PATH, or set %s", ErrNotFound, envFFmpegPath)
}

// ResolveProbe returns the path to ffprobe, preferring the directory of the
// resolved ffmpeg binary.
func (r *Resolver) ResolveProbe(ffmpegPath string) (string, error) {
	if ffmpegPath != "" {
		cand := filepath.Join(filepath.Dir(ffmpegPath), r.binary(probeBinaryName))
		if r.isFile(cand) {
			return cand, nil
		}
	}

	if p, err := r.env.LookPath(r.binary(probeBinaryName)); err == nil {
		return p, nil
	}

	return "", fmt.Errorf("%w: ffprobe missing; install the full FFmpeg distribution", ErrNotFound)
}

func (r *Resolver) binary(name string) string {
	if r.goos == "windows" {
		return name + ".exe"
	}
	return name
}

func (r *Resolver) isFile(p string) bool {
	info, err := r.env.Stat(p)
	return err == nil && !info.IsDir()
}

// Resolve locates ffmpeg using the default resolver.
func Resolve() (string, error) {
	return NewResolver().Resolve("")
}
