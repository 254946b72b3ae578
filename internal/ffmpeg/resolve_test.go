package ffmpeg

// Notes:
// - Resolver tests use a fake envProvider so no real filesystem or PATH
//   lookups happen.

import (
	"errors"
	"io/fs"
	"os"
	"testing"
	"time"
)

// fakeFileInfo implements os.FileInfo for resolver tests.
type fakeFileInfo struct {
	name string
	dir  bool
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return 0 }
func (f fakeFileInfo) Mode() fs.FileMode  { return 0755 }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return f.dir }
func (f fakeFileInfo) Sys() any           { return nil }

// fakeResolverEnv implements envProvider with map-backed lookups.
type fakeResolverEnv struct {
	env   map[string]string
	files map[string]bool // path -> isDir
	path  map[string]string
}

func (f fakeResolverEnv) Getenv(key string) string { return f.env[key] }

func (f fakeResolverEnv) LookPath(file string) (string, error) {
	if p, ok := f.path[file]; ok {
		return p, nil
	}
	return "", errors.New("not in PATH")
}

func (f fakeResolverEnv) Stat(name string) (os.FileInfo, error) {
	isDir, ok := f.files[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return fakeFileInfo{name: name, dir: isDir}, nil
}

// ---------------------------------------------------------------------------
// Resolver.Resolve - resolution order
// ---------------------------------------------------------------------------

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		explicit string
		env      fakeResolverEnv
		want     string
		wantErr  error
	}{
		{
			name:     "explicit path wins",
			explicit: "/opt/ffmpeg/ffmpeg",
			env: fakeResolverEnv{
				env:   map[string]string{envFFmpegPath: "/env/ffmpeg"},
				files: map[string]bool{"/opt/ffmpeg/ffmpeg": false, "/env/ffmpeg": false},
				path:  map[string]string{"ffmpeg": "/usr/bin/ffmpeg"},
			},
			want: "/opt/ffmpeg/ffmpeg",
		},
		{
			name: "FFMPEG_PATH beats PATH",
			env: fakeResolverEnv{
				env:   map[string]string{envFFmpegPath: "/env/ffmpeg"},
				files: map[string]bool{"/env/ffmpeg": false},
				path:  map[string]string{"ffmpeg": "/usr/bin/ffmpeg"},
			},
			want: "/env/ffmpeg",
		},
		{
			name: "falls back to PATH",
			env: fakeResolverEnv{
				path: map[string]string{"ffmpeg": "/usr/bin/ffmpeg"},
			},
			want: "/usr/bin/ffmpeg",
		},
		{
			name: "FFMPEG_PATH pointing at missing file is skipped",
			env: fakeResolverEnv{
				env:  map[string]string{envFFmpegPath: "/gone/ffmpeg"},
				path: map[string]string{"ffmpeg": "/usr/bin/ffmpeg"},
			},
			want: "/usr/bin/ffmpeg",
		},
		{
			name: "explicit path that is a directory is skipped",
			env: fakeResolverEnv{
				files: map[string]bool{"/opt/ffmpeg": true},
				path:  map[string]string{"ffmpeg": "/usr/bin/ffmpeg"},
			},
			explicit: "/opt/ffmpeg",
			want:     "/usr/bin/ffmpeg",
		},
		{
			name:    "nothing found",
			env:     fakeResolverEnv{},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := NewResolver(WithEnvProvider(tt.env), WithGOOS("linux"))
			got, err := r.Resolve(tt.explicit)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve(%q) error = %v, want %v", tt.explicit, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.explicit, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.explicit, got, tt.want)
			}
		})
	}
}

func TestResolver_Resolve_WindowsBinaryName(t *testing.T) {
	t.Parallel()

	env := fakeResolverEnv{
		path: map[string]string{"ffmpeg.exe": `C:\tools\ffmpeg.exe`},
	}
	r := NewResolver(WithEnvProvider(env), WithGOOS("windows"))

	got, err := r.Resolve("")
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if got != `C:\tools\ffmpeg.exe` {
		t.Errorf("Resolve() = %q, want ffmpeg.exe path", got)
	}
}

// ---------------------------------------------------------------------------
// Resolver.ResolveProbe - ffprobe lookup
// ---------------------------------------------------------------------------

func TestResolver_ResolveProbe(t *testing.T) {
	t.Parallel()

	t.Run("prefers ffmpeg's directory", func(t *testing.T) {
		t.Parallel()

		env := fakeResolverEnv{
			files: map[string]bool{"/opt/ff/ffprobe": false},
			path:  map[string]string{"ffprobe": "/usr/bin/ffprobe"},
		}
		r := NewResolver(WithEnvProvider(env), WithGOOS("linux"))

		got, err := r.ResolveProbe("/opt/ff/ffmpeg")
		if err != nil {
			t.Fatalf("ResolveProbe() unexpected error: %v", err)
		}
		if got != "/opt/ff/ffprobe" {
			t.Errorf("ResolveProbe() = %q, want sibling ffprobe", got)
		}
	})

	t.Run("falls back to PATH", func(t *testing.T) {
		t.Parallel()

		env := fakeResolverEnv{
			path: map[string]string{"ffprobe": "/usr/bin/ffprobe"},
		}
		r := NewResolver(WithEnvProvider(env), WithGOOS("linux"))

		got, err := r.ResolveProbe("/opt/ff/ffmpeg")
		if err != nil {
			t.Fatalf("ResolveProbe() unexpected error: %v", err)
		}
		if got != "/usr/bin/ffprobe" {
			t.Errorf("ResolveProbe() = %q, want PATH ffprobe", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		r := NewResolver(WithEnvProvider(fakeResolverEnv{}), WithGOOS("linux"))
		if _, err := r.ResolveProbe(""); !errors.Is(err, ErrNotFound) {
			t.Errorf("ResolveProbe() error = %v, want ErrNotFound", err)
		}
	})
}
