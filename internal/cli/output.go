package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/HayatoBr/YTStudioAI/internal/format"
)

// writeFileAtomic writes content to path, failing if the file already
// exists (O_EXCL) to prevent accidental overwrites. On write failure the
// partial file is removed.
func writeFileAtomic(path string, content []byte) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("output file already exists: %s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.Write(content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}

	return nil
}

// renderProgress returns a progress callback that writes encode status to w.
func renderProgress(w io.Writer, total time.Duration) func(outTime time.Duration, speed float64) {
	return func(outTime time.Duration, speed float64) {
		if total > 0 {
			pct := float64(outTime) / float64(total) * 100
			if pct > 100 {
				pct = 100
			}
			_, _ = fmt.Fprintf(w, "  Rendering... %3.0f%% (%s at %.1fx)\n",
				pct, format.Duration(outTime), speed)
			return
		}
		_, _ = fmt.Fprintf(w, "  Rendering... %s at %.1fx\n", format.Duration(outTime), speed)
	}
}

// reportFileSize prints the size of an artifact when it can be measured.
func reportFileSize(w io.Writer, label, path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "%s: %s (%s)\n", label, path, format.Size(info.Size()))
}
