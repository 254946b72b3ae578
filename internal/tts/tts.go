// Package tts synthesizes narration audio from script text.
package tts

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyText indicates there was nothing left to synthesize after
// stripping control markers.
var ErrEmptyText = errors.New("empty narration text")

// Narration is a synthesized voice track on disk.
type Narration struct {
	Path string

	// Duration is the measured track length, zero when probing was
	// unavailable. Callers treat zero as unknown.
	Duration time.Duration
}

// Synthesizer converts narration text to an audio file at outPath.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) (Narration, error)
}
