package format_test

// Notes:
// - Negative values are intentionally not tested for Duration/Seconds/Size:
//   these functions are designed for real durations and sizes which are
//   always positive. Timecode clamps negatives because drift correction can
//   push a cue start below zero before clamping upstream.

import (
	"testing"
	"time"

	"github.com/HayatoBr/YTStudioAI/internal/format"
)

// ---------------------------------------------------------------------------
// TestDuration - Formats duration as HH:MM:SS or MM:SS
// ---------------------------------------------------------------------------

func TestDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input time.Duration
		want  string
	}{
		{name: "zero", input: 0, want: "00:00"},
		{name: "one second", input: time.Second, want: "00:01"},
		{name: "boundary: 59 seconds", input: 59 * time.Second, want: "00:59"},
		{name: "boundary: exactly 1 minute", input: time.Minute, want: "01:00"},
		{name: "typical short video", input: 55 * time.Second, want: "00:55"},
		{name: "mixed minutes and seconds", input: 5*time.Minute + 30*time.Second, want: "05:30"},
		{name: "boundary: exactly 1 hour", input: time.Hour, want: "01:00:00"},
		{name: "full: 2 hours 15 minutes 45 seconds", input: 2*time.Hour + 15*time.Minute + 45*time.Second, want: "02:15:45"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := format.Duration(tt.input)
			if got != tt.want {
				t.Errorf("Duration(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestSeconds - Fractional seconds for chunk lengths
// ---------------------------------------------------------------------------

func TestSeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input time.Duration
		want  string
	}{
		{name: "zero", input: 0, want: "0.00s"},
		{name: "sub-second chunk", input: 850 * time.Millisecond, want: "0.85s"},
		{name: "long chunk", input: 2*time.Second + 400*time.Millisecond, want: "2.40s"},
		{name: "whole seconds", input: 3 * time.Second, want: "3.00s"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := format.Seconds(tt.input)
			if got != tt.want {
				t.Errorf("Seconds(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestTimecode - Cue-style H:MM:SS.cc display
// ---------------------------------------------------------------------------

func TestTimecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input time.Duration
		want  string
	}{
		{name: "zero", input: 0, want: "0:00:00.00"},
		{name: "centiseconds", input: 12*time.Second + 310*time.Millisecond, want: "0:00:12.31"},
		{name: "minutes roll over", input: 61 * time.Second, want: "0:01:01.00"},
		{name: "hours", input: time.Hour + 2*time.Minute + 3*time.Second + 40*time.Millisecond, want: "1:02:03.04"},
		{name: "negative clamps to zero", input: -time.Second, want: "0:00:00.00"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := format.Timecode(tt.input)
			if got != tt.want {
				t.Errorf("Timecode(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestSize - Formats byte size for human display (MB, KB, bytes)
// ---------------------------------------------------------------------------

const (
	kb = 1024
	mb = 1024 * kb
	gb = 1024 * mb
)

func TestSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input int64
		want  string
	}{
		{name: "zero", input: 0, want: "0 bytes"},
		{name: "one byte", input: 1, want: "1 byte"},
		{name: "typical: 512 bytes", input: 512, want: "512 bytes"},
		{name: "boundary: 1023 bytes", input: kb - 1, want: "1023 bytes"},
		{name: "boundary: exactly 1 KB", input: kb, want: "1 KB"},
		{name: "boundary: 1023 KB", input: mb - 1, want: "1023 KB"},
		{name: "boundary: exactly 1 MB", input: mb, want: "1 MB"},
		{name: "typical rendered short", input: 12 * mb, want: "12 MB"},
		{name: "large realistic: 10 GB", input: 10 * gb, want: "10240 MB"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := format.Size(tt.input)
			if got != tt.want {
				t.Errorf("Size(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Fuzz Tests - Verify functions don't panic on arbitrary inputs
// ---------------------------------------------------------------------------

// FuzzTimecode verifies Timecode never panics and always returns non-empty.
func FuzzTimecode(f *testing.F) {
	f.Add(int64(0))
	f.Add(int64(time.Second))
	f.Add(int64(time.Hour))
	f.Add(int64(-time.Second))

	f.Fuzz(func(t *testing.T, ns int64) {
		got := format.Timecode(time.Duration(ns))
		if got == "" {
			t.Errorf("Timecode(%d) returned empty string", ns)
		}
	})
}

// FuzzSize verifies Size never panics and always returns non-empty.
func FuzzSize(f *testing.F) {
	f.Add(int64(0))
	f.Add(int64(1))
	f.Add(int64(kb))
	f.Add(int64(mb))
	f.Add(int64(10 * gb))

	f.Fuzz(func(t *testing.T, bytes int64) {
		if bytes < 0 {
			t.Skip("negative sizes are undefined behavior")
		}
		got := format.Size(bytes)
		if got == "" {
			t.Errorf("Size(%d) returned empty string", bytes)
		}
	})
}
