package ffmpeg

import "errors"

// ErrNotFound indicates no FFmpeg binary could be located.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrProbeFailed indicates media inspection (duration, silence) failed.
var ErrProbeFailed = errors.New("media probe failed")

// ErrRenderFailed indicates an encode or mix run failed.
var ErrRenderFailed = errors.New("render failed")

// ErrTimeout is returned when FFmpeg does not exit within the graceful shutdown timeout.
var ErrTimeout = errors.New("ffmpeg did not exit within timeout")
