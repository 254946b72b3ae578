package subtitle

import (
	"math"
	"time"
	"unicode/utf8"
)

// TimingConfig holds the immutable timing parameters for one render.
type TimingConfig struct {
	// MinChunk and MaxChunk bound each chunk's display duration in
	// seconds. Soft targets: total-duration coverage wins over MaxChunk
	// when the budget cannot otherwise be absorbed.
	MinChunk float64
	MaxChunk float64

	// Anticipation is subtracted from each start so subtitles lead the
	// audio slightly, which reads as snappier.
	Anticipation time.Duration

	// Offset shifts the whole timeline. Positive delays subtitles;
	// negative anticipates. Typically set to compensate leading silence.
	Offset time.Duration

	// MaxGap caps the idle time between consecutive chunks.
	MaxGap time.Duration
}

// Preset timing values. Short-form uses sub-1.5s windows for rapid pacing;
// long-form allows multi-second windows.
const (
	shortMinChunk = 0.7
	shortMaxChunk = 1.2
	longMinChunk  = 1.5
	longMaxChunk  = 3.0

	defaultAnticipation = 100 * time.Millisecond
	defaultMaxGap       = 180 * time.Millisecond
)

// ShortTiming returns the preset for short-form output.
func ShortTiming() TimingConfig {
	return TimingConfig{
		MinChunk:     shortMinChunk,
		MaxChunk:     shortMaxChunk,
		Anticipation: defaultAnticipation,
		MaxGap:       defaultMaxGap,
	}
}

// LongTiming returns the preset for long-form output.
func LongTiming() TimingConfig {
	return TimingConfig{
		MinChunk:     longMinChunk,
		MaxChunk:     longMaxChunk,
		Anticipation: defaultAnticipation,
		MaxGap:       defaultMaxGap,
	}
}

// normalize clamps invalid configuration to usable values.
func (c *TimingConfig) normalize() {
	if c.MinChunk <= 0 {
		c.MinChunk = shortMinChunk
	}
	if c.MaxChunk < c.MinChunk {
		c.MaxChunk = c.MinChunk
	}
	if c.MaxGap < 0 {
		c.MaxGap = 0
	}
}

// Allocation constants.
const (
	// usableFraction leaves a small margin of the time budget unused to
	// avoid edge clipping during final rendering.
	usableFraction = 0.98

	// floorDuration is the hard minimum per chunk. No rebalancing or
	// clamping ever produces a shorter window.
	floorDuration = 0.20

	// rebalanceRounds bounds the headroom-redistribution iteration.
	rebalanceRounds = 6

	// endSlack is the tolerance past the usable budget allowed for the
	// final entry's end after offset is applied.
	endSlack = 0.05
)

// BuildTimeline allocates a start and end time to every chunk.
//
// Each chunk's share of the usable budget (98% of the summed segment widths,
// or of totalDuration when segments is empty) is proportional to its text
// length, clamped into [MinChunk, MaxChunk], then rebalanced so the total
// matches the budget exactly. When a segment carries the unbounded sentinel
// there is no budget to cover and every chunk gets the maximum width
// instead. Chunks are placed on a virtual speech-only
// timeline with inter-chunk gaps capped at MaxGap, then projected onto real
// audio time through the speech segments in order.
//
// The result is deterministic, ordered by ChunkIndex, gap-free beyond
// MaxGap, and never contains a negative, overlapping-backwards, or
// zero-length window. Zero chunks yield an empty timeline; a degenerate
// budget yields floor-duration windows that may overrun the nominal
// duration slightly.
func BuildTimeline(chunks []Chunk, totalDuration float64, segments []Segment, cfg TimingConfig) []Entry {
	cfg.normalize()

	if len(chunks) == 0 {
		return nil
	}

	total := max(0.1, totalDuration)
	if len(segments) == 0 {
		segments = []Segment{{Start: 0, End: total}}
	}

	unbounded := false
	windowTotal := 0.0
	for _, seg := range segments {
		windowTotal += seg.Width()
		if seg.End >= UnboundedDuration {
			unbounded = true
		}
	}
	if windowTotal <= 0 {
		windowTotal = total
	}
	usable := max(0.1, windowTotal*usableFraction)

	// An unbounded segment has no coverage target to rebalance against;
	// chunks are laid end to end at the maximum width instead of being
	// stretched over the sentinel span.
	var durations []float64
	if unbounded {
		durations = make([]float64, len(chunks))
		for i := range durations {
			durations[i] = cfg.MaxChunk
		}
	} else {
		durations = allocateDurations(chunks, usable, cfg)
	}

	ant := cfg.Anticipation.Seconds()
	off := cfg.Offset.Seconds()
	maxGap := cfg.MaxGap.Seconds()
	maxEnd := usable + max(0, off) + endSlack

	timeline := make([]Entry, 0, len(chunks))
	t := 0.0
	prevRawEnd := 0.0

	for i, chunk := range chunks {
		// Cap idle dead time between consecutive chunks.
		if i > 0 && t-prevRawEnd > maxGap {
			t = prevRawEnd + maxGap
		}

		rawStart := t
		rawEnd := min(usable, t+durations[i])

		start := mapLocalToGlobal(rawStart, segments)
		end := mapLocalToGlobal(rawEnd, segments)

		start = max(0, start-ant+off)
		end = min(end+off, maxEnd)
		end = max(end, start+floorDuration)

		timeline = append(timeline, Entry{
			Text:       chunk.Text,
			Words:      chunk.Words(),
			Start:      start,
			End:        end,
			SceneID:    chunk.SceneID,
			ChunkIndex: chunk.ChunkIndex,
		})

		prevRawEnd = rawEnd
		t = rawEnd
	}

	return timeline
}

// allocateDurations computes per-chunk durations that sum to usable.
func allocateDurations(chunks []Chunk, usable float64, cfg TimingConfig) []float64 {
	// Text length is the proxy for spoken duration.
	weights := make([]float64, len(chunks))
	totalWeight := 0.0
	for i, c := range chunks {
		w := float64(utf8.RuneCountInString(c.Text))
		if w < 1 {
			w = 1
		}
		weights[i] = w
		totalWeight += w
	}

	durations := make([]float64, len(chunks))
	for i, w := range weights {
		d := usable * w / totalWeight
		durations[i] = clampf(d, cfg.MinChunk, cfg.MaxChunk)
	}

	rebalance(durations, usable, cfg.MaxChunk)
	return durations
}

// rebalance forces the duration sum to equal target.
//
// Overshoot scales everything down with a hard floor per chunk. Shortfall is
// redistributed proportionally to each chunk's headroom below maxChunk; when
// no headroom remains the remainder is spread evenly, pushing chunks past
// maxChunk (coverage is the hard constraint, the bound is soft). A final
// proportional pass absorbs floating-point drift.
func rebalance(durations []float64, target, maxChunk float64) {
	sum := sumf(durations)
	if sum <= 0 {
		return
	}

	if sum > target {
		scale := target / sum
		for i := range durations {
			durations[i] = max(floorDuration, durations[i]*scale)
		}
		sum = sumf(durations)
	}

	if sum < target {
		remaining := target - sum
		for round := 0; round < rebalanceRounds; round++ {
			if remaining <= 1e-6 {
				break
			}
			headroomSum := 0.0
			for _, d := range durations {
				headroomSum += max(0, maxChunk-d)
			}
			if headroomSum <= 1e-6 {
				add := remaining / float64(len(durations))
				for i := range durations {
					durations[i] += add
				}
				remaining = 0
				break
			}
			for i, d := range durations {
				add := remaining * max(0, maxChunk-d) / headroomSum
				durations[i] = min(maxChunk, d+add)
			}
			remaining = max(0, target-sumf(durations))
		}
	}

	sum = sumf(durations)
	if math.Abs(sum-target) > 1e-4 && sum > 0 {
		scale := target / sum
		for i := range durations {
			durations[i] = max(floorDuration, durations[i]*scale)
		}
	}
}

// mapLocalToGlobal projects a position on the virtual speech-only timeline
// (0..usable) into real audio time by walking the speech segments in order.
//
// When the local position exceeds the concatenated segment widths, the
// mapping extrapolates past the final segment at a 1:1 rate instead of
// snapping to its end, so over-budget trailing chunks keep strictly
// increasing times.
func mapLocalToGlobal(local float64, segments []Segment) float64 {
	remaining := local
	for _, seg := range segments {
		w := seg.Width()
		if w <= 0 {
			continue
		}
		if remaining <= w+1e-9 {
			return seg.Start + remaining
		}
		remaining -= w
	}
	return segments[len(segments)-1].End + remaining
}

func clampf(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

func sumf(vs []float64) float64 {
	s := 0.0
	for _, v := range vs {
		s += v
	}
	return s
}
