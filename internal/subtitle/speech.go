package subtitle

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Silence is a detected silent interval in seconds. An End of SilenceOpenEnd
// marks an unterminated silence (a silence_start with no matching
// silence_end), which runs to end-of-file.
type Silence struct {
	Start float64
	End   float64
}

// SilenceOpenEnd marks a silence interval whose end was never reported.
const SilenceOpenEnd = -1.0

// Segment is a non-silent time interval [Start, End) in seconds.
type Segment struct {
	Start float64
	End   float64
}

// Width returns the segment length in seconds, never negative.
func (s Segment) Width() float64 {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Detection tuning constants.
const (
	// silenceMergeEpsilon merges silences separated by a sliver too short
	// to hold speech, preventing spurious micro-segments.
	silenceMergeEpsilon = 0.05

	// segmentPad expands speech segments outward to avoid clipping
	// phoneme onsets and offsets.
	segmentPad = 0.05

	// minSegmentWidth drops degenerate segments after padding and
	// clamping.
	minSegmentWidth = 0.10

	// UnboundedDuration is the sentinel segment end used when the total
	// audio duration is unknown and no silence was detected. Callers must
	// treat it as "unbounded" and not rely on the literal value.
	UnboundedDuration = 86400.0
)

// FFmpeg silencedetect log markers, e.g.
//
//	[silencedetect @ 0x55d1...] silence_start: 1.02
//	[silencedetect @ 0x55d1...] silence_end: 2.48 | silence_duration: 1.46
var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
)

// ParseSilenceLog extracts silence intervals from ffmpeg silencedetect
// output. Each start is paired with the next end; a trailing start with no
// end produces an open interval (End == SilenceOpenEnd). Unparsable lines
// are skipped; this function never fails.
func ParseSilenceLog(output string) []Silence {
	var (
		silences []Silence
		start    float64
		hasStart bool
	)

	for _, line := range strings.Split(output, "\n") {
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				start = v
				hasStart = true
			}
			continue
		}
		if m := silenceEndRe.FindStringSubmatch(line); m != nil && hasStart {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				silences = append(silences, Silence{Start: start, End: v})
				hasStart = false
			}
		}
	}

	if hasStart {
		silences = append(silences, Silence{Start: start, End: SilenceOpenEnd})
	}

	return silences
}

// DetectSpeechSegments computes the non-silent complement of a silence list
// over [0, totalDuration].
//
// Silences may arrive unsorted and may include an open interval; an open
// silence extends to totalDuration, or is dropped when the duration is
// unknown (totalDuration <= 0). Near-adjacent silences are merged before
// taking the complement, and each resulting speech segment is padded outward
// by a few tens of milliseconds, re-clamped, and filtered to a minimum
// viable width.
//
// When nothing silent is found the entire duration is one segment. When the
// duration is also unknown, a single segment ending at UnboundedDuration is
// returned.
func DetectSpeechSegments(silences []Silence, totalDuration float64) []Segment {
	known := totalDuration > 0

	merged := mergeSilences(silences, totalDuration)
	if len(merged) == 0 {
		if !known {
			return []Segment{{Start: 0, End: UnboundedDuration}}
		}
		return []Segment{{Start: 0, End: max(0.1, totalDuration)}}
	}

	end := totalDuration
	if !known {
		// Without a known duration we cannot bound trailing speech;
		// leave it open past the last silence.
		end = UnboundedDuration
	}

	var speech []Segment
	cursor := 0.0
	for _, s := range merged {
		if s.Start > cursor {
			speech = append(speech, Segment{Start: cursor, End: s.Start})
		}
		if s.End > cursor {
			cursor = s.End
		}
	}
	if cursor < end {
		speech = append(speech, Segment{Start: cursor, End: end})
	}

	speech = padSegments(speech, totalDuration)
	if len(speech) == 0 {
		if !known {
			return []Segment{{Start: 0, End: UnboundedDuration}}
		}
		return []Segment{{Start: 0, End: max(0.1, totalDuration)}}
	}
	return speech
}

// mergeSilences reconciles open intervals, sorts, and merges silences whose
// gap is below silenceMergeEpsilon. Degenerate intervals are dropped.
func mergeSilences(silences []Silence, totalDuration float64) []Silence {
	resolved := make([]Silence, 0, len(silences))
	for _, s := range silences {
		if s.End == SilenceOpenEnd {
			if totalDuration <= 0 {
				continue
			}
			s.End = totalDuration
		}
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End <= s.Start {
			continue
		}
		resolved = append(resolved, s)
	}
	if len(resolved) == 0 {
		return nil
	}

	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].Start < resolved[j].Start
	})

	merged := resolved[:1]
	for _, s := range resolved[1:] {
		last := &merged[len(merged)-1]
		if s.Start-last.End < silenceMergeEpsilon {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// padSegments expands each segment outward by segmentPad, clamps to
// [0, totalDuration] when the duration is known, re-merges any overlap the
// padding introduced, and drops segments below minSegmentWidth.
func padSegments(segments []Segment, totalDuration float64) []Segment {
	var out []Segment
	for _, seg := range segments {
		seg.Start -= segmentPad
		seg.End += segmentPad
		if seg.Start < 0 {
			seg.Start = 0
		}
		if totalDuration > 0 && seg.End > totalDuration {
			seg.End = totalDuration
		}
		if seg.Width() < minSegmentWidth {
			continue
		}
		if n := len(out); n > 0 && seg.Start < out[n-1].End {
			// Padding made neighbors touch; extend the previous one.
			if seg.End > out[n-1].End {
				out[n-1].End = seg.End
			}
			continue
		}
		out = append(out, seg)
	}
	return out
}

// LeadingSilence returns the length of silence at the very start of the
// audio, or 0 when the audio opens with speech. Used to shift subtitle
// timing so the first chunk does not appear before the narrator speaks.
func LeadingSilence(silences []Silence) float64 {
	const startTolerance = 0.01

	best := 0.0
	for _, s := range silences {
		if s.Start <= startTolerance && s.End > best {
			best = s.End
		}
	}
	return best
}
