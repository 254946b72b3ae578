package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/HayatoBr/YTStudioAI/internal/config"
	"github.com/HayatoBr/YTStudioAI/internal/subtitle"
)

// timingFromSettings maps the resolved settings onto a timeline
// configuration. The long flag switches between the short-form and
// long-form duration bounds.
func timingFromSettings(s config.Settings, long bool) subtitle.TimingConfig {
	cfg := subtitle.TimingConfig{
		MinChunk:     s.ShortMin,
		MaxChunk:     s.ShortMax,
		Anticipation: s.Anticipation,
		Offset:       s.Offset,
		MaxGap:       s.MaxGap,
	}
	if long {
		cfg.MinChunk = s.LongMin
		cfg.MaxChunk = s.LongMax
	}
	return cfg
}

// syncPlan is the audio alignment derived for one timeline build.
type syncPlan struct {
	// Total is the audio duration in seconds; zero means unknown and
	// the timeline falls back to unbounded speech.
	Total float64

	// Segments are the detected speech windows; nil disables autosync.
	Segments []subtitle.Segment

	// ExtraOffset compensates leading silence when autosync is off.
	ExtraOffset time.Duration
}

// buildSyncPlan probes the narration audio and derives the alignment for
// the timeline. Every failure degrades instead of aborting: a dead probe
// keeps the known duration, a failed silence pass turns autosync off.
func buildSyncPlan(ctx context.Context, prober AudioProber, audioPath string,
	settings config.Settings, autosync bool, known time.Duration, stderr io.Writer) syncPlan {

	plan := syncPlan{Total: known.Seconds()}
	if prober == nil || audioPath == "" {
		return openEnded(plan)
	}

	needSilences := autosync || settings.AutoOffset
	if !needSilences {
		if plan.Total == 0 {
			if d, err := prober.Duration(ctx, audioPath); err == nil {
				plan.Total = d.Seconds()
			} else {
				fmt.Fprintf(stderr, "Warning: duration probe failed: %v\n", err)
			}
		}
		return openEnded(plan)
	}

	log, dur, err := prober.SilenceLog(ctx, audioPath)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: silence detection failed, autosync off: %v\n", err)
		if plan.Total == 0 {
			if d, derr := prober.Duration(ctx, audioPath); derr == nil {
				plan.Total = d.Seconds()
			}
		}
		return openEnded(plan)
	}

	if plan.Total == 0 {
		plan.Total = dur.Seconds()
	}

	silences := subtitle.ParseSilenceLog(log)
	if autosync {
		plan.Segments = subtitle.DetectSpeechSegments(silences, plan.Total)
		return plan
	}

	// Without autosync the timeline starts at zero; shift it past the
	// leading silence so the first chunk lands on the first word.
	if lead := subtitle.LeadingSilence(silences); lead > 0 {
		plan.ExtraOffset = time.Duration(lead * float64(time.Second))
	}
	return openEnded(plan)
}

// openEnded substitutes the unbounded speech sentinel when no duration could
// be established, so chunks still receive real display windows instead of
// collapsing onto a near-zero budget.
func openEnded(plan syncPlan) syncPlan {
	if plan.Total == 0 && len(plan.Segments) == 0 {
		plan.Segments = subtitle.DetectSpeechSegments(nil, 0)
	}
	return plan
}

// requireAPIKey reads the OpenAI key from the environment.
func requireAPIKey(env *Env) (string, error) {
	key := env.Getenv(config.EnvOpenAIKey)
	if key == "" {
		return "", fmt.Errorf("%w (set it with: export %s=sk-...)", ErrAPIKeyMissing, config.EnvOpenAIKey)
	}
	return key, nil
}
