package config

import (
	"strconv"
	"strings"
	"time"
)

// Environment variables read by LoadSettings.
const (
	EnvSubMaxChars    = "YTSTUDIO_SUB_MAX_CHARS"
	EnvSubShortMin    = "YTSTUDIO_SUB_SHORT_MIN"
	EnvSubShortMax    = "YTSTUDIO_SUB_SHORT_MAX"
	EnvSubLongMin     = "YTSTUDIO_SUB_LONG_MIN"
	EnvSubLongMax     = "YTSTUDIO_SUB_LONG_MAX"
	EnvAnticipationMS = "YTSTUDIO_SUB_ANTICIPATION_MS"
	EnvOffsetMS       = "YTSTUDIO_SUB_OFFSET_MS"
	EnvMaxGapMS       = "YTSTUDIO_SUB_MAX_GAP_MS"
	EnvAutosync       = "YTSTUDIO_SUB_AUTOSYNC"
	EnvAutoOffset     = "YTSTUDIO_SUB_AUTO_OFFSET"
	EnvStrict         = "YTSTUDIO_SUB_STRICT"
	EnvOutputDir      = "YTSTUDIO_OUTPUT_DIR"
	EnvMaxImages      = "YTSTUDIO_MAX_IMAGES"
	EnvOpenAIKey      = "OPENAI_API_KEY"
)

// Defaults applied when a variable is unset or unparsable.
const (
	DefaultSubMaxChars  = 32
	DefaultShortMin     = 0.7
	DefaultShortMax     = 1.2
	DefaultLongMin      = 1.5
	DefaultLongMax      = 3.0
	DefaultAnticipation = 100 * time.Millisecond
	DefaultOffset       = 0 * time.Millisecond
	DefaultMaxGap       = 180 * time.Millisecond
	DefaultOutputDir    = "./output"
	DefaultMaxImages    = 6
)

// Clamping bounds for numeric settings.
const (
	minSubMaxChars = 10
	maxSubMaxChars = 60

	minChunkSeconds = 0.1
	maxChunkSeconds = 15.0

	minAnticipationMS = 0
	maxAnticipationMS = 1000
	minOffsetMS       = -2000
	maxOffsetMS       = 2000
	minGapMS          = 0
	maxGapMS          = 2000

	minImages = 1
	maxImages = 12
)

// Settings is the resolved runtime configuration. It is built once from the
// environment and passed down by value; packages below the CLI never read
// process state themselves.
type Settings struct {
	SubMaxChars int

	ShortMin float64
	ShortMax float64
	LongMin  float64
	LongMax  float64

	Anticipation time.Duration
	Offset       time.Duration
	MaxGap       time.Duration

	Autosync   bool
	AutoOffset bool
	Strict     bool

	OutputDir string
	MaxImages int

	OpenAIKey string
}

// Getenv looks up one environment variable, returning "" when unset.
// os.Getenv satisfies it; tests inject a map-backed fake.
type Getenv func(key string) string

// LoadSettings builds Settings from the environment. Unset or unparsable
// values fall back to documented defaults and numeric values are clamped
// into their valid ranges, so loading never fails.
func LoadSettings(getenv Getenv) Settings {
	s := Settings{
		SubMaxChars:  clampInt(envInt(getenv, EnvSubMaxChars, DefaultSubMaxChars), minSubMaxChars, maxSubMaxChars),
		ShortMin:     clampFloat(envFloat(getenv, EnvSubShortMin, DefaultShortMin), minChunkSeconds, maxChunkSeconds),
		ShortMax:     clampFloat(envFloat(getenv, EnvSubShortMax, DefaultShortMax), minChunkSeconds, maxChunkSeconds),
		LongMin:      clampFloat(envFloat(getenv, EnvSubLongMin, DefaultLongMin), minChunkSeconds, maxChunkSeconds),
		LongMax:      clampFloat(envFloat(getenv, EnvSubLongMax, DefaultLongMax), minChunkSeconds, maxChunkSeconds),
		Anticipation: envMillis(getenv, EnvAnticipationMS, DefaultAnticipation, minAnticipationMS, maxAnticipationMS),
		Offset:       envMillis(getenv, EnvOffsetMS, DefaultOffset, minOffsetMS, maxOffsetMS),
		MaxGap:       envMillis(getenv, EnvMaxGapMS, DefaultMaxGap, minGapMS, maxGapMS),
		Autosync:     envBool(getenv, EnvAutosync, false),
		AutoOffset:   envBool(getenv, EnvAutoOffset, true),
		Strict:       envBool(getenv, EnvStrict, false),
		OutputDir:    getenv(EnvOutputDir),
		MaxImages:    clampInt(envInt(getenv, EnvMaxImages, DefaultMaxImages), minImages, maxImages),
		OpenAIKey:    getenv(EnvOpenAIKey),
	}

	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir
	}

	// Inverted bounds degrade to the defaults rather than producing a
	// min > max pair downstream.
	if s.ShortMax < s.ShortMin {
		s.ShortMin, s.ShortMax = DefaultShortMin, DefaultShortMax
	}
	if s.LongMax < s.LongMin {
		s.LongMin, s.LongMax = DefaultLongMin, DefaultLongMax
	}

	return s
}

func envInt(getenv Getenv, key string, def int) int {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func envFloat(getenv Getenv, key string, def float64) float64 {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func envMillis(getenv Getenv, key string, def time.Duration, minMS, maxMS int) time.Duration {
	ms := envInt(getenv, key, int(def/time.Millisecond))
	return time.Duration(clampInt(ms, minMS, maxMS)) * time.Millisecond
}

// envBool accepts 1/0, true/false, yes/no, on/off in any case.
func envBool(getenv Getenv, key string, def bool) bool {
	raw := strings.ToLower(strings.TrimSpace(getenv(key)))
	switch raw {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
