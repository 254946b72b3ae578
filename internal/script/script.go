// Package script generates narrated video scripts through a chat
// completion model. The model output is decoded strictly into the scene
// schema; anything that has to be coerced afterwards is reported as a
// tagged defect instead of being fixed silently.
package script

import (
	"math"

	"github.com/HayatoBr/YTStudioAI/internal/subtitle"
)

// Narrative roles a scene can carry, in their canonical order.
const (
	RoleHook          = "hook"
	RoleContext       = "context"
	RoleEvidence      = "evidencia"
	RoleContradiction = "contradicao"
	RoleResolution    = "resolucao"
)

// Camera framing values accepted from the model.
const (
	CameraWide   = "wide"
	CameraMedium = "medium"
	CameraClose  = "close"
)

// Scene is one visual beat of the script. The subtitle fields are shared
// with the validator and timeline; Camera only informs image prompts.
type Scene struct {
	subtitle.Scene
	Camera string `json:"camera"`
}

// Script is a complete generated script for one video.
type Script struct {
	Title         string  `json:"title"`
	Narration     string  `json:"narration"`
	FinalQuestion string  `json:"final_question,omitempty"`
	Scenes        []Scene `json:"scenes"`
}

// SubtitleScenes projects the scenes into the shape the validator and
// timeline take.
func (s Script) SubtitleScenes() []subtitle.Scene {
	out := make([]subtitle.Scene, len(s.Scenes))
	for i, sc := range s.Scenes {
		out[i] = sc.Scene
	}
	return out
}

// ApplyScenes writes validated subtitle scenes back, matching by index.
// Extra entries on either side are left untouched.
func (s *Script) ApplyScenes(scenes []subtitle.Scene) {
	for i := range s.Scenes {
		if i >= len(scenes) {
			return
		}
		s.Scenes[i].Scene = scenes[i]
	}
}

// AssignChunks splits the narration into subtitle chunks and spreads
// them over the scenes in order, front-loaded with a ceiling division.
// Scenes with no chunk left get none; no filler text is inserted.
func (s *Script) AssignChunks(maxChars int) {
	if len(s.Scenes) == 0 {
		return
	}

	chunks := subtitle.SplitChunks(s.Narration, maxChars)
	per := 0
	if len(chunks) > 0 {
		per = int(math.Ceil(float64(len(chunks)) / float64(len(s.Scenes))))
		per = max(per, 1)
	}

	idx := 0
	for i := range s.Scenes {
		if per == 0 || idx >= len(chunks) {
			s.Scenes[i].SubtitleChunks = nil
			continue
		}
		end := min(idx+per, len(chunks))
		s.Scenes[i].SubtitleChunks = chunks[idx:end]
		idx = end
	}
}

// defaultRole maps a scene position to the role it should carry when the
// model omitted or invented one: hook first, context second, resolution
// last, contradiction before it, evidence in between.
func defaultRole(i, n int) string {
	switch {
	case i == 0:
		return RoleHook
	case i == n-1 && n > 1:
		return RoleResolution
	case i == n-2 && n > 3:
		return RoleContradiction
	case i == 1:
		return RoleContext
	default:
		return RoleEvidence
	}
}

func validRole(r string) bool {
	switch r {
	case RoleHook, RoleContext, RoleEvidence, RoleContradiction, RoleResolution:
		return true
	}
	return false
}

func validCamera(c string) bool {
	switch c {
	case CameraWide, CameraMedium, CameraClose:
		return true
	}
	return false
}
