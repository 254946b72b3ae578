package script

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/HayatoBr/YTStudioAI/internal/subtitle"
)

// ErrUnparsable indicates the model output could not be turned into a
// script even after a repair round.
var ErrUnparsable = errors.New("unparsable script output")

// Defect codes attached to schema coercions.
const (
	DefectMissingTitle     = "missing_title"
	DefectMissingNarration = "missing_narration"
	DefectBadRole          = "bad_role"
	DefectBadCamera        = "bad_camera"
	DefectEmptyAnchor      = "empty_anchor"
	DefectSceneCount       = "scene_count"
)

// Defect records one coercion applied while normalizing a decoded
// script. SceneIndex is -1 for script-level defects.
type Defect struct {
	SceneIndex int
	Code       string
	Message    string
}

func (d Defect) String() string {
	if d.SceneIndex < 0 {
		return fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return fmt.Sprintf("scene %d %s: %s", d.SceneIndex+1, d.Code, d.Message)
}

var (
	fenceOpenRe     = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceCloseRe    = regexp.MustCompile("\\s*```$")
	trailingPauseRe = regexp.MustCompile(`(?m)\[PAUSA_FINAL\]\s*$`)
)

// ExtractJSON pulls the JSON object out of a model reply: pure JSON
// passes through, fenced blocks are unwrapped, otherwise the outermost
// brace pair is taken. Returns false when no candidate exists.
func ExtractJSON(text string) (string, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return "", false
	}
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s, true
	}

	s = strings.TrimSpace(fenceOpenRe.ReplaceAllString(s, ""))
	s = strings.TrimSpace(fenceCloseRe.ReplaceAllString(s, ""))

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// decodeScript strictly decodes a raw model reply into a Script.
// Unknown fields fail the decode so drifted schemas go through the
// repair round instead of being half-read.
func decodeScript(raw string) (Script, error) {
	cand, ok := ExtractJSON(raw)
	if !ok {
		return Script{}, fmt.Errorf("no JSON object in output: %w", ErrUnparsable)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(cand)))
	dec.DisallowUnknownFields()

	var s Script
	if err := dec.Decode(&s); err != nil {
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	return s, nil
}

// Default scene padding when the model returned too few scenes. Anchors
// match the channel's documentary visual language.
var fallbackScenes = []Scene{
	{Camera: CameraClose, Scene: anchorScene("arquivo confidencial com carimbo")},
	{Camera: CameraWide, Scene: anchorScene("corredor escuro com lâmpada falhando")},
	{Camera: CameraMedium, Scene: anchorScene("mapa com rota marcada em vermelho")},
	{Camera: CameraClose, Scene: anchorScene("foto rasgada em cima da mesa")},
	{Camera: CameraMedium, Scene: anchorScene("câmera de segurança granulada")},
	{Camera: CameraClose, Scene: anchorScene("recorte de jornal antigo")},
	{Camera: CameraWide, Scene: anchorScene("silhueta ao fundo na chuva")},
}

const (
	fallbackTitle  = "Arquivo Oculto (auto)"
	fallbackAnchor = "arquivo antigo"
)

// Normalize coerces a decoded script into shape: default title, control
// marker cleanup, scene count padded or trimmed to want, roles, cameras
// and anchors defaulted, scene IDs assigned. Every change is returned as
// a Defect so the caller can report what the model got wrong.
func Normalize(s Script, want int) (Script, []Defect) {
	var defects []Defect

	if strings.TrimSpace(s.Title) == "" {
		s.Title = fallbackTitle
		defects = append(defects, Defect{SceneIndex: -1, Code: DefectMissingTitle,
			Message: "title missing, default applied"})
	}

	s.Narration = strings.TrimSpace(trailingPauseRe.ReplaceAllString(s.Narration, ""))
	if s.Narration == "" {
		defects = append(defects, Defect{SceneIndex: -1, Code: DefectMissingNarration,
			Message: "narration is empty"})
	}

	if want < 1 {
		want = len(s.Scenes)
	}
	switch {
	case len(s.Scenes) > want:
		defects = append(defects, Defect{SceneIndex: -1, Code: DefectSceneCount,
			Message: fmt.Sprintf("%d scenes returned, trimmed to %d", len(s.Scenes), want)})
		s.Scenes = s.Scenes[:want]
	case len(s.Scenes) < want:
		defects = append(defects, Defect{SceneIndex: -1, Code: DefectSceneCount,
			Message: fmt.Sprintf("%d scenes returned, padded to %d", len(s.Scenes), want)})
		for i := len(s.Scenes); i < want; i++ {
			s.Scenes = append(s.Scenes, fallbackScenes[i%len(fallbackScenes)])
		}
	}

	for i := range s.Scenes {
		sc := &s.Scenes[i]
		sc.SceneID = i + 1

		sc.NarrativeRole = strings.ToLower(strings.TrimSpace(sc.NarrativeRole))
		if !validRole(sc.NarrativeRole) {
			role := defaultRole(i, len(s.Scenes))
			if sc.NarrativeRole != "" {
				defects = append(defects, Defect{SceneIndex: i, Code: DefectBadRole,
					Message: fmt.Sprintf("role %q replaced with %q", sc.NarrativeRole, role)})
			}
			sc.NarrativeRole = role
		}

		sc.Camera = strings.ToLower(strings.TrimSpace(sc.Camera))
		if !validCamera(sc.Camera) {
			if sc.Camera != "" {
				defects = append(defects, Defect{SceneIndex: i, Code: DefectBadCamera,
					Message: fmt.Sprintf("camera %q replaced with %q", sc.Camera, CameraMedium)})
			}
			sc.Camera = CameraMedium
		}

		sc.VisualAnchor = strings.TrimSpace(sc.VisualAnchor)
		if sc.VisualAnchor == "" {
			sc.VisualAnchor = fallbackAnchor
			defects = append(defects, Defect{SceneIndex: i, Code: DefectEmptyAnchor,
				Message: "visual anchor missing, default applied"})
		}
	}

	return s, defects
}

func anchorScene(anchor string) subtitle.Scene {
	return subtitle.Scene{VisualAnchor: anchor}
}
