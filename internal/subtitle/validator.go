package subtitle

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Scene is one narrative unit of a generated script, carrying the subtitle
// chunk candidates the validator operates on.
type Scene struct {
	SceneID        int      `json:"scene_id"`
	NarrativeRole  string   `json:"narrative_role"`
	VisualAnchor   string   `json:"visual_anchor"`
	NarrationText  string   `json:"narration_text"`
	SubtitleChunks []string `json:"subtitle_chunks"`
}

// Rules holds the per-chunk content constraints.
type Rules struct {
	MinWords    int
	MaxWords    int
	MaxChars    int
	Uppercase   bool
	AllowEmojis bool
}

// DefaultRules returns the constraints for short-form subtitle chunks:
// 2-5 uppercase words, at most 34 characters, no emojis.
func DefaultRules() Rules {
	return Rules{
		MinWords:  2,
		MaxWords:  5,
		MaxChars:  34,
		Uppercase: true,
	}
}

// StrictRules enables the quality passes applied on top of basic
// sanitization: generic-phrase banning, deduplication, repetition analysis,
// and evidence-vocabulary enforcement for documentary roles.
type StrictRules struct {
	Enabled bool

	// MaxRepeatRatio is the tolerated fraction of repeated words within
	// one scene before the scene is flagged (reported, not fixed).
	MaxRepeatRatio float64

	BanGeneric           bool
	AvoidConsecutiveDups bool

	// RequireEvidenceRoles lists narrative roles whose scenes must carry
	// at least one chunk with a term from the evidence vocabulary.
	RequireEvidenceRoles []string

	// AllowFallback permits inserting a role-appropriate fallback chunk
	// when an evidence term is missing.
	AllowFallback bool
}

// DefaultStrictRules returns the strict preset used when strict validation
// is switched on.
func DefaultStrictRules() StrictRules {
	return StrictRules{
		Enabled:              true,
		MaxRepeatRatio:       0.35,
		BanGeneric:           true,
		AvoidConsecutiveDups: true,
		RequireEvidenceRoles: []string{"evidencia", "contradicao"},
		AllowFallback:        true,
	}
}

// Issue codes emitted by ValidateScenes.
const (
	CodeEmojiRemoved         = "emoji_removed"
	CodeTooManyWords         = "too_many_words"
	CodeTooManyChars         = "too_many_chars"
	CodeEmpty                = "empty"
	CodeTooFewWords          = "too_few_words"
	CodeGenericBanned        = "generic_banned"
	CodeDuplicateInScene     = "duplicate_in_scene"
	CodeDuplicateConsecutive = "duplicate_consecutive"
	CodeHighRepetition       = "high_repetition"
	CodeMissingEvidence      = "missing_evidence_token"
)

// Issue records one corrective action taken during validation.
type Issue struct {
	SceneID    int
	ChunkIndex int // -1 for scene-level issues.
	Code       string
	Message    string
	Original   string
	Fixed      string // Empty when the chunk was removed outright.
}

// Report is the structured result of a validation run. Validation is
// corrective, never rejecting, so OK is always true; Issues lists every
// adjustment for observability.
type Report struct {
	OK     bool
	Issues []Issue
}

// Summary renders a one-line digest of the report for CLI output.
func (r Report) Summary() string {
	if len(r.Issues) == 0 {
		return "subtitles validated: no issues found"
	}
	counts := map[string]int{}
	for _, i := range r.Issues {
		counts[i.Code]++
	}
	codes := make([]string, 0, len(counts))
	for c := range counts {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool {
		if counts[codes[i]] != counts[codes[j]] {
			return counts[codes[i]] > counts[codes[j]]
		}
		return codes[i] < codes[j]
	})
	if len(codes) > 8 {
		codes = codes[:8]
	}
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprintf("%s=%d", c, counts[c])
	}
	return fmt.Sprintf("subtitles validated with %d adjustment(s): %s",
		len(r.Issues), strings.Join(parts, ", "))
}

// Generic low-value phrases removed in strict mode.
var genericChunkRe = regexp.MustCompile(`(?i)^(?:` + strings.Join([]string{
	`NINGUÉM SABE`,
	`ISSO MUDA TUDO`,
	`A VERDADE`,
	`NADA FAZ SENTIDO`,
	`VOCÊ ACREDITA`,
	`VOCÊ ACHA`,
	`UM DETALHE`,
	`ALGO ESTRANHO`,
}, "|") + `)$`)

// evidenceTokens is the documentary vocabulary at least one chunk must carry
// in evidence-bearing scenes.
var evidenceTokens = map[string]bool{
	"ARQUIVO": true, "REGISTRO": true, "DOCUMENTO": true, "CARIMBO": true,
	"FITA": true, "FOTO": true, "RELATÓRIO": true, "LISTA": true,
	"PROTOCOLO": true, "FICHA": true, "DATA": true, "HORÁRIO": true,
	"HORA": true, "MAPA": true, "LAUDO": true, "CONFIDENCIAL": true,
	"OFICIAL": true, "MUNICIPAL": true,
}

var (
	emojiRe = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{1F1E6}-\x{1F1FF}\x{2700}-\x{27BF}\x{2600}-\x{26FF}]+`)
	wordRe  = regexp.MustCompile(`[A-Za-zÀ-ÖØ-öø-ÿ0-9']+`)

	multiExclaimRe = regexp.MustCompile(`[!?]{2,}`)
	ellipsisRe     = regexp.MustCompile(`\.{3,}`)
)

// normalizeText flattens whitespace, strips emojis, and straightens curly
// quotes.
func normalizeText(text string) string {
	text = strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
	text = emojiRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = strings.NewReplacer("“", `"`, "”", `"`, "’", "'", "‘", "'").Replace(text)
	return strings.TrimSpace(text)
}

func words(text string) []string {
	return wordRe.FindAllString(text, -1)
}

func tokenizeUpper(text string) []string {
	ws := words(normalizeText(text))
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = strings.ToUpper(w)
	}
	return out
}

func hasEvidenceToken(text string) bool {
	for _, tok := range tokenizeUpper(text) {
		if evidenceTokens[tok] {
			return true
		}
	}
	return false
}

// SanitizeChunkText normalizes one chunk: whitespace and quote cleanup,
// punctuation collapse, optional uppercasing, and a soft character limit
// enforced by dropping trailing words.
func SanitizeChunkText(text string, rules Rules) string {
	t := normalizeText(text)
	t = strings.Trim(t, ` -–—•|/\`)
	if rules.Uppercase {
		t = strings.ToUpper(t)
	}
	t = multiExclaimRe.ReplaceAllString(t, "!")
	t = ellipsisRe.ReplaceAllString(t, "…")
	t = strings.Trim(t, `"'`)
	t = strings.TrimSpace(t)

	if rules.MaxChars > 0 && runeLen(t) > rules.MaxChars {
		ws := words(t)
		for len(ws) > 0 && runeLen(strings.Join(ws, " ")) > rules.MaxChars {
			ws = ws[:len(ws)-1]
		}
		if joined := strings.TrimSpace(strings.Join(ws, " ")); joined != "" {
			t = joined
		} else {
			t = strings.TrimSpace(string([]rune(t)[:rules.MaxChars]))
		}
	}
	return t
}

// enforceWordCount truncates a chunk to the maximum word count.
func enforceWordCount(text string, rules Rules) string {
	t := normalizeText(text)
	ws := words(t)
	if rules.MaxWords > 0 && len(ws) > rules.MaxWords {
		ws = ws[:rules.MaxWords]
	}
	if len(ws) > 0 {
		t = strings.Join(ws, " ")
	}
	t = normalizeText(t)
	if rules.Uppercase {
		t = strings.ToUpper(t)
	}
	return t
}

// fallbackChunk builds a role-appropriate replacement carrying an evidence
// term, used when an evidence-bearing scene lost all qualifying chunks.
func fallbackChunk(scene Scene, rules Rules) string {
	role := strings.ToLower(strings.TrimSpace(scene.NarrativeRole))
	anchor := strings.ToLower(strings.TrimSpace(scene.VisualAnchor))

	var cand string
	switch role {
	case "evidencia":
		if strings.Contains(anchor, "document") || strings.Contains(anchor, "evidenc") ||
			strings.Contains(anchor, "arquivo") {
			cand = "REGISTRO OFICIAL"
		} else {
			cand = "EVIDÊNCIA NO ARQUIVO"
		}
	case "contradicao":
		cand = "ISSO NÃO BATE"
	case "desfecho":
		cand = "E ISSO FICA AÍ."
	case "gancho":
		cand = "ANOTADO NO ARQUIVO"
	default:
		cand = "DETALHE DOCUMENTADO"
	}

	cand = enforceWordCount(SanitizeChunkText(cand, rules), rules)
	if len(words(normalizeText(cand))) < rules.MinWords {
		cand = "NO ARQUIVO"
	}
	return cand
}

// ValidateScenes sanitizes subtitle chunks scene by scene and returns the
// corrected scenes plus a structured report. The input slice is not
// mutated. Sanitization is strictly corrective: chunks are fixed, merged,
// or dropped, and the pipeline never aborts on content problems.
func ValidateScenes(scenes []Scene, rules Rules, strict StrictRules) ([]Scene, Report) {
	report := Report{OK: true}

	out := make([]Scene, len(scenes))
	copy(out, scenes)

	var prevLastChunk string

	for si := range out {
		scene := &out[si]
		if scene.SceneID == 0 {
			scene.SceneID = si + 1
		}
		if len(scene.SubtitleChunks) == 0 {
			continue
		}

		cleaned := sanitizePass(*scene, rules, &report)
		merged := mergeShortChunks(scene.SceneID, cleaned, rules, &report)

		if strict.Enabled {
			merged = strictPass(*scene, merged, rules, strict, prevLastChunk, &report)
		}

		// Final clamp: re-sanitize and drop anything that ended up empty.
		final := make([]string, 0, len(merged))
		for _, t := range merged {
			t = enforceWordCount(SanitizeChunkText(t, rules), rules)
			if strings.TrimSpace(t) != "" {
				final = append(final, t)
			}
		}

		scene.SubtitleChunks = final
		if len(final) > 0 {
			prevLastChunk = final[len(final)-1]
		}
	}

	return out, report
}

// sanitizePass normalizes every chunk and drops the ones that become empty.
func sanitizePass(scene Scene, rules Rules, report *Report) []string {
	cleaned := make([]string, 0, len(scene.SubtitleChunks))
	for ci, orig := range scene.SubtitleChunks {
		t := SanitizeChunkText(orig, rules)

		if !rules.AllowEmojis && emojiRe.MatchString(orig) {
			report.Issues = append(report.Issues, Issue{
				SceneID: scene.SceneID, ChunkIndex: ci, Code: CodeEmojiRemoved,
				Message: "emoji removed", Original: orig, Fixed: t,
			})
		}

		if rules.MaxWords > 0 && len(words(normalizeText(t))) > rules.MaxWords {
			t2 := enforceWordCount(t, rules)
			report.Issues = append(report.Issues, Issue{
				SceneID: scene.SceneID, ChunkIndex: ci, Code: CodeTooManyWords,
				Message:  fmt.Sprintf("more than %d words; truncated", rules.MaxWords),
				Original: orig, Fixed: t2,
			})
			t = t2
		}

		if rules.MaxChars > 0 && runeLen(t) > rules.MaxChars {
			t2 := SanitizeChunkText(t, rules)
			if runeLen(t2) < runeLen(t) {
				report.Issues = append(report.Issues, Issue{
					SceneID: scene.SceneID, ChunkIndex: ci, Code: CodeTooManyChars,
					Message:  fmt.Sprintf("more than %d chars; shortened", rules.MaxChars),
					Original: orig, Fixed: t2,
				})
			}
			t = t2
		}

		if strings.TrimSpace(t) == "" {
			report.Issues = append(report.Issues, Issue{
				SceneID: scene.SceneID, ChunkIndex: ci, Code: CodeEmpty,
				Message: "chunk empty after sanitization; removed", Original: orig,
			})
			continue
		}

		cleaned = append(cleaned, t)
	}
	return cleaned
}

// mergeShortChunks merges any chunk below the minimum word count with its
// immediate successor.
func mergeShortChunks(sceneID int, chunks []string, rules Rules, report *Report) []string {
	merged := make([]string, 0, len(chunks))
	for i := 0; i < len(chunks); i++ {
		cur := chunks[i]
		if len(words(normalizeText(cur))) < rules.MinWords && i+1 < len(chunks) {
			combined := SanitizeChunkText(cur+" "+chunks[i+1], rules)
			combined = enforceWordCount(combined, rules)
			report.Issues = append(report.Issues, Issue{
				SceneID: sceneID, ChunkIndex: i, Code: CodeTooFewWords,
				Message:  fmt.Sprintf("fewer than %d words; merged with next", rules.MinWords),
				Original: cur, Fixed: combined,
			})
			merged = append(merged, combined)
			i++
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}

// strictPass applies the quality rules: generic-phrase ban, in-scene
// dedupe, cross-scene consecutive duplicate removal, repetition-ratio
// flagging, and the evidence-vocabulary requirement.
func strictPass(scene Scene, chunks []string, rules Rules, strict StrictRules, prevLastChunk string, report *Report) []string {
	deduped := make([]string, 0, len(chunks))
	seen := map[string]bool{}
	for ci, t := range chunks {
		key := strings.ToUpper(normalizeText(t))

		if strict.BanGeneric && genericChunkRe.MatchString(key) {
			report.Issues = append(report.Issues, Issue{
				SceneID: scene.SceneID, ChunkIndex: ci, Code: CodeGenericBanned,
				Message: "generic low-value chunk removed", Original: t,
			})
			continue
		}

		if seen[key] {
			report.Issues = append(report.Issues, Issue{
				SceneID: scene.SceneID, ChunkIndex: ci, Code: CodeDuplicateInScene,
				Message: "duplicate chunk within scene removed", Original: t,
			})
			continue
		}
		seen[key] = true
		deduped = append(deduped, t)
	}

	if strict.AvoidConsecutiveDups && prevLastChunk != "" && len(deduped) > 0 {
		if strings.EqualFold(normalizeText(deduped[0]), normalizeText(prevLastChunk)) {
			report.Issues = append(report.Issues, Issue{
				SceneID: scene.SceneID, ChunkIndex: 0, Code: CodeDuplicateConsecutive,
				Message: "chunk repeats previous scene's closer; removed", Original: deduped[0],
			})
			deduped = deduped[1:]
		}
	}

	if ratio := repeatRatio(deduped); ratio > strict.MaxRepeatRatio {
		report.Issues = append(report.Issues, Issue{
			SceneID: scene.SceneID, ChunkIndex: -1, Code: CodeHighRepetition,
			Message:  fmt.Sprintf("high word repetition in scene (ratio=%.2f)", ratio),
			Original: strings.Join(deduped, " "),
		})
	}

	role := strings.ToLower(strings.TrimSpace(scene.NarrativeRole))
	if containsRole(strict.RequireEvidenceRoles, role) {
		hasAny := false
		for _, t := range deduped {
			if hasEvidenceToken(t) {
				hasAny = true
				break
			}
		}
		if !hasAny {
			if strict.AllowFallback {
				fb := fallbackChunk(scene, rules)
				report.Issues = append(report.Issues, Issue{
					SceneID: scene.SceneID, ChunkIndex: -1, Code: CodeMissingEvidence,
					Message: "scene requires a documentary term; fallback inserted", Fixed: fb,
				})
				deduped = append([]string{fb}, deduped...)
			} else {
				report.Issues = append(report.Issues, Issue{
					SceneID: scene.SceneID, ChunkIndex: -1, Code: CodeMissingEvidence,
					Message:  "scene requires a documentary term; no fallback allowed",
					Original: strings.Join(deduped, " "),
				})
			}
		}
	}

	return deduped
}

// repeatRatio returns the fraction of repeated words across all chunks of a
// scene, 0 when every word is unique.
func repeatRatio(chunks []string) float64 {
	var all []string
	for _, t := range chunks {
		all = append(all, tokenizeUpper(t)...)
	}
	if len(all) == 0 {
		return 0
	}
	uniq := map[string]bool{}
	for _, w := range all {
		uniq[w] = true
	}
	return 1.0 - float64(len(uniq))/float64(len(all))
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
