package subtitle

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the per-chunk character budget used when the caller
// passes a non-positive limit. 32 characters keeps two short lines on a
// vertical 1080x1920 frame.
const DefaultMaxChars = 32

// Control markers injected into scripts for the TTS layer. They must never
// be spoken nor displayed, so the chunker strips them before splitting.
var controlMarkerRe = regexp.MustCompile(`(?i)\[PAUSA_FINAL\]|\[PAUSA\]|\[SILENCIO\]|\[SILÊNCIO\]`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// clauseSplitRe breaks an over-long sentence at comma, semicolon, and dash
// boundaries. The separators are dropped.
var clauseSplitRe = regexp.MustCompile(`[;,–—]+\s*`)

// StripControlMarkers removes inline pause/silence markers from text.
// Exported because the speech-synthesis layer strips the same markers
// before sending text to the TTS API.
func StripControlMarkers(text string) string {
	return controlMarkerRe.ReplaceAllString(text, " ")
}

// cleanText strips control markers and collapses whitespace.
func cleanText(text string) string {
	t := StripControlMarkers(strings.TrimSpace(text))
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(t, " "))
}

// SplitChunks divides narration text into short display-sized phrases.
//
// Splitting proceeds in three stages: sentences (on terminal punctuation or
// newlines), then clauses (comma/semicolon/dash) for sentences over maxChars,
// then greedy word packing for any clause still over budget. A single word
// longer than maxChars is emitted whole; the budget is best-effort, not a
// hard ceiling.
//
// Empty or whitespace-only input yields nil. A non-positive maxChars falls
// back to DefaultMaxChars.
func SplitChunks(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	// Strip markers but keep newlines: they are sentence boundaries for
	// splitSentences, and cleanText would collapse them away.
	text = StripControlMarkers(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []string
	for _, sentence := range splitSentences(text) {
		sentence = cleanText(sentence)
		if sentence == "" {
			continue
		}

		if runeLen(sentence) <= maxChars {
			out = append(out, sentence)
			continue
		}

		for _, clause := range clauseSplitRe.Split(sentence, -1) {
			clause = cleanText(clause)
			if clause == "" {
				continue
			}
			if runeLen(clause) <= maxChars {
				out = append(out, clause)
				continue
			}
			out = append(out, packWords(clause, maxChars)...)
		}
	}

	return out
}

// splitSentences cuts text after sentence-ending punctuation followed by
// whitespace, and on newlines. The punctuation stays attached to its
// sentence.
func splitSentences(text string) []string {
	var (
		parts []string
		buf   strings.Builder
	)

	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			parts = append(parts, s)
		}
		buf.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' || r == '\r' {
			flush()
			continue
		}
		buf.WriteRune(r)
		if isSentenceEnd(r) {
			// Cut only when followed by whitespace or end of text, so
			// decimals like "3.14" stay intact.
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				flush()
			}
		}
	}
	flush()

	return parts
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}

// packWords greedily packs words up to maxChars per chunk, flushing whenever
// the next word would exceed the budget.
func packWords(text string, maxChars int) []string {
	var (
		out []string
		cur string
	)
	for _, w := range strings.Fields(text) {
		switch {
		case cur == "":
			cur = w
		case runeLen(cur)+1+runeLen(w) <= maxChars:
			cur += " " + w
		default:
			out = append(out, cur)
			cur = w
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

// runeLen counts characters, not bytes, so accented text is budgeted the way
// it renders.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
