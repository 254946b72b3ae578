// Package subtitle builds timed, karaoke-styled subtitle tracks from
// narration text without any speech-to-text alignment data.
//
// The pipeline is: ValidateScenes sanitizes chunk text, SplitChunks breaks
// narration into display-sized phrases, DetectSpeechSegments turns a
// silencedetect log into non-silent windows, BuildTimeline allocates a
// start/end time to every chunk, and WriteKaraokeASS renders the result as an
// ASS document with per-word highlight tags.
//
// Every function in this package is a pure transformation: no I/O, no
// environment reads, no shared state. Identical inputs always produce
// identical output, so callers may invoke the package concurrently and test
// assertions may compare results byte for byte.
package subtitle

import "strings"

// Chunk is one atomic subtitle display unit: a short phrase shown as a
// single event.
type Chunk struct {
	Text       string // Phrase to display (sanitized, non-empty).
	SceneID    int    // Originating scene, for traceability only.
	ChunkIndex int    // Position in the overall chunk sequence (0-based).
}

// Words returns the whitespace-delimited tokens of the chunk text.
// Used for per-word karaoke timing.
func (c Chunk) Words() []string {
	return splitWords(c.Text)
}

// Entry is one timed subtitle event produced by BuildTimeline.
type Entry struct {
	Text       string
	Words      []string
	Start      float64 // Seconds.
	End        float64 // Seconds, always > Start.
	SceneID    int
	ChunkIndex int
}

// Duration returns the display window length in seconds.
func (e Entry) Duration() float64 {
	return e.End - e.Start
}

// splitWords splits text on whitespace, dropping empty tokens.
func splitWords(text string) []string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ChunksFromScenes flattens per-scene subtitle chunks into an ordered Chunk
// list with stable indices. Scenes without chunks contribute nothing.
func ChunksFromScenes(scenes []Scene) []Chunk {
	var out []Chunk
	idx := 0
	for si, scene := range scenes {
		sceneID := scene.SceneID
		if sceneID == 0 {
			sceneID = si + 1
		}
		for _, text := range scene.SubtitleChunks {
			t := strings.TrimSpace(text)
			if t == "" {
				continue
			}
			out = append(out, Chunk{Text: t, SceneID: sceneID, ChunkIndex: idx})
			idx++
		}
	}
	return out
}

// ChunksFromText splits narration into phrase-sized chunks and wraps them
// with sequential indices. Used when scenes carry no pre-split chunks.
func ChunksFromText(text string, maxChars int) []Chunk {
	parts := SplitChunks(text, maxChars)
	chunks := make([]Chunk, 0, len(parts))
	for i, p := range parts {
		chunks = append(chunks, Chunk{Text: p, SceneID: 1, ChunkIndex: i})
	}
	return chunks
}
