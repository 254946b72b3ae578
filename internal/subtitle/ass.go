package subtitle

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// Style holds the immutable ASS rendering parameters. Colors use the ASS
// &HAABBGGRR form. Style never affects timing.
type Style struct {
	Name     string
	Font     string
	FontSize int
	Outline  int
	Shadow   int
	MarginV  int

	Primary   string // Fill color.
	Secondary string // Karaoke pre-highlight color.
	OutlineC  string
	Back      string

	PlayResX int
	PlayResY int

	// MaxWords caps the karaoke word count per event to bound tag size.
	MaxWords int
}

// DefaultStyle returns the vertical-video style: big white text with a heavy
// black outline, yellow karaoke highlight, bottom-third placement.
func DefaultStyle() Style {
	return Style{
		Name:      "TikTok",
		Font:      "Arial",
		FontSize:  62,
		Outline:   6,
		Shadow:    2,
		MarginV:   180,
		Primary:   "&H00FFFFFF",
		Secondary: "&H0000FFFF",
		OutlineC:  "&H00000000",
		Back:      "&H64000000",
		PlayResX:  1080,
		PlayResY:  1920,
		MaxWords:  16,
	}
}

// normalize fills zero-valued fields with defaults so a partially built
// Style still renders a valid document.
func (s *Style) normalize() {
	def := DefaultStyle()
	if s.Name == "" {
		s.Name = def.Name
	}
	if s.Font == "" {
		s.Font = def.Font
	}
	if s.FontSize <= 0 {
		s.FontSize = def.FontSize
	}
	if s.Primary == "" {
		s.Primary = def.Primary
	}
	if s.Secondary == "" {
		s.Secondary = def.Secondary
	}
	if s.OutlineC == "" {
		s.OutlineC = def.OutlineC
	}
	if s.Back == "" {
		s.Back = def.Back
	}
	if s.PlayResX <= 0 {
		s.PlayResX = def.PlayResX
	}
	if s.PlayResY <= 0 {
		s.PlayResY = def.PlayResY
	}
	if s.MaxWords <= 0 {
		s.MaxWords = def.MaxWords
	}
}

// minEventCentis is the minimum event duration used for karaoke tag math,
// in centiseconds.
const minEventCentis = 10

// WriteKaraokeASS renders a timeline as an ASS subtitle document with
// per-word karaoke reveal tags. Entries whose text escapes to nothing are
// skipped; an empty timeline still produces a valid header-only document.
// The input timeline is not mutated.
func WriteKaraokeASS(w io.Writer, timeline []Entry, style Style) error {
	style.normalize()

	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", style.PlayResX)
	fmt.Fprintf(&b, "PlayResY: %d\n", style.PlayResY)
	b.WriteString("ScaledBorderAndShadow: yes\n")
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, " +
		"Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, " +
		"Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: %s,%s,%d,%s,%s,%s,%s,0,0,0,0,100,100,0,0,1,%d,%d,2,80,80,%d,1\n",
		style.Name, style.Font, style.FontSize,
		style.Primary, style.Secondary, style.OutlineC, style.Back,
		style.Outline, style.Shadow, style.MarginV)
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, e := range timeline {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		kara := karaokeTags(e.Words, text, e.Start, e.End, style.MaxWords)
		if kara == "" {
			continue
		}
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
			assTime(e.Start), assTime(e.End), style.Name, kara)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// karaokeTags emits {\k<centis>} reveal tags distributing the event duration
// evenly across words, capped at maxWords. Falls back to plain escaped text
// when the entry has no words.
func karaokeTags(words []string, text string, start, end float64, maxWords int) string {
	if len(words) == 0 {
		words = splitWords(text)
	}
	if len(words) == 0 {
		return escapeASS(text)
	}
	if len(words) > maxWords {
		words = words[:maxWords]
	}

	durCentis := int(math.Round((end - start) * 100))
	if durCentis < minEventCentis {
		durCentis = minEventCentis
	}
	per := durCentis / len(words)
	if per < 1 {
		per = 1
	}

	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "{\\k%d}%s", per, escapeASS(w))
	}
	return b.String()
}

// assTime formats seconds as H:MM:SS.CS (centiseconds), the ASS dialogue
// time format.
func assTime(t float64) string {
	if t < 0 {
		t = 0
	}
	centis := int(math.Round(t * 100))
	h := centis / 360000
	centis -= h * 360000
	m := centis / 6000
	centis -= m * 6000
	s := centis / 100
	centis -= s * 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, centis)
}

// escapeASS neutralizes characters with meaning in ASS markup.
func escapeASS(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, "{", `\{`)
	text = strings.ReplaceAll(text, "}", `\}`)
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return text
}
