// Package images generates scene background images through the OpenAI
// image API, with a content-hash cache on disk and a per-run budget so
// a bad prompt set cannot burn through the account.
package images

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/HayatoBr/YTStudioAI/internal/script"
)

// Sentinel errors.
var (
	// ErrBudgetExhausted indicates the per-run generation budget ran out.
	// Cache hits never consume budget.
	ErrBudgetExhausted = errors.New("image budget exhausted")

	// ErrNoImageData indicates the API response carried no image payload.
	ErrNoImageData = errors.New("no image data in response")
)

// Image is one generated (or cached) background on disk. A zero Path
// means the slot was skipped, typically on budget exhaustion.
type Image struct {
	Path      string
	FromCache bool
}

// Generator produces one image per prompt, preserving order.
type Generator interface {
	GenerateAll(ctx context.Context, prompts []string, budget *Budget, maxParallel int) ([]Image, error)
}

// Budget caps the number of fresh generations in one run. Safe for
// concurrent use.
type Budget struct {
	mu        sync.Mutex
	remaining int
}

// NewBudget creates a budget allowing n fresh generations.
func NewBudget(n int) *Budget {
	if n < 0 {
		n = 0
	}
	return &Budget{remaining: n}
}

// TrySpend consumes one unit, reporting whether any was left.
func (b *Budget) TrySpend() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// Remaining returns the unspent budget.
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// ScenePrompt renders the documentary-style image prompt for a scene:
// the visual anchor as the central element, framing from the camera
// field, and the channel's fixed archival look.
func ScenePrompt(sc script.Scene) string {
	anchor := strings.TrimSpace(sc.VisualAnchor)
	if anchor == "" {
		anchor = "pasta de arquivo com carimbo CONFIDENCIAL"
	}

	framing := "Plano médio."
	switch sc.Camera {
	case script.CameraClose:
		framing = "Close-up com fundo desfocado."
	case script.CameraWide:
		framing = "Plano aberto com profundidade."
	}

	return fmt.Sprintf(
		"Imagem realista, documental, para vídeo investigativo.\n"+
			"Elemento central: %s\n"+
			"%s\n"+
			"Iluminação baixa e contrastada. Cores frias e pouco saturadas.\n"+
			"Textura de fotografia de arquivo, grão sutil.\n"+
			"Sem pessoas visíveis. Sem rostos nítidos. Sem texto legível.",
		anchor, framing)
}

// ReuseMissing fills skipped slots with the nearest earlier image, or
// the nearest later one for a skipped head. Slots stay empty only when
// no image exists at all; the renderer then falls back to black.
func ReuseMissing(imgs []Image) []Image {
	lastPath := ""
	for i := range imgs {
		if imgs[i].Path != "" {
			lastPath = imgs[i].Path
			continue
		}
		if lastPath != "" {
			imgs[i] = Image{Path: lastPath, FromCache: true}
		}
	}
	// A skipped head borrows from the first real image.
	firstPath := ""
	for _, img := range imgs {
		if img.Path != "" {
			firstPath = img.Path
			break
		}
	}
	if firstPath == "" {
		return imgs
	}
	for i := range imgs {
		if imgs[i].Path == "" {
			imgs[i] = Image{Path: firstPath, FromCache: true}
		}
	}
	return imgs
}
