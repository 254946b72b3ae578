package script

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/HayatoBr/YTStudioAI/internal/apierr"
)

// Generation defaults, matching the channel's publishing profile.
const (
	defaultModel       = "gpt-4.1-mini"
	defaultTemperature = 0.8
	defaultSceneCount  = 7
)

// Options carries per-call generation parameters.
type Options struct {
	// Theme steers the subject; empty lets the model pick a case.
	Theme string
}

// Result is a generated script together with everything that had to be
// fixed on the way: Repaired marks a second model round for JSON
// recovery, Defects lists schema coercions applied after decoding.
type Result struct {
	Script   Script
	Repaired bool
	Defects  []Defect
}

// Generator produces complete video scripts.
type Generator interface {
	Generate(ctx context.Context, opts Options) (Result, error)
}

// chatCompleter is the slice of the OpenAI client the generator needs.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Compile-time check that the real client satisfies the interface.
var _ chatCompleter = (*openai.Client)(nil)

// Compile-time interface compliance check.
var _ Generator = (*OpenAIGenerator)(nil)

// OpenAIGenerator generates scripts through the chat completion API
// with retry on transient failures and a JSON repair round when the
// model strays from the schema.
type OpenAIGenerator struct {
	client      chatCompleter
	model       string
	temperature float32
	sceneCount  int
	retry       apierr.RetryConfig
}

// Option configures an OpenAIGenerator.
type Option func(*OpenAIGenerator)

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(g *OpenAIGenerator) { g.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(g *OpenAIGenerator) { g.temperature = t }
}

// WithSceneCount sets how many scenes a script must carry.
func WithSceneCount(n int) Option {
	return func(g *OpenAIGenerator) {
		if n > 0 {
			g.sceneCount = n
		}
	}
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(cfg apierr.RetryConfig) Option {
	return func(g *OpenAIGenerator) { g.retry = cfg }
}

// WithClient sets a custom chat client (for testing).
func WithClient(c chatCompleter) Option {
	return func(g *OpenAIGenerator) { g.client = c }
}

// NewOpenAIGenerator creates a script generator. apiKey is required
// unless a custom client is injected.
func NewOpenAIGenerator(apiKey string, opts ...Option) (*OpenAIGenerator, error) {
	g := &OpenAIGenerator{
		model:       defaultModel,
		temperature: defaultTemperature,
		sceneCount:  defaultSceneCount,
		retry:       apierr.DefaultRetryConfig,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.client == nil {
		if apiKey == "" {
			return nil, fmt.Errorf("API key required: %w", apierr.ErrAuthFailed)
		}
		g.client = openai.NewClient(apiKey)
	}
	return g, nil
}

// Generate produces a script: one model call, a strict decode, at most
// one repair round, then schema normalization with tagged defects.
func (g *OpenAIGenerator) Generate(ctx context.Context, opts Options) (Result, error) {
	raw, err := g.complete(ctx, systemPrompt, g.userPrompt(opts))
	if err != nil {
		return Result{}, fmt.Errorf("script generation: %w", err)
	}

	repaired := false
	s, err := decodeScript(raw)
	if err != nil {
		fixed, repairErr := g.complete(ctx, repairSystemPrompt, repairUserPrompt(raw, g.sceneCount))
		if repairErr != nil {
			return Result{}, fmt.Errorf("script repair: %w", repairErr)
		}
		s, err = decodeScript(fixed)
		if err != nil {
			return Result{}, fmt.Errorf("script repair did not yield valid JSON: %w", ErrUnparsable)
		}
		repaired = true
	}

	s, defects := Normalize(s, g.sceneCount)
	return Result{Script: s, Repaired: repaired, Defects: defects}, nil
}

// complete runs one chat completion with retry and error classification.
func (g *OpenAIGenerator) complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	return apierr.RetryWithBackoff(ctx, g.retry, func() (string, error) {
		resp, err := g.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return "", apierr.Classify(err)
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return "", fmt.Errorf("chat completion: %w", apierr.ErrEmptyResponse)
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}, apierr.IsRetryable)
}

const systemPrompt = "Você cria roteiros curtos documentais (PT-BR) e responde sempre em JSON puro."

const repairSystemPrompt = "Você é um reparador de JSON. Retorne somente JSON válido."

func (g *OpenAIGenerator) userPrompt(opts Options) string {
	var b strings.Builder
	b.WriteString("Você é roteirista investigativo cinematográfico. Escreva para TTS (fala natural).\n")
	b.WriteString("Canal: Arquivo Oculto. Estética dark/documental. Tom neutro.\n\n")
	b.WriteString("Objetivo: um SHORT de 45–60s em PT-BR, ritmo alto, frases curtas e visuais.\n")
	if opts.Theme != "" {
		fmt.Fprintf(&b, "Tema editorial: %s.\n", opts.Theme)
	}
	b.WriteString("Restrições: não use nomes completos de pessoas reais; não acuse indivíduos reais; evite gore.\n\n")
	b.WriteString("Qualidade obrigatória:\n")
	b.WriteString("1) Narração 130–160 palavras.\n")
	b.WriteString("2) Inclua 3 evidências concretas (sem nomes completos):\n")
	b.WriteString("   - um horário ou data aproximada\n")
	b.WriteString("   - um local genérico verificável\n")
	b.WriteString("   - um detalhe físico (carimbo, foto, fita, etc.)\n")
	b.WriteString("3) Traga 1 contradição específica.\n")
	b.WriteString("4) Final: 2 linhas curtas:\n")
	b.WriteString("   - Linha 1: máx 6 palavras, com ponto.\n")
	b.WriteString("   - Linha 2: pergunta máx 10 palavras, com interrogação.\n\n")
	fmt.Fprintf(&b, "Saída: retorne APENAS JSON válido no schema:\n%s", schema(g.sceneCount))
	return b.String()
}

func repairUserPrompt(badOutput string, sceneCount int) string {
	return fmt.Sprintf(
		"Converta o conteúdo abaixo em APENAS um JSON válido (sem markdown, sem texto extra), "+
			"seguindo rigorosamente o schema fornecido.\n\nSCHEMA:\n%s\n\nCONTEÚDO:\n%s",
		schema(sceneCount), badOutput)
}

func schema(sceneCount int) string {
	return fmt.Sprintf(`{
  "title": "string",
  "narration": "string (com quebras de linha, 2 linhas finais separadas)",
  "final_question": "string (opcional)",
  "scenes": [ { "scene_id": 1, "narrative_role": "hook|context|evidencia|contradicao|resolucao", "visual_anchor": "string", "narration_text": "string", "camera": "wide|medium|close" } x%d ]
}`, sceneCount)
}
