// Package prompt assembles LLM prompts from retrieved chunks under a
// fixed token budget, with one template per intent and thematic subtype.
package prompt

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/nobelqa/nobelqa/intent"
	"github.com/nobelqa/nobelqa/vector"
)

// DefaultTokenBudget bounds the rendered prompt. Chunks are dropped from
// the bottom of the ranking until the prompt fits.
const DefaultTokenBudget = 3000

// tokensPerWord approximates token count when no tokenizer is available.
const tokensPerWord = 1.3

// ErrNoChunks is returned when the builder is given an empty chunk set.
var ErrNoChunks = errors.New("prompt: no chunks to assemble")

// Output is the assembled prompt plus the metadata the audit trail
// records about it. SystemPrompt and RenderedPrompt map onto the two
// chat messages of the completion request; TokenCount covers both.
type Output struct {
	TemplateName      string `json:"template_name"`
	SystemPrompt      string `json:"system_prompt"`
	RenderedPrompt    string `json:"rendered_prompt"`
	ContextCharLength int    `json:"context_char_length"`
	ChunksUsed        int    `json:"chunks_used"`
	TokenCount        int    `json:"token_count"`
}

// Builder renders prompts for a fixed model's tokenizer.
type Builder struct {
	budget  int
	encoder *tiktoken.Tiktoken
}

// NewBuilder creates a builder for the given model name. Zero budget
// takes the default. An unknown model falls back to the cl100k_base
// encoding; if no encoding loads at all, a word-count heuristic stands
// in.
func NewBuilder(model string, budget int) *Builder {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			slog.Warn("prompt: no tokenizer available, using word heuristic", "model", model, "error", err)
			enc = nil
		}
	}
	return &Builder{budget: budget, encoder: enc}
}

// Build selects the template for the intent/subtype pair, assembles the
// context block in rank order, and trims lowest-ranked chunks until the
// rendered prompt fits the token budget.
func (b *Builder) Build(it intent.Intent, sub intent.Subtype, query string, chunks []vector.ScoredChunk) (*Output, error) {
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	tmpl := templateFor(it, sub)

	used := len(chunks)
	var rendered, context string
	for used > 0 {
		context = buildContext(chunks[:used])
		rendered = render(tmpl, context, query)
		if b.CountTokens(tmpl.SystemPreface)+b.CountTokens(rendered) <= b.budget {
			break
		}
		used--
	}
	if used == 0 {
		// Even a single chunk overflows: keep the top chunk rather than
		// return an empty context.
		used = 1
		context = buildContext(chunks[:1])
		rendered = render(tmpl, context, query)
		slog.Warn("prompt: single chunk exceeds token budget",
			"template", tmpl.Name, "budget", b.budget, "tokens", b.CountTokens(rendered))
	}

	out := &Output{
		TemplateName:      tmpl.Name,
		SystemPrompt:      tmpl.SystemPreface,
		RenderedPrompt:    rendered,
		ContextCharLength: len(context),
		ChunksUsed:        used,
		TokenCount:        b.CountTokens(tmpl.SystemPreface) + b.CountTokens(rendered),
	}
	slog.Debug("prompt: assembled",
		"template", tmpl.Name, "chunks_given", len(chunks), "chunks_used", used,
		"tokens", out.TokenCount)
	return out, nil
}

// CountTokens counts tokens with the model tokenizer, or estimates from
// the word count when none is available.
func (b *Builder) CountTokens(text string) int {
	if b.encoder != nil {
		return len(b.encoder.Encode(text, nil, nil))
	}
	words := len(strings.Fields(text))
	return int(float64(words) * tokensPerWord)
}

// render substitutes the context block and user query into the
// template's user message. The system preface travels separately.
func render(tmpl Template, context, query string) string {
	var sb strings.Builder
	sb.WriteString(tmpl.TaskInstruction)
	sb.WriteString("\n\nExcerpts:\n\n")
	sb.WriteString(context)
	sb.WriteString("\n\nReader's request: ")
	sb.WriteString(query)
	sb.WriteString("\n\n")
	sb.WriteString(tmpl.StyleConstraints)
	return sb.String()
}

// buildContext lays out chunks in rank order under speaker/year/source
// headers, collapsing consecutive chunks that share a header.
func buildContext(chunks []vector.ScoredChunk) string {
	var sb strings.Builder
	var prevHeader string
	for i, c := range chunks {
		header := chunkHeader(c)
		if header != prevHeader {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(header)
			sb.WriteString("\n")
			prevHeader = header
		} else {
			sb.WriteString("\n")
		}
		sb.WriteString(c.Text)
	}
	return sb.String()
}

func chunkHeader(c vector.ScoredChunk) string {
	return fmt.Sprintf("[%s, %d, %s]", c.Laureate, c.YearAwarded, sourceLabel(c.SourceType))
}

func sourceLabel(sourceType string) string {
	switch sourceType {
	case vector.SourceNobelLecture:
		return "Nobel lecture"
	case vector.SourceCeremonySpeech:
		return "award ceremony speech"
	case vector.SourceAcceptanceSpeech:
		return "acceptance speech"
	default:
		return strings.ReplaceAll(sourceType, "_", " ")
	}
}
