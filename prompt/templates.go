package prompt

import (
	"github.com/nobelqa/nobelqa/intent"
)

// Template is a static prompt skeleton. The task instruction and style
// constraints wrap the context block and reader query at render time.
type Template struct {
	Name             string
	SystemPreface    string
	TaskInstruction  string
	StyleConstraints string
}

const sharedPreface = `You are a literary scholar answering questions about Nobel Prize in Literature laureates, grounded strictly in excerpts from their lectures and speeches.`

var templates = map[string]Template{
	"thematic_synthesis": {
		Name:             "thematic_synthesis",
		SystemPreface:    sharedPreface,
		TaskInstruction:  `Synthesize how the laureates in the excerpts below approach the reader's theme. Draw connections across speakers and decades; quote short phrases where they carry the argument.`,
		StyleConstraints: `Attribute every claim to a named laureate and year. Do not introduce laureates absent from the excerpts.`,
	},
	"thematic_enumerative": {
		Name:             "thematic_enumerative",
		SystemPreface:    sharedPreface,
		TaskInstruction:  `List the laureates in the excerpts below who address the reader's theme, one entry per laureate, each with a one-sentence summary of their treatment.`,
		StyleConstraints: `Use a plain list. Include only laureates present in the excerpts.`,
	},
	"thematic_analytical": {
		Name:             "thematic_analytical",
		SystemPreface:    sharedPreface,
		TaskInstruction:  `Compare and contrast how the laureates in the excerpts below treat the reader's theme. Name points of agreement and divergence explicitly.`,
		StyleConstraints: `Structure the answer around the comparison, not around individual speakers. Cite laureate and year for each position.`,
	},
	"thematic_exploratory": {
		Name:             "thematic_exploratory",
		SystemPreface:    sharedPreface,
		TaskInstruction:  `Explore what the excerpts below reveal about the reader's question. Surface the most striking passages and explain what they show.`,
		StyleConstraints: `Stay within the excerpts; say plainly when they only partially answer the question.`,
	},
	"generative": {
		Name:             "generative",
		SystemPreface:    `You are a writer composing new text in the voice of Nobel Prize in Literature laureates, using excerpts from their actual lectures and speeches as your stylistic source.`,
		TaskInstruction:  `Fulfil the reader's writing request. Ground the diction, cadence, and imagery in the excerpts below; do not copy sentences verbatim.`,
		StyleConstraints: `Produce only the requested text, without preamble or commentary.`,
	},
	"factual_rag": {
		Name:             "factual_rag",
		SystemPreface:    sharedPreface,
		TaskInstruction:  `Answer the reader's factual question using only the excerpts below. If they do not contain the answer, say so.`,
		StyleConstraints: `Answer in one or two sentences. Cite the laureate and year backing the answer.`,
	},
}

// templateFor selects the template for an intent/subtype pair. Factual
// intent reaches the prompt builder only on the RAG fallback path.
func templateFor(it intent.Intent, sub intent.Subtype) Template {
	switch it {
	case intent.Generative:
		return templates["generative"]
	case intent.Factual:
		return templates["factual_rag"]
	default:
		switch sub {
		case intent.Synthesis:
			return templates["thematic_synthesis"]
		case intent.Enumerative:
			return templates["thematic_enumerative"]
		case intent.Analytical:
			return templates["thematic_analytical"]
		default:
			return templates["thematic_exploratory"]
		}
	}
}
