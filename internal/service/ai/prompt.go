package ai

import (
	"fmt"
	"strings"

	model "github.com/structai/structai/backend/internal/model/conversation"
)

// PromptTemplate defines how a learning style shapes the tutor's output.
type PromptTemplate struct {
	StyleName    string
	Instructions []string
	WantsDiagram bool
}

// PromptManager maps learning styles to prompt templates.
type PromptManager struct {
	templates map[model.LearningStyle]*PromptTemplate
}

// NewPromptManager creates a manager loaded with the default templates.
func NewPromptManager() *PromptManager {
	m := &PromptManager{templates: make(map[model.LearningStyle]*PromptTemplate)}
	m.loadDefaultTemplates()
	return m
}

func (m *PromptManager) loadDefaultTemplates() {
	m.templates[model.StyleVisual] = &PromptTemplate{
		StyleName: "visual",
		Instructions: []string{
			"Anchor the explanation around a diagram of the structure or algorithm.",
			"Refer to the diagram's nodes and edges from the prose so they reinforce each other.",
		},
		WantsDiagram: true,
	}
	m.templates[model.StyleStepByStep] = &PromptTemplate{
		StyleName: "step-by-step",
		Instructions: []string{
			"Break the explanation into numbered steps that build on each other.",
			"Walk through one small worked example end to end.",
		},
	}
	m.templates[model.StyleConcise] = &PromptTemplate{
		StyleName: "concise",
		Instructions: []string{
			"Answer in a few short paragraphs.",
			"Lead with the core idea and the key complexity bounds; skip digressions.",
		},
	}
}

// Template returns the template for the style, falling back to visual.
func (m *PromptManager) Template(style model.LearningStyle) *PromptTemplate {
	if t, ok := m.templates[style]; ok {
		return t
	}
	return m.templates[model.StyleVisual]
}

// BuildSystemPrompt assembles the system prompt for one tutoring turn.
func (m *PromptManager) BuildSystemPrompt(style model.LearningStyle) string {
	t := m.Template(style)

	var b strings.Builder
	b.WriteString("You are StructAI, a patient tutor for data structures and algorithms. ")
	b.WriteString("Answer in Markdown. Stay on topic; when a question is unrelated to data structures or algorithms, say so briefly and steer back.\n\n")
	fmt.Fprintf(&b, "The user prefers a %s explanation:\n", t.StyleName)
	for _, line := range t.Instructions {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	if t.WantsDiagram {
		b.WriteString("\nInclude exactly one fenced code block tagged `dot` containing a valid Graphviz digraph that visualizes the answer. ")
		b.WriteString("Keep the graph small enough to read at a glance and do not mention the code block in the prose.\n")
	} else {
		b.WriteString("\nDo not include diagrams or code blocks tagged `dot`.\n")
	}

	b.WriteString("\nWhen the previous turn is a question you already answered, treat the new question as a follow-up extending that answer rather than starting over.")
	return b.String()
}
