package ai

import (
	"strings"
	"testing"
)

func TestSplitDiagramExtractsDotBlock(t *testing.T) {
	content := "A hash map stores key/value pairs.\n\n```dot\ndigraph {A->B}\n```\n\nLookups are O(1) on average."

	answer, diagram := SplitDiagram(content)
	if diagram != "digraph {A->B}" {
		t.Fatalf("unexpected diagram: %q", diagram)
	}
	if strings.Contains(answer, "```") {
		t.Fatalf("fence left in answer: %q", answer)
	}
	if !strings.Contains(answer, "key/value pairs") || !strings.Contains(answer, "O(1)") {
		t.Fatalf("prose around the block must survive: %q", answer)
	}
}

func TestSplitDiagramGraphvizTag(t *testing.T) {
	_, diagram := SplitDiagram("```graphviz\ndigraph {X}\n```")
	if diagram != "digraph {X}" {
		t.Fatalf("unexpected diagram: %q", diagram)
	}
}

func TestSplitDiagramNoBlock(t *testing.T) {
	answer, diagram := SplitDiagram("Just prose, no diagram.")
	if diagram != "" {
		t.Fatalf("expected empty diagram, got %q", diagram)
	}
	if answer != "Just prose, no diagram." {
		t.Fatalf("answer altered: %q", answer)
	}
}

func TestSplitDiagramUnterminatedBlock(t *testing.T) {
	content := "Prose.\n```dot\ndigraph {A"
	answer, diagram := SplitDiagram(content)
	if diagram != "" {
		t.Fatalf("unterminated block must not produce a diagram, got %q", diagram)
	}
	if answer != content {
		t.Fatalf("answer altered: %q", answer)
	}
}

func TestBuildSystemPromptPerStyle(t *testing.T) {
	m := NewPromptManager()

	visual := m.BuildSystemPrompt("visual")
	if !strings.Contains(visual, "Graphviz digraph") {
		t.Fatalf("visual prompt must request a diagram: %q", visual)
	}

	concise := m.BuildSystemPrompt("concise")
	if strings.Contains(concise, "Graphviz digraph") {
		t.Fatalf("concise prompt must not request a diagram: %q", concise)
	}

	// Unknown styles fall back to visual.
	fallback := m.BuildSystemPrompt("made-up")
	if fallback != visual {
		t.Fatal("unknown style should fall back to the visual template")
	}
}
