package ai

import "strings"

// SplitDiagram separates the first ```dot fenced block from the model
// output. The block's body becomes the diagram payload and the block itself
// is removed from the prose; output without such a block passes through
// unchanged with an empty diagram.
func SplitDiagram(content string) (answer, diagram string) {
	for _, tag := range []string{"```dot", "```graphviz"} {
		start := strings.Index(content, tag)
		if start < 0 {
			continue
		}

		bodyStart := start + len(tag)
		rest := content[bodyStart:]
		end := strings.Index(rest, "```")
		if end < 0 {
			continue
		}

		diagram = strings.TrimSpace(rest[:end])
		answer = content[:start] + rest[end+len("```"):]
		return strings.TrimSpace(answer), diagram
	}

	return strings.TrimSpace(content), ""
}
