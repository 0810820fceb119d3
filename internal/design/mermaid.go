package design

import (
	"fmt"
	"strings"
)

// DefaultDiagram is the fixed fallback visualization. It is itself
// acceptance-valid, so EnsureValid is idempotent.
const DefaultDiagram = "flowchart LR\n  A[User] --> B[API Gateway]\n  B --> C[Service]\n"

// diagramKeywords are the recognized diagram-kind prefixes.
var diagramKeywords = []string{"flowchart", "sequenceDiagram", "classDiagram"}

// EnsureValid returns the candidate when it is a syntactically acceptable
// diagram, and the fixed default otherwise. Total function, never fails.
func EnsureValid(candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return DefaultDiagram
	}
	for _, kw := range diagramKeywords {
		if strings.HasPrefix(trimmed, kw) {
			return candidate
		}
	}
	return DefaultDiagram
}

// RenderFromResult synthesizes a flowchart from the services/databases
// lists of a generation result. Best-effort visualization for results that
// carry no diagram text at all; the primary pipeline path does not use it.
func RenderFromResult(result map[string]interface{}) string {
	names := serviceNames(result)
	if len(names) == 0 {
		return "flowchart LR\n  A[User] --> B[API]\n"
	}

	var nodes, edges strings.Builder
	nodes.WriteString("U[User]\nF[Frontend]\nG[API Gateway]\n")
	edges.WriteString("U --> F\nF --> G\n")

	for i, name := range names {
		nodeID := fmt.Sprintf("S%d", i+1)
		fmt.Fprintf(&nodes, "%s[%s]\n", nodeID, name)
		fmt.Fprintf(&edges, "G --> %s\n", nodeID)
	}

	if dbs, ok := result["databases"].([]interface{}); ok && len(dbs) > 0 {
		nodes.WriteString("D[(Database)]\n")
		fmt.Fprintf(&edges, "S%d --> D\n", len(names))
	}

	return "flowchart LR\n" + nodes.String() + edges.String()
}

func serviceNames(result map[string]interface{}) []string {
	services, ok := result["services"].([]interface{})
	if !ok {
		return nil
	}
	var names []string
	for i, svc := range services {
		m, ok := svc.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		if name == "" {
			name = fmt.Sprintf("service-%d", i+1)
		}
		names = append(names, name)
	}
	return names
}
