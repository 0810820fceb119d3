package genai

import (
	"fmt"
	"strings"

	"design-assistant/internal/models"
)

// BuildPrompt renders the architect instruction for a design request. The
// schema in the prompt mirrors the structural contract the validator
// enforces on the way back.
func BuildPrompt(req *models.DesignRequest) string {
	style := req.Style
	if style == "" {
		style = "microservices"
	}
	complexity := req.Complexity
	if complexity == "" {
		complexity = "basic"
	}
	services := "none"
	if len(req.Services) > 0 {
		services = strings.Join(req.Services, ", ")
	}

	var b strings.Builder
	b.WriteString("You are a senior software architect. Return ONLY a valid JSON object with keys: services, databases, apis, diagrams, notes. ")
	fmt.Fprintf(&b, "Generate a system design for the requirement: %q. ", req.Prompt)
	fmt.Fprintf(&b, "Architecture style: %s. Complexity: %s. ", style, complexity)
	b.WriteString("Follow this schema:\n")
	b.WriteString(`{
  "services": [{"name": "", "responsibilities": [""], "techSuggestions": [""], "events": [""]}],
  "databases": [{"name": "", "type": "postgres|mongo|dynamo", "schemaDDL": ""}],
  "apis": [{"service": "", "path": "", "method": "GET|POST|PUT|DELETE", "requestSchema": {}, "responseSchema": {}}],
  "diagrams": [{"type": "mermaid", "content": ""}],
  "notes": ""
}
`)
	fmt.Fprintf(&b, "Include these services in the design and diagram: %s. ", services)
	b.WriteString("Generate a Mermaid flowchart (type 'flowchart LR') in the 'diagrams' field.")
	return b.String()
}
