// internal/design/mermaid_test.go
package design

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Fallback Acceptance Tests
// ==========================

func TestEnsureValid(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      string
	}{
		{
			name:      "empty falls back",
			candidate: "",
			want:      DefaultDiagram,
		},
		{
			name:      "whitespace only falls back",
			candidate: "   \n\t  ",
			want:      DefaultDiagram,
		},
		{
			name:      "flowchart accepted unchanged",
			candidate: "flowchart LR\n  A --> B\n",
			want:      "flowchart LR\n  A --> B\n",
		},
		{
			name:      "sequence diagram accepted",
			candidate: "sequenceDiagram\n  Alice->>Bob: hi\n",
			want:      "sequenceDiagram\n  Alice->>Bob: hi\n",
		},
		{
			name:      "class diagram accepted",
			candidate: "classDiagram\n  Animal <|-- Duck\n",
			want:      "classDiagram\n  Animal <|-- Duck\n",
		},
		{
			name:      "leading whitespace before keyword accepted",
			candidate: "\n  flowchart TD\n  A --> B\n",
			want:      "\n  flowchart TD\n  A --> B\n",
		},
		{
			name:      "prose falls back",
			candidate: "here is your diagram: flowchart LR ...",
			want:      DefaultDiagram,
		},
		{
			name:      "unknown diagram kind falls back",
			candidate: "ganttChart\n  task1\n",
			want:      DefaultDiagram,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EnsureValid(tt.candidate))
		})
	}
}

// The default diagram must pass its own acceptance check, otherwise a
// fallback result could fall back again to something different.
func TestEnsureValid_Idempotent(t *testing.T) {
	assert.Equal(t, DefaultDiagram, EnsureValid(DefaultDiagram))
	assert.Equal(t, DefaultDiagram, EnsureValid(EnsureValid("garbage")))
}

// ==========================
// Diagram Synthesis Tests
// ==========================

func TestRenderFromResult_NoServices(t *testing.T) {
	got := RenderFromResult(map[string]interface{}{})
	assert.True(t, strings.HasPrefix(got, "flowchart LR"))
	assert.Contains(t, got, "A[User] --> B[API]")
}

func TestRenderFromResult_ServiceFanOut(t *testing.T) {
	result := map[string]interface{}{
		"services": []interface{}{
			map[string]interface{}{"name": "orders"},
			map[string]interface{}{"name": "payments"},
		},
		"databases": []interface{}{
			map[string]interface{}{"name": "orders-db"},
		},
	}

	got := RenderFromResult(result)

	assert.True(t, strings.HasPrefix(got, "flowchart LR"))
	assert.Contains(t, got, "S1[orders]")
	assert.Contains(t, got, "S2[payments]")
	assert.Contains(t, got, "G --> S1")
	assert.Contains(t, got, "G --> S2")
	assert.Contains(t, got, "D[(Database)]")
	assert.Contains(t, got, "S2 --> D")

	// Synthesized output must itself pass the acceptance check.
	assert.Equal(t, got, EnsureValid(got))
}

func TestRenderFromResult_UnnamedServiceGetsPlaceholder(t *testing.T) {
	result := map[string]interface{}{
		"services": []interface{}{
			map[string]interface{}{"responsibilities": []interface{}{"stuff"}},
		},
	}

	got := RenderFromResult(result)
	assert.Contains(t, got, "S1[service-1]")
}
