package models

import (
	"strings"
	"time"
)

// Complexity selects the execution path for a design request.
type Complexity int

const (
	ComplexityBasic Complexity = iota
	ComplexityAdvanced
)

// ParseComplexity normalizes the free-text complexity field. Unrecognized
// or absent values fall back to basic.
func ParseComplexity(s string) Complexity {
	if strings.EqualFold(strings.TrimSpace(s), "advanced") {
		return ComplexityAdvanced
	}
	return ComplexityBasic
}

func (c Complexity) String() string {
	if c == ComplexityAdvanced {
		return "advanced"
	}
	return "basic"
}

// DesignRequest is the immutable input submitted by a user.
type DesignRequest struct {
	Prompt     string   `json:"prompt"`
	Style      string   `json:"style,omitempty"`
	Complexity string   `json:"complexity,omitempty"`
	Services   []string `json:"services,omitempty"`
}

// Design is the persisted entity. RawOutput holds the serialized
// generation result; MermaidCode is always non-empty once persisted.
type Design struct {
	ID          int64     `json:"id"`
	Prompt      string    `json:"prompt"`
	RawOutput   string    `json:"rawOutput"`
	MermaidCode string    `json:"mermaidCode"`
	CreatedAt   time.Time `json:"createdAt"`
	UserID      int64     `json:"userId"`
}

// DesignArtifact is the response shape returned to callers. RawOutput is
// the parsed generation result, or {"status": "Job queued"} for deferred
// requests, or {"error": ...} when a stored record no longer parses.
type DesignArtifact struct {
	ID          int64                  `json:"id,omitempty"`
	Prompt      string                 `json:"prompt"`
	RawOutput   map[string]interface{} `json:"rawOutput"`
	MermaidCode string                 `json:"mermaidCode,omitempty"`
}

// QueuedJob is the envelope serialized as the queue message body. JobID
// exists only for log correlation and carries no processing semantics.
type QueuedJob struct {
	JobID   string        `json:"jobId"`
	Request DesignRequest `json:"req"`
	UserID  int64         `json:"userId"`
}
