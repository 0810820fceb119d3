package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Request body schemas, validated before any handler logic runs.
var (
	signupSchema = mustSchema(`{
		"type": "object",
		"required": ["email", "password"],
		"properties": {
			"email": {"type": "string", "minLength": 3, "pattern": "^[^@\\s]+@[^@\\s]+$"},
			"name": {"type": "string", "maxLength": 200},
			"password": {"type": "string", "minLength": 8, "maxLength": 128}
		},
		"additionalProperties": false
	}`)

	loginSchema = mustSchema(`{
		"type": "object",
		"required": ["email", "password"],
		"properties": {
			"email": {"type": "string", "minLength": 3},
			"password": {"type": "string", "minLength": 1}
		},
		"additionalProperties": false
	}`)

	designRequestSchema = mustSchema(`{
		"type": "object",
		"required": ["prompt"],
		"properties": {
			"prompt": {"type": "string", "minLength": 1, "maxLength": 10000},
			"style": {"type": "string", "maxLength": 100},
			"complexity": {"type": "string", "maxLength": 50},
			"services": {"type": "array", "items": {"type": "string"}, "maxItems": 50}
		},
		"additionalProperties": false
	}`)
)

func mustSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return schema
}

// decodeValidated reads the request body, checks it against the schema, and
// unmarshals it into target. Returns false after writing the error response
// when the body is unusable.
func decodeValidated(w http.ResponseWriter, r *http.Request, schema *gojsonschema.Schema, target interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable request body", Code: "INVALID_REQUEST"})
		return false
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body is not valid JSON", Code: "INVALID_REQUEST"})
		return false
	}
	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			messages = append(messages, e.String())
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: strings.Join(messages, "; "), Code: "INVALID_REQUEST"})
		return false
	}

	if err := json.Unmarshal(body, target); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body does not match expected shape", Code: "INVALID_REQUEST"})
		return false
	}
	return true
}
