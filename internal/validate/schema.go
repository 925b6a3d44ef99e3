package validate

import (
	_ "embed"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kira7dn/videoassembly/internal/aiagent"
	"github.com/kira7dn/videoassembly/internal/pipeline"
)

//go:embed schema.json
var defaultSchemaDoc []byte

// aiNormalizeResponse is the fixed structured shape the AI agent must return
// for schema normalization, per the external-interface contract.
type aiNormalizeResponse struct {
	IsValid       bool     `json:"is_valid"`
	NormalizedData any     `json:"normalized_data,omitempty"`
	Errors         []string `json:"errors,omitempty"`
}

// SchemaValidator matches the structural validator's output against a
// JSON-schema document loaded once at startup, then optionally asks an AI
// agent to normalize the document — strictly best-effort, never a hard gate.
type SchemaValidator struct {
	schema *gojsonschema.Schema
	agent  aiagent.Agent
}

// NewSchemaValidator compiles schemaDoc once; pass nil to use the bundled
// default specification schema.
func NewSchemaValidator(schemaDoc []byte, agent aiagent.Agent) (*SchemaValidator, error) {
	if schemaDoc == nil {
		schemaDoc = defaultSchemaDoc
	}
	loader := gojsonschema.NewBytesLoader(schemaDoc)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compiling specification schema: %w", err)
	}
	return &SchemaValidator{schema: schema, agent: agent}, nil
}

// Validate runs the schema check against the decoded document, then attempts
// best-effort AI normalization. It returns the (possibly normalized)
// document, or a ValidationError if the schema rejects it outright.
func (v *SchemaValidator) Validate(ctx context.Context, doc map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, &pipeline.ValidationError{Err: fmt.Errorf("re-marshaling structural output: %w", err)}
	}

	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, &pipeline.ValidationError{Err: fmt.Errorf("schema validation error: %w", err)}
	}
	if !result.Valid() {
		var paths []string
		for _, e := range result.Errors() {
			paths = append(paths, e.Field())
		}
		return nil, &pipeline.ValidationError{Paths: paths, Err: fmt.Errorf("schema rejected input: %s", summarize(result))}
	}

	return v.normalize(ctx, doc, payload), nil
}

// normalize best-effort-delegates to the AI agent. Any failure — disabled
// agent, transport error, malformed response, or a normalized document that
// itself fails the schema — logs and returns doc unchanged.
func (v *SchemaValidator) normalize(ctx context.Context, doc map[string]any, payload []byte) map[string]any {
	if v.agent == nil || !v.agent.Enabled() {
		return doc
	}

	raw, err := v.agent.Complete(ctx, normalizerSystemPrompt, string(payload))
	if err != nil {
		log.Printf("[validate] AI normalization unavailable, passing input through unchanged: %v", err)
		return doc
	}

	var resp aiNormalizeResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		log.Printf("[validate] AI normalization response unparseable, passing input through unchanged: %v", err)
		return doc
	}
	if !resp.IsValid || resp.NormalizedData == nil {
		return doc
	}

	normalized, ok := resp.NormalizedData.(map[string]any)
	if !ok {
		log.Printf("[validate] AI normalization returned a non-object document, ignoring")
		return doc
	}

	normalizedPayload, err := json.Marshal(normalized)
	if err != nil {
		return doc
	}
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(normalizedPayload))
	if err != nil || !result.Valid() {
		log.Printf("[validate] AI-normalized document failed re-validation, keeping original")
		return doc
	}

	return normalized
}

func summarize(result *gojsonschema.Result) string {
	var b strings.Builder
	for i, e := range result.Errors() {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.String())
	}
	return b.String()
}

const normalizerSystemPrompt = `You validate and normalize a video-assembly specification JSON document.
Respond with a JSON object {"is_valid": bool, "normalized_data": object|null, "errors": [string]}.
You may trim whitespace and default-fill clearly optional fields, but you must
never invent required data (title, description, segment ids, URLs). If the
document is already valid, set is_valid true and normalized_data to null.`
