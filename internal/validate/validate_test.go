package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kira7dn/videoassembly/internal/pipeline"
)

const validSpec = `{
  "title": "demo",
  "description": "a demo spec",
  "segments": [
    {"id": "seg-1", "image": {"url": "https://example.com/a.jpg"}}
  ]
}`

func TestStructuralAcceptsWellFormedInput(t *testing.T) {
	doc, err := Structural([]byte(validSpec))
	require.NoError(t, err)
	assert.Equal(t, "demo", doc["title"])
}

func TestStructuralRejectsMissingSegments(t *testing.T) {
	_, err := Structural([]byte(`{"title": "x", "description": "y"}`))
	require.Error(t, err)

	var verr *pipeline.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Paths, "segments")
}

func TestStructuralRejectsSegmentWithoutID(t *testing.T) {
	_, err := Structural([]byte(`{"title":"x","description":"y","segments":[{"image":{"url":"u"}}]}`))
	require.Error(t, err)

	var verr *pipeline.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Paths, "segments[0].id")
}

func TestSchemaValidatorAcceptsValidDocumentWithoutAgent(t *testing.T) {
	v, err := NewSchemaValidator(nil, nil)
	require.NoError(t, err)

	doc, err := Structural([]byte(validSpec))
	require.NoError(t, err)

	out, err := v.Validate(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "demo", out["title"])
}

func TestSchemaValidatorRejectsBadTransitionType(t *testing.T) {
	v, err := NewSchemaValidator(nil, nil)
	require.NoError(t, err)

	doc, err := Structural([]byte(`{
		"title": "demo", "description": "d",
		"segments": [{"id": "s1", "transition_in": {"type": "spin", "duration": 1}}]
	}`))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), doc)
	require.Error(t, err)
}
