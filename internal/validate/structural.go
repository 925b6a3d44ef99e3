// Package validate implements the two layered specification validators:
// a structural check over the raw JSON shape, and a schema check (backed by
// a JSON-schema document and an optional AI normalizer) that accepts a
// decoded document such as the structural validator's output. The
// pipeline's validate stage calls only the schema check, on the submitted
// document; no stage calls Structural.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/kira7dn/videoassembly/internal/pipeline"
)

// Structural checks that the input is a mapping containing title,
// description, and a non-empty ordered segments list, and that every
// segment is itself a mapping with an id. It does not check segment detail
// beyond that — the schema validator owns field-level shape.
func Structural(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &pipeline.ValidationError{Err: fmt.Errorf("input is not a JSON object: %w", err)}
	}

	var paths []string

	if _, ok := doc["title"].(string); !ok {
		paths = append(paths, "title")
	}
	if _, ok := doc["description"].(string); !ok {
		paths = append(paths, "description")
	}

	segmentsRaw, ok := doc["segments"]
	if !ok {
		paths = append(paths, "segments")
	} else {
		segments, ok := segmentsRaw.([]any)
		if !ok {
			paths = append(paths, "segments")
		} else if len(segments) == 0 {
			paths = append(paths, "segments (empty)")
		} else {
			for i, seg := range segments {
				segMap, ok := seg.(map[string]any)
				if !ok {
					paths = append(paths, fmt.Sprintf("segments[%d]", i))
					continue
				}
				if id, ok := segMap["id"].(string); !ok || id == "" {
					paths = append(paths, fmt.Sprintf("segments[%d].id", i))
				}
			}
		}
	}

	if len(paths) > 0 {
		return nil, &pipeline.ValidationError{Paths: paths, Err: fmt.Errorf("missing or malformed required fields")}
	}

	return doc, nil
}
