package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/kira7dn/videoassembly/internal/pipeline"
	"github.com/kira7dn/videoassembly/internal/specmodel"
	"github.com/kira7dn/videoassembly/internal/upload"
)

// Context keys threaded through the stage table. Unexported: nothing outside
// this package reaches into a running pipeline.Context by name.
const (
	keyRawSpecDoc           = "raw_spec_doc"
	keyValidatedSpecDoc     = "validated_spec_doc"
	keySpecification        = "specification"
	keyFetchResult          = "fetch_result"
	keyQualifiedAssets      = "qualified_assets"
	keyAlignedSpecification = "aligned_specification"
	keyRenderedClips        = "rendered_clips"
	keyFinalVideoPath       = "final_video_path"
	keyOutputURL            = "output_url"
)

// assets bundles the fetcher's two return values — per-segment records and
// the optional global background-music record — into the single value a
// Stage's output key can carry.
type assets struct {
	Segments []specmodel.SegmentAssets
	Music    *specmodel.AssetRecord
}

func (a *Assembler) buildPipeline(tempDir, destName string) *pipeline.Pipeline {
	concatenator := a.concatFactory(tempDir)
	outPath := filepath.Join(tempDir, "final.mp4")

	return pipeline.New(a.metrics,
		pipeline.NewProcessorStage("validate_specification", keyRawSpecDoc, keyValidatedSpecDoc, nil,
			validateStage(a.validator)),

		pipeline.NewProcessorStage("parse_specification", keyValidatedSpecDoc, keySpecification,
			[]string{keyValidatedSpecDoc}, parseSpecificationStage()),

		pipeline.NewFunctionStage("fetch_assets", keyFetchResult,
			[]string{keySpecification}, fetchStage(a.fetcher)),

		pipeline.NewFunctionStage("qualify_images", keyQualifiedAssets,
			[]string{keySpecification, keyFetchResult}, qualifyStage(a.qualifier)),

		pipeline.NewFunctionStage("align_transcripts", keyAlignedSpecification,
			[]string{keySpecification, keyQualifiedAssets}, alignStage(a.aligner)),

		pipeline.NewFunctionStage("render_segments", keyRenderedClips,
			[]string{keyAlignedSpecification, keyQualifiedAssets}, renderStage(a.renderer)),

		pipeline.NewFunctionStage("concatenate", keyFinalVideoPath,
			[]string{keyRenderedClips, keyQualifiedAssets}, concatenateStage(concatenator, outPath)),

		pipeline.NewProcessorStage("upload", keyFinalVideoPath, keyOutputURL,
			[]string{keyFinalVideoPath}, uploadStage(a.uploader, destName)),
	)
}

func validateStage(v Validator) pipeline.ProcessorFunc {
	return func(ctx context.Context, input any) (any, error) {
		doc, _ := input.(map[string]any)
		return v.Validate(ctx, doc)
	}
}

// parseSpecificationStage decodes the validated document's map shape into
// the typed Specification every later stage operates on.
func parseSpecificationStage() pipeline.ProcessorFunc {
	return func(ctx context.Context, input any) (any, error) {
		doc, _ := input.(map[string]any)
		payload, err := json.Marshal(doc)
		if err != nil {
			return nil, &pipeline.ValidationError{Err: fmt.Errorf("re-marshaling validated document: %w", err)}
		}
		var spec specmodel.Specification
		if err := json.Unmarshal(payload, &spec); err != nil {
			return nil, &pipeline.ValidationError{Err: fmt.Errorf("decoding specification: %w", err)}
		}
		return &spec, nil
	}
}

func fetchStage(f AssetFetcher) pipeline.FunctionFunc {
	return func(ctx context.Context, pc *pipeline.Context) (any, error) {
		spec, err := getSpecification(pc, keySpecification)
		if err != nil {
			return nil, err
		}
		segments, music, err := f.FetchAll(ctx, spec, pc.TempDir)
		if err != nil {
			return nil, err
		}
		return &assets{Segments: segments, Music: music}, nil
	}
}

func qualifyStage(q ImageQualifier) pipeline.FunctionFunc {
	return func(ctx context.Context, pc *pipeline.Context) (any, error) {
		spec, err := getSpecification(pc, keySpecification)
		if err != nil {
			return nil, err
		}
		fetched, err := getAssets(pc, keyFetchResult)
		if err != nil {
			return nil, err
		}
		qualified, err := q.Qualify(ctx, spec.Segments, fetched.Segments, pc.TempDir)
		if err != nil {
			return nil, err
		}
		return &assets{Segments: qualified, Music: fetched.Music}, nil
	}
}

// alignStage produces a copy of the specification whose segments carry
// text_over subtitles; it never touches the asset records themselves.
func alignStage(aligner TranscriptAligner) pipeline.FunctionFunc {
	return func(ctx context.Context, pc *pipeline.Context) (any, error) {
		spec, err := getSpecification(pc, keySpecification)
		if err != nil {
			return nil, err
		}
		qualified, err := getAssets(pc, keyQualifiedAssets)
		if err != nil {
			return nil, err
		}

		aligned := *spec
		aligned.Segments = make([]specmodel.Segment, len(spec.Segments))
		copy(aligned.Segments, spec.Segments)

		for i := range aligned.Segments {
			seg := &aligned.Segments[i]
			if seg.VoiceOver == nil || seg.VoiceOver.Content == "" {
				continue
			}
			var audioPath string
			if i < len(qualified.Segments) && qualified.Segments[i].VoiceOver != nil {
				audioPath = qualified.Segments[i].VoiceOver.LocalPath
			}
			if audioPath == "" {
				continue
			}
			subs, err := aligner.AlignSegment(ctx, seg.ID, audioPath, seg.VoiceOver.Content)
			if err != nil {
				return nil, err
			}
			seg.TextOver = subs
		}

		return &aligned, nil
	}
}

func renderStage(r SegmentRenderer) pipeline.FunctionFunc {
	return func(ctx context.Context, pc *pipeline.Context) (any, error) {
		spec, err := getSpecification(pc, keyAlignedSpecification)
		if err != nil {
			return nil, err
		}
		qualified, err := getAssets(pc, keyQualifiedAssets)
		if err != nil {
			return nil, err
		}
		return r.RenderAll(ctx, spec.Segments, qualified.Segments, pc.TempDir)
	}
}

func concatenateStage(c Concatenator, outPath string) pipeline.FunctionFunc {
	return func(ctx context.Context, pc *pipeline.Context) (any, error) {
		clipsVal, ok := pc.Get(keyRenderedClips)
		if !ok {
			return nil, fmt.Errorf("missing %s in pipeline context", keyRenderedClips)
		}
		clips, ok := clipsVal.([]specmodel.RenderedClip)
		if !ok {
			return nil, fmt.Errorf("%s has unexpected type %T", keyRenderedClips, clipsVal)
		}
		qualified, err := getAssets(pc, keyQualifiedAssets)
		if err != nil {
			return nil, err
		}
		return c.Assemble(ctx, clips, qualified.Music, outPath)
	}
}

func uploadStage(u upload.Uploader, destName string) pipeline.ProcessorFunc {
	return func(ctx context.Context, input any) (any, error) {
		path, _ := input.(string)
		return u.Upload(ctx, path, destName)
	}
}

func getSpecification(pc *pipeline.Context, key string) (*specmodel.Specification, error) {
	val, ok := pc.Get(key)
	if !ok {
		return nil, fmt.Errorf("missing %s in pipeline context", key)
	}
	spec, ok := val.(*specmodel.Specification)
	if !ok {
		return nil, fmt.Errorf("%s has unexpected type %T", key, val)
	}
	return spec, nil
}

func getAssets(pc *pipeline.Context, key string) (*assets, error) {
	val, ok := pc.Get(key)
	if !ok {
		return nil, fmt.Errorf("missing %s in pipeline context", key)
	}
	a, ok := val.(*assets)
	if !ok {
		return nil, fmt.Errorf("%s has unexpected type %T", key, val)
	}
	return a, nil
}
