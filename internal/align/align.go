package align

import (
	"context"
	"regexp"
	"strings"

	"github.com/kira7dn/videoassembly/internal/aiagent"
	"github.com/kira7dn/videoassembly/internal/pipeline"
	"github.com/kira7dn/videoassembly/internal/specmodel"
)

// Aligner wires phrase segmentation, the external forced-aligner call, and
// the phrase-to-timing mapping algorithm together for one segment.
type Aligner struct {
	Forced       ForcedAligner
	Agent        aiagent.Agent
	SuccessFloor float64
	MaxLookahead int
}

// New builds an Aligner with the documented defaults.
func New(forced ForcedAligner, agent aiagent.Agent) *Aligner {
	return &Aligner{Forced: forced, Agent: agent, SuccessFloor: 0.8, MaxLookahead: 30}
}

// AlignSegment produces the text_over subtitles for one segment's
// voice-over. An empty transcript produces no subtitles and makes no
// alignment call, per the documented boundary behavior.
func (a *Aligner) AlignSegment(ctx context.Context, segmentID, audioPath, content string) ([]specmodel.Subtitle, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	words, err := a.Forced.Align(ctx, audioPath, content)
	if err != nil {
		return nil, &pipeline.AlignmentError{SegmentID: segmentID, Err: err}
	}

	successWords := filterSuccess(words)
	if len(words) > 0 && float64(len(successWords))/float64(len(words)) < a.SuccessFloor {
		// Verification below floor: the segment is marked unaligned and
		// keeps no text_over; the renderer tolerates its absence.
		return nil, nil
	}

	phrases := SegmentPhrases(ctx, content, a.Agent)
	if len(phrases) == 0 {
		return nil, nil
	}

	maxLookahead := a.MaxLookahead
	if maxLookahead <= 0 {
		maxLookahead = 30
	}

	var subtitles []specmodel.Subtitle
	cursor := 0
	lastEnd := 0.0

	for _, phrase := range phrases {
		tokens := tokenize(phrase)
		if len(tokens) == 0 {
			continue
		}

		if span, ok := exactMatch(successWords, cursor, tokens); ok {
			subtitles = append(subtitles, specmodel.Subtitle{
				Text:      phrase,
				StartTime: successWords[span[0]].Start,
				Duration:  successWords[span[len(span)-1]].End - successWords[span[0]].Start,
			})
			cursor = span[len(span)-1] + 1
			lastEnd = successWords[span[len(span)-1]].End
			continue
		}

		if indices, ok := flexibleMatch(successWords, cursor, tokens, maxLookahead); ok {
			start, end := spanBounds(successWords, indices)
			subtitles = append(subtitles, specmodel.Subtitle{
				Text:      phrase,
				StartTime: start,
				Duration:  end - start,
			})
			cursor += (len(indices) + 1) / 2
			lastEnd = end
			continue
		}

		// Fallback: emit a synthetic subtitle rather than stall the cursor.
		duration := 0.3 * float64(len(tokens))
		if duration < 1.0 {
			duration = 1.0
		}
		subtitles = append(subtitles, specmodel.Subtitle{
			Text:       phrase,
			StartTime:  lastEnd,
			Duration:   duration,
			IsFallback: true,
		})
		lastEnd += duration
		cursor++
	}

	return repairOverlaps(subtitles), nil
}

func filterSuccess(words []WordTiming) []WordTiming {
	var out []WordTiming
	for _, w := range words {
		if w.Aligned() {
			out = append(out, w)
		}
	}
	return out
}

var punctuation = regexp.MustCompile(`[^\w\s]`)

func tokenize(phrase string) []string {
	cleaned := punctuation.ReplaceAllString(strings.ToLower(phrase), "")
	return strings.Fields(cleaned)
}

func normalizeWord(w string) string {
	return strings.ToLower(punctuation.ReplaceAllString(w, ""))
}

// exactMatch scans words from start for a contiguous window whose
// lowercased, punctuation-stripped tokens equal the phrase's tokens exactly.
func exactMatch(words []WordTiming, start int, tokens []string) ([]int, bool) {
	n := len(tokens)
	if n == 0 {
		return nil, false
	}
	for i := start; i+n <= len(words); i++ {
		match := true
		for j := 0; j < n; j++ {
			if normalizeWord(words[i+j].Word) != tokens[j] {
				match = false
				break
			}
		}
		if match {
			span := make([]int, n)
			for j := 0; j < n; j++ {
				span[j] = i + j
			}
			return span, true
		}
	}
	return nil, false
}

// flexibleMatch looks ahead up to maxLookahead words from start and greedily
// collects any word whose lowercased form appears in the phrase's token
// multiset, each phrase token consuming one occurrence. Accepts if at least
// half (rounded up) of the phrase's words were collected.
func flexibleMatch(words []WordTiming, start int, tokens []string, maxLookahead int) ([]int, bool) {
	remaining := map[string]int{}
	for _, t := range tokens {
		remaining[t]++
	}

	end := start + maxLookahead
	if end > len(words) {
		end = len(words)
	}

	var collected []int
	for i := start; i < end; i++ {
		w := normalizeWord(words[i].Word)
		if remaining[w] > 0 {
			remaining[w]--
			collected = append(collected, i)
		}
	}

	needed := (len(tokens) + 1) / 2
	if needed < 1 {
		needed = 1
	}
	if len(collected) < needed {
		return nil, false
	}
	return collected, true
}

func spanBounds(words []WordTiming, indices []int) (start, end float64) {
	start, end = words[indices[0]].Start, words[indices[0]].End
	for _, i := range indices {
		if words[i].Start < start {
			start = words[i].Start
		}
		if words[i].End > end {
			end = words[i].End
		}
	}
	return start, end
}

// repairOverlaps clips any subtitle's end to the start of its immediate
// successor whenever the two intervals overlap, without reordering.
func repairOverlaps(subs []specmodel.Subtitle) []specmodel.Subtitle {
	for i := 0; i < len(subs)-1; i++ {
		end := subs[i].StartTime + subs[i].Duration
		next := subs[i+1].StartTime
		if end > next {
			subs[i].Duration = next - subs[i].StartTime
			if subs[i].Duration < 0 {
				subs[i].Duration = 0
			}
		}
	}
	return subs
}

// Verify is exposed for callers that want the success ratio without running
// the full mapping (e.g. observability/metrics).
func Verify(words []WordTiming, floor float64) (ratio float64, aligned bool) {
	if len(words) == 0 {
		return 0, false
	}
	success := 0
	for _, w := range words {
		if w.Aligned() {
			success++
		}
	}
	ratio = float64(success) / float64(len(words))
	return ratio, ratio >= floor
}
