package align

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"strings"

	"github.com/kira7dn/videoassembly/internal/aiagent"
)

const (
	minPhraseWords = 2
	maxPhraseWords = 7
	maxPhraseChars = 35
)

var clauseBreak = regexp.MustCompile(`(?i)[.!?]+|,|\s+(and|but|or|so|because|since|while|although)\s+`)

type phraseResponse struct {
	Phrases []string `json:"phrases"`
}

// SegmentPhrases splits content into phrases of 2-7 words, <=35 characters,
// at natural break points. The AI agent is tried first; any failure or a
// disabled agent falls back to a deterministic clause-split + bin-pack.
// The returned phrases always cover every word of content without dropping
// any; if content cannot be segmented at all, the last resort is a single
// phrase equal to the whole content. The deterministic split does not carry
// words across clause breaks, so a clause of one word (for example a
// one-word sentence) becomes a one-word phrase.
func SegmentPhrases(ctx context.Context, content string, agent aiagent.Agent) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	if agent != nil && agent.Enabled() {
		if phrases, ok := segmentViaAgent(ctx, content, agent); ok {
			return enforceConstraints(phrases)
		}
	}

	return enforceConstraints(segmentDeterministic(content))
}

func segmentViaAgent(ctx context.Context, content string, agent aiagent.Agent) ([]string, bool) {
	raw, err := agent.Complete(ctx, phraseSystemPrompt, content)
	if err != nil {
		log.Printf("[align] phrase segmentation via AI unavailable, using deterministic split: %v", err)
		return nil, false
	}
	var resp phraseResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil || len(resp.Phrases) == 0 {
		log.Printf("[align] phrase segmentation response unparseable, using deterministic split")
		return nil, false
	}
	if !coversAllWords(content, resp.Phrases) {
		log.Printf("[align] AI phrase segmentation dropped words, using deterministic split")
		return nil, false
	}
	return resp.Phrases, true
}

// segmentDeterministic splits on sentence-ending punctuation, commas, and a
// small conjunction list, then bin-packs each clause's words into chunks
// respecting the phrase constraints.
func segmentDeterministic(content string) []string {
	var clauses []string
	prev := 0
	for _, m := range clauseBreak.FindAllStringSubmatchIndex(content, -1) {
		clauses = append(clauses, content[prev:m[0]])
		prev = m[1]
		if m[2] >= 0 {
			prev = m[2] // a conjunction opens the next clause instead of being dropped
		}
	}
	clauses = append(clauses, content[prev:])
	var phrases []string
	for _, clause := range clauses {
		words := strings.Fields(clause)
		if len(words) == 0 {
			continue
		}
		phrases = append(phrases, binPack(words)...)
	}
	if len(phrases) == 0 {
		return []string{content}
	}
	return phrases
}

// binPack greedily fills chunks of 2-7 words without exceeding 35
// characters, merging an undersized final remainder into the previous chunk,
// or, when that merge would overflow it, moving the previous chunk's last
// word into the remainder.
func binPack(words []string) []string {
	var phrases []string
	var cur []string

	flush := func() {
		if len(cur) == 0 {
			return
		}
		phrases = append(phrases, strings.Join(cur, " "))
		cur = nil
	}

	for _, w := range words {
		candidate := append(append([]string{}, cur...), w)
		if len(candidate) > maxPhraseWords || charLen(candidate) > maxPhraseChars {
			if len(cur) >= minPhraseWords {
				flush()
				cur = []string{w}
			} else {
				// Even a single extra word exceeds limits from an empty/short
				// chunk; emit it anyway rather than stall segmentation.
				cur = candidate
				flush()
			}
			continue
		}
		cur = candidate
	}

	if len(cur) > 0 {
		if len(cur) < minPhraseWords && len(phrases) > 0 {
			prevWords := strings.Fields(phrases[len(phrases)-1])
			merged := append(append([]string{}, prevWords...), cur...)
			if (len(merged) > maxPhraseWords || charLen(merged) > maxPhraseChars) && len(prevWords) > minPhraseWords {
				// Merging would overflow the previous chunk: move its last
				// word into the remainder instead, so both keep >= 2 words.
				phrases[len(phrases)-1] = strings.Join(prevWords[:len(prevWords)-1], " ")
				cur = append([]string{prevWords[len(prevWords)-1]}, cur...)
				flush()
			} else {
				phrases[len(phrases)-1] = strings.Join(merged, " ")
			}
		} else {
			flush()
		}
	}
	return phrases
}

func charLen(words []string) int {
	return len(strings.Join(words, " "))
}

// enforceConstraints re-splits any phrase that still violates the word- or
// character-count bounds (possible after a short tail merge), and trims
// incidental whitespace.
func enforceConstraints(phrases []string) []string {
	var out []string
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		words := strings.Fields(p)
		if len(words) <= maxPhraseWords && len(p) <= maxPhraseChars {
			out = append(out, p)
			continue
		}
		out = append(out, binPack(words)...)
	}
	return out
}

func coversAllWords(content string, phrases []string) bool {
	want := len(strings.Fields(content))
	got := 0
	for _, p := range phrases {
		got += len(strings.Fields(p))
	}
	return got >= want
}

const phraseSystemPrompt = `Split a video voice-over transcript into short on-screen subtitle phrases.
Each phrase must be 2 to 7 words and at most 35 characters, split at natural
speech breaks. Respond with a JSON object {"phrases": [string]}. The phrases
must, concatenated, cover every word of the input without dropping any.`
