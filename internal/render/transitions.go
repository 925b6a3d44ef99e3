package render

import (
	"fmt"
	"log"

	"github.com/kira7dn/videoassembly/internal/specmodel"
)

// supportedTransitions enumerates the fade kinds the renderer knows how to
// build a dedicated filter for; anything else degrades to a plain fade with
// a logged warning, per the documented degrade policy.
var supportedTransitions = map[specmodel.TransitionType]bool{
	specmodel.TransitionFade:      true,
	specmodel.TransitionFadeBlack: true,
	specmodel.TransitionFadeWhite: true,
	specmodel.TransitionCut:       true,
}

func fadeColor(t specmodel.TransitionType) string {
	switch t {
	case specmodel.TransitionFadeBlack:
		return "black"
	case specmodel.TransitionFadeWhite:
		return "white"
	default:
		return "black"
	}
}

// videoFadeFilter builds the video fade-in or fade-out clause for a
// transition starting at startTime. "cut" contributes no filter and a zero
// duration. Unsupported types degrade to "fade" with a warning.
func videoFadeFilter(direction string, t *specmodel.Transition, startTime float64) (filter string, duration float64) {
	if t == nil || t.Duration <= 0 || t.Type == specmodel.TransitionCut {
		return "", 0
	}
	kind := t.Type
	if !supportedTransitions[kind] {
		log.Printf("[render] unsupported transition type %q, degrading to fade", kind)
		kind = specmodel.TransitionFade
	}
	return fmt.Sprintf("fade=t=%s:st=%.3f:d=%.3f:color=%s", direction, startTime, t.Duration, fadeColor(kind)), t.Duration
}

// audioFadeFilter mirrors videoFadeFilter for the afade audio filter, which
// has no color parameter.
func audioFadeFilter(direction string, t *specmodel.Transition, startTime float64) (filter string, duration float64) {
	if t == nil || t.Duration <= 0 || t.Type == specmodel.TransitionCut {
		return "", 0
	}
	return fmt.Sprintf("afade=t=%s:st=%.3f:d=%.3f", direction, startTime, t.Duration), t.Duration
}
