package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kira7dn/videoassembly/internal/specmodel"
)

func TestEscapeDrawtextEscapesSpecialCharacters(t *testing.T) {
	in := `it's a 50% chance: {ok}\path`
	out := escapeDrawtext(in)
	assert.NotContains(t, out, "it's")
	assert.Contains(t, out, `\'`)
	assert.Contains(t, out, `\:`)
	assert.Contains(t, out, `\%`)
	assert.Contains(t, out, `\{`)
}

func TestBuildDrawtextFilterAppliesDelayToEnableWindow(t *testing.T) {
	sub := specmodel.Subtitle{Text: "hello", StartTime: 1.0, Duration: 2.0}
	style := DefaultOptions().Style
	f := buildDrawtextFilter(sub, 0.5, style)
	assert.Contains(t, f, "between(t,1.500,3.500)")
}

func TestVideoFadeFilterCutContributesNothing(t *testing.T) {
	f, d := videoFadeFilter("in", &specmodel.Transition{Type: specmodel.TransitionCut, Duration: 1}, 0)
	assert.Empty(t, f)
	assert.Zero(t, d)
}

func TestVideoFadeFilterDegradesUnsupportedType(t *testing.T) {
	f, d := videoFadeFilter("in", &specmodel.Transition{Type: "spin", Duration: 1}, 0)
	assert.Contains(t, f, "fade=t=in")
	assert.Equal(t, 1.0, d)
}

func TestVideoFadeFilterFadeBlackUsesBlackColor(t *testing.T) {
	f, _ := videoFadeFilter("out", &specmodel.Transition{Type: specmodel.TransitionFadeBlack, Duration: 0.5}, 2.0)
	assert.Contains(t, f, "color=black")
	assert.Contains(t, f, "st=2.000")
}

func TestBuildFiltersIncludesSubtitleOverlay(t *testing.T) {
	r := New(DefaultOptions())
	seg := specmodel.Segment{
		TextOver: []specmodel.Subtitle{{Text: "hi", StartTime: 0, Duration: 1}},
	}
	vf, _ := r.buildFilters(seg, 4.0, 0)
	assert.Contains(t, vf, "drawtext")
}

func TestTransitionDurationsIgnoresCut(t *testing.T) {
	seg := specmodel.Segment{
		TransitionIn:  &specmodel.Transition{Type: specmodel.TransitionCut, Duration: 1},
		TransitionOut: &specmodel.Transition{Type: specmodel.TransitionFade, Duration: 0.5},
	}
	fadeIn, fadeOut := transitionDurations(seg)
	assert.Zero(t, fadeIn)
	assert.Equal(t, 0.5, fadeOut)
}
