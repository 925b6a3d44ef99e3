package render

import (
	"fmt"
	"strings"

	"github.com/kira7dn/videoassembly/internal/specmodel"
)

// TextStyle carries the font/position/color settings read from configuration
// that every drawtext filter shares.
type TextStyle struct {
	FontFile   string
	FontSize   int
	FontColor  string
	BoxColor   string
	MarginBottom int
}

// escapeDrawtext escapes the characters the drawtext filter grammar treats
// specially: backslashes, single quotes, colons, percent signs, and braces.
func escapeDrawtext(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
		`{`, `\{`,
		`}`, `\}`,
	)
	return replacer.Replace(text)
}

// buildDrawtextFilter builds one drawtext filter clause for a subtitle, with
// an enable window offset by delay — the accumulated fade-in plus the
// voice-over's own start_delay.
func buildDrawtextFilter(sub specmodel.Subtitle, delay float64, style TextStyle) string {
	start := sub.StartTime + delay
	end := start + sub.Duration

	return fmt.Sprintf(
		"drawtext=fontfile='%s':text='%s':fontsize=%d:fontcolor=%s:box=1:boxcolor=%s:x=(w-text_w)/2:y=h-%d:enable='between(t,%.3f,%.3f)'",
		escapeDrawtext(style.FontFile),
		escapeDrawtext(sub.Text),
		style.FontSize,
		style.FontColor,
		style.BoxColor,
		style.MarginBottom,
		start,
		end,
	)
}

// buildDrawtextChain joins one drawtext clause per subtitle, in order, ready
// to be appended to a -vf filter chain with commas.
func buildDrawtextChain(subs []specmodel.Subtitle, delay float64, style TextStyle) string {
	if len(subs) == 0 {
		return ""
	}
	clauses := make([]string, len(subs))
	for i, s := range subs {
		clauses[i] = buildDrawtextFilter(s, delay, style)
	}
	return strings.Join(clauses, ",")
}
