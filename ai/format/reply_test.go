package format

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var confidenceLine = regexp.MustCompile(`^Confidence: \d+\.\d{2}$`)

func lastLine(text string) string {
	lines := strings.Split(text, "\n")
	return lines[len(lines)-1]
}

func refs(n int) []Reference {
	out := make([]Reference, n)
	for i := range out {
		out[i] = Reference{Title: fmt.Sprintf("Doc %d", i), URL: fmt.Sprintf("https://example.com/%d", i)}
	}
	return out
}

func TestFormat_BasicAnswer(t *testing.T) {
	msg := DefaultPolicy().Format(Reply{
		Answer:     "Here is how to request VPN access.",
		References: []Reference{{Title: "VPN SOP", URL: "https://example.com/vpn"}},
		Mode:       ModeAnswer,
		Confidence: 0.9,
	})

	expected := strings.Join([]string{
		"[Auto-Reply] Here is how to request VPN access.",
		"Sources:",
		"• <https://example.com/vpn|VPN SOP>",
		"Confidence: 0.90",
	}, "\n")
	assert.Equal(t, expected, msg.Text)
	assert.False(t, msg.Truncated)
}

func TestFormat_NoReferencesOmitsSources(t *testing.T) {
	msg := DefaultPolicy().Format(Reply{Answer: "  padded answer  ", Mode: ModeAnswer, Confidence: 0.5})

	assert.Equal(t, "[Auto-Reply] padded answer\nConfidence: 0.50", msg.Text)
	assert.NotContains(t, msg.Text, SourcesHeader)
}

func TestFormat_AlwaysEndsWithConfidence(t *testing.T) {
	for _, c := range []float64{0, 0.004, 0.005, 0.126, 0.5, 0.999, 1} {
		for _, mode := range []Mode{ModeAnswer, ModeFollowup} {
			msg := DefaultPolicy().Format(Reply{Answer: "answer", References: refs(2), Mode: mode, Confidence: c})
			assert.Regexp(t, confidenceLine, lastLine(msg.Text), "confidence %v", c)
		}
	}
	msg := DefaultPolicy().Format(Reply{Answer: "x", Confidence: 1})
	assert.Equal(t, "Confidence: 1.00", lastLine(msg.Text))
}

func TestFormat_SourcesCappedInOrder(t *testing.T) {
	policy := DefaultPolicy()
	msg := policy.Format(Reply{Answer: "answer", References: refs(MaxSources + 4), Mode: ModeAnswer})

	var sourceLines []string
	for _, line := range strings.Split(msg.Text, "\n") {
		if strings.HasPrefix(line, "• ") {
			sourceLines = append(sourceLines, line)
		}
	}
	require.Len(t, sourceLines, MaxSources)
	for i, line := range sourceLines {
		assert.Equal(t, fmt.Sprintf("• <https://example.com/%d|Doc %d>", i, i), line)
	}
}

func TestFormat_FollowupClarifyingLine(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		mode     Mode
		expected int
	}{
		{"followup without question mark", "Please check the portal.", ModeFollowup, 1},
		{"followup with question mark", "Did you try the portal?", ModeFollowup, 0},
		{"answer without question mark", "Please check the portal.", ModeAnswer, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := DefaultPolicy().Format(Reply{Answer: tt.answer, Mode: tt.mode, Confidence: 0.3})
			assert.Equal(t, tt.expected, strings.Count(msg.Text, ClarifyingLine))
		})
	}
}

func TestFormat_FollowupQuestionMarkBeyondTruncation(t *testing.T) {
	policy := Policy{MaxAnswerWords: 3, MaxSources: MaxSources}
	msg := policy.Format(Reply{Answer: "one two three four?", Mode: ModeFollowup, Confidence: 0.2})

	assert.True(t, msg.Truncated)
	assert.Equal(t, strings.Join([]string{
		"[Auto-Reply] one two three",
		ClarifyingLine,
		"Confidence: 0.20",
	}, "\n"), msg.Text)
}

func TestFormat_LineOrder(t *testing.T) {
	msg := DefaultPolicy().Format(Reply{Answer: "short", References: refs(1), Mode: ModeFollowup, Confidence: 0.75})
	lines := strings.Split(msg.Text, "\n")

	require.Len(t, lines, 5)
	assert.Equal(t, "[Auto-Reply] short", lines[0])
	assert.Equal(t, SourcesHeader, lines[1])
	assert.Equal(t, "• <https://example.com/0|Doc 0>", lines[2])
	assert.Equal(t, ClarifyingLine, lines[3])
	assert.Equal(t, "Confidence: 0.75", lines[4])
}

func TestFormat_TruncatesToWordLimit(t *testing.T) {
	words := make([]string, MaxAnswerWords+20)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	msg := DefaultPolicy().Format(Reply{Answer: strings.Join(words, "\n\t "), Mode: ModeAnswer})

	require.True(t, msg.Truncated)
	first := strings.Split(msg.Text, "\n")[0]
	body := strings.TrimPrefix(first, AutoReplyMarker+" ")
	assert.Len(t, strings.Fields(body), MaxAnswerWords)
	assert.True(t, strings.HasSuffix(body, fmt.Sprintf("w%d", MaxAnswerWords-1)))
}

func TestPolicy_WithOverrides(t *testing.T) {
	p := DefaultPolicy().WithOverrides(0, 5)
	assert.Equal(t, MaxAnswerWords, p.MaxAnswerWords)
	assert.Equal(t, 5, p.MaxSources)

	p = DefaultPolicy().WithOverrides(10, -1)
	assert.Equal(t, 10, p.MaxAnswerWords)
	assert.Equal(t, MaxSources, p.MaxSources)
}

func TestMode_IsValid(t *testing.T) {
	assert.True(t, ModeAnswer.IsValid())
	assert.True(t, ModeFollowup.IsValid())
	assert.False(t, Mode("chat").IsValid())
}
