package format

import (
	"fmt"
	"log/slog"
	"strings"
)

// Mode selects how a reply closes.
type Mode string

const (
	ModeAnswer   Mode = "answer"
	ModeFollowup Mode = "followup"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeAnswer || m == ModeFollowup
}

// Reference is a cited source.
type Reference struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Reply is a structured answer waiting to be posted.
type Reply struct {
	Channel    string
	ThreadTS   string
	Answer     string
	References []Reference
	Mode       Mode
	Confidence float64
}

// Message is the formatted body plus what the policy did to it.
type Message struct {
	Text      string
	Truncated bool
}

// truncateWords keeps at most limit whitespace-separated words.
func truncateWords(text string, limit int) (string, bool) {
	words := strings.Fields(text)
	if limit <= 0 || len(words) <= limit {
		return text, false
	}
	return strings.Join(words[:limit], " "), true
}

// Format renders r as a single Slack message.
//
// Line order: marker line, sources block, clarifying question, confidence.
func (p Policy) Format(r Reply) Message {
	trimmed, truncated := truncateWords(r.Answer, p.MaxAnswerWords)
	if truncated {
		slog.Warn("answer truncated to policy limit",
			"channel", r.Channel,
			"thread_ts", r.ThreadTS,
			"max_words", p.MaxAnswerWords,
		)
	}

	lines := []string{AutoReplyMarker + " " + strings.TrimSpace(trimmed)}

	refs := r.References
	if len(refs) > p.MaxSources {
		refs = refs[:p.MaxSources]
	}
	if len(refs) > 0 {
		lines = append(lines, SourcesHeader)
		for _, ref := range refs {
			lines = append(lines, fmt.Sprintf("• <%s|%s>", ref.URL, ref.Title))
		}
	}

	if r.Mode == ModeFollowup && !strings.Contains(trimmed, "?") {
		lines = append(lines, ClarifyingLine)
	}

	lines = append(lines, fmt.Sprintf(confidencePattern, r.Confidence))

	return Message{
		Text:      strings.Join(lines, "\n"),
		Truncated: truncated,
	}
}
