// Package format turns a structured answer into the Slack message body posted
// as an automated reply.
package format

const (
	// MaxAnswerWords bounds the answer text of a reply.
	MaxAnswerWords = 180
	// MaxSources bounds the number of cited references.
	MaxSources = 3
	// MaxAnswerChars is the longest answer accepted at the API boundary.
	MaxAnswerChars = 1200

	AutoReplyMarker   = "[Auto-Reply]"
	SourcesHeader     = "Sources:"
	ClarifyingLine    = "Clarifying question: Could you share a bit more detail?"
	confidencePattern = "Confidence: %.2f"
)

// Policy holds the limits applied when formatting a reply.
type Policy struct {
	MaxAnswerWords int
	MaxSources     int
}

// DefaultPolicy returns the built-in limits.
func DefaultPolicy() Policy {
	return Policy{
		MaxAnswerWords: MaxAnswerWords,
		MaxSources:     MaxSources,
	}
}

// WithOverrides replaces limits with positive override values.
func (p Policy) WithOverrides(maxAnswerWords, maxSources int) Policy {
	if maxAnswerWords > 0 {
		p.MaxAnswerWords = maxAnswerWords
	}
	if maxSources > 0 {
		p.MaxSources = maxSources
	}
	return p
}
