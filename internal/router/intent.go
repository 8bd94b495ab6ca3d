// internal/router/intent.go
package router

import (
	"regexp"
	"strconv"
	"strings"
)

// Intent is the classification of a user message. The classifier is pure
// and total: every string maps to exactly one intent.
type Intent string

const (
	IntentSelection Intent = "selection"
	IntentScan      Intent = "scan"
	IntentNeither   Intent = "neither"
)

var (
	selectionKeywords = []string{"select", "choose", "pick", "analyze", "option"}
	scanKeywords      = []string{"scan", "find", "search", "look for"}

	rfpNumberPattern = regexp.MustCompile(`(?i)\brfp\s*#?\s*(\d+)\b`)
	bareIntPattern   = regexp.MustCompile(`^\s*#?(\d+)\s*$`)
	firstIntPattern  = regexp.MustCompile(`\b(\d+)\b`)
)

// Classify maps a message to an intent. Selection cues are checked before
// scan cues so that "analyze rfp 2" never reads as a scan request.
func Classify(message string) Intent {
	lower := strings.ToLower(message)

	for _, kw := range selectionKeywords {
		if strings.Contains(lower, kw) {
			return IntentSelection
		}
	}
	if rfpNumberPattern.MatchString(lower) || bareIntPattern.MatchString(lower) {
		return IntentSelection
	}

	for _, kw := range scanKeywords {
		if strings.Contains(lower, kw) {
			return IntentScan
		}
	}

	return IntentNeither
}

// SelectionToken holds what could be parsed out of a selection utterance:
// a 1-based index, a literal identifier candidate list, or nothing.
type SelectionToken struct {
	Index      int // 0 when no index was found
	Candidates []string
}

// ParseSelectionToken extracts selection references from a message. Index
// resolution prefers an explicit "rfp N"/"option N" form over the first
// bare number. Identifier candidates are tokens containing a digit or a
// hyphen, so plain words never collide with opportunity ids.
func ParseSelectionToken(message string) SelectionToken {
	token := SelectionToken{}

	if m := rfpNumberPattern.FindStringSubmatch(message); m != nil {
		token.Index, _ = strconv.Atoi(m[1])
	} else if m := firstIntPattern.FindStringSubmatch(message); m != nil {
		token.Index, _ = strconv.Atoi(m[1])
	}

	for _, word := range strings.Fields(message) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if word == "" {
			continue
		}
		if strings.ContainsAny(word, "0123456789") || strings.Contains(word, "-") {
			token.Candidates = append(token.Candidates, word)
		}
	}

	return token
}
