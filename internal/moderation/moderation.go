// Package moderation classifies user text before it is submitted.
package moderation

import (
	"regexp"
	"strings"
)

// SlurPattern is a blocked term matched against normalized text.
type SlurPattern struct {
	ID      string
	Pattern *regexp.Regexp
}

// SlurPatterns tolerate repeated letters; normalization has already collapsed runs to two.
var SlurPatterns = []SlurPattern{
	{ID: "hard_r", Pattern: regexp.MustCompile(`n+i+g{2}e+r+`)},
	{ID: "soft_r", Pattern: regexp.MustCompile(`n+i+g{2}a+`)},
	{ID: "chink", Pattern: regexp.MustCompile(`c+h+i+n+k+`)},
	{ID: "retard", Pattern: regexp.MustCompile(`r+e+t+a+r+d+`)},
}

// ProfanityWords are matched as whole words, case-insensitively.
var ProfanityWords = []string{"fuck", "shit", "ass", "damn", "bitch"}

var profanityRegexes = compileProfanity(ProfanityWords)

var leetspeak = strings.NewReplacer(
	"@", "a",
	"0", "o",
	"1", "i",
	"!", "i",
	"$", "s",
	"3", "e",
)

func compileProfanity(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, word := range words {
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	return out
}

// Normalize lowercases value, undoes common leetspeak, drops everything that is not a
// letter a-z and collapses runs of three or more identical letters to two.
func Normalize(value string) string {
	lowered := leetspeak.Replace(strings.ToLower(value))

	var b strings.Builder
	b.Grow(len(lowered))
	var prev byte
	run := 0
	for i := 0; i < len(lowered); i++ {
		c := lowered[i]
		if c < 'a' || c > 'z' {
			continue
		}
		if c == prev {
			run++
		} else {
			prev = c
			run = 1
		}
		if run <= 2 {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ContainsSlur reports whether value contains a blocked term after normalization.
func ContainsSlur(value string) bool {
	normalized := Normalize(value)
	if normalized == "" {
		return false
	}
	for _, p := range SlurPatterns {
		if p.Pattern.MatchString(normalized) {
			return true
		}
	}
	return false
}

// ContainsProfanity reports whether value contains a profanity word. No normalization is applied.
func ContainsProfanity(value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	for _, re := range profanityRegexes {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}
