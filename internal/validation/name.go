package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxDisplayNameLength bounds post and reply display names, in characters.
const MaxDisplayNameLength = 24

var (
	ErrNameControlChars = errors.New("Name cannot contain line breaks or tabs.")
	ErrNameTooLong      = fmt.Errorf("Name must be %d characters or fewer.", MaxDisplayNameLength)
)

var (
	nameControlRegex = regexp.MustCompile(`[\r\n\t]`)
	spaceRunRegex    = regexp.MustCompile(` +`)
)

// NormalizeDisplayName collapses runs of spaces and trims the name. An empty result means
// the author stays anonymous and is returned as nil.
func NormalizeDisplayName(raw string) (*string, error) {
	if nameControlRegex.MatchString(raw) {
		return nil, ErrNameControlChars
	}

	collapsed := strings.TrimSpace(spaceRunRegex.ReplaceAllString(raw, " "))
	if collapsed == "" {
		return nil, nil
	}

	if utf8.RuneCountInString(collapsed) > MaxDisplayNameLength {
		return nil, ErrNameTooLong
	}

	return &collapsed, nil
}
