package logcat

import "regexp"

// Outcome classifies a single line against a success/error pattern pair.
type Outcome int

const (
	NoMatch Outcome = iota
	MatchedSuccess
	MatchedError
)

// Match scans line for the given patterns. The error pattern, when
// non-nil, is checked before the success pattern, so a line matching
// both counts as an error. Patterns are searched anywhere within the
// line, not anchored to it.
//
// On MatchedSuccess the returned slice holds the full match followed by
// any capture groups, per regexp.FindStringSubmatch.
func Match(line string, success, errPattern *regexp.Regexp) (Outcome, []string) {
	if errPattern != nil && errPattern.MatchString(line) {
		return MatchedError, nil
	}
	if m := success.FindStringSubmatch(line); m != nil {
		return MatchedSuccess, m
	}
	return NoMatch, nil
}
