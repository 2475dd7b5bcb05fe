package logcat

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	success := regexp.MustCompile(`FOO(\d+)`)
	errPat := regexp.MustCompile(`ERR`)

	tests := []struct {
		name        string
		line        string
		errPattern  *regexp.Regexp
		wantOutcome Outcome
		wantCapture string
	}{
		{"no match", "nothing interesting", errPat, NoMatch, ""},
		{"success anywhere in line", "prefix FOO42 suffix", errPat, MatchedSuccess, "42"},
		{"error match", "an ERR occurred", errPat, MatchedError, ""},
		{"error checked before success", "ERR and FOO42 on one line", errPat, MatchedError, ""},
		{"nil error pattern never errors", "ERR and FOO7", nil, MatchedSuccess, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, captures := Match(tt.line, success, tt.errPattern)
			assert.Equal(t, tt.wantOutcome, outcome)
			if tt.wantOutcome == MatchedSuccess {
				assert.Len(t, captures, 2)
				assert.Equal(t, tt.wantCapture, captures[1])
			} else {
				assert.Nil(t, captures)
			}
		})
	}
}
