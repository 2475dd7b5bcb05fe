package logcat

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadLineNormalizesLineEndings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"plain newline", "foo\nbar\n", []string{"foo", "bar"}},
		{"crlf", "foo\r\nbar\r\n", []string{"foo", "bar"}},
		{"double cr from pty translation", "foo\r\r\nbar\r\r\n", []string{"foo", "bar"}},
		{"mixed", "a\nb\r\nc\r\r\n", []string{"a", "b", "c"}},
		{"empty line", "\r\r\nx\n", []string{"", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLineReader(strings.NewReader(tt.input))
			defer lr.Close()

			for _, want := range tt.want {
				line, err := lr.ReadLine(time.Second)
				require.NoError(t, err)
				require.Equal(t, want, line)
			}

			_, err := lr.ReadLine(time.Second)
			require.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestReadLineTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	lr := NewLineReader(pr)
	defer lr.Close()

	start := time.Now()
	_, err := lr.ReadLine(50 * time.Millisecond)
	require.ErrorIs(t, err, ErrReadTimeout)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	// The reader stays usable after a timeout.
	go io.WriteString(pw, "hello\n")
	line, err := lr.ReadLine(time.Second)
	require.NoError(t, err)
	require.Equal(t, "hello", line)
}

func TestReadLineDropsPartialTrailingLine(t *testing.T) {
	lr := NewLineReader(strings.NewReader("complete\npartial without newline"))
	defer lr.Close()

	line, err := lr.ReadLine(time.Second)
	require.NoError(t, err)
	require.Equal(t, "complete", line)

	_, err = lr.ReadLine(time.Second)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadLineEOFIsSticky(t *testing.T) {
	lr := NewLineReader(strings.NewReader(""))
	defer lr.Close()

	for i := 0; i < 3; i++ {
		_, err := lr.ReadLine(100 * time.Millisecond)
		require.ErrorIs(t, err, io.EOF)
	}
}
