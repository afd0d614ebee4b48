package parser

import (
	"strings"

	"github.com/pkg/errors"
)

// MaxStages is the longest pipeline the shell will run.
const MaxStages = 2

const (
	Whitespace = " \t"
	PipeDelim  = "|"

	TokenStdin      = "<"
	TokenStdout     = ">"
	TokenStderr     = "2>"
	TokenBackground = "&"
)

var (
	ErrEmpty         = errors.New("empty command")
	ErrTooManyStages = errors.New("too many pipeline stages")
	ErrMalformed     = errors.New("malformed command")
)

// Stage is one pipeline segment with its control tokens interpreted.
type Stage struct {
	Argv       []string
	Stdin      string
	Stdout     string
	Stderr     string
	Background bool
}

// Split breaks s on any of the runes in delims. Empty fields are dropped.
func Split(s, delims string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(delims, r)
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// SplitPipeline returns the non-blank stages of line.
func SplitPipeline(line string) ([]string, error) {
	var stages []string
	for _, seg := range Split(line, PipeDelim) {
		if strings.TrimSpace(seg) == "" {
			continue
		}
		stages = append(stages, seg)
	}

	switch {
	case len(stages) == 0:
		return nil, ErrEmpty
	case len(stages) > MaxStages:
		return nil, errors.Wrapf(ErrTooManyStages, "%d stages, at most %d supported", len(stages), MaxStages)
	}
	return stages, nil
}

func isControl(tok string) bool {
	switch tok {
	case TokenStdin, TokenStdout, TokenStderr, TokenBackground:
		return true
	}
	return false
}

// ParseStage interprets the redirection and background tokens of a single
// stage. The argument vector ends at the first control token.
func ParseStage(tokens []string) (Stage, error) {
	var st Stage
	argEnd := len(tokens)

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !isControl(tok) {
			continue
		}
		if i < argEnd {
			argEnd = i
		}

		if tok == TokenBackground {
			if i != len(tokens)-1 {
				return Stage{}, errors.Wrapf(ErrMalformed, "%q must be the last word", TokenBackground)
			}
			st.Background = true
			continue
		}

		if i+1 >= len(tokens) || isControl(tokens[i+1]) {
			return Stage{}, errors.Wrapf(ErrMalformed, "missing file after %q", tok)
		}
		target := tokens[i+1]
		switch tok {
		case TokenStdin:
			st.Stdin = target
		case TokenStdout:
			st.Stdout = target
		case TokenStderr:
			st.Stderr = target
		}
		i++
	}

	if argEnd == 0 {
		return Stage{}, errors.Wrap(ErrMalformed, "missing command name")
	}
	st.Argv = append([]string(nil), tokens[:argEnd]...)
	return st, nil
}

// Parse splits line into at most MaxStages stages and parses each one.
// Only the final stage may carry the background marker.
func Parse(line string) ([]Stage, error) {
	segments, err := SplitPipeline(line)
	if err != nil {
		return nil, err
	}

	stages := make([]Stage, 0, len(segments))
	for i, seg := range segments {
		st, err := ParseStage(Split(seg, Whitespace))
		if err != nil {
			return nil, err
		}
		if st.Background && i != len(segments)-1 {
			return nil, errors.Wrapf(ErrMalformed, "%q before %q", TokenBackground, PipeDelim)
		}
		stages = append(stages, st)
	}
	return stages, nil
}
