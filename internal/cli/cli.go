// Package cli turns raw command-line tokens into batch options and jobs.
//
// The grammar is deliberately loose: help is only recognized as the first
// token, and anything that is not a known flag is an input path. That is why
// tokens are scanned here instead of by cobra's flag parser.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"tint/internal/processor"
)

// ErrHelp is returned when the first token asks for usage.
var ErrHelp = errors.New("help requested")

// UsageError means the tokens do not form a valid invocation.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// SetupError is fatal to the whole run, before any file is touched.
type SetupError struct {
	Message string
	Err     error
}

func (e *SetupError) Error() string {
	return e.Message
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// ExitError carries the process exit code. An empty Message means the
// failure was already reported.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Invocation is the parsed command line.
type Invocation struct {
	Options processor.Options
	Jobs    []processor.Job
}

const (
	flagOutputDir = "output-dir"
	flagStatus    = "status"
	flagQuiet     = "quiet"
	flagJSON      = "json"
)

var flagNames = map[string]string{
	"-o":           flagOutputDir,
	"--output-dir": flagOutputDir,
	"--output":     flagOutputDir,
	"--status":     flagStatus,
	"-q":           flagQuiet,
	"--quiet":      flagQuiet,
	"-j":           flagJSON,
	"--json":       flagJSON,
}

func takesValue(flag string) bool {
	return flag == flagOutputDir || flag == flagStatus
}

// IsHelp reports whether token is one of the help flags.
func IsHelp(token string) bool {
	return token == "-h" || token == "--help"
}

// Parse interprets tokens. On error the returned Invocation still carries the
// options seen so far, so callers can report the error in the requested mode.
func Parse(tokens []string) (Invocation, error) {
	var inv Invocation
	if len(tokens) > 0 && IsHelp(tokens[0]) {
		return inv, ErrHelp
	}

	// The first usage error is reported only after every token has been
	// seen, so a later --json still selects the error format.
	var (
		inputs   []string
		usageErr error
	)
	fail := func(format string, args ...any) {
		if usageErr == nil {
			usageErr = &UsageError{Message: fmt.Sprintf(format, args...)}
		}
	}

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		name, inline, hasInline := token, "", false
		if strings.HasPrefix(token, "--") {
			if eq := strings.IndexByte(token, '='); eq > 0 {
				name, inline, hasInline = token[:eq], token[eq+1:], true
			}
		}

		flag, known := flagNames[name]
		if !known {
			inputs = append(inputs, token)
			continue
		}

		if !takesValue(flag) {
			if hasInline {
				fail("flag %s does not take a value", name)
				continue
			}
			switch flag {
			case flagQuiet:
				inv.Options.Quiet = true
			case flagJSON:
				inv.Options.JSON = true
				inv.Options.Quiet = true
			}
			continue
		}

		value := inline
		if !hasInline {
			if i+1 >= len(tokens) {
				fail("flag %s requires a value", name)
				break
			}
			i++
			value = tokens[i]
		}
		if value == "" {
			fail("flag %s requires a non-empty value", name)
			continue
		}

		switch flag {
		case flagOutputDir:
			inv.Options.OutputDir = value
		case flagStatus:
			inv.Options.StatusFile = value
		}
	}

	if usageErr != nil {
		return inv, usageErr
	}

	explicitOutput := ""
	if len(inputs) == 2 && inv.Options.OutputDir == "" {
		// "in out" vs "in1 in2": a second path that is not on disk yet is the
		// output of a single-file run.
		if _, err := os.Stat(inputs[1]); err != nil {
			explicitOutput = inputs[1]
			inputs = inputs[:1]
		}
	}

	if len(inputs) == 0 {
		return inv, &UsageError{Message: "no input files given"}
	}

	if dir := inv.Options.OutputDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return inv, &SetupError{Message: fmt.Sprintf("cannot create output directory %s: %v", dir, err), Err: err}
		}
	}

	inv.Jobs = make([]processor.Job, 0, len(inputs))
	for _, input := range inputs {
		inv.Jobs = append(inv.Jobs, processor.Job{Input: input})
	}
	if explicitOutput != "" {
		inv.Jobs[0].Output = explicitOutput
	}
	return inv, nil
}
