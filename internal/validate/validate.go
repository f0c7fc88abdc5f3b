// Package validate holds the cell value validators used by grid editors.
//
// A validator is a pure function from the raw editor text to a Result. It never
// mutates anything; callers decide what to do with a rejection.
package validate

import (
	"regexp"
	"strconv"
	"strings"
)

// NumberMessage is shown when a numeric cell receives something that is not a number.
const NumberMessage = "Please enter a valid integer"

// Result is the outcome of validating one value.
type Result struct {
	Valid bool
	Msg   string
}

// Func validates the raw text of a cell edit.
type Func func(value string) Result

// OK is the accepting result.
func OK() Result {
	return Result{Valid: true}
}

// Reject builds a rejecting result with msg.
func Reject(msg string) Result {
	return Result{Valid: false, Msg: msg}
}

var decimalRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Number accepts anything a browser would coerce to a number: decimal and
// exponent literals, 0x/0o/0b integers, signed Infinity, and blank input
// (which coerces to zero).
func Number(value string) Result {
	if isNumeric(value) {
		return OK()
	}
	return Reject(NumberMessage)
}

func isNumeric(value string) bool {
	s := strings.TrimSpace(value)
	if s == "" {
		return true
	}
	switch s {
	case "Infinity", "+Infinity", "-Infinity":
		return true
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			_, err := strconv.ParseUint(s[2:], base, 64)
			if err == nil {
				return true
			}
			if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
				return true
			}
			return false
		}
	}
	return decimalRe.MatchString(s)
}

// Chain runs fns in order and returns the first rejection.
func Chain(fns ...Func) Func {
	return func(value string) Result {
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if res := fn(value); !res.Valid {
				return res
			}
		}
		return OK()
	}
}
