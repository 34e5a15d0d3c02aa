package strategy

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientHistory matches every *InsufficientHistoryError.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrEntryOutOfRange means no bar exists on or after the entry date.
	ErrEntryOutOfRange = errors.New("entry date is outside data range")
	// ErrTradeDateNotFound means no bar exists on or before the trade date.
	ErrTradeDateNotFound = errors.New("trade date not found in data")
	// ErrInvalidStop is returned by S1 when the supplied stop is not a finite number.
	ErrInvalidStop = errors.New("stop price must be a finite number")
)

// InsufficientHistoryError reports how many bars a rule needed.
type InsufficientHistoryError struct {
	Need int
	Have int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: need at least %d bars, have %d", e.Need, e.Have)
}

func (e *InsufficientHistoryError) Is(target error) bool {
	return target == ErrInsufficientHistory
}

func needBars(have, need int) error {
	if have < need {
		return &InsufficientHistoryError{Need: need, Have: have}
	}
	return nil
}

// RuleError attaches the rule name to an evaluation failure.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string { return e.Rule + ": " + e.Err.Error() }

func (e *RuleError) Unwrap() error { return e.Err }

// RuleErrors flattens an error returned by EvaluateSell into rule -> message.
func RuleErrors(err error) map[string]string {
	if err == nil {
		return nil
	}
	out := make(map[string]string)
	var walk func(error)
	walk = func(e error) {
		if re, ok := e.(*RuleError); ok {
			out[re.Rule] = re.Err.Error()
			return
		}
		if j, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range j.Unwrap() {
				walk(inner)
			}
			return
		}
		out["_"] = e.Error()
	}
	walk(err)
	return out
}
