package stealth

import (
	"errors"
	"fmt"
)

var (
	// ErrTemplateLoad reports an evasion template that could not be obtained.
	ErrTemplateLoad = errors.New("template load failed")
	// ErrTransport reports a command the session rejected or failed to execute.
	ErrTransport = errors.New("session transport failed")
	// ErrSerialization reports an argument with no JSON literal form.
	ErrSerialization = errors.New("argument serialization failed")
)

// StepError identifies the activation step that aborted the sequence.
// It matches both its Kind and its cause under errors.Is.
type StepError struct {
	Step    int    // 1-based position in the catalog
	Evasion string // catalog name
	Op      string // protocol command or "render"/"template"
	Kind    error
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("stealth: step %d (%s): %s: %v", e.Step, e.Evasion, e.Op, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
