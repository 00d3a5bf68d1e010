package flow

import "fmt"

// UnknownFlowError is returned when executing a flow that was never
// registered.
type UnknownFlowError struct {
	Name string
}

func (e *UnknownFlowError) Error() string {
	return fmt.Sprintf("flow %q is not registered", e.Name)
}

// StepError carries the failure of a single flow step.
type StepError struct {
	Flow  string
	Step  string
	Index int
	Err   error
}

func (e *StepError) Error() string {
	name := e.Step
	if name == "" {
		name = fmt.Sprintf("#%d", e.Index+1)
	}
	return fmt.Sprintf("flow %q step %s failed: %v", e.Flow, name, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
