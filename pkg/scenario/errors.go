package scenario

import "fmt"

// UnknownScenarioError is returned when activating a scenario that was never
// registered. This is a programmer error, not a runtime condition.
type UnknownScenarioError struct {
	Name string
}

func (e *UnknownScenarioError) Error() string {
	return fmt.Sprintf("scenario %q is not registered", e.Name)
}

// Hint returns a user-friendly suggestion for resolving this error.
func (e *UnknownScenarioError) Hint() string {
	return fmt.Sprintf("Register scenario %q before activating it, or use one of the built-in scenarios.", e.Name)
}
