package actions

import "fmt"

// ContractError reports a raw match whose shape does not fit the action it
// was passed to.
type ContractError struct {
	Action string
	Reason string
	Raw    any
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s (raw match %T)", e.Action, e.Reason, e.Raw)
}

func contractErr(action string, raw any, format string, args ...any) error {
	return &ContractError{Action: action, Reason: fmt.Sprintf(format, args...), Raw: raw}
}
