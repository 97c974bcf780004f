package automation

import "errors"

var (
	ErrTickInProgress    = errors.New("automation: a tick is already running")
	ErrUnknownTrigger    = errors.New("automation: unknown trigger kind")
	ErrUnknownAction     = errors.New("automation: unknown action kind")
	ErrInvalidDefinition = errors.New("automation: invalid automation definition")
	ErrActionFailed      = errors.New("automation: action execution failed")
)
