package plan

import "errors"

var (
	ErrPlanNotFound      = errors.New("plan not found")
	ErrUnknownProviderRef = errors.New("provider reference does not resolve to a plan")
)
