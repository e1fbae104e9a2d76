package subscription

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("no active subscription")
	ErrPlanNotFound         = errors.New("subscription plan not found")
	ErrInvalidModule        = errors.New("unknown module")
	ErrStoreFailed          = errors.New("subscription store failed")
)
