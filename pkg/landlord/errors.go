package landlord

import "errors"

var (
	ErrQueryFailed    = errors.New("landlord query failed")
	ErrInvalidStatus  = errors.New("invalid tenant status")
	ErrSubdomainTaken = errors.New("subdomain already used by an active tenant")
)
