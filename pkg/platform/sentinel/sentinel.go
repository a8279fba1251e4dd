package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into entity or request errors.
//
//   - ErrNotFound: record does not exist for the tenant
//   - ErrConflict: write lost a race (duplicate key or stale row version)
//   - ErrUnavailable: backing service temporarily unavailable
//
// Per-entity validation failures are validation.Error values, not sentinels.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
