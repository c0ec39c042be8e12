package models

import "errors"

// Moderation workflow errors.
var (
	// ErrAlreadyUnderModeration means the target already has a pending record.
	ErrAlreadyUnderModeration = errors.New("entity is already under moderation")
	// ErrAlreadyResolved means the record has left the pending state.
	ErrAlreadyResolved = errors.New("moderation record already resolved")
	// ErrInconsistentModerationRecord means the record's action, payload and
	// target cannot be applied together.
	ErrInconsistentModerationRecord = errors.New("inconsistent moderation record")
	// ErrStoreFailure wraps entity store failures during approval.
	ErrStoreFailure = errors.New("entity store failure")
	// ErrSnapshotDecode means a stored payload cannot be decoded into its target type.
	ErrSnapshotDecode = errors.New("snapshot decode failure")
	// ErrMasterPending means a dependent record was resolved before its master.
	ErrMasterPending = errors.New("master record is still pending")
	// ErrInvalidMaster means a submission referenced a master record that is missing or resolved.
	ErrInvalidMaster = errors.New("master record must exist and be pending")
	// ErrNotModerator means the actor lacks the privilege to resolve records.
	ErrNotModerator = errors.New("moderator privilege required")
	// ErrInvalidDecision means a resolve call asked for a state other than approved or rejected.
	ErrInvalidDecision = errors.New("decision must be approved or rejected")
)

// Lookup and storage errors.
var (
	ErrEntityNotFound     = errors.New("entity not found")
	ErrRecordNotFound     = errors.New("moderation record not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnknownEntityType  = errors.New("unknown entity type")
	ErrEntityTypeMismatch = errors.New("entity does not match requested type")
	ErrReadOnly           = errors.New("write attempted in read-only transaction")
)

// ErrDuplicateKey indicates a unique constraint violation (maps to HTTP 409 Conflict).
var ErrDuplicateKey = errors.New("duplicate key")

// ErrValidation wraps field validation failures.
var ErrValidation = errors.New("validation failed")
