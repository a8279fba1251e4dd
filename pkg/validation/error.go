// Package validation provides the bulk entity validation pipeline: an error
// model, an entity/error association map, ordered validator chains and the
// reusable validator archetypes shared by every bulk module.
package validation

import (
	"fmt"
	"strings"
)

// ErrorType classifies whether an entity may continue through later checks.
type ErrorType string

const (
	// Recoverable errors are reported but do not stop later independent checks.
	Recoverable ErrorType = "RECOVERABLE"
	// NonRecoverable errors are terminal for the entity within the request.
	NonRecoverable ErrorType = "NON_RECOVERABLE"
)

// Error codes shared by the archetype validators.
const (
	CodeNullID                   = "NULL_ID"
	CodeIsDeletedTrue            = "IS_DELETED_TRUE"
	CodeIsDeletedTrueSubEntity   = "IS_DELETED_TRUE_SUB_ENTITY"
	CodeDuplicateEntity          = "DUPLICATE_ENTITY"
	CodeDuplicateSubEntity       = "DUPLICATE_SUB_ENTITY"
	CodeNonExistentEntity        = "NON_EXISTENT_ENTITY"
	CodeNonExistentSubEntity     = "NON_EXISTENT_SUB_ENTITY"
	CodeNonExistentRelatedEntity = "NON_EXISTENT_RELATED_ENTITY"
	CodeInvalidRelatedEntityID   = "INVALID_RELATED_ENTITY_ID"
	CodeRowVersionMismatch       = "ROW_VERSION_MISMATCH"
	CodeNetworkError             = "NETWORK_ERROR"
)

// Error is a structured validation failure attached to a single entity.
type Error struct {
	Code    string    `json:"errorCode"`
	Message string    `json:"errorMessage"`
	Type    ErrorType `json:"type"`
	Cause   error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Recoverable reports whether later independent checks may still run.
func (e *Error) Recoverable() bool {
	return e.Type == Recoverable
}

// NewError builds a non-recoverable error, the default for every archetype.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message, Type: NonRecoverable}
}

// NullID reports a missing server id on update or delete.
func NullID() *Error {
	return NewError(CodeNullID, "Id cannot be null")
}

// IsDeletedTrue reports a client attempting to set the tombstone flag directly.
func IsDeletedTrue() *Error {
	return NewError(CodeIsDeletedTrue, "isDeleted cannot be true")
}

// IsDeletedSubEntity reports a sub-entity submitted as deleted on create.
func IsDeletedSubEntity() *Error {
	return NewError(CodeIsDeletedTrueSubEntity, "isDeleted cannot be true for sub entity")
}

// DuplicateEntity reports an id already stored or repeated within the batch.
func DuplicateEntity() *Error {
	return NewError(CodeDuplicateEntity, "Duplicate entity")
}

// DuplicateSubEntity reports a repeated sub-entity id within one parent.
func DuplicateSubEntity() *Error {
	return NewError(CodeDuplicateSubEntity, "Duplicate sub entity")
}

// NonExistentEntity reports an update/delete target missing from the datastore.
func NonExistentEntity() *Error {
	return NewError(CodeNonExistentEntity, "Entity does not exist in db")
}

// NonExistentSubEntity reports sub-entity ids unknown under their parent.
func NonExistentSubEntity(ids []string) *Error {
	return NewError(CodeNonExistentSubEntity,
		fmt.Sprintf("Sub Entity does not exist in db: %s", strings.Join(ids, ", ")))
}

// NonExistentRelatedEntity reports foreign references that did not resolve.
func NonExistentRelatedEntity(ids []string) *Error {
	return NewError(CodeNonExistentRelatedEntity,
		fmt.Sprintf("Related entity does not exist: %s", strings.Join(ids, ", ")))
}

// InvalidRelatedEntityID reports a reference that is malformed rather than missing.
func InvalidRelatedEntityID() *Error {
	return NewError(CodeInvalidRelatedEntityID, "Invalid related entity id")
}

// RowVersionMismatch reports a stale optimistic-concurrency counter.
func RowVersionMismatch(got, want int) *Error {
	return NewError(CodeRowVersionMismatch,
		fmt.Sprintf("Row version mismatch: submitted %d, stored %d", got, want))
}

// EntityWithNetworkError folds a failed remote lookup into an entity error.
func EntityWithNetworkError(cause error) *Error {
	return &Error{
		Code:    CodeNetworkError,
		Message: "Could not validate entity because a dependency was unreachable",
		Type:    NonRecoverable,
		Cause:   cause,
	}
}
