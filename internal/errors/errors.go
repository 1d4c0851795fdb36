package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a tabshelf error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrDuplicateKey      ErrorCode = "DUPLICATE_KEY"      // 409
	ErrDuplicatePosition ErrorCode = "DUPLICATE_POSITION" // 409
	ErrIDConflict        ErrorCode = "ID_CONFLICT"        // 409
	ErrConflict          ErrorCode = "CONFLICT"           // 409
	ErrRetentionExpired  ErrorCode = "RETENTION_EXPIRED"  // 410
	ErrOrphanedParent    ErrorCode = "ORPHANED_PARENT"    // 422
	ErrTransaction       ErrorCode = "TRANSACTION"        // 500
	ErrInternal          ErrorCode = "INTERNAL"           // 500
	ErrConnection        ErrorCode = "CONNECTION"         // 503
)

// ShelfError represents a structured error with code, status, and details.
type ShelfError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *ShelfError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ShelfError) Unwrap() error { return e.Err }

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ShelfError {
	return &ShelfError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewValidation creates a 400 error carrying per-field validation messages.
func NewValidation(fields map[string]string) *ShelfError {
	return &ShelfError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: "validation failed",
		Details: map[string]any{"fields": fields},
	}
}

// NewNotFound creates a 404 error for a missing entity.
func NewNotFound(kind, id string) *ShelfError {
	return &ShelfError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewDuplicateKey creates a 409 error for a primary key collision.
func NewDuplicateKey(kind, id string) *ShelfError {
	return &ShelfError{
		Code:    ErrDuplicateKey,
		Status:  409,
		Message: fmt.Sprintf("%s with id %q already exists", kind, id),
		Details: map[string]any{"kind": kind, "id": id, "constraint": "primary_key"},
	}
}

// NewDuplicatePosition creates a 409 error for a sibling position collision.
// parentField names the scoping column (workspaceId or groupId).
func NewDuplicatePosition(kind, parentField, parentID string, position int, occupant string) *ShelfError {
	details := map[string]any{
		"kind":       kind,
		"constraint": parentField + "+position",
		"parent_id":  parentID,
		"position":   position,
	}
	if occupant != "" {
		details["occupant_id"] = occupant
	}
	return &ShelfError{
		Code:    ErrDuplicatePosition,
		Status:  409,
		Message: fmt.Sprintf("position %d is already taken in %s %q", position, parentField, parentID),
		Details: details,
	}
}

// NewIDConflict creates a 409 error when a restore target id is already in use.
func NewIDConflict(kind, id string) *ShelfError {
	return &ShelfError{
		Code:    ErrIDConflict,
		Status:  409,
		Message: fmt.Sprintf("cannot restore %s: id %q is already in use", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *ShelfError {
	return &ShelfError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewRetentionExpired creates a 410 error for a tombstone past its retention window.
func NewRetentionExpired(id string, deletedAt int64) *ShelfError {
	return &ShelfError{
		Code:    ErrRetentionExpired,
		Status:  410,
		Message: fmt.Sprintf("deleted item %s is past the retention period and can only be purged", id),
		Details: map[string]any{"id": id, "deleted_at": deletedAt},
	}
}

// NewOrphanedParent creates a 422 error when a restore target's parent no longer exists.
func NewOrphanedParent(kind, id, parentKind, parentID string) *ShelfError {
	return &ShelfError{
		Code:    ErrOrphanedParent,
		Status:  422,
		Message: fmt.Sprintf("cannot restore %s %q: %s %q does not exist", kind, id, parentKind, parentID),
		Details: map[string]any{"kind": kind, "id": id, "parent_kind": parentKind, "parent_id": parentID},
	}
}

// NewTransaction creates a 500 error for a failed or aborted transaction.
// Callers should retry the whole operation.
func NewTransaction(err error) *ShelfError {
	msg := "transaction failed"
	if err != nil {
		msg = fmt.Sprintf("transaction failed: %v", err)
	}
	return &ShelfError{
		Code:    ErrTransaction,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// NewConnection creates a 503 error when the database cannot be opened.
func NewConnection(err error) *ShelfError {
	msg := "database unavailable"
	if err != nil {
		msg = err.Error()
	}
	return &ShelfError{
		Code:    ErrConnection,
		Status:  503,
		Message: msg,
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the cause is kept in Details for logging.
func NewInternal(err error) *ShelfError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &ShelfError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
		Err:     err,
	}
}

// As returns the ShelfError in err's chain, if any.
func As(err error) (*ShelfError, bool) {
	var sErr *ShelfError
	if stderrors.As(err, &sErr) {
		return sErr, true
	}
	return nil, false
}

// Is checks if an error is a ShelfError with the given code.
func Is(err error, code ErrorCode) bool {
	if sErr, ok := As(err); ok {
		return sErr.Code == code
	}
	return false
}
