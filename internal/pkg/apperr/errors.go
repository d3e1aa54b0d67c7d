// Package apperr holds the error taxonomy shared by the complaint and
// notification domains. Handlers map these to HTTP codes with errors.As.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError is a missing or invalid field, e.g. resolving without proof.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Reason
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

// AuthorizationError means the actor's role may not perform Action.
type AuthorizationError struct {
	Role   string
	Action string
	Reason string
}

func (e *AuthorizationError) Error() string {
	msg := fmt.Sprintf("authorization error: role %q may not %s", e.Role, e.Action)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// PersistenceError wraps a store read or write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotFoundError is returned for point reads of unknown ids.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NotificationDeliveryError is non-fatal: it is logged at the dispatcher
// boundary and never returned to a lifecycle caller.
type NotificationDeliveryError struct {
	RecipientID string
	Type        string
	Stage       string
	Err         error
}

func (e *NotificationDeliveryError) Error() string {
	return fmt.Sprintf("notification delivery error: %s %s to %s: %v", e.Stage, e.Type, e.RecipientID, e.Err)
}

func (e *NotificationDeliveryError) Unwrap() error { return e.Err }

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func Forbidden(role, action, reason string) error {
	return &AuthorizationError{Role: role, Action: action, Reason: reason}
}

func Persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
