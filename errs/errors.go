// Package errs provides the error taxonomy shared by all repositories.
// Every failure reported by a public operation is a ClassifiedError, so callers
// can branch on its class with the Is* helpers instead of matching messages.
package errs

import (
	"errors"
	"fmt"
)

// Class represents the classification of a repository failure.
type Class int

const (
	// NotFound is returned when a class, object or application entity is absent.
	NotFound Class = iota
	// InvalidArgument covers malformed input and mandatory/unique constraint violations.
	InvalidArgument
	// OperationNotPermitted covers structural rule violations.
	OperationNotPermitted
	// NotAuthorized is returned on session or IP mismatches.
	NotAuthorized
	// BusinessRuleViolation is returned when the business rule engine rejects an operation.
	BusinessRuleViolation
)

// String returns the string representation of the Class.
func (c Class) String() string {
	switch c {
	case NotFound:
		return "not found"
	case InvalidArgument:
		return "invalid argument"
	case OperationNotPermitted:
		return "operation not permitted"
	case NotAuthorized:
		return "not authorized"
	case BusinessRuleViolation:
		return "business rule violation"
	default:
		return "unknown"
	}
}

// Entity narrows down NotFound errors.
type Entity int

const (
	NoEntity Entity = iota
	ObjectEntity
	MetadataEntity
	ApplicationEntity
)

// ClassifiedError wraps an error with its classification.
type ClassifiedError struct {
	Class   Class
	Entity  Entity
	Err     error
	Message string
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		if ce.Err != nil {
			return ce.Message + ": " + ce.Err.Error()
		}
		return ce.Message
	}
	if ce.Err != nil {
		return ce.Err.Error()
	}
	return ce.Class.String()
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

func newf(class Class, entity Entity, format string, args ...any) error {
	return &ClassifiedError{Class: class, Entity: entity, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an arbitrary error. A nil error stays nil.
func Wrap(class Class, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: class, Err: err, Message: fmt.Sprintf(format, args...)}
}

// ObjectNotFound reports a missing inventory object, pool or template element.
func ObjectNotFound(className, id string) error {
	if className == "" {
		return newf(NotFound, ObjectEntity, "object with id %s could not be found", id)
	}
	return newf(NotFound, ObjectEntity, "object of class %s with id %s could not be found", className, id)
}

// MetadataNotFound reports a missing class or attribute definition.
func MetadataNotFound(format string, args ...any) error {
	return newf(NotFound, MetadataEntity, format, args...)
}

// ApplicationObjectNotFound reports a missing application entity (user, group, view, ...).
func ApplicationObjectNotFound(kind, id string) error {
	return newf(NotFound, ApplicationEntity, "%s with id %s could not be found", kind, id)
}

// InvalidArgumentf creates an InvalidArgument error.
func InvalidArgumentf(format string, args ...any) error {
	return newf(InvalidArgument, NoEntity, format, args...)
}

// NotPermittedf creates an OperationNotPermitted error.
func NotPermittedf(format string, args ...any) error {
	return newf(OperationNotPermitted, NoEntity, format, args...)
}

// NotAuthorizedf creates a NotAuthorized error.
func NotAuthorizedf(format string, args ...any) error {
	return newf(NotAuthorized, NoEntity, format, args...)
}

// BusinessRulef creates a BusinessRuleViolation error.
func BusinessRulef(format string, args ...any) error {
	return newf(BusinessRuleViolation, NoEntity, format, args...)
}

// ClassOf returns the class of a classified error.
func ClassOf(err error) (Class, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	return 0, false
}

func is(err error, class Class, entity Entity) bool {
	var ce *ClassifiedError
	if !errors.As(err, &ce) || ce.Class != class {
		return false
	}
	return entity == NoEntity || ce.Entity == entity
}

// IsNotFound checks for any NotFound error.
func IsNotFound(err error) bool { return is(err, NotFound, NoEntity) }

// IsObjectNotFound checks for a missing inventory object.
func IsObjectNotFound(err error) bool { return is(err, NotFound, ObjectEntity) }

// IsMetadataNotFound checks for a missing class or attribute.
func IsMetadataNotFound(err error) bool { return is(err, NotFound, MetadataEntity) }

// IsApplicationObjectNotFound checks for a missing application entity.
func IsApplicationObjectNotFound(err error) bool { return is(err, NotFound, ApplicationEntity) }

func IsInvalidArgument(err error) bool { return is(err, InvalidArgument, NoEntity) }

func IsNotPermitted(err error) bool { return is(err, OperationNotPermitted, NoEntity) }

func IsNotAuthorized(err error) bool { return is(err, NotAuthorized, NoEntity) }

func IsBusinessRuleViolation(err error) bool { return is(err, BusinessRuleViolation, NoEntity) }
