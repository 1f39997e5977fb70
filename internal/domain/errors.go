package domain

import (
	"fmt"
	"strings"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ConflictError represents a write rejected by current state: a duplicate
// federation code, or a delete blocked by an existing reference.
type ConflictError struct {
	Resource string
	Reason   string
}

func (e ConflictError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s conflict", e.Resource)
	}
	return fmt.Sprintf("%s: %s", e.Resource, e.Reason)
}

// Is enables errors.Is matching on ConflictError.
func (e ConflictError) Is(target error) bool {
	_, ok := target.(ConflictError)
	if ok {
		return true
	}
	_, ok = target.(*ConflictError)
	return ok
}

// ErrConflict is the sentinel error for state conflicts.
var ErrConflict = ConflictError{}

// MembershipError reports a federation member set referencing data models
// that do not exist or are not yet released. Both slices keep the order of
// the requesting call so the caller can report actionable detail.
type MembershipError struct {
	Missing    []string `json:"missing,omitempty"`
	Unreleased []string `json:"unreleased,omitempty"`
}

func (e MembershipError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("unknown data models: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Unreleased) > 0 {
		parts = append(parts, fmt.Sprintf("unreleased data models: %s", strings.Join(e.Unreleased, ", ")))
	}
	if len(parts) == 0 {
		return "invalid federation membership"
	}
	return strings.Join(parts, "; ")
}

// Is lets MembershipError match both its own type and ErrConflict, since a
// membership failure is a state conflict from the caller's point of view.
func (e MembershipError) Is(target error) bool {
	if _, ok := target.(MembershipError); ok {
		return true
	}
	if _, ok := target.(*MembershipError); ok {
		return true
	}
	return ErrConflict.Is(target)
}

// ValidationError represents a malformed input document, typically as
// reported by the external schema validator.
type ValidationError struct {
	Detail string
}

func (e ValidationError) Error() string {
	if e.Detail == "" {
		return "invalid document"
	}
	return fmt.Sprintf("invalid document: %s", e.Detail)
}

// Is enables errors.Is matching on ValidationError.
func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

// ErrValidation is the sentinel error for document validation failures.
var ErrValidation = ValidationError{}

// UpstreamError represents an unreachable or failing external collaborator,
// such as the schema converter.
type UpstreamError struct {
	Service string
	Cause   error
}

func (e UpstreamError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s unavailable", e.Service)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Cause)
}

func (e UpstreamError) Unwrap() error { return e.Cause }

// Is enables errors.Is matching on UpstreamError.
func (e UpstreamError) Is(target error) bool {
	_, ok := target.(UpstreamError)
	if ok {
		return true
	}
	_, ok = target.(*UpstreamError)
	return ok
}

// ErrUpstream is the sentinel error for unavailable collaborators.
var ErrUpstream = UpstreamError{}

// UnauthorizedError represents a capability check failure.
type UnauthorizedError struct {
	Capability string
}

func (e UnauthorizedError) Error() string {
	if e.Capability == "" {
		return "unauthorized"
	}
	return fmt.Sprintf("requires %s", e.Capability)
}

// Is enables errors.Is matching on UnauthorizedError.
func (e UnauthorizedError) Is(target error) bool {
	_, ok := target.(UnauthorizedError)
	if ok {
		return true
	}
	_, ok = target.(*UnauthorizedError)
	return ok
}

// ErrUnauthorized is the sentinel error for capability failures.
var ErrUnauthorized = UnauthorizedError{}
