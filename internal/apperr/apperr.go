// Package apperr defines the error taxonomy shared by the service layer and
// its transports. Every error carries a stable code and a short message.
package apperr

import (
	"errors"
	"fmt"
)

// Kind groups errors by how callers should react to them.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindInvalidInput Kind = "invalid_input"
	KindConflict     Kind = "conflict"
	KindUpstream     Kind = "upstream_failure"
	KindInternal     Kind = "internal"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// New builds an Error without a cause.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on code, so a sentinel matches any error built from it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMessage returns a copy of e with a more specific message.
func (e *Error) WithMessage(message string) *Error {
	out := *e
	out.Message = message
	return &out
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	out := *e
	out.Err = cause
	return &out
}

var (
	ErrGroupNotFound   = New(KindNotFound, "group_not_found", "group not found")
	ErrMessageNotFound = New(KindNotFound, "message_not_found", "message not found")
	ErrUserNotFound    = New(KindNotFound, "user_not_found", "user not found")
	ErrTargetNotFound  = New(KindNotFound, "target_not_found", "conversation target not found")

	ErrForbidden = New(KindForbidden, "forbidden", "not allowed")

	ErrInvalidInput    = New(KindInvalidInput, "invalid_input", "invalid input")
	ErrInvalidImage    = New(KindInvalidInput, "invalid_image", "invalid image format")
	ErrEmptyMessage    = New(KindInvalidInput, "empty_message", "message needs text or an image")
	ErrInvalidName     = New(KindInvalidInput, "invalid_name", "group name is required")
	ErrEmptyMembership = New(KindInvalidInput, "empty_membership", "at least one member is required")
	ErrInvalidMembers  = New(KindInvalidInput, "invalid_members", "one or more members are invalid")
	ErrInvalidMember   = New(KindInvalidInput, "invalid_member", "member does not exist")
	ErrSelfMessage     = New(KindInvalidInput, "self_message", "cannot message yourself")

	ErrAlreadyMember       = New(KindConflict, "already_member", "member already in group")
	ErrNotMember           = New(KindConflict, "not_member", "user is not a member of this group")
	ErrCannotRemoveCreator = New(KindConflict, "cannot_remove_creator", "cannot remove the group creator")
	ErrCreatorCannotLeave  = New(KindConflict, "creator_cannot_leave", "creator cannot leave the group")

	ErrStorage      = New(KindUpstream, "storage_failure", "storage unavailable")
	ErrMediaUpload  = New(KindUpstream, "media_upload_failed", "image upload failed")
	ErrAuthUpstream = New(KindUpstream, "auth_unavailable", "auth service unavailable")
)

// Forbidden returns a forbidden error with a specific message.
func Forbidden(message string) *Error {
	return ErrForbidden.WithMessage(message)
}

// Storage classifies an unexpected repository failure.
func Storage(cause error) *Error {
	return ErrStorage.Wrap(cause)
}

// As extracts an *Error from err, classifying unknown errors as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: KindInternal, Code: "internal", Message: "internal error", Err: err}
}

// KindOf returns the kind of err.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return As(err).Kind
}
