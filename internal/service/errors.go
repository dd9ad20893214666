package service

import (
	"errors"
	"sort"
	"strings"

	"github.com/Triostacksoftware/HSCODE-sub000/internal/repository"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrNotMember            = errors.New("not a member of this group")
	ErrPremiumRequired      = errors.New("direct chat requires a premium plan")
	ErrInvalidTransition    = errors.New("lead is not in a state that allows this action")
	ErrStorageNotConfigured = errors.New("storage not configured")
	ErrValidation           = errors.New("validation failed")
)

// ValidationError carries per-field messages keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// notFoundOr maps gorm's missing-record error to ErrNotFound.
func notFoundOr(err error) error {
	if repository.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

// transitionErr maps a lost guarded update to ErrInvalidTransition.
func transitionErr(err error) error {
	if errors.Is(err, repository.ErrStaleTransition) {
		return ErrInvalidTransition
	}
	return notFoundOr(err)
}
