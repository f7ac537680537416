package services

import (
	"errors"

	"github.com/anonto42/niche-communities/backend/internal/repositories"
)

var (
	// ErrNotFound is the repository sentinel, so wrapped store errors match it.
	ErrNotFound = repositories.ErrNotFound

	ErrAlreadyMember    = errors.New("user is already a member of this community")
	ErrNotMember        = errors.New("user is not a member of this community")
	ErrForbidden        = errors.New("not allowed to perform this action")
	ErrCannotRemoveSelf = errors.New("cannot remove yourself from your own community")
	ErrEmptyContent     = errors.New("content cannot be empty")
	ErrUnknownReaction  = errors.New("unknown reaction kind")
	ErrInvalidInput     = errors.New("invalid input")
)
