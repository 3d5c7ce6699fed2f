package service

import (
	"errors"
	"fmt"

	"localchat/internal/domain"
)

// wrapStore translates a failure coming out of the record store into the
// user-facing error taxonomy. Taxonomy errors pass through with context;
// anything else is surfaced as a storage failure so raw engine errors never
// escape the managers.
func wrapStore(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrStorageUnavailable),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s (%v): %w", op, err, domain.ErrStorage)
	}
}
