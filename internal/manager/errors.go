package manager

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound means no record matches the given identity.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyMonitored means a live record already exists for the
	// (external id, platform) pair. Registrations are rejected, not merged.
	ErrAlreadyMonitored = errors.New("record already monitored for this platform")

	// ErrInvalidURL means the source URL is not a well-formed absolute URL.
	ErrInvalidURL = errors.New("invalid source url")

	// ErrInvalidPlatform means the platform is not one of the supported values.
	ErrInvalidPlatform = errors.New("unsupported platform")

	// ErrConfirmationRequired guards removal against accidental destructive calls.
	ErrConfirmationRequired = errors.New("removal requires explicit confirmation")
)

const uniqueViolation = pq.ErrorCode("23505")

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation. The pre-registration existence check is only a fast-path
// rejection; the unique constraint is the real guarantee, and this maps its
// firing back to ErrAlreadyMonitored.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
