package repositories

import (
	"errors"

	"github.com/lib/pq"
)

// Constraint outcomes the service layer translates into client-visible errors.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrAlreadyMember      = errors.New("user is already a member of this ONG")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrOngNotFound        = errors.New("ONG not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrAnimalNotFound     = errors.New("animal not found")
	ErrAnimalOwnerChanged = errors.New("animal moved to another ONG")
)

// PostgreSQL error codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const constraintMemberUserFK = "ong_members_user_id_fkey"

func pgError(err error) *pq.Error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr
	}
	return nil
}

func isUniqueViolation(err error) bool {
	pqErr := pgError(err)
	return pqErr != nil && string(pqErr.Code) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	pqErr := pgError(err)
	return pqErr != nil && string(pqErr.Code) == pgForeignKeyViolation
}
