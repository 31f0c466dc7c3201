// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource outside their scope. Handlers translate this into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write collides with existing state, such
// as a duplicate username or promo code. Handlers translate this into 409.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when the referenced row does not exist.
var ErrNotFound = errors.New("not found")

// ErrPersistence wraps failures of the database itself.  Handlers turn it
// into an opaque 500 and log the wrapped cause.
var ErrPersistence = errors.New("persistence failure")

// ErrTokenInvalid covers an unknown, revoked or expired refresh token.
// The three cases are deliberately indistinguishable.
var ErrTokenInvalid = errors.New("refresh token invalid")

// ErrUsageLimitReached is returned when a capped promo code cannot be
// redeemed again.
var ErrUsageLimitReached = errors.New("promo code usage limit reached")

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// isDuplicateKey recognises unique-key violations from MySQL (1062) and
// from SQLite, which the repository tests run against.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
