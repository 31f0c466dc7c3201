package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-booking/internal/logger"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

// TokenRepo is the refresh token store.  Raw tokens are random UUIDs handed
// to the client; the table keeps only their SHA-256 hash.  A user has at
// most one active row: every issue revokes the user's previous tokens in
// the same transaction as the insert.
type TokenRepo struct {
	DB  *sql.DB
	TTL time.Duration
	Now func() time.Time

	// beforeClaim runs inside Rotate between the read of the old row and
	// its claim.  Tests use it to interleave a competing rotation.
	beforeClaim func(ctx context.Context, tx *sql.Tx) error
}

func NewTokenRepo(db *sql.DB, ttl time.Duration) *TokenRepo {
	return &TokenRepo{DB: db, TTL: ttl, Now: time.Now}
}

// Issued is a freshly minted refresh token.
type Issued struct {
	Token     string
	ExpiresAt time.Time
}

// Rotation is the outcome of a successful Rotate.
type Rotation struct {
	Issued
	User model.User
}

// DATETIME columns hold whole seconds.
func (r *TokenRepo) now() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return now().UTC().Truncate(time.Second)
}

// Issue revokes every token of userID and stores a new one.
func (r *TokenRepo) Issue(ctx context.Context, userID uint64) (Issued, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Issued{}, persistErr("begin issue", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	issued, err := r.issueTx(ctx, tx, userID)
	if err != nil {
		return Issued{}, err
	}
	if err := tx.Commit(); err != nil {
		return Issued{}, persistErr("commit issue", err)
	}
	committed = true
	return issued, nil
}

func (r *TokenRepo) issueTx(ctx context.Context, tx *sql.Tx, userID uint64) (Issued, error) {
	if _, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_revoked=1 WHERE user_id=? AND is_revoked=0", userID); err != nil {
		return Issued{}, persistErr("revoke previous tokens", err)
	}
	raw := uuid.NewString()
	exp := r.now().Add(r.TTL)
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at, is_revoked) VALUES (?,?,?,0)",
		userID, utils.HashRefreshRaw(raw), exp); err != nil {
		return Issued{}, persistErr("insert refresh token", err)
	}
	return Issued{Token: raw, ExpiresAt: exp}, nil
}

// Validate returns the token row only if it exists, is not revoked and has
// not expired.  Every other outcome is ErrTokenInvalid.
func (r *TokenRepo) Validate(ctx context.Context, raw string) (*model.RefreshToken, error) {
	t, err := loadToken(ctx, r.DB, utils.HashRefreshRaw(raw))
	if err != nil {
		return nil, err
	}
	if !t.Active(r.now()) {
		return nil, ErrTokenInvalid
	}
	return t, nil
}

// GetUser resolves a valid token to its owner.
func (r *TokenRepo) GetUser(ctx context.Context, raw string) (*model.User, error) {
	t, err := r.Validate(ctx, raw)
	if err != nil {
		return nil, err
	}
	u, err := getUserByID(ctx, r.DB, t.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrTokenInvalid
	}
	return u, err
}

// Revoke marks a single token revoked.  Unknown tokens are not an error.
func (r *TokenRepo) Revoke(ctx context.Context, raw string) error {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_revoked=1 WHERE token_hash=? AND is_revoked=0",
		utils.HashRefreshRaw(raw)); err != nil {
		return persistErr("revoke refresh token", err)
	}
	return nil
}

// RevokeAll revokes every token of userID.
func (r *TokenRepo) RevokeAll(ctx context.Context, userID uint64) error {
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_revoked=1 WHERE user_id=? AND is_revoked=0", userID); err != nil {
		return persistErr("revoke user tokens", err)
	}
	return nil
}

// Rotate exchanges raw for a new token of the same user.  The old row is
// claimed with a conditional update, so of two concurrent rotations of the
// same token exactly one sees a changed row; the other gets
// ErrTokenInvalid.  If anything after the claim fails the transaction is
// rolled back and the old token is then revoked on its own, leaving the
// client with no usable token rather than a replayable one.
func (r *TokenRepo) Rotate(ctx context.Context, raw string) (*Rotation, error) {
	hash := utils.HashRefreshRaw(raw)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("begin rotate", err)
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback()
		}
	}()

	old, err := loadToken(ctx, tx, hash)
	if err != nil {
		return nil, err
	}
	if !old.Active(r.now()) {
		return nil, ErrTokenInvalid
	}

	if r.beforeClaim != nil {
		if err := r.beforeClaim(ctx, tx); err != nil {
			return nil, err
		}
	}
	claimed, err := claimTx(ctx, tx, hash)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrTokenInvalid
	}

	u, err := getUserByID(ctx, tx, old.UserID)
	if errors.Is(err, ErrNotFound) {
		err = ErrTokenInvalid
	}
	var issued Issued
	if err == nil {
		issued, err = r.issueTx(ctx, tx, old.UserID)
	}
	if err == nil {
		if cerr := tx.Commit(); cerr != nil {
			err = persistErr("commit rotate", cerr)
		}
	} else {
		_ = tx.Rollback()
	}
	done = true
	if err != nil {
		r.revokeHash(ctx, hash)
		return nil, err
	}
	return &Rotation{Issued: issued, User: *u}, nil
}

// claimTx revokes the row for hash only if it is still live and reports
// whether this call was the one that revoked it.  The load in Rotate is
// only a pre-check; this conditional update decides the winner.
func claimTx(ctx context.Context, tx *sql.Tx, hash string) (bool, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET is_revoked=1 WHERE token_hash=? AND is_revoked=0", hash)
	if err != nil {
		return false, persistErr("claim refresh token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, persistErr("claim refresh token", err)
	}
	return n == 1, nil
}

// revokeHash runs outside any transaction and ignores cancellation.
func (r *TokenRepo) revokeHash(ctx context.Context, hash string) {
	if _, err := r.DB.ExecContext(context.WithoutCancel(ctx),
		"UPDATE refresh_tokens SET is_revoked=1 WHERE token_hash=?", hash); err != nil {
		logger.WithContext(ctx).Error("revoke after failed rotation", "error", err)
	}
}

// CleanupExpired deletes revoked and expired rows and returns how many.
func (r *TokenRepo) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE is_revoked=1 OR expires_at <= ?", r.now())
	if err != nil {
		return 0, persistErr("cleanup refresh tokens", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, persistErr("cleanup refresh tokens", err)
	}
	return n, nil
}

func loadToken(ctx context.Context, q rowQueryer, hash string) (*model.RefreshToken, error) {
	var t model.RefreshToken
	err := q.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, is_revoked FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		hash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.IsRevoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, persistErr("load refresh token", err)
	}
	return &t, nil
}
