package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

// rowQueryer is satisfied by both *sql.DB and *sql.Tx.
type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UserRepo is the credential store backed by the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// ErrUsernameExists is returned by Create for a taken username.
var ErrUsernameExists = errors.New("username already exists")

const userColumns = "id, username, password_hash, role, hotel_id"

// Create hashes password and inserts the user, returning its ID.
func (r *UserRepo) Create(ctx context.Context, username, password string, role model.Role, hotelID *uint64, cost int) (uint64, error) {
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, role, hotel_id) VALUES (?,?,?,?)",
		username, hash, string(role), nullableID(hotelID))
	if err != nil {
		if isDuplicateKey(err) {
			return 0, errors.Join(ErrUsernameExists, ErrConflict)
		}
		return 0, persistErr("insert user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, persistErr("insert user", err)
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by username.  ErrNotFound when absent.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1",
		strings.TrimSpace(username)))
}

// GetByID fetches a user by id.  ErrNotFound when absent.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return getUserByID(ctx, r.DB, id)
}

func getUserByID(ctx context.Context, q rowQueryer, id uint64) (*model.User, error) {
	return scanUser(q.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u     model.User
		role  string
		hotel sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &hotel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, persistErr("load user", err)
	}
	parsed, ok := model.ParseRole(role)
	if !ok {
		// Unknown roles get the least privileged one.
		parsed = model.RoleUser
	}
	u.Role = parsed
	u.HotelID = idPtr(hotel)
	return &u, nil
}

func nullableID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}

func idPtr(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}
