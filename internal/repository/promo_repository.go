package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// PromoRepo is the data access layer for the `promo_codes` table.
type PromoRepo struct{ DB *sql.DB }

func NewPromoRepo(db *sql.DB) *PromoRepo { return &PromoRepo{DB: db} }

// ErrPromoCodeExists is returned when the code string is already taken.
var ErrPromoCodeExists = errors.New("promo code already exists")

const promoColumns = "id, code, discount_type, discount_value, start_date, end_date, usage_limit, usage_count, active, hotel_id"

// PromoFilter narrows List.  A nil HotelID lists every code.  With a
// HotelID set, codes of that hotel are returned, plus hotel-agnostic codes
// when IncludeGlobal is true.
type PromoFilter struct {
	HotelID       *uint64
	IncludeGlobal bool
}

// Create inserts p and fills in its ID.  UsageCount always starts at zero.
func (r *PromoRepo) Create(ctx context.Context, p *model.PromoCode) error {
	const q = `INSERT INTO promo_codes
	           (code, discount_type, discount_value, start_date, end_date, usage_limit, usage_count, active, hotel_id)
	           VALUES (?,?,?,?,?,?,0,?,?)`
	res, err := r.DB.ExecContext(ctx, q,
		p.Code, string(p.DiscountType), p.DiscountValue, p.StartDate, p.EndDate,
		nullableLimit(p.UsageLimit), p.Active, nullableID(p.HotelID))
	if err != nil {
		if isDuplicateKey(err) {
			return errors.Join(ErrPromoCodeExists, ErrConflict)
		}
		return persistErr("insert promo code", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return persistErr("insert promo code", err)
	}
	p.ID = uint64(id)
	p.UsageCount = 0
	return nil
}

// GetByID returns ErrNotFound when no row matches.
func (r *PromoRepo) GetByID(ctx context.Context, id uint64) (*model.PromoCode, error) {
	return scanPromo(r.DB.QueryRowContext(ctx,
		"SELECT "+promoColumns+" FROM promo_codes WHERE id=? LIMIT 1", id))
}

// GetByCode looks a code up by its exact (trimmed) string.
func (r *PromoRepo) GetByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	return scanPromo(r.DB.QueryRowContext(ctx,
		"SELECT "+promoColumns+" FROM promo_codes WHERE code=? LIMIT 1", strings.TrimSpace(code)))
}

func (r *PromoRepo) List(ctx context.Context, f PromoFilter) ([]*model.PromoCode, error) {
	q := "SELECT " + promoColumns + " FROM promo_codes"
	var args []any
	if f.HotelID != nil {
		if f.IncludeGlobal {
			q += " WHERE (hotel_id = ? OR hotel_id IS NULL)"
		} else {
			q += " WHERE hotel_id = ?"
		}
		args = append(args, *f.HotelID)
	}
	q += " ORDER BY id"
	return r.query(ctx, q, args...)
}

// ListActive returns codes a guest could use today at hotelID: enabled,
// inside their date window, not exhausted, and either global or scoped to
// that hotel.  A nil hotelID lists only global codes.
func (r *PromoRepo) ListActive(ctx context.Context, hotelID *uint64, today model.Date) ([]*model.PromoCode, error) {
	q := `SELECT ` + promoColumns + ` FROM promo_codes
	      WHERE active = 1 AND start_date <= ? AND end_date >= ?
	        AND (usage_limit IS NULL OR usage_count < usage_limit)`
	args := []any{today, today}
	if hotelID != nil {
		q += " AND (hotel_id IS NULL OR hotel_id = ?)"
		args = append(args, *hotelID)
	} else {
		q += " AND hotel_id IS NULL"
	}
	q += " ORDER BY id"
	return r.query(ctx, q, args...)
}

// Update overwrites the editable columns of p.  usage_count is never
// touched here; only Redeem moves it.
func (r *PromoRepo) Update(ctx context.Context, p *model.PromoCode) error {
	const q = `UPDATE promo_codes
	           SET code=?, discount_type=?, discount_value=?, start_date=?, end_date=?,
	               usage_limit=?, active=?, hotel_id=?, updated_at=CURRENT_TIMESTAMP
	           WHERE id=?`
	res, err := r.DB.ExecContext(ctx, q,
		p.Code, string(p.DiscountType), p.DiscountValue, p.StartDate, p.EndDate,
		nullableLimit(p.UsageLimit), p.Active, nullableID(p.HotelID), p.ID)
	if err != nil {
		if isDuplicateKey(err) {
			return errors.Join(ErrPromoCodeExists, ErrConflict)
		}
		return persistErr("update promo code", err)
	}
	// MySQL reports 0 affected rows for an update that changes nothing, so
	// existence is checked separately.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *PromoRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM promo_codes WHERE id=?", id)
	if err != nil {
		return persistErr("delete promo code", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("delete promo code", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Redeem consumes one use of the code.  The increment and the limit check
// are a single conditional update, so concurrent redemptions can never push
// usage_count past usage_limit.
func (r *PromoRepo) Redeem(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE promo_codes SET usage_count = usage_count + 1
		 WHERE id=? AND (usage_limit IS NULL OR usage_count < usage_limit)`, id)
	if err != nil {
		return persistErr("redeem promo code", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("redeem promo code", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrUsageLimitReached
}

func (r *PromoRepo) query(ctx context.Context, q string, args ...any) ([]*model.PromoCode, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, persistErr("list promo codes", err)
	}
	defer rows.Close()

	out := []*model.PromoCode{}
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list promo codes", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPromo(s scanner) (*model.PromoCode, error) {
	var (
		p     model.PromoCode
		dtype string
		limit sql.NullInt64
		hotel sql.NullInt64
	)
	err := s.Scan(&p.ID, &p.Code, &dtype, &p.DiscountValue, &p.StartDate, &p.EndDate,
		&limit, &p.UsageCount, &p.Active, &hotel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("load promo code", err)
	}
	p.DiscountType = model.DiscountType(dtype)
	if limit.Valid {
		v := limit.Int64
		p.UsageLimit = &v
	}
	p.HotelID = idPtr(hotel)
	return &p, nil
}

func nullableLimit(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}
