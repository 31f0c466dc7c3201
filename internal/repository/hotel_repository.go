package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// HotelRepo gives read-only access to hotels and rooms.  The tables are
// managed elsewhere; promo validation and checkout only need an existence
// check and a room's hotel and price.
type HotelRepo struct{ DB *sql.DB }

func NewHotelRepo(db *sql.DB) *HotelRepo { return &HotelRepo{DB: db} }

// Exists reports whether a hotel with the given id is present.
func (r *HotelRepo) Exists(ctx context.Context, hotelID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM hotels WHERE id=? LIMIT 1", hotelID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, persistErr("check hotel", err)
	}
	return true, nil
}

// Room returns ErrNotFound for an unknown room id.
func (r *HotelRepo) Room(ctx context.Context, roomID uint64) (*model.Room, error) {
	var rm model.Room
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, hotel_id, price_per_night FROM rooms WHERE id=? LIMIT 1", roomID).
		Scan(&rm.ID, &rm.HotelID, &rm.PricePerNight)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("load room", err)
	}
	return &rm, nil
}
