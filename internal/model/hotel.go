package model

// Room is a read-only view of a row owned by the hotel/room CRUD layer.
// Only the columns promo targeting and checkout pricing need are mapped.
type Room struct {
	ID            uint64  // rooms.id
	HotelID       uint64  // rooms.hotel_id
	PricePerNight float64 // rooms.price_per_night
}
