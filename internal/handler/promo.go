package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/service"
)

// Promos is the promo code surface used by PromoHandler.
// *service.PromoService satisfies it.
type Promos interface {
	Create(ctx context.Context, actor service.Actor, p service.PromoPayload) (*model.PromoCode, error)
	Update(ctx context.Context, actor service.Actor, id uint64, p service.PromoPayload) (*model.PromoCode, error)
	Delete(ctx context.Context, actor service.Actor, id uint64) error
	Get(ctx context.Context, actor service.Actor, id uint64) (*model.PromoCode, error)
	List(ctx context.Context, actor service.Actor) ([]*model.PromoCode, error)
	ListPublic(ctx context.Context, hotelID *uint64) ([]*model.PromoCode, error)
	Apply(ctx context.Context, req service.ApplyRequest) (*service.ApplyResult, error)
}

type PromoHandler struct {
	Promos Promos
}

func NewPromoHandler(p Promos) *PromoHandler { return &PromoHandler{Promos: p} }

type applyReq struct {
	Code     string  `json:"code"`
	Subtotal any     `json:"subtotal"`
	RoomID   *uint64 `json:"room_id"`
	HotelID  *uint64 `json:"hotel_id"`
}

func (h *PromoHandler) Create(c echo.Context) error {
	var p service.PromoPayload
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	promo, err := h.Promos.Create(ctx, actorFrom(c), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, promo)
}

func (h *PromoHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var p service.PromoPayload
	if err := c.Bind(&p); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	promo, err := h.Promos.Update(ctx, actorFrom(c), id, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, promo)
}

func (h *PromoHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Promos.Delete(ctx, actorFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PromoHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	promo, err := h.Promos.Get(ctx, actorFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, promo)
}

// List returns every code for admins and the own-hotel plus global codes
// for employees.
func (h *PromoHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Promos.List(ctx, actorFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	if list == nil {
		list = []*model.PromoCode{}
	}
	return c.JSON(http.StatusOK, list)
}

// ListPublic lists codes usable today, optionally for ?hotel_id=.
func (h *PromoHandler) ListPublic(c echo.Context) error {
	hotelID, ok := optionalID(c, "hotel_id")
	if !ok {
		return badRequest(c, "invalid hotel_id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Promos.ListPublic(ctx, hotelID)
	if err != nil {
		return respondError(c, err)
	}
	if list == nil {
		list = []*model.PromoCode{}
	}
	return c.JSON(http.StatusOK, list)
}

// Apply quotes the discount of a code for a subtotal.  It does not consume
// the code.
func (h *PromoHandler) Apply(c echo.Context) error {
	var req applyReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	subtotal, err := service.ParseAmount("subtotal", req.Subtotal)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Promos.Apply(ctx, service.ApplyRequest{
		Code:     req.Code,
		Subtotal: subtotal,
		RoomID:   req.RoomID,
		HotelID:  req.HotelID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
