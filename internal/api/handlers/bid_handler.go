package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"artmarket/internal/domain"
	"artmarket/internal/services"
	"artmarket/pkg/logger"
	"artmarket/pkg/money"
)

type BidHandler struct {
	bids *services.BidService
	log  logger.Logger
}

func NewBidHandler(bids *services.BidService, log logger.Logger) *BidHandler {
	return &BidHandler{bids: bids, log: log}
}

type placeBidRequest struct {
	Amount string `json:"amount"`
}

// Place runs the bid acceptance protocol for the authenticated caller. The
// amount crosses the wire as text and is canonicalized here, never as a
// float.
func (h *BidHandler) Place(c echo.Context) error {
	user := currentUser(c)
	listingID := c.Param("id")

	var req placeBidRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	amount, ok := money.Parse(req.Amount)
	if !ok {
		return respondError(c, h.log, &domain.ValidationError{
			Field: "amount", Reason: "not a monetary amount"})
	}

	bid, err := h.bids.PlaceBid(c.Request().Context(), listingID, user.ID, amount)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, toBidResponse(bid))
}

func (h *BidHandler) ListForListing(c echo.Context) error {
	bids, err := h.bids.BidsForListing(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toBidResponses(bids))
}

func (h *BidHandler) ListMine(c echo.Context) error {
	user := currentUser(c)
	bids, err := h.bids.BidsForBidder(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toBidResponses(bids))
}
