package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"artmarket/internal/domain"
	"artmarket/internal/services"
	"artmarket/pkg/logger"
	"artmarket/pkg/money"
)

const maxImageBytes = 8 << 20

type ListingHandler struct {
	listings *services.ListingService
	log      logger.Logger
}

func NewListingHandler(listings *services.ListingService, log logger.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, log: log}
}

// Create accepts a multipart form: title, description, category,
// starting_price, end_time (RFC 3339), optional auction_start, and the image
// file. Artist role required (enforced on the route).
func (h *ListingHandler) Create(c echo.Context) error {
	user := currentUser(c)

	startingPrice, ok := money.Parse(c.FormValue("starting_price"))
	if !ok {
		return respondError(c, h.log, &domain.ValidationError{
			Field: "starting_price", Reason: "not a monetary amount"})
	}

	endTime, err := time.Parse(time.RFC3339, c.FormValue("end_time"))
	if err != nil {
		return respondError(c, h.log, &domain.ValidationError{
			Field: "end_time", Reason: "must be RFC 3339"})
	}

	var auctionStart *time.Time
	if v := c.FormValue("auction_start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return respondError(c, h.log, &domain.ValidationError{
				Field: "auction_start", Reason: "must be RFC 3339"})
		}
		auctionStart = &t
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return respondError(c, h.log, &domain.ValidationError{
			Field: "image", Reason: "required"})
	}
	if fileHeader.Size > maxImageBytes {
		return respondError(c, h.log, &domain.ValidationError{
			Field: "image", Reason: "too large"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, h.log, err)
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		return respondError(c, h.log, err)
	}

	listing, err := h.listings.Create(c.Request().Context(), services.CreateListingInput{
		OwnerID:       user.ID,
		Title:         c.FormValue("title"),
		Description:   c.FormValue("description"),
		Category:      c.FormValue("category"),
		StartingPrice: startingPrice,
		AuctionStart:  auctionStart,
		EndTime:       endTime,
		Image:         raw,
		ImageType:     fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, toListingResponse(listing))
}

func (h *ListingHandler) Get(c echo.Context) error {
	listing, err := h.listings.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toListingResponse(listing))
}

func (h *ListingHandler) List(c echo.Context) error {
	filter := domain.ListingFilter{
		Category:   c.QueryParam("category"),
		SearchText: c.QueryParam("q"),
	}
	listings, err := h.listings.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toListingResponses(listings))
}

func (h *ListingHandler) ListMine(c echo.Context) error {
	user := currentUser(c)
	listings, err := h.listings.ListByOwner(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toListingResponses(listings))
}

func (h *ListingHandler) Hide(c echo.Context) error {
	if err := h.listings.Hide(c.Request().Context(), c.Param("id"), currentUser(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ListingHandler) Unhide(c echo.Context) error {
	if err := h.listings.Unhide(c.Request().Context(), c.Param("id"), currentUser(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ListingHandler) Delete(c echo.Context) error {
	if err := h.listings.Delete(c.Request().Context(), c.Param("id"), currentUser(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
