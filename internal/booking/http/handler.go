package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/auth"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/booking"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/request"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/response"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/timeutil"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/professional"
)

type Handler struct {
	service       booking.Service
	queries       booking.QueryService
	professionals professional.Repository
	logger        *logrus.Logger
}

func NewHandler(
	service booking.Service,
	queries booking.QueryService,
	professionals professional.Repository,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		service:       service,
		queries:       queries,
		professionals: professionals,
		logger:        logger,
	}
}

func (h *Handler) actor(c *gin.Context) (auth.Actor, bool) {
	actor, ok := auth.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return actor, ok
}

// professionalID resolves the caller's own professional profile.
func (h *Handler) professionalID(c *gin.Context, actor auth.Actor) (string, error) {
	p, err := h.professionals.GetByUserID(c.Request.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, professional.ErrNotFound) {
			return "", booking.ErrUnauthorized
		}
		return "", err
	}
	return p.ID, nil
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	actor, ok := h.actor(c)
	if !ok {
		return
	}

	b, err := h.service.Create(c.Request.Context(), actor, booking.CreateRequest{
		ProfessionalID: body.ProfessionalID,
		SlotID:         body.SlotID,
		ServiceDetails: body.ServiceDetails,
	})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid UUID", err)
		return
	}

	actor, ok := h.actor(c)
	if !ok {
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), actor, uri.ID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid UUID", err)
		return
	}

	var body UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	actor, ok := h.actor(c)
	if !ok {
		return
	}

	b, err := h.service.UpdateStatus(c.Request.Context(), actor, uri.ID, body.Status)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Cancel(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid UUID", err)
		return
	}

	actor, ok := h.actor(c)
	if !ok {
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), actor, uri.ID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) UpdateDetails(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid UUID", err)
		return
	}

	var body UpdateDetailsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	actor, ok := h.actor(c)
	if !ok {
		return
	}

	b, err := h.service.UpdateDetails(c.Request.Context(), actor, uri.ID, body.ServiceDetails)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) ListMine(c *gin.Context) {
	var q ListBookingsRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	q.Normalize()

	actor, ok := h.actor(c)
	if !ok {
		return
	}

	bookings, total, err := h.queries.ListByClient(c.Request.Context(), actor.ID, q.Status, q.Page, q.PageSize)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPageResponse(NewBookingResponses(bookings), q.Page, q.PageSize, total))
}

func (h *Handler) ListForProfessional(c *gin.Context) {
	var q ListBookingsRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	q.Normalize()

	actor, ok := h.actor(c)
	if !ok {
		return
	}

	proID, err := h.professionalID(c, actor)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	bookings, total, err := h.queries.ListByProfessional(c.Request.Context(), proID, q.Status, q.Page, q.PageSize)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPageResponse(NewBookingResponses(bookings), q.Page, q.PageSize, total))
}

func (h *Handler) ListByDateRange(c *gin.Context) {
	var q DateRangeRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	actor, ok := h.actor(c)
	if !ok {
		return
	}

	party := booking.PartyClient
	id := actor.ID
	if q.As == string(booking.PartyProfessional) {
		proID, err := h.professionalID(c, actor)
		if err != nil {
			response.Error(c, h.logger, err)
			return
		}
		party, id = booking.PartyProfessional, proID
	}

	from, _ := timeutil.ParseDate(q.From)
	to, _ := timeutil.ParseDate(q.To)
	bookings, err := h.queries.ListByDateRange(c.Request.Context(), party, id, from, to)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.NewListResponse(NewBookingResponses(bookings)))
}

func (h *Handler) SlotBooked(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid UUID", err)
		return
	}

	booked, err := h.queries.IsSlotBooked(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"slot_id": uri.ID, "booked": booked})
}
