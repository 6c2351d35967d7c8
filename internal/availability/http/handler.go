package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/auth"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/availability"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/request"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/response"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/pkg/timeutil"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/professional"
)

type Handler struct {
	service       availability.Service
	professionals professional.Repository
	logger        *logrus.Logger
}

func NewHandler(service availability.Service, professionals professional.Repository, logger *logrus.Logger) *Handler {
	return &Handler{
		service:       service,
		professionals: professionals,
		logger:        logger,
	}
}

// currentProfessional resolves the caller's professional profile. Callers
// without one cannot manage slots.
func (h *Handler) currentProfessional(c *gin.Context) (*professional.Professional, error) {
	actor, ok := auth.GetActor(c)
	if !ok || actor.Role != auth.RoleProfessional {
		return nil, availability.ErrPermissionDenied
	}
	p, err := h.professionals.GetByUserID(c.Request.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, professional.ErrNotFound) {
			return nil, availability.ErrPermissionDenied
		}
		return nil, err
	}
	return p, nil
}

// ownedSlot loads a slot and checks that the caller owns it.
func (h *Handler) ownedSlot(c *gin.Context, id string) (*availability.Slot, error) {
	p, err := h.currentProfessional(c)
	if err != nil {
		return nil, err
	}
	slot, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if slot.ProfessionalID != p.ID {
		return nil, availability.ErrPermissionDenied
	}
	return slot, nil
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateSlotRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	p, err := h.currentProfessional(c)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	date, _ := timeutil.ParseDate(body.Date)
	slot, err := h.service.CreateSlot(c.Request.Context(), availability.CreateSlotRequest{
		ProfessionalID: p.ID,
		Date:           date,
		StartTime:      *body.StartTime,
		EndTime:        *body.EndTime,
	})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, NewSlotResponse(slot))
}

func (h *Handler) CreateBulk(c *gin.Context) {
	var body CreateBulkRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	dates, err := body.ResolveDates()
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	p, err := h.currentProfessional(c)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	result, err := h.service.CreateBulk(c.Request.Context(), availability.CreateBulkRequest{
		ProfessionalID: p.ID,
		Dates:          dates,
		StartTime:      *body.StartTime,
		EndTime:        *body.EndTime,
	})
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, NewBulkResponse(result))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid UUID", err)
		return
	}

	slot, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewSlotResponse(slot))
}

func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid UUID", err)
		return
	}

	var body UpdateSlotRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	if _, err := h.ownedSlot(c, uri.ID); err != nil {
		response.Error(c, h.logger, err)
		return
	}

	req := availability.UpdateSlotRequest{
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
	}
	if body.Date != nil {
		d, _ := timeutil.ParseDate(*body.Date)
		req.Date = &d
	}

	slot, err := h.service.UpdateSlot(c.Request.Context(), uri.ID, req)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, NewSlotResponse(slot))
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid UUID", err)
		return
	}

	if _, err := h.ownedSlot(c, uri.ID); err != nil {
		response.Error(c, h.logger, err)
		return
	}

	if err := h.service.DeleteSlot(c.Request.Context(), uri.ID); err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteOnDate(c *gin.Context) {
	var q DateQuery
	if err := c.ShouldBindQuery(&q); err != nil || q.Date == "" {
		response.BadRequest(c, "date query parameter is required", err)
		return
	}

	p, err := h.currentProfessional(c)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	date, _ := timeutil.ParseDate(q.Date)
	n, err := h.service.DeleteOpenSlotsOnDate(c.Request.Context(), p.ID, date)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *Handler) ListOpen(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid UUID", err)
		return
	}

	var q DateRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	from, _ := timeutil.ParseDate(q.From)
	to, _ := timeutil.ParseDate(q.To)
	slots, err := h.service.ListOpenSlots(c.Request.Context(), uri.ID, from, to)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.NewListResponse(NewSlotResponses(slots)))
}

func (h *Handler) List(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid UUID", err)
		return
	}

	var q DateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	var slots []*availability.Slot
	var err error
	if q.Date != "" {
		d, _ := timeutil.ParseDate(q.Date)
		slots, err = h.service.ListSlots(c.Request.Context(), uri.ID, &d)
	} else {
		slots, err = h.service.ListSlots(c.Request.Context(), uri.ID, nil)
	}
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.NewListResponse(NewSlotResponses(slots)))
}
