package consultation

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/handler"
	"github.com/jwalitptl/consult-api/internal/middleware"
	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/service/booking"
	"github.com/jwalitptl/consult-api/internal/service/consultation"
)

type Handler struct {
	bookingSvc *booking.Service
	service    *consultation.Service
}

func NewHandler(bookingSvc *booking.Service, service *consultation.Service) *Handler {
	return &Handler{
		bookingSvc: bookingSvc,
		service:    service,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/providers/:id/consultations", h.CreateConsultation)

	consultations := r.Group("/consultations")
	{
		consultations.GET("", h.History)
		consultations.GET("/:id", h.GetConsultation)
		consultations.PATCH("/:id", h.UpdateStatus)
		consultations.POST("/:id/join", h.Join)
		consultations.POST("/:id/end", h.End)
		consultations.POST("/:id/feedback", h.SubmitFeedback)
	}
}

type createConsultationRequest struct {
	Type            string    `json:"type" binding:"required"`
	ScheduledAt     time.Time `json:"scheduled_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" binding:"required"`
}

func (h *Handler) CreateConsultation(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("VALIDATION_ERROR", "invalid provider ID"))
		return
	}
	clientID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("FORBIDDEN", "missing user identity"))
		return
	}

	var req createConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("VALIDATION_ERROR", err.Error()))
		return
	}

	booked, err := h.bookingSvc.Book(c.Request.Context(), &model.CreateBookingRequest{
		ProviderID:      providerID,
		ClientID:        clientID,
		Type:            req.Type,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(booked))
}

func (h *Handler) GetConsultation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("VALIDATION_ERROR", "invalid consultation ID"))
		return
	}

	consultation, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(consultation))
}

type updateStatusRequest struct {
	Status model.BookingStatus `json:"status" binding:"required"`
	Reason *string             `json:"reason"`
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("VALIDATION_ERROR", "invalid consultation ID"))
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("VALIDATION_ERROR", err.Error()))
		return
	}

	updated, err := h.service.SetStatus(c.Request.Context(), id, req.Status, req.Reason)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) Join(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("VALIDATION_ERROR", "invalid consultation ID"))
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("FORBIDDEN", "missing user identity"))
		return
	}

	result, err := h.service.Join(c.Request.Context(), id, userID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) End(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("VALIDATION_ERROR", "invalid consultation ID"))
		return
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("FORBIDDEN", "missing user identity"))
		return
	}

	ended, err := h.service.End(c.Request.Context(), id, userID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(ended))
}

func (h *Handler) SubmitFeedback(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("VALIDATION_ERROR", "invalid consultation ID"))
		return
	}
	clientID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("FORBIDDEN", "missing user identity"))
		return
	}

	var req model.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("VALIDATION_ERROR", err.Error()))
		return
	}

	updated, err := h.service.SubmitFeedback(c.Request.Context(), id, clientID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(updated))
}

func (h *Handler) History(c *gin.Context) {
	clientID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("FORBIDDEN", "missing user identity"))
		return
	}

	var status *model.BookingStatus
	if raw := c.Query("status"); raw != "" {
		s := model.BookingStatus(raw)
		status = &s
	}

	consultations, err := h.service.History(c.Request.Context(), clientID, status)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(consultations))
}
