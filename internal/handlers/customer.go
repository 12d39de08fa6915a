package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coverbridge/coverbridge-backend/internal/logger"
	"github.com/coverbridge/coverbridge-backend/internal/services"
)

type CustomerHandler struct {
	log             *logger.Logger
	customerService services.CustomerService
}

func NewCustomerHandler(log *logger.Logger, customerService services.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		log:             log.With("handler", "CustomerHandler"),
		customerService: customerService,
	}
}

// GET /api/customers/:id
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid customer id"))
		return
	}
	customer, err := h.customerService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	}
	RespondOK(c, gin.H{"success": true, "data": customer})
}

// GET /api/customers/:id/policies
func (h *CustomerHandler) ListCustomerPolicies(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid customer id"))
		return
	}
	policies, err := h.customerService.ListPolicies(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", fmt.Errorf("could not list policies"))
		return
	}
	RespondOK(c, gin.H{"success": true, "data": policies})
}

// GET /api/customers/:id/timeline
func (h *CustomerHandler) ListCustomerTimeline(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid customer id"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.customerService.ListTimeline(c.Request.Context(), id, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_failed", fmt.Errorf("could not list timeline"))
		return
	}
	RespondOK(c, gin.H{"success": true, "data": entries})
}
