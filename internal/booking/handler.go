package booking

import (
	"encoding/json"
	"net/http"

	"github.com/howstean/checkfront-widget/internal/api/respond"
	"github.com/howstean/checkfront-widget/pkg/logging"
)

// Handler handles HTTP requests for booking creation
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a new booking handler
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// CreateBooking handles POST /checkfront/v1/create-booking requests
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		respond.Error(w, &ValidationError{Code: "bad_request", Message: "Invalid request body"})
		return
	}

	result, err := h.svc.CreateBooking(r.Context(), req)
	if err != nil {
		h.logger.Error("create-booking failed", "error", err)
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, result)
}
