package availability

import (
	"net/http"
	"strconv"

	"github.com/howstean/checkfront-widget/internal/api/respond"
	"github.com/howstean/checkfront-widget/pkg/logging"
)

// Handler handles HTTP requests for rated availability
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a new availability handler
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// ItemRated handles GET /checkfront/v1/item-rated requests
func (h *Handler) ItemRated(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	itemID, _ := strconv.Atoi(q.Get("item_id"))
	qty, _ := strconv.Atoi(q.Get("qty"))

	req := RatedItemRequest{
		ItemID:  itemID,
		Date:    q.Get("date"),
		EndDate: q.Get("end_date"),
		Qty:     qty,
	}

	rated, err := h.svc.RatedItem(r.Context(), req)
	if err != nil {
		h.logger.Error("item-rated failed",
			"item_id", req.ItemID,
			"date", req.Date,
			"error", err,
		)
		respond.Error(w, err)
		return
	}

	respond.JSON(w, http.StatusOK, rated)
}
