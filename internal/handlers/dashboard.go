package handlers

import (
	"net/http"
	"strconv"

	"github.com/diewo77/invoicebook/httpx"
	"github.com/diewo77/invoicebook/internal/services"
	"github.com/diewo77/invoicebook/validation"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
	log       *zap.Logger
}

func NewDashboardHandler(dashboard *services.DashboardService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, log: log.Named("dashboard.handler")}
}

// Revenue answers GET /api/dashboard/revenue?year=&month=&company_id=.
func (h *DashboardHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := validation.Violations{}
	f := services.RevenueFilter{
		Year:      queryInt(q.Get("year"), "year", v),
		Month:     queryInt(q.Get("month"), "month", v),
		CompanyID: q.Get("company_id"),
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	sum, err := h.dashboard.Revenue(r.Context(), ownerID(r), f)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}

func queryInt(s, field string, v validation.Violations) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		v.Add(field, validation.CodeInvalid)
	}
	return n
}
