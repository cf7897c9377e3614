package handlers

import (
	"net/http"

	"github.com/diewo77/invoicebook/httpx"
	"github.com/diewo77/invoicebook/internal/models"
	"github.com/diewo77/invoicebook/internal/services"
	"github.com/diewo77/invoicebook/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type InvoiceHandler struct {
	invoices  *services.InvoiceService
	recurring *services.RecurringService
	render    *services.RenderService
	log       *zap.Logger
}

func NewInvoiceHandler(invoices *services.InvoiceService, recurring *services.RecurringService, render *services.RenderService, log *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, recurring: recurring, render: render, log: log.Named("invoice.handler")}
}

type lineItemRequest struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
}

func lineItems(in []lineItemRequest) []services.LineItemInput {
	if in == nil {
		return nil
	}
	out := make([]services.LineItemInput, len(in))
	for i, li := range in {
		out[i] = services.LineItemInput{Description: li.Description, Quantity: li.Quantity, Rate: li.Rate}
	}
	return out
}

type createInvoiceRequest struct {
	CompanyID     string               `json:"company_id"`
	InvoiceNumber string               `json:"invoice_number"`
	InvoiceDate   Date                 `json:"invoice_date"`
	DueDate       Date                 `json:"due_date"`
	Status        models.InvoiceStatus `json:"status"`
	Notes         string               `json:"notes"`
	LineItems     []lineItemRequest    `json:"line_items"`
}

// updateInvoiceRequest mirrors InvoicePatch: absent fields keep their value.
type updateInvoiceRequest struct {
	InvoiceNumber *string               `json:"invoice_number"`
	InvoiceDate   *Date                 `json:"invoice_date"`
	DueDate       *Date                 `json:"due_date"`
	Status        *models.InvoiceStatus `json:"status"`
	Notes         *string               `json:"notes"`
	LineItems     []lineItemRequest     `json:"line_items"`
}

func (u updateInvoiceRequest) patch() services.InvoicePatch {
	p := services.InvoicePatch{
		InvoiceNumber: u.InvoiceNumber,
		Status:        u.Status,
		Notes:         u.Notes,
		LineItems:     lineItems(u.LineItems),
	}
	if u.InvoiceDate != nil && !u.InvoiceDate.IsZero() {
		p.InvoiceDate = &u.InvoiceDate.Time
	}
	if u.DueDate != nil && !u.DueDate.IsZero() {
		p.DueDate = &u.DueDate.Time
	}
	return p
}

type statusRequest struct {
	Status string `json:"status"`
}

// parseStatus normalises a client status, answering 400 when it is unknown.
func parseStatus(w http.ResponseWriter, raw string) (models.InvoiceStatus, bool) {
	status, err := models.ParseInvoiceStatus(raw)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"status": validation.CodeInvalid})
		return "", false
	}
	return status, true
}

type renderRequest struct {
	BankingDetailID string `json:"banking_detail_id"`
}

type recurringRequest struct {
	CompanyID string            `json:"company_id"`
	Frequency string            `json:"frequency"`
	StartDate Date              `json:"start_date"`
	Count     int               `json:"count"`
	DueInDays int               `json:"due_in_days"`
	Notes     string            `json:"notes"`
	LineItems []lineItemRequest `json:"line_items"`
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := services.ListFilter{CompanyID: q.Get("company_id")}
	if raw := q.Get("status"); raw != "" {
		status, ok := parseStatus(w, raw)
		if !ok {
			return
		}
		f.Status = status
	}
	list, err := h.invoices.List(r.Context(), ownerID(r), f)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.Get(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if !decode(w, r, &req) {
		return
	}
	inv, err := h.invoices.Create(r.Context(), ownerID(r), services.CreateInvoiceInput{
		CompanyID:     req.CompanyID,
		InvoiceNumber: req.InvoiceNumber,
		InvoiceDate:   req.InvoiceDate.Time,
		DueDate:       req.DueDate.Time,
		Status:        req.Status,
		Notes:         req.Notes,
		LineItems:     lineItems(req.LineItems),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateInvoiceRequest
	if !decode(w, r, &req) {
		return
	}
	inv, err := h.invoices.Update(r.Context(), ownerID(r), r.PathValue("id"), req.patch())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.invoices.Delete(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InvoiceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	status, ok := parseStatus(w, req.Status)
	if !ok {
		return
	}
	inv, err := h.invoices.UpdateStatus(r.Context(), ownerID(r), r.PathValue("id"), status)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// RenderData returns the document data of an invoice. The body is optional.
func (h *InvoiceHandler) RenderData(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}
	data, err := h.render.RenderData(r.Context(), ownerID(r), r.PathValue("id"), req.BankingDetailID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, data)
}

// CreateRecurring creates a series of invoices. Partial failures still answer
// 201 with the failures listed; a series where nothing was created answers 500.
func (h *InvoiceHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.recurring.Create(r.Context(), ownerID(r), services.RecurringInput{
		CompanyID: req.CompanyID,
		Frequency: services.Frequency(req.Frequency),
		StartDate: req.StartDate.Time,
		Count:     req.Count,
		DueInDays: req.DueInDays,
		Notes:     req.Notes,
		LineItems: lineItems(req.LineItems),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	status := http.StatusCreated
	if res.Created == 0 {
		status = http.StatusInternalServerError
	}
	httpx.JSON(w, status, res)
}
