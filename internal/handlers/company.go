package handlers

import (
	"net/http"

	"github.com/diewo77/invoicebook/httpx"
	"github.com/diewo77/invoicebook/internal/services"
	"go.uber.org/zap"
)

type CompanyHandler struct {
	companies *services.CompanyService
	ledger    *services.Ledger
	log       *zap.Logger
}

func NewCompanyHandler(companies *services.CompanyService, ledger *services.Ledger, log *zap.Logger) *CompanyHandler {
	return &CompanyHandler{companies: companies, ledger: ledger, log: log.Named("company.handler")}
}

type companyRequest struct {
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	Address               string `json:"address"`
	ContactPerson         string `json:"contact_person"`
	Phone                 string `json:"phone"`
	InvoicePrefix         string `json:"invoice_prefix"`
	StartingInvoiceNumber int    `json:"starting_invoice_number"`
}

func (c companyRequest) input() services.CompanyInput {
	return services.CompanyInput{
		Name:                  c.Name,
		Email:                 c.Email,
		Address:               c.Address,
		ContactPerson:         c.ContactPerson,
		Phone:                 c.Phone,
		InvoicePrefix:         c.InvoicePrefix,
		StartingInvoiceNumber: c.StartingInvoiceNumber,
	}
}

func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.companies.List(r.Context(), ownerID(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.companies.Get(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.companies.Create(r.Context(), ownerID(r), req.input())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.companies.Update(r.Context(), ownerID(r), r.PathValue("id"), req.input())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.companies.Delete(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NextNumber proposes the next free invoice number of a company.
func (h *CompanyHandler) NextNumber(w http.ResponseWriter, r *http.Request) {
	n, err := h.companies.NextInvoiceNumber(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"invoice_number": n})
}

// Reconcile recomputes the stored revenue of one company from its paid invoices.
func (h *CompanyHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	owner, id := ownerID(r), r.PathValue("id")
	if _, err := h.companies.Get(r.Context(), owner, id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if _, err := h.ledger.RecomputeRevenue(r.Context(), nil, id, owner); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	c, err := h.companies.Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}
