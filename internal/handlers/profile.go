package handlers

import (
	"net/http"

	"github.com/diewo77/invoicebook/httpx"
	"github.com/diewo77/invoicebook/internal/services"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	log      *zap.Logger
}

func NewProfileHandler(profiles *services.ProfileService, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, log: log.Named("profile.handler")}
}

type profileRequest struct {
	BusinessName    string `json:"business_name"`
	BusinessAddress string `json:"business_address"`
	ContactEmail    string `json:"contact_email"`
	ContactPhone    string `json:"contact_phone"`
	Website         string `json:"website"`
	FooterText      string `json:"footer_text"`
}

type bankingRequest struct {
	Name          string `json:"name"`
	AccountHolder string `json:"account_holder"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountType   string `json:"account_type"`
	BranchCode    string `json:"branch_code"`
	SwiftCode     string `json:"swift_code"`
	IsDefault     bool   `json:"is_default"`
}

func (b bankingRequest) input() services.BankingInput {
	return services.BankingInput{
		Name:          b.Name,
		AccountHolder: b.AccountHolder,
		BankName:      b.BankName,
		AccountNumber: b.AccountNumber,
		AccountType:   b.AccountType,
		BranchCode:    b.BranchCode,
		SwiftCode:     b.SwiftCode,
		IsDefault:     b.IsDefault,
	}
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.GetProfile(r.Context(), ownerID(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.profiles.UpsertProfile(r.Context(), ownerID(r), services.ProfileInput(req))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) ListBanking(w http.ResponseWriter, r *http.Request) {
	list, err := h.profiles.ListBanking(r.Context(), ownerID(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *ProfileHandler) CreateBanking(w http.ResponseWriter, r *http.Request) {
	var req bankingRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.profiles.CreateBanking(r.Context(), ownerID(r), req.input())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *ProfileHandler) UpdateBanking(w http.ResponseWriter, r *http.Request) {
	var req bankingRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.profiles.UpdateBanking(r.Context(), ownerID(r), r.PathValue("id"), req.input())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *ProfileHandler) SetDefaultBanking(w http.ResponseWriter, r *http.Request) {
	b, err := h.profiles.SetDefaultBanking(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *ProfileHandler) DeleteBanking(w http.ResponseWriter, r *http.Request) {
	if err := h.profiles.DeleteBanking(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
