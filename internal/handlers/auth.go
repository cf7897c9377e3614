package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/invoicebook/auth"
	"github.com/diewo77/invoicebook/httpx"
	"github.com/diewo77/invoicebook/internal/models"
	"github.com/diewo77/invoicebook/internal/services"
	"github.com/diewo77/invoicebook/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLen = 8

type AuthHandler struct {
	db       *gorm.DB
	profiles *services.ProfileService
	log      *zap.Logger
	cost     int
}

func NewAuthHandler(db *gorm.DB, profiles *services.ProfileService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, profiles: profiles, log: log.Named("auth.handler"), cost: bcrypt.DefaultCost}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decode(w, r, &in) {
		return
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	v := validation.Violations{}
	validation.Required("email", in.Email, v)
	validation.Required("password", in.Password, v)
	if in.Password != "" && len(in.Password) < minPasswordLen {
		v.Add("password", validation.CodeOutOfRange)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var n int64
	if err := h.db.WithContext(r.Context()).Model(&models.User{}).Where("email = ?", in.Email).Count(&n).Error; err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if n > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", validation.Violations{"email": validation.CodeAlreadyExists})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), h.cost)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	user := models.User{Email: in.Email, Name: strings.TrimSpace(in.Name), Password: string(hashed)}
	if err := h.db.WithContext(r.Context()).Create(&user).Error; err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.profiles.EnsureProfile(r.Context(), user.ID, user.Name, user.Email); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decode(w, r, &in) {
		return
	}
	var user models.User
	err := h.db.WithContext(r.Context()).Where("email = ?", strings.ToLower(strings.TrimSpace(in.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}

	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	var user models.User
	err := h.db.WithContext(r.Context()).First(&user, "id = ?", ownerID(r)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
