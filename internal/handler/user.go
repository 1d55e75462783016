package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/user"
)

type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"omitempty,min=2"`
	LastName  string `json:"last_name" validate:"omitempty,min=2"`
	Phone     string `json:"phone"`
}

type UpdateProfileRequest struct {
	FirstName  string `json:"first_name" validate:"required,min=2"`
	LastName   string `json:"last_name" validate:"required,min=2"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// UserHandler handles registration, profile and admin user requests.
type UserHandler struct {
	svc      user.Service
	validate *validator.Validate
}

func NewUserHandler(svc user.Service) *UserHandler {
	return &UserHandler{svc: svc, validate: validator.New()}
}

// Register creates a new buyer account.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return
	}

	u := &user.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}

	created, err := h.svc.Register(r.Context(), u, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailExists):
			respondWithError(w, http.StatusConflict, "Email already exists")
		case errors.Is(err, user.ErrUserExists):
			respondWithError(w, http.StatusConflict, "Username already exists")
		default:
			log.Error().Err(err).Str("username", req.Username).Msg("Failed to register user")
			respondWithError(w, http.StatusInternalServerError, "Failed to register user")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

// GetProfile returns the authenticated user's profile with the default
// address.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	profile, err := h.svc.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to get profile")
		respondWithError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

// UpdateProfile updates account fields and the default address in one
// transaction.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return
	}

	update := user.ProfileUpdate{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Line1:      req.Line1,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	}

	if err := h.svc.UpdateProfile(r.Context(), userID, update); err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, user.ErrEmailExists):
			respondWithError(w, http.StatusConflict, "Email already exists")
		default:
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to update profile")
			respondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// ListUsers is the admin view of all accounts.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	requester, err := h.svc.GetUserByID(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to load requesting user")
		respondWithError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	if !slices.Contains(requester.Roles, user.RoleAdmin) {
		respondWithError(w, http.StatusForbidden, "Admin role required")
		return
	}

	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		respondWithError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string][]user.User{"users": users})
}
