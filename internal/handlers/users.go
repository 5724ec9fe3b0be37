package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"authlink/internal/database"
	"authlink/internal/request"
	"authlink/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// MaxProfileFieldLength is the maximum length for free-form profile fields
const MaxProfileFieldLength = 200

// UserHandler handles user profile requests
type UserHandler struct {
	userRepo database.UserRepositoryInterface
}

// NewUserHandler creates a new user handler
func NewUserHandler(userRepo database.UserRepositoryInterface) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// RegisterRoutes registers user routes on the given router
// The router should already have the /users prefix
func (h *UserHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
	r.HandleFunc("/me", h.UpdateMe).Methods("PATCH")
}

// UpdateMeRequest represents a profile update request
type UpdateMeRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Contact  *string `json:"contact,omitempty" validate:"omitempty,max=200"`
	Location *string `json:"location,omitempty" validate:"omitempty,max=200"`
}

// GetMe returns the authenticated user
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdateMe updates the authenticated user's profile fields
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req UpdateMeRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		// Check if error is due to request size limit
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	// Validate request
	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	if req.Name != nil {
		name := validation.SanitizeText(*req.Name)
		if name == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name cannot be empty after sanitization")
			return
		}
		user.Name = name
	}
	if req.Contact != nil {
		user.Contact = validation.SanitizeText(*req.Contact)
	}
	if req.Location != nil {
		user.Location = validation.SanitizeText(*req.Location)
	}

	if err := h.userRepo.Update(r.Context(), user); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update user")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
