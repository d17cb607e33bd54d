package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"spendly/internal/models"
	"spendly/internal/services"
	"spendly/internal/utils"
)

type UserHandler struct {
	userService services.UserService
	auth        services.AuthService
}

func NewUserHandler(userService services.UserService, auth services.AuthService) *UserHandler {
	return &UserHandler{userService: userService, auth: auth}
}

func (u *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in models.Register

	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Error().Err(err).Msg("Invalid user data input for Register")
		utils.SendJSONError(w, "Invalid user data input: "+err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := u.userService.RegisterUser(r.Context(), &in); err != nil {
		statusCode := http.StatusInternalServerError
		if strings.Contains(err.Error(), "required") || strings.Contains(err.Error(), "invalid") {
			statusCode = http.StatusBadRequest
		} else if strings.Contains(err.Error(), "already exists") {
			statusCode = http.StatusConflict
		}
		utils.SendJSONError(w, err.Error(), statusCode)
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Account created successfully",
		"success": true,
	})
}

func (u *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.Login

	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		log.Error().Err(err).Msg("Invalid request body for Login")
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := u.userService.LoginUser(r.Context(), &creds)
	if err != nil {
		statusCode := http.StatusInternalServerError
		if strings.Contains(err.Error(), "invalid credentials") {
			statusCode = http.StatusUnauthorized
		} else if strings.Contains(err.Error(), "required") {
			statusCode = http.StatusBadRequest
		}
		utils.RespondWithError(w, statusCode, err.Error())
		return
	}

	if err := u.auth.StartSession(w, r, user.ID.Hex()); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Welcome back " + user.Fullname,
		"user":    user.Public(),
		"success": true,
	})
}

// Logout always succeeds; a request without a session just gets an expired cookie.
func (u *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := u.auth.EndSession(w, r); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Logged out successfully",
		"success": true,
	})
}

func (u *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(w, r)
	if err != nil {
		return
	}

	var in models.PasswordChange
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.Error().Err(err).Msg("Invalid JSON payload for ChangePassword")
		utils.SendJSONError(w, "Invalid JSON payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := u.userService.ChangePassword(r.Context(), userID, &in); err != nil {
		statusCode := http.StatusInternalServerError
		if strings.Contains(err.Error(), "incorrect") {
			statusCode = http.StatusUnauthorized
		} else if strings.Contains(err.Error(), "required") || strings.Contains(err.Error(), "invalid") {
			statusCode = http.StatusBadRequest
		} else if strings.Contains(err.Error(), "not found") {
			statusCode = http.StatusNotFound
		}
		utils.SendJSONError(w, err.Error(), statusCode)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Password updated successfully",
		"success": true,
	})
}
