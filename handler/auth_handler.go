package handler

import (
	"encoding/json"
	"errors"
	"go-auth-api/common"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/service"
	"net/http"
)

const refreshTokenCookie = "refreshToken"

type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// serviceError translates the service error taxonomy into HTTP status codes.
func serviceError(err error) *common.AppError {
	switch {
	case errors.Is(err, service.ErrMissingFields):
		return common.NewAppError(http.StatusBadRequest, "Please enter all the required fields", nil)
	case errors.Is(err, service.ErrEmailTaken):
		return common.NewAppError(http.StatusBadRequest, "User already exists", nil)
	case errors.Is(err, service.ErrUserNotFound):
		return common.NewAppError(http.StatusNotFound, "Email is not found", nil)
	case errors.Is(err, service.ErrWrongPassword):
		return common.NewAppError(http.StatusNotFound, "Wrong password", nil)
	case errors.Is(err, service.ErrNoRefreshToken):
		return common.NewAppError(http.StatusUnauthorized, "You're not authenticated!", nil)
	case errors.Is(err, service.ErrInvalidToken):
		return common.NewAppError(http.StatusForbidden, "Token is not valid", nil)
	case errors.Is(err, service.ErrMailDelivery):
		return common.NewAppError(http.StatusInternalServerError, "Could not send reset mail", err)
	default:
		return common.NewAppError(http.StatusInternalServerError, "Internal server error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates a credential record; the response never carries the password hash
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.RegisterRequest true "registration payload"
// @Success      200  {object}  model.User
// @Failure      400  {object}  common.AppError
// @Router       /register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if !common.ValidateAndDecode(w, r, &req) {
		return nil
	}

	user, err := h.service.Register(req.Name, req.Email, req.Password, req.Avatar)
	if err != nil {
		return serviceError(err)
	}

	writeJSON(w, http.StatusOK, user)
	return nil
}

type loginResponse struct {
	*model.User
	AccessToken string `json:"accessToken"`
}

// Login godoc
// @Summary      Authenticate a user
// @Description  Returns the user and an access token; the refresh token travels only in an HttpOnly cookie
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.LoginRequest true "credentials"
// @Success      200  {object}  loginResponse
// @Failure      404  {object}  common.AppError
// @Router       /login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid request body", err)
	}

	user, accessToken, refreshToken, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		return serviceError(err)
	}

	// The refresh token must stay out of reach of scripts; the access token
	// goes in the body for the client to hold explicitly.
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    refreshToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, loginResponse{User: user, AccessToken: accessToken})
	return nil
}

// Logout godoc
// @Summary      Log out
// @Description  Clears the refresh token cookie; no server-side session state exists
// @Tags         auth
// @Produce      json
// @Success      200  {string}  string
// @Router       /logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, "User has been logged out")
	return nil
}

// Refresh godoc
// @Summary      Rotate the access token
// @Description  Exchanges the refresh token cookie for a fresh access token
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  common.AppError
// @Failure      403  {object}  common.AppError
// @Router       /refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	var presented string
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = cookie.Value
	}

	accessToken, err := h.service.RefreshAccessToken(presented)
	if err != nil {
		return serviceError(err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"accessToken": accessToken})
	return nil
}

// SendResetLink godoc
// @Summary      Mail a password reset link
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.SendResetLinkRequest true "target email"
// @Success      200  {string}  string
// @Failure      400  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /sendResetLink [post]
func (h *AuthHandler) SendResetLink(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.SendResetLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid request body", err)
	}

	logger.Log.WithField("email", req.Email).Info("Reset link requested")

	if err := h.service.SendResetLink(req.Email); err != nil {
		return serviceError(err)
	}

	writeJSON(w, http.StatusOK, "Send link reset password success")
	return nil
}

// ResetPassword godoc
// @Summary      Reset the password with a mailed token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body model.ResetPasswordRequest true "reset payload"
// @Success      200  {object}  model.User
// @Failure      400  {object}  common.AppError
// @Failure      403  {object}  common.AppError
// @Router       /resetPassword [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid request body", err)
	}

	user, err := h.service.ResetPassword(req.Email, req.Token, req.NewPassword)
	if err != nil {
		// Unlike the mail-link flow, the reset form reports a missing
		// account as a bad request.
		if errors.Is(err, service.ErrUserNotFound) {
			return common.NewAppError(http.StatusBadRequest, "Email not found", nil)
		}
		return serviceError(err)
	}

	writeJSON(w, http.StatusOK, user)
	return nil
}
