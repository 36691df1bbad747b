package handler

import (
	"go-auth-api/common"
	"go-auth-api/service"
	"net/http"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(service *service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// Me godoc
// @Summary      Current user's profile
// @Description  Returns the profile backing the profile modal
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.User
// @Failure      401  {object}  common.AppError
// @Failure      404  {object}  common.AppError
// @Router       /me [get]
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := r.Context().Value(UserIDKey).(int)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}

	user, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		return serviceError(err)
	}

	writeJSON(w, http.StatusOK, user)
	return nil
}
