package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

// AdminHandler serves the administrator endpoints. Routes are guarded by the
// RBAC middleware.
type AdminHandler struct {
	admin ports.AdminService
	audit ports.AuditService
}

func NewAdminHandler(admin ports.AdminService, audit ports.AuditService) *AdminHandler {
	return &AdminHandler{admin: admin, audit: audit}
}

type reactivateUserRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type sendMessageToUserRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required"`
}

type sendMessageToAllUsersRequest struct {
	Subject  string `json:"subject" validate:"required,max=200"`
	Message  string `json:"message" validate:"required"`
	Language string `json:"language" validate:"required"`
}

type broadcastResponse struct {
	Recipients int `json:"recipients"`
}

// InactiveUsers handles GET /admin/inactive_users.
//
// @Summary      List inactive users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userResponse
// @Failure      403  {object}  map[string]string
// @Router       /admin/inactive_users [get]
func (h *AdminHandler) InactiveUsers(c echo.Context) error {
	users, err := h.admin.InactiveUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponses(users))
}

// ReactivateUser handles POST /admin/reactivate_user.
//
// @Summary      Reactivate a user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  query     string  true  "User id"
// @Success      200      {boolean} true
// @Failure      404      {object}  map[string]string
// @Router       /admin/reactivate_user [post]
func (h *AdminHandler) ReactivateUser(c echo.Context) error {
	admin, err := currentUser(c)
	if err != nil {
		return err
	}
	// The id travels as a query parameter; a JSON body is accepted too.
	userID := c.QueryParam("user_id")
	if userID == "" {
		var req reactivateUserRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		userID = req.UserID
	}

	err = h.admin.ReactivateUser(c.Request().Context(), userID)
	h.audit.Record(c.Request().Context(), admin.ID, "activated_user", map[string]string{"user_id": userID}, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, true)
}

// UsersInfo handles GET /admin/users_info.
//
// @Summary      List every non-admin user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userResponse
// @Router       /admin/users_info [get]
func (h *AdminHandler) UsersInfo(c echo.Context) error {
	users, err := h.admin.UsersInfo(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponses(users))
}

// SendMessageToUser handles POST /admin/send_message_to_user.
//
// @Summary      Email a message to one user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      sendMessageToUserRequest  true  "Message"
// @Success      200   {boolean} true
// @Failure      404   {object}  map[string]string
// @Router       /admin/send_message_to_user [post]
func (h *AdminHandler) SendMessageToUser(c echo.Context) error {
	admin, err := currentUser(c)
	if err != nil {
		return err
	}
	var req sendMessageToUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.admin.SendMessageToUser(c.Request().Context(), ports.MessageInput{
		UserID:  req.UserID,
		Subject: req.Subject,
		Message: req.Message,
	})
	h.audit.Record(c.Request().Context(), admin.ID, "sent_message_to_user", map[string]string{
		"user_id": req.UserID,
		"subject": req.Subject,
	}, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, true)
}

// SendMessageToAllUsers handles POST /admin/send_message_to_all_users.
//
// @Summary      Email a message to every non-admin user of a language
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      sendMessageToAllUsersRequest  true  "Message"
// @Success      200   {object}  broadcastResponse
// @Failure      422   {object}  map[string]string
// @Router       /admin/send_message_to_all_users [post]
func (h *AdminHandler) SendMessageToAllUsers(c echo.Context) error {
	admin, err := currentUser(c)
	if err != nil {
		return err
	}
	var req sendMessageToAllUsersRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	n, err := h.admin.SendMessageToAllUsers(c.Request().Context(), ports.BroadcastInput{
		Subject:  req.Subject,
		Message:  req.Message,
		Language: domain.Language(req.Language),
	})
	h.audit.Record(c.Request().Context(), admin.ID, "sent_message_to_all_users", map[string]string{
		"subject":  req.Subject,
		"language": req.Language,
	}, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, broadcastResponse{Recipients: n})
}
