package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ainterviewer/identity-service/internal/core/domain"
	"github.com/ainterviewer/identity-service/internal/core/ports"
)

// UserHandler serves invitations, signup and self-service profile endpoints.
type UserHandler struct {
	users ports.UserService
	audit ports.AuditService
}

func NewUserHandler(users ports.UserService, audit ports.AuditService) *UserHandler {
	return &UserHandler{users: users, audit: audit}
}

// --- Request / Response types ---

type inviteUserRequest struct {
	NewUserEmail       string `json:"new_user_email" validate:"required,email"`
	InvitationLanguage string `json:"invitation_language" validate:"required,oneof=spanish english"`
}

type createUserRequest struct {
	Email              string `json:"email" validate:"required,email"`
	GivenNames         string `json:"given_names" validate:"required,max=120"`
	FamilyNames        string `json:"family_names" validate:"required,max=120"`
	Nickname           string `json:"nickname" validate:"required,max=60"`
	Language           string `json:"language" validate:"required,oneof=spanish english"`
	Password           string `json:"password" validate:"required"`
	SponsorUserID      string `json:"sponsor_user_id"`
	InvitationCode     string `json:"invitation_code"`
	AntiPhishingPhrase string `json:"anti_phishing_phrase" validate:"required,max=120"`
	UserRole           string `json:"user_role" validate:"required,oneof=staffer expert"`
}

type contactInfoRequest struct {
	Nickname           string `json:"nickname" validate:"required,max=60"`
	AntiPhishingPhrase string `json:"anti_phishing_phrase" validate:"required,max=120"`
}

type sponsorInfoResponse struct {
	GivenNames  string `json:"given_names"`
	FamilyNames string `json:"family_names"`
	Email       string `json:"email"`
}

type createUserResponse struct {
	ID string `json:"id"`
}

// InviteUser handles POST /users/invite_user.
//
// @Summary      Invite somebody to the platform
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      inviteUserRequest  true  "Invitee"
// @Success      201   {boolean} true
// @Failure      409   {object}  map[string]string
// @Router       /users/invite_user [post]
func (h *UserHandler) InviteUser(c echo.Context) error {
	sponsor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req inviteUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.users.InviteUser(c.Request().Context(), sponsor, ports.InviteUserInput{
		Email:    req.NewUserEmail,
		Language: domain.Language(req.InvitationLanguage),
	})
	h.audit.Record(c.Request().Context(), sponsor.ID, "invited_user", map[string]string{
		"new_user_email":      req.NewUserEmail,
		"invitation_language": req.InvitationLanguage,
	}, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, true)
}

// SponsorInfo handles GET /users/sponsor_info.
//
// @Summary      Public info of the sponsor of an invitation
// @Tags         users
// @Produce      json
// @Param        sponsor_user_id  query     string  true  "Sponsor id"
// @Param        invitation_code  query     string  true  "Invitation code"
// @Success      200              {object}  sponsorInfoResponse
// @Failure      400              {object}  map[string]string
// @Failure      404              {object}  map[string]string
// @Router       /users/sponsor_info [get]
func (h *UserHandler) SponsorInfo(c echo.Context) error {
	sponsorID := c.QueryParam("sponsor_user_id")
	code := c.QueryParam("invitation_code")
	if sponsorID == "" || code == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "sponsor_user_id and invitation_code are required")
	}

	info, err := h.users.SponsorInfo(c.Request().Context(), sponsorID, code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sponsorInfoResponse{
		GivenNames:  info.GivenNames,
		FamilyNames: info.FamilyNames,
		Email:       info.Email,
	})
}

// CreateUser handles POST /users.
//
// @Summary      Create an account
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      createUserRequest  true  "New account"
// @Success      201   {object}  createUserResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /users [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.users.CreateUser(c.Request().Context(), ports.CreateUserInput{
		Email:              req.Email,
		GivenNames:         req.GivenNames,
		FamilyNames:        req.FamilyNames,
		Nickname:           req.Nickname,
		Language:           domain.Language(req.Language),
		Password:           req.Password,
		SponsorUserID:      req.SponsorUserID,
		InvitationCode:     req.InvitationCode,
		AntiPhishingPhrase: req.AntiPhishingPhrase,
		Role:               domain.Role(req.UserRole),
	})
	h.audit.Record(c.Request().Context(), "", "created_user", map[string]string{
		"email":           req.Email,
		"nickname":        req.Nickname,
		"language":        req.Language,
		"sponsor_user_id": req.SponsorUserID,
		"user_role":       req.UserRole,
	}, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createUserResponse{ID: user.ID})
}

// Profile handles GET /users.
//
// @Summary      Current user's profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  map[string]string
// @Router       /users [get]
func (h *UserHandler) Profile(c echo.Context) error {
	current, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := h.users.Profile(c.Request().Context(), current.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Colleagues handles GET /users/list.
//
// @Summary      Active colleagues of the current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   colleagueResponse
// @Router       /users/list [get]
func (h *UserHandler) Colleagues(c echo.Context) error {
	current, err := currentUser(c)
	if err != nil {
		return err
	}
	users, err := h.users.Colleagues(c.Request().Context(), current)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toColleagueResponses(users))
}

// UpdateContactInfo handles PATCH /users/contact_info.
//
// @Summary      Update nickname and anti-phishing phrase
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      contactInfoRequest  true  "Contact info"
// @Success      200   {boolean} true
// @Router       /users/contact_info [patch]
func (h *UserHandler) UpdateContactInfo(c echo.Context) error {
	current, err := currentUser(c)
	if err != nil {
		return err
	}
	var req contactInfoRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err = h.users.UpdateContactInfo(c.Request().Context(), current, ports.ContactInfoInput{
		Nickname:           req.Nickname,
		AntiPhishingPhrase: req.AntiPhishingPhrase,
	})
	h.audit.Record(c.Request().Context(), current.ID, "updated_user_contact_info", map[string]string{"nickname": req.Nickname}, err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, true)
}
