package auth

import (
	"net/http"

	"Sahaaya/internal/apperror"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	errInvalidBody = apperror.Validation("invalid request body")
	errNoIdentity  = apperror.Unauthorized("invalid or missing token")
)

type AuthHandler struct {
	service *UserService
}

func NewAuthHandler(service *UserService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	resp, err := h.service.RegisterUser(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var cred Credential
	if err := c.Bind(&cred); err != nil {
		return errInvalidBody
	}
	if err := c.Validate(&cred); err != nil {
		return err
	}

	resp, err := h.service.AuthenticateUser(c.Request().Context(), cred)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Profile(c echo.Context) error {
	caller, ok := CurrentIdentity(c)
	if !ok {
		return errNoIdentity
	}

	profile, err := h.service.Profile(c.Request().Context(), caller, caller.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *AuthHandler) UserProfile(c echo.Context) error {
	caller, ok := CurrentIdentity(c)
	if !ok {
		return errNoIdentity
	}
	targetID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return apperror.NotFound("user not found")
	}

	profile, err := h.service.Profile(c.Request().Context(), caller, targetID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	caller, ok := CurrentIdentity(c)
	if !ok {
		return errNoIdentity
	}
	var req ProfileUpdateRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.UpdateProfile(c.Request().Context(), caller, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) VerifyID(c echo.Context) error {
	caller, ok := CurrentIdentity(c)
	if !ok {
		return errNoIdentity
	}
	var req VerifyIDRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.VerifyGovtID(c.Request().Context(), caller, req.GovtIDURL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
