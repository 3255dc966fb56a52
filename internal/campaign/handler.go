package campaign

import (
	"net/http"
	"strings"

	"Sahaaya/internal/apperror"
	"Sahaaya/internal/auth"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errInvalidBody = apperror.Validation("invalid request body")

type CampaignHandler struct {
	service *Service
}

func NewCampaignHandler(service *Service) *CampaignHandler {
	return &CampaignHandler{service: service}
}

// pathID parses an id route parameter. Malformed ids cannot name a stored
// record, so they are reported as not found.
func pathID(c echo.Context, param, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		return primitive.NilObjectID, apperror.NotFound(what + " not found")
	}
	return id, nil
}

func listFilter(c echo.Context) ListFilter {
	return ListFilter{Status: strings.TrimSpace(c.QueryParam("status"))}
}

func caller(c echo.Context) *auth.Identity {
	identity, _ := auth.CurrentIdentity(c)
	return identity
}

func (h *CampaignHandler) Propose(c echo.Context) error {
	var req ProposeRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	view, err := h.service.Propose(c.Request().Context(), caller(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, view)
}

func (h *CampaignHandler) List(c echo.Context) error {
	views, err := h.service.List(c.Request().Context(), caller(c), listFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views)
}

func (h *CampaignHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id", "campaign")
	if err != nil {
		return err
	}
	view, err := h.service.Get(c.Request().Context(), id, caller(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CampaignHandler) Join(c echo.Context) error {
	id, err := pathID(c, "id", "campaign")
	if err != nil {
		return err
	}
	result, err := h.service.Join(c.Request().Context(), id, caller(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *CampaignHandler) Donate(c echo.Context) error {
	id, err := pathID(c, "id", "campaign")
	if err != nil {
		return err
	}
	var req DonateRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	donation, err := h.service.Donate(c.Request().Context(), id, caller(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, donation)
}

func (h *CampaignHandler) AdminList(c echo.Context) error {
	views, err := h.service.AdminList(c.Request().Context(), caller(c), listFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, views)
}

func (h *CampaignHandler) Approve(c echo.Context) error {
	id, err := pathID(c, "id", "campaign")
	if err != nil {
		return err
	}
	view, err := h.service.Approve(c.Request().Context(), id, caller(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CampaignHandler) Reject(c echo.Context) error {
	id, err := pathID(c, "id", "campaign")
	if err != nil {
		return err
	}
	view, err := h.service.Reject(c.Request().Context(), id, caller(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CampaignHandler) ConfirmReceived(c echo.Context) error {
	campaignID, err := pathID(c, "id", "campaign")
	if err != nil {
		return err
	}
	donationID, err := pathID(c, "donationId", "donation")
	if err != nil {
		return err
	}

	var req ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	donation, err := h.service.ConfirmReceived(c.Request().Context(), campaignID, donationID, req.GoalID, caller(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "Donation marked as received",
		"donation": donation,
	})
}

func (h *CampaignHandler) DashboardStats(c echo.Context) error {
	stats, err := h.service.DashboardStats(c.Request().Context(), caller(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}
