package acknowledgement

import (
	"net/http"

	"Sahaaya/internal/apperror"
	"Sahaaya/internal/auth"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errInvalidBody = apperror.Validation("invalid request body")

type AcknowledgementHandler struct {
	service *Service
}

func NewAcknowledgementHandler(service *Service) *AcknowledgementHandler {
	return &AcknowledgementHandler{service: service}
}

func pathID(c echo.Context, param, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		return primitive.NilObjectID, apperror.NotFound(what + " not found")
	}
	return id, nil
}

func caller(c echo.Context) *auth.Identity {
	identity, _ := auth.CurrentIdentity(c)
	return identity
}

// Generate answers 409 with the existing acknowledgement when the campaign
// already has one.
func (h *AcknowledgementHandler) Generate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ack, err := h.service.Generate(c.Request().Context(), caller(c), req)
	if err != nil {
		if apperror.Is(err, apperror.KindAlreadyExists) && ack != nil {
			return c.JSON(http.StatusConflict, map[string]interface{}{
				"error":           err.Error(),
				"kind":            string(apperror.KindAlreadyExists),
				"acknowledgement": ack,
			})
		}
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":         "Acknowledgement generated",
		"acknowledgement": ack,
	})
}

func (h *AcknowledgementHandler) Publish(c echo.Context) error {
	id, err := pathID(c, "id", "acknowledgement")
	if err != nil {
		return err
	}
	ack, err := h.service.Publish(c.Request().Context(), id, caller(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":         "Acknowledgement published",
		"acknowledgement": ack,
	})
}

func (h *AcknowledgementHandler) UpdateMessage(c echo.Context) error {
	id, err := pathID(c, "id", "acknowledgement")
	if err != nil {
		return err
	}
	var req UpdateMessageRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}

	ack, err := h.service.UpdateMessage(c.Request().Context(), id, caller(c), req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ack)
}

func (h *AcknowledgementHandler) GetByCampaign(c echo.Context) error {
	campaignID, err := pathID(c, "campaignId", "acknowledgement")
	if err != nil {
		return err
	}
	ack, err := h.service.GetByCampaign(c.Request().Context(), campaignID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ack)
}

func (h *AcknowledgementHandler) ListMine(c echo.Context) error {
	list, err := h.service.ListMine(c.Request().Context(), caller(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}
