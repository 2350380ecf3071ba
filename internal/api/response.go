package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Checker-Finance/rfq-engine/pkg/model"
)

// ErrorBody is the discriminated error shape for 4xx/5xx responses.
type ErrorBody struct {
	Success bool     `json:"success"`
	Kind    string   `json:"kind,omitempty"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"error"`
	Fields  []string `json:"fields,omitempty"`
}

// PageResponse wraps a query result page.
type PageResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorBody{
		Kind:    string(model.KindValidation),
		Message: msg,
	})
}

// fail maps a domain error kind to its HTTP status. Anything that is
// not a domain error is an internal error.
func fail(c *fiber.Ctx, err error) error {
	var de *model.Error
	status := fiber.StatusInternalServerError
	body := ErrorBody{Message: err.Error()}

	if errors.As(err, &de) {
		body.Kind = string(de.Kind)
		body.Code = de.Code
		body.Message = de.Message
		body.Fields = de.Fields
		switch de.Kind {
		case model.KindValidation:
			status = fiber.StatusBadRequest
		case model.KindAuthorization:
			status = fiber.StatusForbidden
		case model.KindNotFound:
			status = fiber.StatusNotFound
		case model.KindStateConflict:
			status = fiber.StatusConflict
		case model.KindUpstream:
			status = fiber.StatusBadGateway
		}
	}
	return c.Status(status).JSON(body)
}
