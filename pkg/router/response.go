package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-session-generator/pkg/log"
)

type Response struct {
	Status  bool        `json:"status"`
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// CodeBody is the {code} shape used by the linking endpoints, for pairing
// codes and error messages alike.
type CodeBody struct {
	Code string `json:"code"`
}

func logSuccess(c *fiber.Ctx, code int, message string) {
	statusMessage := http.StatusText(code)

	if statusMessage == message || c.OriginalURL() == BaseURL {
		log.Print(c).Info(fmt.Sprintf("%d %v", code, statusMessage))
	} else {
		log.Print(c).Info(fmt.Sprintf("%d %v", code, message))
	}
}

func logError(c *fiber.Ctx, code int, message string) {
	entry := log.Print(c)
	if rid, ok := c.Locals("request_id").(string); ok {
		entry = entry.WithField("request_id", rid)
	}
	if code >= http.StatusInternalServerError {
		entry.Error(fmt.Sprintf("%d %v", code, message))
	} else {
		entry.Warn(fmt.Sprintf("%d %v", code, message))
	}
}

func ResponseSuccessWithData(c *fiber.Ctx, message string, data interface{}) error {
	response := Response{
		Status: true,
		Code:   http.StatusOK,
		Data:   data,
	}

	if strings.TrimSpace(message) == "" {
		message = http.StatusText(response.Code)
	}
	response.Message = message

	logSuccess(c, response.Code, response.Message)
	return c.Status(response.Code).JSON(response)
}

func ResponseNoContent(c *fiber.Ctx) error {
	return c.SendStatus(http.StatusNoContent)
}

// ResponseCode writes a {code} body, logging non-2xx statuses as failures
func ResponseCode(c *fiber.Ctx, status int, message string) error {
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(status)
	}
	if status >= http.StatusBadRequest {
		logError(c, status, message)
	} else {
		logSuccess(c, status, http.StatusText(status))
	}
	return c.Status(status).JSON(CodeBody{Code: message})
}

// ResponseJSON writes an already shaped body with the given status
func ResponseJSON(c *fiber.Ctx, status int, body interface{}) error {
	if status >= http.StatusBadRequest {
		logError(c, status, fmt.Sprintf("%v", body))
	} else {
		logSuccess(c, status, http.StatusText(status))
	}
	return c.Status(status).JSON(body)
}
