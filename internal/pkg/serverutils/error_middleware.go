package serverutils

import (
	"errors"

	"derm-triage-be/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

var codeToStatus = map[apperr.Code]int{
	apperr.CodeValidation:             fiber.StatusBadRequest,
	apperr.CodeSessionNotFound:        fiber.StatusNotFound,
	apperr.CodeInvalidStageTransition: fiber.StatusConflict,
	apperr.CodeConsentRequired:        fiber.StatusForbidden,
	apperr.CodeIncompleteSession:      fiber.StatusConflict,
	apperr.CodeRetrievalUnavailable:   fiber.StatusServiceUnavailable,
	apperr.CodeEmbeddingUnavailable:   fiber.StatusServiceUnavailable,
	apperr.CodeModelUnavailable:       fiber.StatusServiceUnavailable,
	apperr.CodeExternalTimeout:        fiber.StatusGatewayTimeout,
	apperr.CodeInternal:               fiber.StatusInternalServerError,
}

// ErrorHandlerMiddleware maps application error codes onto HTTP statuses.
// Registered once at the app level; controllers just return errors.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(fiber.Map{
				"message": fiberErr.Message,
			})
		}

		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			status, ok := codeToStatus[appErr.Code]
			if !ok {
				status = fiber.StatusInternalServerError
			}
			return ctx.Status(status).JSON(fiber.Map{
				"code":    string(appErr.Code),
				"message": appErr.Message,
			})
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"code":    string(apperr.CodeInternal),
			"message": "internal server error",
		})
	}
}
