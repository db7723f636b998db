package serverutils

import (
	"errors"
	"fmt"
	"strings"

	"derm-triage-be/internal/pkg/apperr"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRequest checks struct validation tags and converts failures into a
// VALIDATION_ERROR with a readable field list.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verr validator.ValidationErrors
	if !errors.As(err, &verr) {
		return apperr.Wrap(apperr.CodeValidation, "invalid request", err)
	}

	fields := make([]string, 0, len(verr))
	for _, fe := range verr {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return apperr.New(apperr.CodeValidation,
		fmt.Sprintf("invalid request: %s", strings.Join(fields, ", ")))
}
