package validator

import (
	"errors"
	"strings"

	"hostelcare/internal/pkg/apperr"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Struct validates v and returns the first failure as an apperr.ValidationError.
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("", err.Error())
	}
	fe := verrs[0]
	reason := "failed " + fe.Tag()
	if fe.Param() != "" {
		reason += "=" + fe.Param()
	}
	return apperr.Validation(strings.ToLower(fe.Field()), reason)
}
