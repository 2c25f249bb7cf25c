package quote

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"transferly/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{
		validate: v,
	}
}

func (v *RequestValidator) Validate(req *model.QuoteRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	return v.validateBusinessRules(req)
}

func (v *RequestValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldPath(err.Namespace()),
			Message: message(err),
		})
	}

	return validationErrors
}

func (v *RequestValidator) validateBusinessRules(req *model.QuoteRequest) error {
	var errs ValidationErrors

	// pickup and drop-off at the same coordinates is only a trip if it has stops
	if len(req.Stops) == 0 && req.Pickup.Lat == req.Dropoff.Lat && req.Pickup.Lng == req.Dropoff.Lng {
		errs = append(errs, ValidationError{
			Field:   "dropoff",
			Message: "must differ from pickup when there are no stops",
		})
	}
	for i, s := range req.Stops {
		if s.StopOrder != i {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("stops[%d].stop_order", i),
				Message: fmt.Sprintf("must equal position %d", i),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// fieldPath drops the root struct name: "QuoteRequest.pickup.lat" -> "pickup.lat".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func message(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		switch err.Kind() {
		case reflect.String:
			return fmt.Sprintf("must be at most %s characters", err.Param())
		case reflect.Slice:
			return fmt.Sprintf("must have at most %s items", err.Param())
		}
		return fmt.Sprintf("must be at most %s", err.Param())
	case "latitude":
		return "must be a valid latitude"
	case "longitude":
		return "must be a valid longitude"
	default:
		return fmt.Sprintf("failed %q validation", err.Tag())
	}
}
