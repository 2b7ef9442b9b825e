package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
)

// enumRule is a binding tag backed by a domain enum
type enumRule struct {
	valid   func(string) bool
	message string
}

var enumRules = map[string]enumRule{
	"batch_status": {
		valid:   func(v string) bool { return inventory.BatchStatus(v).IsValid() },
		message: "Must be one of: active, expired, returned",
	},
	"disposal_method": {
		valid:   func(v string) bool { return inventory.DisposalMethod(v).IsValid() },
		message: "Must be one of: trash, return_supplier, donation, other",
	},
}

// SetupValidator names binding errors after the JSON (or form) field and
// registers the ledger enum tags
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(fieldName)
	for tag, rule := range enumRules {
		valid := rule.valid
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		})
	}
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}
	return fld.Name
}

// FormatValidationErrors converts a binding error into a validation response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details = make([]dto.ValidationDetail, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: validationMessage(fe)})
		}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError writes a 400 validation response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

var boundPhrases = map[string]string{
	"min": "at least",
	"max": "at most",
	"gte": "greater than or equal to",
	"gt":  "greater than",
	"lte": "less than or equal to",
}

func validationMessage(fe validator.FieldError) string {
	if rule, ok := enumRules[fe.Tag()]; ok {
		return rule.message
	}
	if phrase, ok := boundPhrases[fe.Tag()]; ok {
		msg := "Must be " + phrase + " " + fe.Param()
		if fe.Kind() == reflect.String && (fe.Tag() == "min" || fe.Tag() == "max") {
			msg += " characters"
		}
		return msg
	}
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + fe.Param()
	default:
		return "Invalid value"
	}
}
