// internal/utils/validator.go
package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/javajoker/bulkwear-backend/internal/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("product_category", validateProductCategory)
	validate.RegisterValidation("order_status", validateOrderStatus)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateProductCategory(fl validator.FieldLevel) bool {
	category := models.ProductCategory(fl.Field().String())
	for _, c := range models.ProductCategories {
		if c == category {
			return true
		}
	}
	return false
}

func validateOrderStatus(fl validator.FieldLevel) bool {
	return models.OrderStatus(fl.Field().String()).Valid()
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Kind().String() == "string" {
			return e.Field() + " must be at least " + e.Param() + " characters"
		}
		return e.Field() + " must be at least " + e.Param()
	case "max":
		if e.Kind().String() == "string" {
			return e.Field() + " must be at most " + e.Param() + " characters"
		}
		return e.Field() + " must be at most " + e.Param()
	case "eqfield":
		return e.Field() + " must match " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "len":
		return e.Field() + " must be exactly " + e.Param() + " characters"
	case "numeric":
		return e.Field() + " must be numeric"
	case "product_category":
		return "Invalid product category"
	case "order_status":
		return "Order status must be one of: pending, in-progress, completed, cancelled"
	default:
		return e.Field() + " is invalid"
	}
}
