// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	last4Regex = regexp.MustCompile(`^[0-9]{4}$`)
	monthRegex = regexp.MustCompile(`^[0-9]{4}-(0[1-9]|1[0-2])$`)
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn installs the custom validations on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("entry_type", validateEntryType)
	_ = v.RegisterValidation("funding_source", validateFundingSource)
	_ = v.RegisterValidation("bank_kind", validateBankKind)
	_ = v.RegisterValidation("category_type", validateCategoryType)
	_ = v.RegisterValidation("refund_mode", validateRefundMode)
	_ = v.RegisterValidation("role", validateRole)
	_ = v.RegisterValidation("last4", validateLast4)
	_ = v.RegisterValidation("yyyymm", validateMonth)
	_ = v.RegisterValidation("timezone", validateTimeZone)
}

// income and expense are the only types created through the generic endpoint.
func validateEntryType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "income", "expense":
		return true
	}
	return false
}

func validateFundingSource(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "cash", "bank":
		return true
	}
	return false
}

func validateBankKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debit", "credit":
		return true
	}
	return false
}

func validateCategoryType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "income", "expense":
		return true
	}
	return false
}

func validateRefundMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "full", "partial":
		return true
	}
	return false
}

func validateRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "admin", "user":
		return true
	}
	return false
}

func validateLast4(fl validator.FieldLevel) bool {
	return last4Regex.MatchString(fl.Field().String())
}

func validateMonth(fl validator.FieldLevel) bool {
	return monthRegex.MatchString(fl.Field().String())
}

func validateTimeZone(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}
