package dto

import (
	"html"
	"reflect"
	"strings"

	"wallet-service/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterValidators(v)
	}
}

// RegisterValidators adds the wallet-specific tags to v.
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("wallet_number", validateWalletNumber)
	_ = v.RegisterValidation("key_duration", validateKeyDuration)
	_ = v.RegisterValidation("permission", validatePermission)
}

// validateWalletNumber accepts exactly 13 decimal digits.
func validateWalletNumber(fl validator.FieldLevel) bool {
	return domain.IsValidWalletNumber(fl.Field().String())
}

// validateKeyDuration accepts a positive count followed by H, D, M or Y.
func validateKeyDuration(fl validator.FieldLevel) bool {
	_, err := domain.ParseKeyDuration(fl.Field().String())
	return err == nil
}

func validatePermission(fl validator.FieldLevel) bool {
	_, err := domain.ParsePermission(fl.Field().String())
	return err == nil
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string and []string) of a struct pointer.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			if elem := f.Elem(); elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		case reflect.Slice:
			if f.Type().Elem().Kind() != reflect.String {
				continue
			}
			for j := 0; j < f.Len(); j++ {
				f.Index(j).SetString(sanitize(f.Index(j).String()))
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
