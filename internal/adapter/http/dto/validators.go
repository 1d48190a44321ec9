package dto

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"campus-token-ledger/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// maxAmountPlaces is the token precision; finer amounts cannot be represented on chain.
const maxAmountPlaces = 18

var (
	errAmountNotPositive = errors.New("amount must be positive")
	errAmountPrecision   = errors.New("amount has more than 18 decimal places")
)

var idempotencyKeyRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.:]{1,128}$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("token_amount", validateTokenAmount)
		_ = v.RegisterValidation("tx_hash", validateTxHash)
	}
}

// validateTokenAmount accepts positive decimal strings with at most 18 fractional digits.
func validateTokenAmount(fl validator.FieldLevel) bool {
	_, err := ParseAmount(fl.Field().String())
	return err == nil
}

func validateTxHash(fl validator.FieldLevel) bool {
	return domain.IsTxHash(strings.TrimSpace(fl.Field().String()))
}

// ParseAmount parses a positive token amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, errAmountNotPositive
	}
	if -d.Exponent() > maxAmountPlaces && !d.Equal(d.Truncate(maxAmountPlaces)) {
		return decimal.Zero, errAmountPrecision
	}
	return d, nil
}

// ValidIdempotencyKey reports whether k is usable as an Idempotency-Key header value.
func ValidIdempotencyKey(k string) bool {
	return idempotencyKeyRe.MatchString(k)
}

// TrimStruct trims whitespace from every exported string field (including
// *string) of a struct pointer. Text is stored as sent; escaping belongs to
// whatever renders it.
func TrimStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	trimFields(rv.Elem())
}

func trimFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			if elem := f.Elem(); elem.Kind() == reflect.String {
				elem.SetString(strings.TrimSpace(elem.String()))
			}
		}
	}
}
