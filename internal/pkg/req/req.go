/*
Package req provides helpers for HTTP request parsing and data binding.

It decodes JSON bodies into destination structs and runs struct-tag validation
on the result, so handlers receive inputs that already satisfy their declared
constraints.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"flirto/internal/pkg/errs"
)

// validate is the shared validator instance; Struct is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// BindJSON binds the JSON request body to dst and validates it against the
// struct's `validate` tags.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	if err := validate.Struct(dst); err != nil {
		return errs.NewError(errs.ErrInvalidParams)
	}

	return nil
}
