/*
Package req provides helper functions for HTTP request parsing and data binding.

It encapsulates JSON body decoding with strictness checks (unknown fields,
trailing content) and maps failures to the application's error codes.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"cesuchat/internal/pkg/errs"
)

// MaxBodyBytes caps the request body size accepted by BindJSON.
const MaxBodyBytes int64 = 1 << 20 // 1 MB

// BindJSON binds the JSON data from the HTTP request body to the destination struct dst.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
