package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON value from the request body into dst.
// Unknown fields are ignored, so a payload carrying status or author is
// accepted and those fields simply have no effect.
func decodeJSON(r *http.Request, dst any) error {
	return decodeError(json.NewDecoder(r.Body).Decode(dst))
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &tooLarge):
		return err
	case errors.Is(err, io.EOF):
		return domain.FieldError("body", "is required")
	default:
		return domain.FieldError("body", "must be a valid JSON object")
	}
}

// decodeJSONFields is decodeJSON for payloads whose fields are validated
// together. A value of the wrong JSON type is reported against its field and
// returned separately; the rest of the body is still decoded into dst.
func decodeJSONFields(r *http.Request, dst any) (*domain.ValidationError, error) {
	err := json.NewDecoder(r.Body).Decode(dst)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return domain.FieldError(typeErr.Field, "must be a "+jsonKind(typeErr.Type.Kind())), nil
	}
	if err := decodeError(err); err != nil {
		return nil, err
	}
	return nil, nil
}

func jsonKind(k reflect.Kind) string {
	switch k {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "list"
	case reflect.Bool:
		return "boolean"
	}
	return "string"
}
