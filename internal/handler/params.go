package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

// listParams holds the query parameters accepted by object listings.
// Tags arrive comma-separated (?tags=a,b), the OpenAPI "form" style with
// explode=false.
type listParams struct {
	Tags   *[]string
	Search *string
	Page   *int
	Limit  *int
}

// bindListParams parses the listing query string. Every malformed parameter
// is reported, keyed by its name.
func bindListParams(r *http.Request) (domain.ObjectFilter, domain.PaginationParams, error) {
	q := r.URL.Query()
	var p listParams
	verr := domain.NewValidationError()

	if err := runtime.BindQueryParameter("form", false, false, "tags", q, &p.Tags); err != nil {
		verr.Add("tags", "must be a comma-separated list of tag ids")
	}
	if err := runtime.BindQueryParameter("form", true, false, "search", q, &p.Search); err != nil {
		verr.Add("search", "must be a string")
	}
	page, err := bindPage(r)
	if err != nil {
		verr.Merge(err)
	}

	var f domain.ObjectFilter
	if p.Tags != nil {
		for _, raw := range *p.Tags {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				verr.Add("tags", "\""+raw+"\" is not a valid tag id")
				continue
			}
			f.TagIDs = append(f.TagIDs, id)
		}
	}
	if p.Search != nil {
		f.Search = *p.Search
	}
	return f, page, verr.OrNil()
}

// bindPage parses ?page= and ?limit=. Absent or non-positive values fall back
// to the defaults in domain.NewPaginationParams.
func bindPage(r *http.Request) (domain.PaginationParams, *domain.ValidationError) {
	q := r.URL.Query()
	var page, limit *int
	verr := domain.NewValidationError()

	if err := runtime.BindQueryParameter("form", true, false, "page", q, &page); err != nil {
		verr.Add("page", "must be an integer")
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		verr.Add("limit", "must be an integer")
	}
	if len(verr.Fields) > 0 {
		return domain.PaginationParams{}, verr
	}
	return domain.NewPaginationParams(page, limit), nil
}

// exportFormat is the ?format= value accepted by the export endpoint.
type exportFormat string

const (
	formatJSON exportFormat = "json"
	formatCSV  exportFormat = "csv"
)

func bindExportFormat(r *http.Request) (exportFormat, error) {
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		return "", domain.FieldError("format", "must be a string")
	}
	if format == nil {
		return formatJSON, nil
	}
	switch f := exportFormat(strings.ToLower(*format)); f {
	case formatJSON, formatCSV:
		return f, nil
	}
	return "", domain.FieldError("format", "must be one of: json, csv")
}

// pathID parses the {id} URL segment. A malformed id cannot name any record,
// so it is reported as not found.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.ErrNotFound
	}
	return id, nil
}
