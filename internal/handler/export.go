package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/culture-map/backend/internal/domain"
	"github.com/pkordes/culture-map/backend/internal/middleware"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"object_id", "title", "status", "author",
	"latitude", "longitude", "tags",
	"created_at", "updated_at", "archived_at",
}

type exportRowResponse struct {
	ObjectID   uuid.UUID     `json:"object_id"`
	Title      string        `json:"title"`
	Status     domain.Status `json:"status"`
	Author     string        `json:"author"`
	Latitude   float64       `json:"latitude"`
	Longitude  float64       `json:"longitude"`
	Tags       []string      `json:"tags"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	ArchivedAt *time.Time    `json:"archived_at"`
}

// GetExport handles GET /api/admin/objects/export.
// It returns every record, archived ones included, as a flat table.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	rows, err := s.export.Export(r.Context(), middleware.CallerFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err, "export")
		return
	}

	format, err := bindExportFormat(r)
	if err != nil {
		s.fail(w, r, err, "export")
		return
	}
	if format == formatCSV {
		writeCSV(w, rows)
		return
	}
	writeJSON(w, http.StatusOK, buildJSONResponse(rows))
}

// buildJSONResponse converts domain rows to their JSON shape.
func buildJSONResponse(rows []domain.ExportRow) []exportRowResponse {
	out := make([]exportRowResponse, 0, len(rows))
	for _, r := range rows {
		id, _ := uuid.Parse(r.ObjectID)
		tags := r.Tags
		if tags == nil {
			tags = []string{}
		}
		out = append(out, exportRowResponse{
			ObjectID:   id,
			Title:      r.Title,
			Status:     r.Status,
			Author:     r.AuthorUsername,
			Latitude:   r.Latitude,
			Longitude:  r.Longitude,
			Tags:       tags,
			CreatedAt:  r.CreatedAt,
			UpdatedAt:  r.UpdatedAt,
			ArchivedAt: r.ArchivedAt,
		})
	}
	return out
}

// writeCSV encodes domain rows as a CSV attachment.
// Tags within a row are pipe-separated ("|") to keep each object on a single CSV line.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	// bytes.Buffer.Write never returns an error.
	_ = cw.Write(csvHeaders)
	for _, r := range rows {
		_ = cw.Write(domainRowToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="cultural_objects.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// domainRowToCSVRecord encodes a domain.ExportRow as a flat string slice.
// Coordinates keep the six decimal places they are stored with; a nil
// archived_at is encoded as an empty string.
func domainRowToCSVRecord(r domain.ExportRow) []string {
	return []string{
		r.ObjectID,
		r.Title,
		string(r.Status),
		r.AuthorUsername,
		strconv.FormatFloat(r.Latitude, 'f', 6, 64),
		strconv.FormatFloat(r.Longitude, 'f', 6, 64),
		strings.Join(r.Tags, "|"),
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.UpdatedAt.UTC().Format(time.RFC3339),
		formatOptionalTime(r.ArchivedAt),
	}
}

// formatOptionalTime returns the RFC3339 representation of t, or "" if t is nil.
func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
