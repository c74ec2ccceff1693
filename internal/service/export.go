package service

import (
	"context"
	"fmt"

	"github.com/pkordes/culture-map/backend/internal/domain"
	"github.com/pkordes/culture-map/backend/internal/policy"
	"github.com/pkordes/culture-map/backend/internal/repo"
)

// ExportService assembles a full flat export of the catalog for staff.
type ExportService struct {
	objects repo.ObjectRepo
	options
}

// NewExportService constructs an ExportService backed by the provided repo.
func NewExportService(objects repo.ObjectRepo, opts ...Option) *ExportService {
	return &ExportService{objects: objects, options: buildOptions(opts)}
}

// Export returns one ExportRow per record, archived ones included.
// Only staff may export.
func (s *ExportService) Export(ctx context.Context, caller domain.Caller) ([]domain.ExportRow, error) {
	if err := policy.CanModerate(caller); err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}
	rows, err := s.objects.ExportRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}
	s.logger.InfoContext(ctx, "catalog exported", "rows", len(rows), "caller_id", caller.ID)
	return rows, nil
}
