// Package catalog owns changes to the project catalog: spreadsheet imports
// (full replacement, one at a time), seeding of the built-in samples and the
// sample export.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	apperrors "github.com/gochang/agri-notify/internal/errors"
	"github.com/gochang/agri-notify/internal/logger"
	"github.com/gochang/agri-notify/internal/metrics"
	"github.com/gochang/agri-notify/internal/project"
	"github.com/gochang/agri-notify/internal/sliceutil"
	"github.com/gochang/agri-notify/internal/tabular"
)

// Store persists the catalog.
type Store interface {
	ReplaceProjects(ctx context.Context, projects []project.Project) error
	ListProjects(ctx context.Context) ([]project.Project, error)
	SeedIfEmpty(ctx context.Context, projects []project.Project) (bool, error)
}

// Archiver keeps a copy of each imported file.
type Archiver interface {
	Store(ctx context.Context, filename string, data []byte, t time.Time) (string, error)
}

// Resetter forgets what was already sent for a project.
type Resetter interface {
	Reset(ctx context.Context, projectID string) error
}

// Report describes a finished import.
type Report struct {
	Filename   string               `json:"filename"`
	Format     string               `json:"format"`
	DataRows   int                  `json:"dataRows"`
	Imported   int                  `json:"imported"`
	Skipped    []tabular.SkippedRow `json:"skipped,omitempty"`
	ArchiveKey string               `json:"archiveKey,omitempty"`
	// Duplicates counts rows replaced by a later row with the same id.
	Duplicates int `json:"duplicates,omitempty"`
	// Rescheduled lists ids whose period or notification date changed and
	// whose sent markers were cleared.
	Rescheduled []string `json:"rescheduled,omitempty"`
}

var importWrapper = apperrors.NewWrapper("catalog", "import")

// Service serializes imports and keeps the catalog gauges current.
type Service struct {
	store   Store
	archive Archiver
	reset   Resetter
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time

	mu sync.Mutex
}

// NewService creates a Service. archive, reset and m may be nil.
func NewService(store Store, archive Archiver, reset Resetter, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		archive: archive,
		reset:   reset,
		metrics: m,
		log:     log.WithModule("catalog"),
		now:     time.Now,
	}
}

// Import parses data and, if it yields at least one project, replaces the
// whole catalog with it. On any error the stored catalog is unchanged.
func (s *Service) Import(ctx context.Context, filename string, data []byte) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep := Report{Filename: filename, Format: formatLabel(filename, data)}
	log := s.log.WithField("filename", filename).WithField("format", rep.Format)

	res, err := tabular.ImportFile(filename, bytes.NewReader(data))
	if err != nil {
		s.recordImport(rep.Format, "error", 0, 0)
		log.WithError(err).WarnContext(ctx, "Import source rejected")
		return rep, err
	}
	projects, dups := sliceutil.DeduplicateLast(res.Projects, func(p project.Project) string { return p.ID })
	rep.DataRows = res.DataRows
	rep.Imported = len(projects)
	rep.Duplicates = dups
	rep.Skipped = res.Skipped
	for _, skipped := range res.Skipped {
		log.WithField("row", skipped.Row).WithField("reason", skipped.Reason).DebugContext(ctx, "Import row skipped")
	}

	if len(projects) == 0 {
		s.recordImport(rep.Format, "no_data", 0, len(res.Skipped))
		return rep, importWrapper.Wrap(apperrors.ErrNoValidData, "유효한 데이터가 없습니다. 파일 형식을 확인해주세요.")
	}

	previous, err := s.store.ListProjects(ctx)
	if err != nil {
		s.recordImport(rep.Format, "error", 0, len(res.Skipped))
		return rep, importWrapper.Wrap(err, "사업 목록을 읽지 못했습니다.")
	}

	if err := s.store.ReplaceProjects(ctx, projects); err != nil {
		s.recordImport(rep.Format, "error", 0, len(res.Skipped))
		return rep, importWrapper.Wrap(err, "사업 목록을 저장하지 못했습니다.")
	}
	s.recordImport(rep.Format, "success", rep.Imported, len(res.Skipped))
	s.RefreshGauges(ctx)
	rep.Rescheduled = s.resetRescheduled(ctx, previous, projects)

	if s.archive != nil {
		key, err := s.archive.Store(ctx, filename, data, s.now())
		if err != nil {
			log.WithError(err).WarnContext(ctx, "Failed to archive import file")
		} else {
			rep.ArchiveKey = key
		}
	}

	log.WithField("imported", rep.Imported).
		WithField("skipped", len(rep.Skipped)).
		WithField("duplicates", dups).
		InfoContext(ctx, "Catalog replaced from import")
	return rep, nil
}

// resetRescheduled clears sent markers of projects kept by the import whose
// application period or notification date changed. A failed reset is logged;
// the catalog is already replaced at this point.
func (s *Service) resetRescheduled(ctx context.Context, previous, next []project.Project) []string {
	if s.reset == nil {
		return nil
	}
	old := make(map[string]project.Project, len(previous))
	for _, p := range previous {
		old[p.ID] = p
	}
	var ids []string
	for _, p := range next {
		was, ok := old[p.ID]
		if !ok || (was.ApplicationPeriod == p.ApplicationPeriod && was.NotificationDate == p.NotificationDate) {
			continue
		}
		if err := s.reset.Reset(ctx, p.ID); err != nil {
			s.log.WithField("project_id", p.ID).WithError(err).WarnContext(ctx, "Failed to reset reminder history")
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids
}

// Seed stores the built-in samples when the catalog is empty.
func (s *Service) Seed(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeded, err := s.store.SeedIfEmpty(ctx, project.Samples())
	if err != nil {
		return false, fmt.Errorf("catalog: seed: %w", err)
	}
	if seeded {
		s.log.WithField("count", len(project.Samples())).InfoContext(ctx, "Seeded built-in sample catalog")
	}
	s.RefreshGauges(ctx)
	return seeded, nil
}

// RefreshGauges updates the catalog size metrics.
func (s *Service) RefreshGauges(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		s.log.WithError(err).WarnContext(ctx, "Failed to read catalog for metrics")
		return
	}
	active := 0
	for _, p := range projects {
		if p.IsActive {
			active++
		}
	}
	s.metrics.SetCatalogSize(len(projects), active)
}

func (s *Service) recordImport(format, status string, imported, skipped int) {
	if s.metrics != nil {
		s.metrics.RecordImport(format, status, imported, skipped)
	}
}

// WriteSampleCSV writes the built-in samples in the import layout.
func WriteSampleCSV(w io.Writer) error {
	return tabular.WriteCSV(w, project.Samples())
}

// IsClientError reports whether an import error was caused by the upload
// itself rather than by the service.
func IsClientError(err error) bool {
	return errors.Is(err, apperrors.ErrUnsupportedFormat) ||
		errors.Is(err, apperrors.ErrUnreadableSource) ||
		errors.Is(err, apperrors.ErrNoValidData)
}

func formatLabel(filename string, data []byte) string {
	format, err := tabular.DetectFormat(filename)
	if err != nil {
		return "unsupported"
	}
	if format == "" {
		if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
			return string(tabular.FormatXLSX)
		}
		return string(tabular.FormatCSV)
	}
	return string(format)
}
