package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/dafibh/tablero/tablero-backend/internal/ledger"
	"github.com/dafibh/tablero/tablero-backend/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// DashboardService owns the in-memory dataset and derives every dashboard view from it
type DashboardService struct {
	source         domain.RecordSource
	normalizer     ledger.Normalizer
	snapshot       atomic.Pointer[domain.Snapshot]
	refreshGroup   singleflight.Group
	eventPublisher websocket.EventPublisher
	now            func() time.Time
}

// NewDashboardService creates a DashboardService whose dataset starts out loading
func NewDashboardService(source domain.RecordSource, normalizer ledger.Normalizer) *DashboardService {
	s := &DashboardService{
		source:     source,
		normalizer: normalizer,
		now:        time.Now,
	}
	s.snapshot.Store(&domain.Snapshot{Status: domain.SnapshotLoading})
	return s
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *DashboardService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// publishEvent publishes a WebSocket event if a publisher is configured
func (s *DashboardService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// Current returns the snapshot readers should use
func (s *DashboardService) Current() *domain.Snapshot {
	return s.snapshot.Load()
}

// Refresh fetches the dataset once and swaps in a new snapshot. Concurrent
// callers share one fetch. On failure the error snapshot replaces the data
// and ErrDataUnavailable is returned.
func (s *DashboardService) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	v, _, shared := s.refreshGroup.Do(refreshKey, func() (interface{}, error) {
		return s.load(ctx), nil
	})
	snap := v.(*domain.Snapshot)

	if shared {
		log.Debug().Msg("Refresh joined an in-flight fetch")
	}

	if snap.Status == domain.SnapshotError {
		return snap, domain.ErrDataUnavailable
	}
	return snap, nil
}

func (s *DashboardService) load(ctx context.Context) *domain.Snapshot {
	s.publishEvent(websocket.DatasetLoading(websocket.DatasetPayload{
		Status:   string(domain.SnapshotLoading),
		LoadedAt: s.Current().LoadedAt,
	}))

	start := s.now()
	raws, err := s.source.FetchRecords(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load records")

		snap := &domain.Snapshot{
			Status:   domain.SnapshotError,
			Error:    domain.DataUnavailableMessage,
			LoadedAt: s.now(),
		}
		s.snapshot.Store(snap)
		s.publishEvent(websocket.DatasetFailed(websocket.DatasetPayload{
			Status:   string(snap.Status),
			LoadedAt: snap.LoadedAt,
			Error:    snap.Error,
		}))
		return snap
	}

	records := s.normalizer.NormalizeAll(raws)
	snap := &domain.Snapshot{
		Status:     domain.SnapshotReady,
		Records:    records,
		Categories: ledger.DistinctCategories(records),
		Channels:   ledger.DistinctChannels(records),
		LoadedAt:   s.now(),
	}
	s.snapshot.Store(snap)

	log.Info().
		Int("raw_records", len(raws)).
		Int("records", len(records)).
		Dur("latency", snap.LoadedAt.Sub(start)).
		Msg("Dataset refreshed")

	s.publishEvent(websocket.DatasetRefreshed(websocket.DatasetPayload{
		Status:      string(snap.Status),
		RecordCount: len(records),
		LoadedAt:    snap.LoadedAt,
	}))
	return snap
}

// ready returns the current snapshot or the error that keeps it from serving views
func (s *DashboardService) ready() (*domain.Snapshot, error) {
	snap := s.Current()
	if err := snap.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

// GetSummary returns the KPIs, groupings and date range of the filtered selection
func (s *DashboardService) GetSummary(spec domain.FilterSpec) (*domain.DashboardSummary, error) {
	snap, err := s.ready()
	if err != nil {
		return nil, err
	}

	filtered := ledger.Apply(snap.Records, spec)

	return &domain.DashboardSummary{
		DateRange:          ledger.DateRangeLabel(filtered),
		KPIs:               ledger.ComputeKPIs(filtered),
		ByCategory:         ledger.GroupBy(filtered, domain.GroupByCategory),
		ByChannel:          ledger.GroupBy(filtered, domain.GroupByChannel),
		ByDate:             ledger.GroupBy(filtered, domain.GroupByDate),
		ActualShare:        ledger.ActualShare(filtered),
		CategoryDeviations: ledger.CategoryDeviations(filtered),
		LoadedAt:           snap.LoadedAt,
	}, nil
}

// GetOptions returns the category and channel choices of the unfiltered dataset
func (s *DashboardService) GetOptions() (*domain.FilterOptions, error) {
	snap, err := s.ready()
	if err != nil {
		return nil, err
	}
	return &domain.FilterOptions{
		Categories: snap.Categories,
		Channels:   snap.Channels,
	}, nil
}

// GetRecords returns one page of the filtered, sorted table. The page is
// clamped into the valid range, and rows carry their category's deviation
// within the selection.
func (s *DashboardService) GetRecords(spec domain.FilterSpec, field domain.SortField, dir domain.SortDirection, page int) (*domain.RecordPage, error) {
	snap, err := s.ready()
	if err != nil {
		return nil, err
	}

	filtered := ledger.Apply(snap.Records, spec)
	totalPages := ledger.TotalPages(len(filtered), domain.PageSize)
	page = max(1, min(page, totalPages))

	projected := ledger.Project(filtered, field, dir, page, domain.PageSize)
	deviations := ledger.CategoryDeviations(filtered)

	rows := make([]domain.RecordRow, 0, len(projected.Items))
	for _, rec := range projected.Items {
		rows = append(rows, domain.RecordRow{
			Record:            rec,
			CategoryDeviation: deviations[rec.Category],
		})
	}

	return &domain.RecordPage{
		Rows:       rows,
		Page:       projected.Page,
		PageSize:   projected.PageSize,
		TotalItems: projected.TotalItems,
		TotalPages: projected.TotalPages,
	}, nil
}

// FilteredSorted returns the whole filtered table in display order together
// with the per-category deviations of the selection
func (s *DashboardService) FilteredSorted(spec domain.FilterSpec, field domain.SortField, dir domain.SortDirection) ([]domain.Record, map[string]decimal.Decimal, error) {
	snap, err := s.ready()
	if err != nil {
		return nil, nil, err
	}

	filtered := ledger.Apply(snap.Records, spec)
	return ledger.Sort(filtered, field, dir), ledger.CategoryDeviations(filtered), nil
}
