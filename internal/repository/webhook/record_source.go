package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// maxBodySize caps how much of an upstream response is read
const maxBodySize = 32 << 20

// RecordSource implements domain.RecordSource against an HTTP endpoint
type RecordSource struct {
	client *http.Client
	url    string
}

// Ensure RecordSource implements domain.RecordSource
var _ domain.RecordSource = (*RecordSource)(nil)

// NewRecordSource creates a RecordSource that GETs url once per fetch
func NewRecordSource(url string, timeout time.Duration) *RecordSource {
	return &RecordSource{
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

// FetchRecords performs a single GET and decodes the raw records.
// There is no retry: any failure is returned to the caller.
func (s *RecordSource) FetchRecords(ctx context.Context) ([]*domain.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", domain.ErrUpstreamStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read records body: %w", err)
	}

	records, err := domain.DecodeRawRecords(body)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("raw_records", len(records)).
		Dur("latency", time.Since(start)).
		Msg("Fetched records from webhook")

	return records, nil
}
