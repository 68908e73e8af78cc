package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dafibh/tablero/tablero-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter struct {
	body   string
	err    error
	bucket string
	key    string
}

func (f *fakeGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = aws.ToString(params.Bucket)
	f.key = aws.ToString(params.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3RecordSource_FetchRecords(t *testing.T) {
	getter := &fakeGetter{body: `{"Data":[{"row_number":1,"anio":2024,"mes":"ENERO","presupuesto":10}]}`}
	source := NewS3RecordSourceWithClient(getter, "tablero", "exports/records.json")

	records, err := source.FetchRecords(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2024, records[0].Year)
	assert.Equal(t, "tablero", getter.bucket)
	assert.Equal(t, "exports/records.json", getter.key)
}

func TestS3RecordSource_GetError(t *testing.T) {
	getter := &fakeGetter{err: errors.New("access denied")}
	source := NewS3RecordSourceWithClient(getter, "tablero", "records.json")

	_, err := source.FetchRecords(context.Background())

	assert.ErrorContains(t, err, "access denied")
}

func TestS3RecordSource_MalformedObject(t *testing.T) {
	getter := &fakeGetter{body: `not json`}
	source := NewS3RecordSourceWithClient(getter, "tablero", "records.json")

	_, err := source.FetchRecords(context.Background())

	assert.ErrorIs(t, err, domain.ErrMalformedPayload)
}
