package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
)

func TestFetcherReturnsRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"INTAKE":"CT021-3-2-SFNB01","MODID":"CT043-3-2","MODULE_NAME":"Advanced Networks","ROOM":"B-06-12","GROUPING":"G1","TIME_FROM_ISO":"2025-03-10T09:00:00+08:00","TIME_TO_ISO":"2025-03-10T11:00:00+08:00"}]`))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, 5*time.Second, nil)
	records, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "CT021-3-2-SFNB01", records[0].Intake)
	assert.Equal(t, "CT043-3-2", records[0].ModuleCode())
}

func TestFetcherNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, 5*time.Second, nil)
	_, err := fetcher.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFetchFailed.Code, appErrors.FromError(err).Code)
}

func TestFetcherTransportError(t *testing.T) {
	fetcher := NewFetcher("http://127.0.0.1:1", time.Second, nil)
	_, err := fetcher.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFetchFailed.Code, appErrors.FromError(err).Code)
}

func TestFetcherRejectsNonArrayBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"maintenance"}`))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, 5*time.Second, nil)
	_, err := fetcher.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidFeed.Code, appErrors.FromError(err).Code)
}

func TestFetcherRejectsEmptyArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.URL, 5*time.Second, nil)
	_, err := fetcher.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidFeed.Code, appErrors.FromError(err).Code)
}
