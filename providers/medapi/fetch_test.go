package medapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"med-watch/config"
	"med-watch/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFetcher(baseURL string) *Fetcher {
	return NewFetcher(&config.Config{ServerURL: baseURL}, zap.NewNop())
}

func TestFetchMedications(t *testing.T) {
	var gotPath, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"_id": "a", "name": "Drug A", "category": "Pain", "organizations": [{"organization": "WHO"}], "badEffectScore": 80},
			{"id": 2, "name": "Drug B", "category": "Cardiac", "badEffectScore": 95}
		]`))
	}))
	defer srv.Close()

	records, err := newTestFetcher(srv.URL + "/").FetchMedications(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/api/medications", gotPath)
	assert.Equal(t, userAgent, gotUA)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "2", records[1].ID)
	assert.Empty(t, records[1].Organizations)
}

func TestFetchMedicationsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}))
	defer srv.Close()

	records, err := newTestFetcher(srv.URL).FetchMedications(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFetchMedicationsFailures(t *testing.T) {
	t.Run("non 2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := newTestFetcher(srv.URL).FetchMedications(context.Background())
		assert.ErrorIs(t, err, providers.ErrFetchFailed)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"not": "an array"}`))
		}))
		defer srv.Close()

		_, err := newTestFetcher(srv.URL).FetchMedications(context.Background())
		assert.ErrorIs(t, err, providers.ErrFetchFailed)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := newTestFetcher(url).FetchMedications(context.Background())
		assert.ErrorIs(t, err, providers.ErrFetchFailed)
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestFetcher(srv.URL).FetchMedications(ctx)
		assert.ErrorIs(t, err, providers.ErrFetchFailed)
	})
}
