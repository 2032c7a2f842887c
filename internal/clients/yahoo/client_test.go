package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverhq/quiver/internal/common"
	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/models"
)

// 2024-01-02 and 2024-01-03 as unix timestamps, with a null entry between.
const chartBody = `{
  "chart": {
    "result": [{
      "meta": {"currency": "BRL"},
      "timestamp": [1704153600, 1704240000, 1704326400],
      "events": {
        "splits": {"1704326400": {"date": 1704326400, "numerator": 8, "denominator": 1}},
        "dividends": {"1704153600": {"date": 1704153600, "amount": 0.35}}
      },
      "indicators": {
        "quote": [{
          "open": [37.1, null, 38.2],
          "high": [38.0, null, 39.0],
          "low": [36.9, null, 38.0],
          "close": [37.8, null, 38.6],
          "volume": [1000, null, 2000]
        }],
        "adjclose": [{"adjclose": [37.5, null, 38.6]}]
      }
    }],
    "error": null
  }
}`

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(
		WithBaseURL(srv.URL),
		WithLogger(common.NewSilentLogger()),
		WithRateLimit(1000),
	)
	return client, srv
}

func TestFetchHistory_ParsesChart(t *testing.T) {
	var gotPath, gotQuery string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, chartBody)
	})
	defer srv.Close()

	payload, err := client.FetchHistory(context.Background(), "PETR4.SA")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/PETR4.SA", gotPath)
	assert.Contains(t, gotQuery, "interval=1d")
	assert.Contains(t, gotQuery, "range=max")

	assert.Equal(t, "BRL", payload.Currency)
	require.Len(t, payload.Rows, 2, "null close entry dropped")

	first := payload.Rows[0]
	assert.Equal(t, "2024-01-02", first.DateKey())
	assert.Equal(t, 37.8, first.Close)
	assert.Equal(t, 37.5, first.AdjustedClose)
	assert.Equal(t, 0.35, first.Dividends)
	assert.Zero(t, first.SplitFactor)

	second := payload.Rows[1]
	assert.Equal(t, "2024-01-04", second.DateKey())
	assert.Equal(t, 8.0, second.SplitFactor, "numerator/denominator")
	assert.Equal(t, 38.6, second.AdjustedClose, "falls back to close when adjclose is null")
}

func TestFetchHistory_StartDateSetsPeriodBounds(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("period1"))
		assert.NotEmpty(t, r.URL.Query().Get("period2"))
		assert.Empty(t, r.URL.Query().Get("range"))
		fmt.Fprint(w, chartBody)
	})
	defer srv.Close()

	_, err := client.FetchHistory(context.Background(), "PETR4.SA",
		interfaces.WithStartDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
}

func TestFetchHistory_ChartErrorIsDataIncomplete(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}}}`)
	})
	defer srv.Close()

	_, err := client.FetchHistory(context.Background(), "GONE11")
	require.Error(t, err)
	assert.True(t, models.IsDataIncomplete(err))
	assert.Contains(t, err.Error(), "delisted")

	payload, err := client.FetchHistory(context.Background(), "GONE11", interfaces.WithAllowEmpty())
	require.NoError(t, err)
	assert.Empty(t, payload.Rows)
}

func TestFetchHistory_ServerErrorIsUnavailableAfterRetry(t *testing.T) {
	var hits int32
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := client.FetchHistory(context.Background(), "PETR4.SA")
	require.Error(t, err)
	assert.True(t, models.IsProviderUnavailable(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "transport layer retries once")
}
