package usgs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-risk/internal/domain"
	"github.com/couchcryptid/quake-risk/internal/observability"
	"github.com/couchcryptid/quake-risk/internal/retry"
)

const sampleCSV = `time,latitude,longitude,depth,mag,magType,nst,gap,dmin,rms,net,id,updated,place,type
2025-03-17T10:31:08.290Z,37.7015,-121.9360,6.1,2.5,md,40,50,0.02,0.1,nc,nc75150001,2025-03-17T10:40:00.000Z,"5 km WNW of Dublin, CA",earthquake
2025-03-16T04:12:55.120Z,61.2910,-150.0230,35.2,3.1,ml,,,,0.5,ak,ak025001,2025-03-16T05:00:00.000Z,"12 km N of Anchorage, Alaska",earthquake
2025-03-15T22:01:00.000Z,38.8100,-122.8200,1.9,-0.3,md,12,80,0.01,0.05,nc,nc75149999,2025-03-15T22:10:00.000Z,"7 km NW of The Geysers, CA",earthquake
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastPolicy() retry.Policy {
	p := retry.USGSPolicy()
	p.InitialInterval = time.Millisecond
	p.MaxInterval = 2 * time.Millisecond
	return p
}

func testClient(url string, metrics *observability.Metrics) *Client {
	return NewClient(url, 5*time.Second, fastPolicy(), discardLogger(), metrics)
}

var testWindow = domain.DateWindow{Start: "2025-03-10", End: "2025-03-17"}

func TestFetchRaw_SendsQueryAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "csv", q.Get("format"))
		assert.Equal(t, "earthquake", q.Get("eventtype"))
		assert.Equal(t, "24.6", q.Get("minlatitude"))
		assert.Equal(t, "71.2", q.Get("maxlatitude"))
		assert.Equal(t, "-168.7", q.Get("minlongitude"))
		assert.Equal(t, "-65", q.Get("maxlongitude"))
		assert.Equal(t, "2025-03-10", q.Get("starttime"))
		assert.Equal(t, "2025-03-17", q.Get("endtime"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, sampleCSV)
	}))
	defer srv.Close()

	recs, err := testClient(srv.URL, observability.NewMetricsForTesting()).FetchRaw(context.Background(), testWindow)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, domain.RawQuakeRecord{
		Time:      "2025-03-17T10:31:08.290Z",
		Latitude:  "37.7015",
		Longitude: "-121.9360",
		Depth:     "6.1",
		Mag:       "2.5",
		MagType:   "md",
		ID:        "nc75150001",
		Place:     "5 km WNW of Dublin, CA",
		Type:      "earthquake",
	}, recs[0])
	assert.Equal(t, "12 km N of Anchorage, Alaska", recs[1].Place)
}

func TestFetchRaw_RetriesListedStatuses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, sampleCSV)
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	recs, err := testClient(srv.URL, metrics).FetchRaw(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Equal(t, int32(3), calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SeismicFetches.WithLabelValues(observability.OutcomeSuccess)), 0)
}

func TestFetchRaw_StatusExhaustedStillDecodesBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "Error 400: Bad Request\n")
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	recs, err := testClient(srv.URL, metrics).FetchRaw(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, int32(5), calls.Load(), "five attempts in total")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SeismicFetches.WithLabelValues(observability.OutcomeDegraded)), 0)
}

func TestFetchRaw_UnlistedStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	recs, err := testClient(srv.URL, observability.NewMetricsForTesting()).FetchRaw(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRaw_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := testClient(url, observability.NewMetricsForTesting()).FetchRaw(context.Background(), testWindow)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchRaw_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL, observability.NewMetricsForTesting()).FetchRaw(ctx, testWindow)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecode_SkipsShortRows(t *testing.T) {
	body := []byte("time,latitude,longitude,mag,place\n" +
		"2025-03-17T10:31:08.290Z,37.7,-121.9,2.5,\"Dublin, CA\"\n" +
		"2025-03-17T10:31:08.290Z,37.7\n" +
		"2025-03-17T11:00:00.000Z,38.1,-122.2,1.1,\"Napa, CA\"\n")

	c := testClient("http://unused", observability.NewMetricsForTesting())
	recs := c.decode(body)

	require.Len(t, recs, 2)
	assert.Equal(t, "Napa, CA", recs[1].Place)
}
