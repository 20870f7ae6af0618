package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"orin/pkg/telemetry"
)

func newTestClient(t *testing.T, mux *http.ServeMux, key string) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := New(srv.Client(), key)
	c.IPifyURL = srv.URL + "/ipify"
	c.IPAPIURL = srv.URL + "/ipapi"
	c.IpstackURL = srv.URL + "/ipstack"
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestLocateViaIPAPI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ipify", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "json", r.URL.Query().Get("format"))
		w.Write([]byte(`{"ip":"203.0.113.7"}`))
	})
	mux.HandleFunc("/ipapi/203.0.113.7", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","lat":37.7749,"lon":-122.4194,"city":"San Francisco","regionName":"California","country":"United States"}`))
	})
	c := newTestClient(t, mux, "")

	loc, err := c.Locate(context.Background())
	require.NoError(t, err)
	require.Equal(t, telemetry.Location{
		Lat:       37.7749,
		Lon:       -122.4194,
		Method:    telemetry.MethodIP,
		Place:     "San Francisco, California, United States",
		UpdatedAt: time.Unix(1700000000, 0),
	}, loc)
}

func TestLocateViaIpstack(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ipstack", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.URL.Query().Get("access_key"))
		w.Write([]byte(`{"latitude":34.0522,"longitude":-118.2437,"city":"Los Angeles","region_name":"California","country_name":"United States"}`))
	})
	c := newTestClient(t, mux, "secret")

	loc, err := c.Locate(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 34.0522, loc.Lat, 1e-9)
	require.Equal(t, "Los Angeles, California, United States", loc.Place)
}

func TestLookupFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ipapi/10.0.0.1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"private range"}`))
	})
	mux.HandleFunc("/ipstack", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":{"info":"invalid access key"}}`))
	})
	mux.HandleFunc("/ipify", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c := newTestClient(t, mux, "")
	ctx := context.Background()

	_, err := c.Lookup(ctx, "10.0.0.1")
	require.ErrorIs(t, err, ErrLookup)
	require.ErrorContains(t, err, "private range")

	_, err = c.Ipstack(ctx, "bad")
	require.ErrorIs(t, err, ErrLookup)
	require.ErrorContains(t, err, "invalid access key")

	_, err = c.Locate(ctx)
	require.ErrorIs(t, err, ErrLookup)
}

func TestUnknownPlace(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ipapi/1.2.3.4", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","lat":1,"lon":2}`))
	})
	c := newTestClient(t, mux, "")

	loc, err := c.Lookup(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.Equal(t, telemetry.UnknownPlace, loc.Place)
}
