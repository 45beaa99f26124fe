package pubg

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("test-key", "steam", WithBaseURL(server.URL), WithSampleRate(0))
	require.NoError(t, err)
	return client, server
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("", "steam")
	require.Error(t, err)
}

func TestSample_ParsesReferencesAndRateLimit(t *testing.T) {
	var gotFilter, gotAuth, gotAccept, gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFilter = r.URL.Query().Get("filter[createdAt-start]")
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("X-Ratelimit-Remaining", "7")
		w.Header().Set("X-Ratelimit-Reset", "1700000000")
		w.Write([]byte(`{"data":{"type":"sample","id":"s1","relationships":{"matches":{"data":[
			{"type":"match","id":"m1"},{"type":"match","id":"m2"}]}}}}`))
	})

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sample, err := client.Sample(context.Background(), at)
	require.NoError(t, err)

	assert.Equal(t, "/shards/steam/samples", gotPath)
	assert.Equal(t, "2024-03-01T12:00:00Z", gotFilter)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "application/vnd.api+json", gotAccept)
	assert.Equal(t, []string{"m1", "m2"}, sample.MatchIDs())

	require.NotNil(t, sample.RateLimit.Remaining)
	require.NotNil(t, sample.RateLimit.Reset)
	assert.Equal(t, 7, *sample.RateLimit.Remaining)
	assert.Equal(t, int64(1700000000), *sample.RateLimit.Reset)
}

func TestSample_Unauthorized(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Sample(context.Background(), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestSample_TooManyRequestsCarriesReset(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ratelimit-Remaining", "0")
		w.Header().Set("X-Ratelimit-Reset", "1700000060")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Sample(context.Background(), time.Now())
	require.ErrorIs(t, err, ErrRateLimited)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.NotNil(t, statusErr.RateLimit.Reset)
	assert.Equal(t, int64(1700000060), *statusErr.RateLimit.Reset)
}

func TestGetMatch_TelemetryURL(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/shards/steam/matches/m1", r.URL.Path)
		w.Write([]byte(`{
			"data":{"type":"match","id":"m1","attributes":{"gameMode":"squad-fpp","isCustomMatch":false,"mapName":"Baltic_Main"}},
			"included":[
				{"type":"participant","id":"p1","attributes":{}},
				{"type":"asset","id":"a1","attributes":{"name":"telemetry","URL":"https://telemetry-cdn.example/m1.json"}}
			]}`))
	})

	match, err := client.GetMatch(context.Background(), "m1")
	require.NoError(t, err)

	attrs, err := match.Attributes()
	require.NoError(t, err)
	assert.Equal(t, "squad-fpp", attrs.GameMode)
	assert.False(t, attrs.IsCustomMatch)
	assert.Equal(t, "Baltic_Main", attrs.MapName)

	u, ok := match.TelemetryURL()
	require.True(t, ok)
	assert.Equal(t, "https://telemetry-cdn.example/m1.json", u)
}

func TestGetMatch_NoTelemetryAsset(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"type":"match","id":"m1","attributes":{"gameMode":"solo"}},"included":[]}`))
	})

	match, err := client.GetMatch(context.Background(), "m1")
	require.NoError(t, err)
	_, ok := match.TelemetryURL()
	assert.False(t, ok)
}

func TestGetMatch_MissingData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[]}`))
	})

	_, err := client.GetMatch(context.Background(), "m1")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestResolveRegion(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		region Region
		ok     bool
	}{
		{
			name:   "pc match id",
			body:   `[{"_T":"LogMatchDefinition","MatchId":"match.bro.official.pc-2018-04.steam.squad-fpp.na.2024.03.01.00.abc","PingQuality":"low"}]`,
			region: RegionNorthAmerica,
			ok:     true,
		},
		{
			name:   "first event without id is skipped",
			body:   `[{"_T":"LogPlayerLogin"},{"_T":"LogMatchDefinition","MatchId":"match.bro.official.pc-2018-04.steam.duo.eu.2024.03.01.00.abc"}]`,
			region: RegionEurope,
			ok:     true,
		},
		{
			name: "console match id",
			body: `[{"_T":"LogMatchDefinition","MatchId":"match.bro.official.console-07.xbox.squad.na.2024.03.01.00.abc"}]`,
		},
		{
			name: "no match id at all",
			body: `[{"_T":"LogPlayerLogin"}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Empty(t, r.Header.Get("Authorization"), "telemetry must not receive credentials")
				w.Write([]byte(tt.body))
			})

			region, ok, err := client.ResolveRegion(context.Background(), server.URL+"/telemetry.json")
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.region, region)
		})
	}
}

func TestResolveRegion_ServerError(t *testing.T) {
	client, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, _, err := client.ResolveRegion(context.Background(), server.URL+"/telemetry.json")
	require.Error(t, err)
}

func TestRandomSampleTime_Window(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		ts := RandomSampleTime(now, rng)
		age := now.Sub(ts)
		require.GreaterOrEqual(t, age, 24*time.Hour)
		require.Less(t, age, 24*time.Hour+312*time.Hour)
		require.Equal(t, time.UTC, ts.Location())
	}
}

func TestParseRateLimit_Missing(t *testing.T) {
	rl := ParseRateLimit(http.Header{})
	assert.Nil(t, rl.Remaining)
	assert.Nil(t, rl.Reset)

	h := http.Header{}
	h.Set("X-Ratelimit-Remaining", "lots")
	rl = ParseRateLimit(h)
	assert.Nil(t, rl.Remaining)
}

func TestSample_MissingData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"title":"Not Found"}]}`))
	})

	_, err := client.Sample(context.Background(), time.Now())
	require.ErrorIs(t, err, ErrMalformed)
}

func TestSample_CancelWhilePacing(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"data":{"type":"sample","id":"s1","relationships":{"matches":{"data":[]}}}}`))
	}))
	t.Cleanup(server.Close)

	// One sample a minute: the second call has to wait ~60s for its slot
	client, err := NewClient("test-key", "steam", WithBaseURL(server.URL), WithSampleRate(1))
	require.NoError(t, err)

	_, err = client.Sample(context.Background(), time.Now())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err = client.Sample(ctx, time.Now())
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, int32(1), calls.Load())
}
