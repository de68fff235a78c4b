package jira

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedServer answers requests with the given status codes in order.
// A code of 200 serves body instead.
func scriptedServer(t *testing.T, body string, codes ...int) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := http.StatusInternalServerError
		if calls < len(codes) {
			code = codes[calls]
		}
		calls++
		if code == http.StatusOK {
			w.Write([]byte(body))
			return
		}
		w.WriteHeader(code)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// recordingSleep collects requested waits without actually waiting.
func recordingSleep(waits *[]time.Duration) SleepFunc {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func testFetcher(srv *httptest.Server, waits *[]time.Duration, opts ...FetcherOption) *Fetcher {
	client := NewClient(srv.URL, WithRequestRate(10000))
	opts = append([]FetcherOption{WithSleep(recordingSleep(waits))}, opts...)
	return NewFetcher(client, zerolog.Nop(), opts...)
}

func TestFetcher_GetJSON(t *testing.T) {
	t.Run("returns immediately on success", func(t *testing.T) {
		srv, calls := scriptedServer(t, `{"total":3}`, 200)
		var waits []time.Duration
		f := testFetcher(srv, &waits)

		var v SearchResult
		err := f.GetJSON(context.Background(), srv.URL, &v)

		require.NoError(t, err)
		assert.Equal(t, 3, v.Total)
		assert.Equal(t, 1, *calls)
		assert.Empty(t, waits)
	})

	t.Run("exhausts after exactly five attempts with exponential backoff", func(t *testing.T) {
		srv, calls := scriptedServer(t, "", 500, 500, 500, 500, 500)
		var waits []time.Duration
		f := testFetcher(srv, &waits)

		var v SearchResult
		err := f.GetJSON(context.Background(), srv.URL, &v)

		require.ErrorIs(t, err, ErrExhausted)
		assert.Equal(t, 5, *calls)
		assert.Equal(t, []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
		}, waits)
	})

	t.Run("waits the fixed cooldown for each rate-limited attempt", func(t *testing.T) {
		srv, calls := scriptedServer(t, `{"total":1}`, 429, 429, 200)
		var waits []time.Duration
		f := testFetcher(srv, &waits)

		var v SearchResult
		err := f.GetJSON(context.Background(), srv.URL, &v)

		require.NoError(t, err)
		assert.Equal(t, 3, *calls)
		assert.Equal(t, []time.Duration{RateLimitCooldown, RateLimitCooldown}, waits)
	})

	t.Run("cooldown waits do not advance the backoff schedule", func(t *testing.T) {
		srv, calls := scriptedServer(t, `{"total":1}`, 500, 429, 500, 200)
		var waits []time.Duration
		f := testFetcher(srv, &waits)

		var v SearchResult
		err := f.GetJSON(context.Background(), srv.URL, &v)

		require.NoError(t, err)
		assert.Equal(t, 4, *calls)
		assert.Equal(t, []time.Duration{
			1 * time.Second,
			RateLimitCooldown,
			2 * time.Second,
		}, waits)
	})

	t.Run("rate-limited attempts count toward the attempt budget", func(t *testing.T) {
		srv, calls := scriptedServer(t, "", 429, 429, 429, 429, 429)
		var waits []time.Duration
		f := testFetcher(srv, &waits)

		var v SearchResult
		err := f.GetJSON(context.Background(), srv.URL, &v)

		require.ErrorIs(t, err, ErrExhausted)
		assert.Equal(t, 5, *calls)
	})

	t.Run("does not retry a not-found response", func(t *testing.T) {
		srv, calls := scriptedServer(t, "", 404)
		var waits []time.Duration
		f := testFetcher(srv, &waits)

		var v SearchResult
		err := f.GetJSON(context.Background(), srv.URL, &v)

		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.Equal(t, 1, *calls)
		assert.Empty(t, waits)
	})

	t.Run("retries transport failures", func(t *testing.T) {
		srv, calls := scriptedServer(t, `{"total":1}`, 500, 200)
		var waits []time.Duration
		f := testFetcher(srv, &waits)

		var v SearchResult
		err := f.GetJSON(context.Background(), srv.URL, &v)

		require.NoError(t, err)
		assert.Equal(t, 2, *calls)
		assert.Equal(t, []time.Duration{1 * time.Second}, waits)
	})

	t.Run("stops when the context is cancelled during a wait", func(t *testing.T) {
		srv, _ := scriptedServer(t, "", 500, 500, 500, 500, 500)
		ctx, cancel := context.WithCancel(context.Background())
		client := NewClient(srv.URL, WithRequestRate(10000))
		f := NewFetcher(client, zerolog.Nop(), WithSleep(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}))

		var v SearchResult
		err := f.GetJSON(ctx, srv.URL, &v)

		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("honours a reduced attempt budget", func(t *testing.T) {
		srv, calls := scriptedServer(t, "", 500, 500)
		var waits []time.Duration
		f := testFetcher(srv, &waits, WithMaxAttempts(2))

		var v SearchResult
		err := f.GetJSON(context.Background(), srv.URL, &v)

		require.ErrorIs(t, err, ErrExhausted)
		assert.Equal(t, 2, *calls)
	})
}

func TestFetcher_SearchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "project=SPARK", r.URL.Query().Get("jql"))
		assert.Equal(t, "10", r.URL.Query().Get("startAt"))
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		w.Write([]byte(`{"issues":[{"key":"SPARK-11"}],"total":11}`))
	}))
	defer srv.Close()

	var waits []time.Duration
	f := testFetcher(srv, &waits)

	page, err := f.SearchPage(context.Background(), "SPARK", 10, 5)
	require.NoError(t, err)
	require.Len(t, page.Issues, 1)
	assert.Equal(t, "SPARK-11", page.Issues[0].Key)
	assert.Equal(t, 11, page.Total)
}

func TestFetcher_Comments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/issue/SPARK-1/comment", r.URL.Path)
		w.Write([]byte(`{"comments":[{"body":"first"},{"body":"second"}]}`))
	}))
	defer srv.Close()

	var waits []time.Duration
	f := testFetcher(srv, &waits)

	comments, err := f.Comments(context.Background(), "SPARK-1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Body)
}
