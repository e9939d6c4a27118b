package appsync

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
)

func newTestClient(url string, attempts int) *Client {
	c := NewClient(url, "test-key", 2*time.Second, attempts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

var day = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func TestFetch_Success(t *testing.T) {
	body := `{"data":{"lastPostsByFacilityAndDate":{"items":[` +
		`{"id":"p1","visitors":120,"waterTemp":"14.5","updatedAt":"2024-01-02T17:00:00Z"},` +
		`{"id":"p2","visitors":"98","updatedAt":"2024-01-02T18:00:00Z"}` +
		`],"nextToken":null}}}`

	var gotReq request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, 3).Fetch(context.Background(), domain.KindCatchCount, "honmoku", day)
	require.NoError(t, err)

	assert.Equal(t, body, string(res.Raw), "raw body is kept byte for byte")
	require.Len(t, res.Posts, 2)
	assert.Equal(t, "p1", res.Posts[0].Text("id"))
	assert.Equal(t, 120, *domain.SafeInt(res.Posts[0]["visitors"]))
	assert.Equal(t, "14.5", res.Posts[0].Text("waterTemp"))

	assert.Equal(t, "honmoku", gotReq.Variables["facility"])
	assert.Equal(t, map[string]any{"eq": "2024/01/02"}, gotReq.Variables["date"])
	assert.True(t, strings.HasPrefix(gotReq.Query, "query LastPostsByFacilityAndDate("))
	assert.Contains(t, gotReq.Query, "fish30Place")
}

func TestFetch_QueryPerKind(t *testing.T) {
	tests := []struct {
		kind  domain.Kind
		field string
	}{
		{domain.KindCatchCount, "lastPostsByFacilityAndDate"},
		{domain.KindFieldCondition, "firstPostsByFacilityAndDate"},
		{domain.KindFishingReport, "middlePostsByFacilityAndDate"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req request
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Contains(t, req.Query, tt.field+"(")
				_, _ = w.Write([]byte(`{"data":{"` + tt.field + `":{"items":[{"id":"x"}]}}}`))
			}))
			defer srv.Close()

			res, err := newTestClient(srv.URL, 1).Fetch(context.Background(), tt.kind, "honmoku", day)
			require.NoError(t, err)
			assert.Len(t, res.Posts, 1)
		})
	}
}

func TestFetch_EmptyItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"lastPostsByFacilityAndDate":{"items":[]}}}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, 3).Fetch(context.Background(), domain.KindCatchCount, "honmoku", day)
	require.NoError(t, err)
	assert.Empty(t, res.Posts)
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"lastPostsByFacilityAndDate":{"items":[{"id":"p1"}]}}}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL, 3).Fetch(context.Background(), domain.KindCatchCount, "honmoku", day)
	require.NoError(t, err)
	assert.Len(t, res.Posts, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_GraphQLErrorsExhaustAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"Unauthorized"}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Fetch(context.Background(), domain.KindCatchCount, "honmoku", day)
	require.Error(t, err)

	var upErr *domain.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, domain.KindCatchCount, upErr.Kind)
	assert.Contains(t, err.Error(), "Unauthorized")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_NullErrorsIgnored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"firstPostsByFacilityAndDate":{"items":[]}},"errors":null}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 1).Fetch(context.Background(), domain.KindFieldCondition, "honmoku", day)
	assert.NoError(t, err)
}

func TestFetch_MissingFieldIsError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no query field", `{"data":{}}`},
		{"null query field", `{"data":{"middlePostsByFacilityAndDate":null}}`},
		{"no items", `{"data":{"middlePostsByFacilityAndDate":{"nextToken":null}}}`},
		{"null data", `{"data":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL, 3).Fetch(context.Background(), domain.KindFishingReport, "honmoku", day)
			require.Error(t, err)
			assert.ErrorIs(t, err, errMalformed)
			assert.Equal(t, "upstream", domain.ErrorKind(err))
			assert.Contains(t, err.Error(), "middlePostsByFacilityAndDate")
			assert.Equal(t, int32(1), calls.Load(), "malformed responses are not retried")
		})
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv.URL, 3).Fetch(ctx, domain.KindCatchCount, "honmoku", day)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestFetch_UnknownKind(t *testing.T) {
	_, err := newTestClient("http://unused", 1).Fetch(context.Background(), domain.Kind("tackle"), "honmoku", day)
	assert.Equal(t, "upstream", domain.ErrorKind(err))
}
