package upstream

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deppfellow/bicycle-gateway/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveFetch(upstream, class string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, upstream+":"+class)
}

func newUpstream(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func newBicycleClient(baseURL string, opts ...Option) *Client[model.Bicycle] {
	return NewClient[model.Bicycle]("bicycle", baseURL, time.Second, 1<<10, opts...)
}

func requireClass(t *testing.T, err error, want Classification) *FetchError {
	t.Helper()

	var fe *FetchError
	require.True(t, errors.As(err, &fe), "expected *FetchError, got %T", err)
	assert.Equal(t, want, fe.Class)
	assert.Equal(t, "bicycle", fe.Upstream)
	return fe
}

func TestFetch_Success(t *testing.T) {
	var gotPath string
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"42","color":"red","extra":true}`))
	})

	rec, err := newBicycleClient(srv.URL).Fetch(context.Background(), "42")

	require.NoError(t, err)
	assert.Equal(t, &model.Bicycle{ID: "42", Color: "red"}, rec)
	assert.Equal(t, "/42", gotPath)
}

func TestFetch_EscapesKey(t *testing.T) {
	var gotPath string
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"id":"a/b c"}`))
	})

	_, err := newBicycleClient(srv.URL+"/").Fetch(context.Background(), "a/b c")

	require.NoError(t, err)
	assert.Equal(t, "/a%2Fb%20c", gotPath)
}

func TestFetch_Classification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		want       Classification
		wantStatus int
	}{
		{"not found", http.StatusNotFound, `{"message":"nope"}`, NotFound, http.StatusNotFound},
		{"bad request", http.StatusBadRequest, "", BadRequest, http.StatusBadRequest},
		{"server error", http.StatusInternalServerError, "", Unclassified, http.StatusInternalServerError},
		{"unavailable", http.StatusServiceUnavailable, "", Unclassified, http.StatusServiceUnavailable},
		{"redirect status", http.StatusNotModified, "", Unclassified, http.StatusNotModified},
		{"malformed body", http.StatusOK, `{"id":`, Unclassified, http.StatusOK},
		{"record fails validation", http.StatusOK, `{"color":"red"}`, Unclassified, http.StatusOK},
		{"oversized body", http.StatusOK, `{"id":"1","color":"` + strings.Repeat("x", 2<<10) + `"}`, Unclassified, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			rec, err := newBicycleClient(srv.URL).Fetch(context.Background(), "42")

			assert.Nil(t, rec)
			fe := requireClass(t, err, tt.want)
			assert.Equal(t, tt.wantStatus, fe.StatusCode)
		})
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	// Reserve a port, then release it so nothing listens there.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = newBicycleClient("http://" + addr).Fetch(context.Background(), "42")

	fe := requireClass(t, err, Unclassified)
	assert.Zero(t, fe.StatusCode)
}

func TestFetch_Timeout(t *testing.T) {
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	client := NewClient[model.Bicycle]("bicycle", srv.URL, 50*time.Millisecond, 1<<10)
	start := time.Now()
	_, err := client.Fetch(context.Background(), "42")

	requireClass(t, err, Unclassified)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetch_CallerCancellation(t *testing.T) {
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := newBicycleClient(srv.URL).Fetch(ctx, "42")

	requireClass(t, err, Unclassified)
}

func TestFetch_ForwardsRequestID(t *testing.T) {
	var got string
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(RequestIDHeader)
		_, _ = w.Write([]byte(`{"id":"42"}`))
	})

	ctx := ContextWithRequestID(context.Background(), "req-123")
	_, err := newBicycleClient(srv.URL).Fetch(ctx, "42")

	require.NoError(t, err)
	assert.Equal(t, "req-123", got)
}

func TestFetch_Observer(t *testing.T) {
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":"42"}`))
	})

	obs := &recordingObserver{}
	client := newBicycleClient(srv.URL, WithObserver(obs))

	_, _ = client.Fetch(context.Background(), "42")
	_, _ = client.Fetch(context.Background(), "missing")

	assert.Equal(t, []string{"bicycle:ok", "bicycle:not_found"}, obs.calls)
}

func TestFetch_NonValidatableRecord(t *testing.T) {
	type loose struct {
		Name string `json:"name"`
	}
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	rec, err := NewClient[loose]("loose", srv.URL, time.Second, 1<<10).Fetch(context.Background(), "1")

	require.NoError(t, err)
	assert.Equal(t, &loose{}, rec)
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestFetch_CustomTransport(t *testing.T) {
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"42","color":"red"}`))
	})

	var seen []string
	transport := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = append(seen, r.URL.Path)
		return http.DefaultTransport.RoundTrip(r)
	})

	rec, err := newBicycleClient(srv.URL, WithTransport(transport)).Fetch(context.Background(), "42")

	require.NoError(t, err)
	assert.Equal(t, "42", rec.ID)
	assert.Equal(t, []string{"/42"}, seen)
}

func TestFetch_TransportErrorIsUnclassified(t *testing.T) {
	transport := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("no route to host")
	})

	_, err := newBicycleClient("http://bicycles.invalid", WithTransport(transport)).Fetch(context.Background(), "42")

	fe := requireClass(t, err, Unclassified)
	assert.Zero(t, fe.StatusCode)
	assert.ErrorContains(t, err, "no route to host")
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, NotFound, ClassOf(&FetchError{Class: NotFound}))
	assert.Equal(t, Unclassified, ClassOf(errors.New("plain")))
	assert.Equal(t, "bad_request", BadRequest.String())
}

func TestPing(t *testing.T) {
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {})

	assert.NoError(t, newBicycleClient(srv.URL).Ping(context.Background()))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	assert.Error(t, newBicycleClient("http://"+addr).Ping(context.Background()))
}
