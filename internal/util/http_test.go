package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClientSetsHeaders(t *testing.T) {
	cookieFile := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookieFile, []byte("\n  session=abc \nother=1\n"), 0644))

	var gotUA, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCookie = r.Header.Get("Cookie")
	}))
	defer srv.Close()

	c, err := NewHTTPClient(HTTPClientOptions{
		Timeout:    5 * time.Second,
		UserAgent:  "chaptrix-test",
		Cookie:     "a=b",
		CookieFile: cookieFile,
	})
	require.NoError(t, err)

	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "chaptrix-test", gotUA)
	assert.Equal(t, "a=b; session=abc", gotCookie)
}

func TestJoinCookiesMissingFile(t *testing.T) {
	assert.Equal(t, "x=1", joinCookies(" x=1 ", "/does/not/exist"))
	assert.Equal(t, "", joinCookies("", ""))
}

func TestDoWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(srv.Client(), req, 3, time.Millisecond)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(-10)
	_, err = DoWithRetry(srv.Client(), req, 2, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestPickUserAgent(t *testing.T) {
	assert.Equal(t, "mine", PickUserAgent("mine"))
	assert.Contains(t, PickUserAgent(""), "Mozilla/5.0")
}
