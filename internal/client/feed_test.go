package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"electrobot/catalog/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedBody = `<?xml version="1.0" encoding="UTF-8"?><yml_catalog><shop></shop></yml_catalog>`

type feedServer struct {
	etag     string
	heads    atomic.Int32
	gets     atomic.Int32
	headCode int
}

func (s *feedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if user, pass, ok := r.BasicAuth(); !ok || user != "export" || pass != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodHead:
		s.heads.Add(1)
		if s.headCode != 0 {
			w.WriteHeader(s.headCode)
			return
		}
		w.Header().Set("ETag", s.etag)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		s.gets.Add(1)
		if r.Header.Get("If-None-Match") == s.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", s.etag)
		w.Header().Set("Last-Modified", "Wed, 01 May 2024 10:00:00 GMT")
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		_, _ = w.Write([]byte(feedBody))
	}
}

func newClient(url string) FeedClient {
	return NewFeedClient(config.FeedConfig{
		URL:        url,
		Username:   "export",
		Password:   "secret",
		Timeout:    5,
		MaxRetries: 0,
	}, nil)
}

func TestFetchFullThenNotModified(t *testing.T) {
	backend := &feedServer{etag: `"v1"`}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := newClient(srv.URL + "/catalog.yml")
	defer c.Close()

	resp, err := c.Fetch(context.Background(), Validators{})
	require.NoError(t, err)
	assert.False(t, resp.NotModified)
	assert.Equal(t, feedBody, string(resp.Body))
	assert.Equal(t, `"v1"`, resp.ETag)
	assert.Equal(t, "application/xml; charset=utf-8", resp.ContentType)
	assert.Equal(t, int32(0), backend.heads.Load(), "no HEAD without validators")

	resp, err = c.Fetch(context.Background(), Validators{ETag: resp.ETag, LastModified: resp.LastModified})
	require.NoError(t, err)
	assert.True(t, resp.NotModified)
	assert.Equal(t, `"v1"`, resp.ETag)
	assert.Equal(t, int32(1), backend.heads.Load())
	assert.Equal(t, int32(1), backend.gets.Load(), "HEAD short-circuits the GET")
}

func TestFetchChangedETag(t *testing.T) {
	backend := &feedServer{etag: `"v2"`}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := newClient(srv.URL)
	defer c.Close()

	resp, err := c.Fetch(context.Background(), Validators{ETag: `"v1"`})
	require.NoError(t, err)
	assert.False(t, resp.NotModified)
	assert.Equal(t, `"v2"`, resp.ETag)
	assert.Equal(t, int32(1), backend.gets.Load())
}

func TestFetchHeadUnsupportedFallsBackToConditionalGet(t *testing.T) {
	backend := &feedServer{etag: `"v1"`, headCode: http.StatusMethodNotAllowed}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := newClient(srv.URL)
	defer c.Close()

	resp, err := c.Fetch(context.Background(), Validators{ETag: `"v1"`})
	require.NoError(t, err)
	assert.True(t, resp.NotModified)
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	assert.Equal(t, int32(1), backend.gets.Load())
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	defer c.Close()

	_, err := c.Fetch(context.Background(), Validators{})
	assert.ErrorContains(t, err, "HTTP 403")
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(url)
	defer c.Close()

	_, err := c.Fetch(context.Background(), Validators{})
	assert.Error(t, err)
}
