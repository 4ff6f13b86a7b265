package views

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thinblog/internal/domain/counts"
)

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://thin.goatcounter.com", BaseURL("thin.goatcounter.com"))
	assert.Equal(t, "http://127.0.0.1:9000", BaseURL(" http://127.0.0.1:9000/ "))
	assert.Empty(t, BaseURL(""))
}

func TestCounterURL(t *testing.T) {
	assert.Equal(t, "https://x/counter/blog/my-post.json", CounterURL("https://x", "blog/my-post"))
	assert.Equal(t, "https://x/counter/blog/my-post/.json", CounterURL("https://x", "blog/my-post/"))
	assert.Equal(t, "https://x/counter/a%20b%3F.json", CounterURL("https://x", "a b?"))
	assert.Equal(t, "https://x/counter/index.json", CounterURL("https://x", "index"))
}

func TestHTTPCounterFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		switch r.URL.Path {
		case "/counter/blog/post.json":
			_, _ = w.Write([]byte(`{"count":"1,234","count_unique":56}`))
		case "/counter/views-alias.json":
			_, _ = w.Write([]byte(`{"views":7,"users":"3"}`))
		case "/counter/garbage.json":
			_, _ = w.Write([]byte(`<html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewHTTPCounter(srv.URL, srv.Client())
	ctx := context.Background()

	got, err := c.Fetch(ctx, "blog/post")
	require.NoError(t, err)
	assert.Equal(t, counts.Count{Total: 1234, Unique: 56, ResolvedPath: "blog/post"}, got)

	got, err = c.Fetch(ctx, "views-alias")
	require.NoError(t, err)
	assert.Equal(t, counts.Count{Total: 7, Unique: 3, ResolvedPath: "views-alias"}, got)

	_, err = c.Fetch(ctx, "missing")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Status)

	_, err = c.Fetch(ctx, "garbage")
	assert.Error(t, err)
}

func TestHTTPCounterUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := NewHTTPCounter(base, nil).Fetch(context.Background(), "x")
	assert.Error(t, err)
}
