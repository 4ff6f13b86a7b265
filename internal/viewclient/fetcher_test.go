package viewclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thinblog/internal/domain/counts"
)

func TestParseServerCounts(t *testing.T) {
	body := []byte(`{"counts":{"a":{"total":3,"unique":2,"resolvedPath":"a/"},"/b":{"count":"7"},"c":null},"site":"x"}`)
	got, err := ParseServerCounts([]string{"a", "/b", "//a", "missing"}, body)
	require.NoError(t, err)
	assert.Equal(t, counts.Count{Total: 3, Unique: 2, ResolvedPath: "a/"}, got["a"])
	assert.Equal(t, counts.Count{Total: 7}, got["/b"])
	assert.Equal(t, counts.Count{Total: 3, Unique: 2, ResolvedPath: "a/"}, got["//a"], "leading slashes stripped")
	assert.Equal(t, counts.Count{}, got["missing"])
}

func TestParseServerCountsUnwrapped(t *testing.T) {
	got, err := ParseServerCounts([]string{"a"}, []byte(`{"a":{"views":"1,001","unique_views":4,"resolved":"a"}}`))
	require.NoError(t, err)
	assert.Equal(t, counts.Count{Total: 1001, Unique: 4, ResolvedPath: "a"}, got["a"])

	_, err = ParseServerCounts([]string{"a"}, []byte(`[1,2]`))
	assert.Error(t, err)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/views" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		assert.Equal(t, []string{"a/b", "/"}, r.URL.Query()["paths"])
		_, _ = w.Write([]byte(`{"counts":{"a/b":{"total":2,"unique":1,"resolvedPath":"a/b"},"/":{"total":9,"unique":3,"resolvedPath":"/"}},"site":"s"}`))
	}))
	defer srv.Close()

	got, err := NewHTTPFetcher(srv.URL+"/views", srv.Client()).FetchCounts(context.Background(), []string{"a/b", "/"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got["a/b"].Total)
	assert.Equal(t, int64(9), got["/"].Total)

	_, err = NewHTTPFetcher(srv.URL+"/broken", nil).FetchCounts(context.Background(), []string{"x"})
	assert.Error(t, err)
}
