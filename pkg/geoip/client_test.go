package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/8.8.8.8", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","city":"Mountain View","regionName":"California","country":"United States","query":"8.8.8.8"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	loc, err := c.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "Mountain View, California, United States", loc.String())
	assert.Equal(t, "Mountain View, California, United States", c.Describe(context.Background(), "8.8.8.8"))
}

func TestLookup_FailStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"private range","query":"10.0.0.1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Lookup(context.Background(), "10.0.0.1")
	assert.Error(t, err)
	assert.Equal(t, UnknownLocation, c.Describe(context.Background(), "10.0.0.1"))
}

func TestLookup_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Equal(t, UnknownLocation, NewClient(srv.URL).Describe(context.Background(), "8.8.8.8"))
}
