package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL, nil)
	code, body, h, err := New().DoRequest(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.NotEmpty(t, h[HEADER_RESP_DURATION])
}

func TestDoRequestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	code, _, _, err := New().DoRequest(req)
	assert.Equal(t, http.StatusNotFound, code)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestDoStreamRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 3; i++ {
			fmt.Fprintf(w, "{\"n\":%d}\n", i)
		}
	}))
	defer srv.Close()

	lines := make([]string, 0)
	req, _ := http.NewRequest(http.MethodPost, srv.URL, nil)
	err := New().DoStreamRequest(req, nil, func(b []byte) error {
		lines = append(lines, string(b))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"{\"n\":0}\n", "{\"n\":1}\n", "{\"n\":2}\n"}, lines)
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	_, _, _, err := New().DoRequest(req, OptTimeout(20*time.Millisecond))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
