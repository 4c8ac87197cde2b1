package scraping_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drewfead/showtimes/internal/scraping"
)

func Test_Unit_Do(t *testing.T) {
	var gotMethod, gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		switch r.URL.Path {
		case "/missing.json":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	tests := []struct {
		name         string
		req          scraping.Request
		expectBody   string
		expectStatus int
		expectMethod string
	}{
		{
			name:         "get",
			req:          scraping.Request{URL: srv.URL + "/data.json"},
			expectBody:   `{"ok":true}`,
			expectMethod: http.MethodGet,
		},
		{
			name: "post json",
			req: scraping.Request{
				Method:  http.MethodPost,
				URL:     srv.URL + "/schedule",
				Body:    []byte(`{"a":1}`),
				Headers: map[string]string{"Content-Type": "application/json"},
			},
			expectBody:   `{"ok":true}`,
			expectMethod: http.MethodPost,
		},
		{
			name:         "not found",
			req:          scraping.Request{URL: srv.URL + "/missing.json"},
			expectStatus: http.StatusNotFound,
			expectMethod: http.MethodGet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := scraping.Do(context.Background(), tt.req)

			assert.Equal(t, tt.expectMethod, gotMethod)
			if tt.expectStatus != 0 {
				var se *scraping.StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, tt.expectStatus, se.StatusCode)
				assert.True(t, scraping.IsStatusError(err))
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.expectBody, string(body))
			if tt.req.Method == http.MethodPost {
				assert.Equal(t, "application/json", gotContentType)
				assert.JSONEq(t, `{"a":1}`, gotBody)
			}
		})
	}
}

func Test_Unit_Do_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := scraping.Do(context.Background(), scraping.Request{URL: addr + "/x.json", Timeout: time.Second})
	require.Error(t, err)
	assert.False(t, scraping.IsStatusError(err))
}

func Test_Unit_Do_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := scraping.Do(context.Background(), scraping.Request{URL: srv.URL + "/slow.json", Timeout: 50 * time.Millisecond})
	assert.Error(t, err)
}
