package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "valavatar/pkg/errors"
	"valavatar/pkg/logger"
)

func newTestClient() *Client {
	return New(5*time.Second, logger.NewTestLogger())
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"pagination":{"next_key":"abc"}}`)
	}))
	defer server.Close()

	var out struct {
		Pagination struct {
			NextKey string `json:"next_key"`
		} `json:"pagination"`
	}
	require.NoError(t, newTestClient().GetJSON(context.Background(), server.URL, &out))
	assert.Equal(t, "abc", out.Pagination.NextKey)
}

func TestGetJSONErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind apperrors.Kind
		wantCode int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantKind: apperrors.KindStatus,
			wantCode: http.StatusBadGateway,
		},
		{
			name: "html body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "<html>maintenance</html>")
			},
			wantKind: apperrors.KindParsing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			var out map[string]interface{}
			err := newTestClient().GetJSON(context.Background(), server.URL, &out)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperrors.KindOf(err))

			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestGetJSONNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	var out map[string]interface{}
	err := newTestClient().GetJSON(context.Background(), url, &out)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNetwork))
}

func TestGetJSONFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":true}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	var out struct{ OK bool }
	require.NoError(t, newTestClient().GetJSON(context.Background(), server.URL+"/old", &out))
	assert.True(t, out.OK)
}

func TestStream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/avatar.png", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "png-bytes")
	})
	mux.HandleFunc("/moved.png", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/avatar.png", http.StatusFound)
	})
	mux.HandleFunc("/gone.png", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient()

	t.Run("ok", func(t *testing.T) {
		body, err := client.Stream(context.Background(), server.URL+"/avatar.png")
		require.NoError(t, err)
		defer body.Close()
		data, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(data))
	})

	t.Run("redirect refused", func(t *testing.T) {
		_, err := client.Stream(context.Background(), server.URL+"/moved.png")
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindRedirect))
		assert.Contains(t, err.Error(), "/avatar.png")
	})

	t.Run("status error", func(t *testing.T) {
		_, err := client.Stream(context.Background(), server.URL+"/gone.png")
		assert.True(t, apperrors.IsKind(err, apperrors.KindStatus))
	})
}

func TestStreamHonorsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient().Stream(ctx, server.URL)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNetwork))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
