package instagram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "igwatcher/pkg/errors"
	"igwatcher/pkg/logger"
)

func newTestClient(serverURL string) *Client {
	c := NewClient(5*time.Second, logger.NewTestLogger())
	return c
}

func TestClientGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	var out struct {
		Status string `json:"status"`
	}
	err := client.GetJSON(context.Background(), server.URL, &out)
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Status)
}

func TestClientGetJSONStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType apperrors.ErrorType
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantType: apperrors.ErrorTypeAuth},
		{name: "forbidden", status: http.StatusForbidden, wantType: apperrors.ErrorTypeAuth},
		{name: "not found", status: http.StatusNotFound, wantType: apperrors.ErrorTypeNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, wantType: apperrors.ErrorTypeRateLimit},
		{name: "server error", status: http.StatusInternalServerError, wantType: apperrors.ErrorTypeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTestClient(server.URL)

			var out map[string]interface{}
			err := client.GetJSON(context.Background(), server.URL, &out)
			require.Error(t, err)

			var apiErr *apperrors.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantType, apiErr.Type)
			assert.Equal(t, tt.status, apiErr.Code)
		})
	}
}

func TestClientGetJSONParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	var out map[string]interface{}
	err := client.GetJSON(context.Background(), server.URL, &out)
	require.Error(t, err)

	var apiErr *apperrors.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apperrors.ErrorTypeParsing, apiErr.Type)
}

func TestFetchSnapshot(t *testing.T) {
	payload := `{
		"requires_to_login": false,
		"status": "ok",
		"data": {
			"user": {
				"id": "123",
				"username": "testuser",
				"profile_pic_url": "https://cdn.example.com/pic.jpg?sd=1",
				"profile_pic_url_hd": "https://cdn.example.com/pic_hd.jpg?hd=1",
				"edge_followed_by": {"count": 105},
				"edge_follow": {"count": 128}
			}
		}
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	// FetchSnapshot builds the production URL; exercise the conversion
	// through GetJSON against the test server instead.
	var response ProfileResponse
	require.NoError(t, client.GetJSON(context.Background(), server.URL, &response))

	user := response.Data.User
	assert.Equal(t, "https://cdn.example.com/pic_hd.jpg?hd=1", user.BestPictureURL())
	assert.Equal(t, int64(105), user.EdgeFollowedBy.Count)
	assert.Equal(t, int64(128), user.EdgeFollow.Count)
}

func TestFetchProfileRequiresLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"requires_to_login": true, "status": "ok"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	var response ProfileResponse
	require.NoError(t, client.GetJSON(context.Background(), server.URL, &response))
	assert.True(t, response.RequiresToLogin)
}

func TestDownloadPhoto(t *testing.T) {
	photo := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(photo)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	data, err := client.DownloadPhoto(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, photo, data)
}

func TestSetSession(t *testing.T) {
	var gotCookie, gotCSRF string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotCSRF = r.Header.Get("x-csrftoken")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.SetSession("sess123", "csrf456")

	var out map[string]interface{}
	require.NoError(t, client.GetJSON(context.Background(), server.URL, &out))
	assert.Contains(t, gotCookie, "sessionid=sess123")
	assert.Contains(t, gotCookie, "csrftoken=csrf456")
	assert.Equal(t, "csrf456", gotCSRF)
}
