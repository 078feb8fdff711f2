package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bagger/internal/apperror"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestClient_Do_headers(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", WithTokenSource(staticToken("tok-1")))

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.Do(context.Background(), http.MethodPost, "api/things", map[string]string{"a": "b"}, &out)
	require.NoError(t, err)

	assert.True(t, out.OK)
	assert.Equal(t, "/api/things", got.URL.Path)
	assert.Equal(t, "Bearer tok-1", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.NotEmpty(t, got.Header.Get("X-Request-ID"))
	assert.JSONEq(t, `{"a":"b"}`, string(gotBody))
}

func TestClient_Do_noTokenNoAuthorization(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithTokenSource(staticToken("")))
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/x", nil, nil))
	assert.Empty(t, auth)
}

func TestClient_Do_noContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	var out map[string]any
	decoded, err := c.do(context.Background(), http.MethodDelete, "/api/cheats/1", nil, &out)
	require.NoError(t, err)
	assert.False(t, decoded)
	assert.Nil(t, out)
}

func TestClient_Do_unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Not authenticated"}`))
	}))
	defer srv.Close()

	var calls atomic.Int32
	c := NewClient(srv.URL)
	c.OnUnauthorized(func() { calls.Add(1) })

	err := c.Do(context.Background(), http.MethodGet, pathMe, nil, nil)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Do_apiErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		want        string
	}{
		{"detail string", 400, "application/json", `{"detail":"Slug already exists"}`, "Slug already exists"},
		{"detail list with msgs", 422, "application/json", `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`, "field required | too short"},
		{"detail list without msgs", 422, "application/json", `{"detail":[{"loc":["body"]}]}`, `[{"loc":["body"]}]`},
		{"detail object", 409, "application/json", `{"detail":{"code":"in_use"}}`, `{"code":"in_use"}`},
		{"blank detail falls to message", 400, "application/json", `{"detail":"  ","message":"bad input"}`, "bad input"},
		{"message only", 500, "application/json; charset=utf-8", `{"message":"boom"}`, "boom"},
		{"empty json", 404, "application/json", ``, "API Error: 404 Not Found"},
		{"non json body", 502, "text/html", `<html>bad gateway</html>`, "API Error: 502 Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL).Do(context.Background(), http.MethodGet, "/x", nil, nil)

			var apiErr *apperror.APIError
			require.True(t, errors.As(err, &apiErr), "error = %v", err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestClient_Do_timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, WithTimeout(50*time.Millisecond))
	err := c.Do(context.Background(), http.MethodGet, "/slow", nil, nil)
	assert.ErrorIs(t, err, apperror.ErrTimeout)
	assert.Equal(t, "Request timeout - please check your connection", err.Error())
}

func TestClient_Do_callerCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := NewClient(srv.URL).Do(ctx, http.MethodGet, "/slow", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Do_networkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url).Do(context.Background(), http.MethodGet, "/x", nil, nil)
	assert.ErrorIs(t, err, apperror.ErrNetwork)
}

func TestClient_endpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "abc",
			"user":         map[string]any{"id": 3, "name": "Ada", "email": body["email"]},
		})
	})
	mux.HandleFunc("GET /api/users/bootstrap", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"platforms":[{"id":1,"name":"Go","slug":"go","type":"language"}],"topics":[],"cheats":[{"id":9,"title":"t","code":"c","platform_ids":[1],"topic_ids":[]}],"user_cheats":[{"id":1,"user_id":3,"cheat_id":9,"is_favorite":true}]}`))
	})
	mux.HandleFunc("PATCH /api/cheats/9", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/topics/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":4,"name":"Loops","slug":"loops"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	res, err := c.Login(ctx, modelCreds("ada@example.com", "pw"))
	require.NoError(t, err)
	assert.Equal(t, "abc", res.AccessToken)
	require.NotNil(t, res.User)
	assert.Equal(t, "ada@example.com", res.User.Email)

	b, err := c.Bootstrap(ctx)
	require.NoError(t, err)
	require.Len(t, b.Cheats, 1)
	assert.Equal(t, []int64{1}, b.Cheats[0].PlatformIDs)
	require.Len(t, b.UserCheats, 1)
	assert.True(t, b.UserCheats[0].IsFavorite)

	updated, err := c.UpdateCheat(ctx, 9, cheatTitlePatch("new"))
	require.NoError(t, err)
	assert.Nil(t, updated)

	topic, err := c.CreateTopic(ctx, topicInput("Loops", "loops"))
	require.NoError(t, err)
	require.NotNil(t, topic)
	assert.Equal(t, int64(4), topic.ID)
}
