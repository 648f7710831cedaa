package media

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageClientFindFileID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/storage/buckets/media/files", r.URL.Path)
		assert.Equal(t, "proj", r.Header.Get("X-Appwrite-Project"))
		assert.Equal(t, "key", r.Header.Get("X-Appwrite-Key"))

		var q storageQuery
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("queries[]")), &q))
		assert.Equal(t, "equal", q.Method)
		assert.Equal(t, "name", q.Attribute)

		w.Header().Set("Content-Type", "application/json")
		if q.Values[0] == "known.jpg" {
			_, _ = w.Write([]byte(`{"total":1,"files":[{"$id":"file-123","name":"known.jpg"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"total":0,"files":[]}`))
	}))
	defer srv.Close()

	client := NewStorageClient(srv.URL+"/v1/", "proj", "media", "key", srv.Client())

	id, ok, err := client.FindFileID(context.Background(), "known.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "file-123", id)

	_, ok, err = client.FindFileID(context.Background(), "other.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStorageClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewStorageClient(srv.URL, "proj", "media", "", nil)
	_, _, err := client.FindFileID(context.Background(), "a.jpg")
	assert.ErrorContains(t, err, "401")
}

func TestStorageClientViewURL(t *testing.T) {
	client := NewStorageClient("https://cloud.example.com/v1", "proj", "media", "", nil)
	assert.Equal(t,
		"https://cloud.example.com/v1/storage/buckets/media/files/w11%20korytarz.jpg/view?project=proj&mode=admin",
		client.ViewURL("w11 korytarz.jpg"))
}

func TestEscapeComponent(t *testing.T) {
	cases := map[string]string{
		"a b&c=d.jpg":     "a%20b%26c%3Dd.jpg",
		"x+y;z,w:v@u.png": "x%2By%3Bz%2Cw%3Av%40u.png",
		"ok-_.!~*'().mp4": "ok-_.!~*'().mp4",
		"dir/zakręt.jpg":  "dir%2Fzakr%C4%99t.jpg",
		"100%.jpg":        "100%25.jpg",
	}
	for in, want := range cases {
		assert.Equal(t, want, escapeComponent(in), in)
	}

	client := NewStorageClient("https://cloud.example.com/v1", "proj", "media", "", nil)
	assert.Equal(t,
		"https://cloud.example.com/v1/storage/buckets/media/files/a%20b%26c%3Dd.jpg/view?project=proj&mode=admin",
		client.ViewURL("a b&c=d.jpg"))
}
