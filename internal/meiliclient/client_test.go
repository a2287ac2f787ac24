package meiliclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cli := New(server.URL, "master-key", time.Second)
	require.NoError(t, cli.Health(context.Background()))

	assert.Equal(t, "Bearer master-key", gotAuth)
}

func TestGetIndexNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cli := New(server.URL, "master-key", time.Second)
	_, err := cli.GetIndex(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestErrorIncludesBodySnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"invalid key actions"}`)
	}))
	defer server.Close()

	cli := New(server.URL, "master-key", time.Second)
	_, err := cli.CreateKey(context.Background(), KeyParams{Actions: []string{"bogus"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid key actions")
	assert.Contains(t, err.Error(), "400")
}

func TestListKeysFollowsPagination(t *testing.T) {
	const total = 2500
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		assert.Equal(t, 1000, limit)

		page := keysPage{Offset: offset, Limit: limit, Total: total}
		for i := offset; i < total && i < offset+limit; i++ {
			page.Results = append(page.Results, Key{UID: fmt.Sprintf("uid-%d", i)})
		}
		assert.NoError(t, json.NewEncoder(w).Encode(page))
	}))
	defer server.Close()

	cli := New(server.URL, "master-key", time.Second)
	keys, err := cli.ListKeys(context.Background())
	require.NoError(t, err)

	assert.Len(t, keys, total)
	assert.Equal(t, "uid-0", keys[0].UID)
	assert.Equal(t, "uid-2499", keys[total-1].UID)
}

func TestCreateKeySerializesNullExpiry(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.NoError(t, json.NewEncoder(w).Encode(Key{UID: "uid-new", Key: "value-new"}))
	}))
	defer server.Close()

	cli := New(server.URL, "master-key", time.Second)
	key, err := cli.CreateKey(context.Background(), KeyParams{
		Actions: []string{"search"},
		Indexes: []string{"movies"},
	})
	require.NoError(t, err)

	assert.Equal(t, "uid-new", key.UID)
	// "expiresAt": null must be on the wire; omitting it is rejected.
	value, present := gotBody["expiresAt"]
	assert.True(t, present)
	assert.Nil(t, value)
}
