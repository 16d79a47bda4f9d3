package notion_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/chatplanner/internal/adapters/notion"
	"github.com/PabloGalante/chatplanner/internal/domain"
)

func TestAddTask(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2022-06-28", r.Header.Get("Notion-Version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"object":"page","id":"page-1","url":"https://notion.so/page-1"}`))
	}))
	defer srv.Close()

	c := notion.NewClient(srv.URL, "secret", srv.Client())
	page, err := c.AddTask(context.Background(), "db-1", "Купить продукты", "2024-12-23")
	require.NoError(t, err)
	assert.Equal(t, "page-1", page.ID)

	assert.Equal(t, map[string]any{"database_id": "db-1"}, got["parent"])
	props := got["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"start": "2024-12-23"}, props["Дата"].(map[string]any)["date"])
	assert.Equal(t, notion.StatusTodo, props["Статус"].(map[string]any)["select"].(map[string]any)["name"])
}

func TestAddTaskWithoutDate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"page-2"}`))
	}))
	defer srv.Close()

	c := notion.NewClient(srv.URL, "secret", srv.Client())
	_, err := c.AddTask(context.Background(), "db-1", "Купить продукты", "")
	require.NoError(t, err)

	assert.NotContains(t, got["properties"], "Дата")
}

func TestTaskSinkRequiresPageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"object":"page"}`))
	}))
	defer srv.Close()

	sink := notion.NewTaskSink(notion.NewClient(srv.URL, "secret", srv.Client()))
	err := sink.CreateTask(context.Background(), "db-1", domain.Task{Title: "x"})
	assert.EqualError(t, err, "notion did not return a page id")
}

func TestTaskSinkPassesAPIMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"object":"error","status":400,"code":"validation_error","message":"Дата is not a property that exists."}`))
	}))
	defer srv.Close()

	sink := notion.NewTaskSink(notion.NewClient(srv.URL, "secret", srv.Client()))
	err := sink.CreateTask(context.Background(), "db-1", domain.Task{Title: "x", Due: domain.TimeDescriptor{Date: "2024-12-23"}})
	assert.EqualError(t, err, "Дата is not a property that exists.")
}

func TestValidateCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/databases/db-1":
			_, _ = w.Write([]byte(`{"object":"database","id":"db-1"}`))
		case "/databases/db-500":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"object":"error","status":404,"code":"object_not_found","message":"not shared"}`))
		}
	}))
	defer srv.Close()

	sink := notion.NewTaskSink(notion.NewClient(srv.URL, "secret", srv.Client()))

	ok, err := sink.ValidateCredential(context.Background(), "db-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sink.ValidateCredential(context.Background(), "db-2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = sink.ValidateCredential(context.Background(), "db-500")
	assert.Error(t, err)
}
