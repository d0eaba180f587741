package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eryai/mimre/internal/engine"
	"github.com/eryai/mimre/internal/model/companion"
	"github.com/eryai/mimre/internal/service/selector"
	"github.com/eryai/mimre/internal/storage"
)

type nopBackend struct{}

func (nopBackend) Chat(context.Context, engine.Request) (engine.Reply, error) {
	return engine.Reply{Text: "ok"}, nil
}

type brokenStore struct{}

func (brokenStore) Get(string) (string, bool, error) { return "", false, errors.New("disk gone") }
func (brokenStore) Set(string, string) error        { return errors.New("disk gone") }
func (brokenStore) Remove(string) error             { return errors.New("disk gone") }

func newRouter(t *testing.T, store storage.Storage) http.Handler {
	t.Helper()
	sel, err := selector.New(selector.Config{
		Companions: companion.Default(),
		Backend:    nopBackend{},
		Storage:    store,
	})
	require.NoError(t, err)
	t.Cleanup(sel.Close)

	r := chi.NewRouter()
	New(sel, nil).RegisterRoutes(r)
	return r
}

func TestEventsWithoutCompanion(t *testing.T) {
	r := newRouter(t, storage.NewMemoryStore())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/events", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), selector.ErrNoCompanion.Error())
}

func TestEventsStorageFailure(t *testing.T) {
	r := newRouter(t, brokenStore{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/events", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to open conversation")
}
