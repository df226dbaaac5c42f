package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PaulFidika/casting/adapters/gin/handlers"
	"github.com/PaulFidika/casting/catalog"
	memcatalog "github.com/PaulFidika/casting/catalog/memory"
	"github.com/gin-gonic/gin"
)

// brokenStore fails every call with a storage error.
type brokenStore struct{ catalog.Store }

func (brokenStore) ListMovies(context.Context) ([]catalog.Movie, error) {
	return nil, errors.New("connection reset")
}

func (brokenStore) DeleteMovie(context.Context, int64) error { return errors.New("connection reset") }

type denyAll struct{}

func (denyAll) AllowNamed(context.Context, string, string) (bool, error) { return false, nil }

func run(h gin.HandlerFunc, method, target, body string, params ...gin.Param) (*httptest.ResponseRecorder, map[string]any) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	h(c)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestActorCreate_Validation(t *testing.T) {
	h := handlers.HandleActorCreatePOST(memcatalog.New(), nil)
	for _, body := range []string{`{`, `{"name":"A","gender":"f"}`, `{"name":" ","age":3,"gender":"f"}`, `{"name":"A","age":-1,"gender":"f"}`} {
		w, out := run(h, http.MethodPost, "/actors", body)
		if w.Code != http.StatusBadRequest || out["success"] != false || out["error"] != float64(400) {
			t.Fatalf("body %s: expected 400 envelope, got %d %v", body, w.Code, out)
		}
	}
}

func TestMovieUpdate_BadDate(t *testing.T) {
	store := memcatalog.New()
	h := handlers.HandleMovieUpdatePATCH(store, nil)
	w, out := run(h, http.MethodPatch, "/movies/1", `{"release_date":"yesterday"}`, gin.Param{Key: "id", Value: "1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %v", w.Code, out)
	}
}

func TestGetActor_IDs(t *testing.T) {
	h := handlers.HandleActorGET(memcatalog.New(), nil)
	for _, id := range []string{"abc", "0", "-4", "7"} {
		w, out := run(h, http.MethodGet, "/actors/"+id, "", gin.Param{Key: "id", Value: id})
		if w.Code != http.StatusNotFound || out["message"] != "Resource not found" {
			t.Fatalf("id %q: expected 404, got %d %v", id, w.Code, out)
		}
	}
}

func TestStoreFailureIsUnprocessable(t *testing.T) {
	w, out := run(handlers.HandleMoviesListGET(brokenStore{}, nil), http.MethodGet, "/movies", "")
	if w.Code != http.StatusUnprocessableEntity || out["message"] != "unprocessable" {
		t.Fatalf("expected 422, got %d %v", w.Code, out)
	}
	w, _ = run(handlers.HandleMovieDeleteDELETE(brokenStore{}, nil), http.MethodDelete, "/movies/3", "", gin.Param{Key: "id", Value: "3"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestRateLimited(t *testing.T) {
	w, out := run(handlers.HandleActorsListGET(memcatalog.New(), denyAll{}), http.MethodGet, "/actors", "")
	if w.Code != http.StatusTooManyRequests || out["message"] != "too_many_requests" {
		t.Fatalf("expected 429, got %d %v", w.Code, out)
	}
}

func TestDeleteReturnsID(t *testing.T) {
	store := memcatalog.New()
	a, err := store.CreateActor(context.Background(), catalog.Actor{Name: "Ada", Age: 30, Gender: "female"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w, out := run(handlers.HandleActorDeleteDELETE(store, nil), http.MethodDelete, "/actors/1", "", gin.Param{Key: "id", Value: "1"})
	if w.Code != http.StatusOK || out["deleted"] != float64(a.ID) {
		t.Fatalf("expected deleted id in body, got %d %v", w.Code, out)
	}
}
