package memcatalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PaulFidika/casting/catalog"
)

func TestActorLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	a, err := s.CreateActor(ctx, catalog.Actor{Name: "Ada", Age: 30, Gender: "female"})
	if err != nil || a.ID != 1 {
		t.Fatalf("create: %+v %v", a, err)
	}
	age := 31
	a, err = s.UpdateActor(ctx, a.ID, catalog.ActorPatch{Age: &age})
	if err != nil || a.Age != 31 || a.Name != "Ada" {
		t.Fatalf("partial update: %+v %v", a, err)
	}
	if _, err := s.UpdateActor(ctx, 99, catalog.ActorPatch{}); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteActor(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetActor(ctx, a.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteActor(ctx, a.ID); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSetMovieActors(t *testing.T) {
	s := New()
	ctx := context.Background()
	a1, _ := s.CreateActor(ctx, catalog.Actor{Name: "Ada", Age: 30, Gender: "female"})
	a2, _ := s.CreateActor(ctx, catalog.Actor{Name: "Bob", Age: 40, Gender: "male"})
	m, _ := s.CreateMovie(ctx, catalog.Movie{Title: "Go", ReleaseDate: time.Date(2009, 11, 10, 0, 0, 0, 0, time.UTC)})

	m, err := s.SetMovieActors(ctx, m.ID, []int64{a2.ID, 404, a1.ID})
	if err != nil {
		t.Fatalf("set cast: %v", err)
	}
	if len(m.Actors) != 2 || m.Actors[0].ID != a1.ID || m.Actors[1].Name != "Bob" {
		t.Fatalf("unexpected cast: %+v", m.Actors)
	}
	got, _ := s.GetActor(ctx, a1.ID)
	if len(got.Movies) != 1 || got.Movies[0].Title != "Go" {
		t.Fatalf("actor does not list the movie: %+v", got.Movies)
	}

	m, _ = s.SetMovieActors(ctx, m.ID, []int64{a2.ID})
	if len(m.Actors) != 1 {
		t.Fatalf("cast must be replaced, got %+v", m.Actors)
	}

	if err := s.DeleteActor(ctx, a2.ID); err != nil {
		t.Fatalf("delete actor: %v", err)
	}
	m, _ = s.GetMovie(ctx, m.ID)
	if len(m.Actors) != 0 {
		t.Fatalf("deleting an actor must unlink it, got %+v", m.Actors)
	}

	if _, err := s.SetMovieActors(ctx, 99, nil); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMovieUnlinks(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, _ := s.CreateActor(ctx, catalog.Actor{Name: "Ada", Age: 30, Gender: "female"})
	m, _ := s.CreateMovie(ctx, catalog.Movie{Title: "Go", ReleaseDate: time.Now()})
	_, _ = s.SetMovieActors(ctx, m.ID, []int64{a.ID})

	if err := s.DeleteMovie(ctx, m.ID); err != nil {
		t.Fatalf("delete movie: %v", err)
	}
	got, _ := s.GetActor(ctx, a.ID)
	if len(got.Movies) != 0 {
		t.Fatalf("expected no movies, got %+v", got.Movies)
	}
	list, _ := s.ListMovies(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}
}
