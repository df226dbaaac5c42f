// Package memcatalog is an in-memory catalog.Store for tests and local runs.
package memcatalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/PaulFidika/casting/catalog"
)

type actorRow struct {
	id     int64
	name   string
	age    int
	gender string
}

type movieRow struct {
	id    int64
	title string
	date  time.Time
}

// Store keeps rows in maps guarded by a single mutex.
type Store struct {
	mu     sync.RWMutex
	actors map[int64]*actorRow
	movies map[int64]*movieRow
	cast   map[int64]map[int64]struct{} // movie id -> actor ids
	nextA  int64
	nextM  int64
}

func New() *Store {
	return &Store{
		actors: make(map[int64]*actorRow),
		movies: make(map[int64]*movieRow),
		cast:   make(map[int64]map[int64]struct{}),
	}
}

var _ catalog.Store = (*Store)(nil)

func (s *Store) actorLocked(r *actorRow) catalog.Actor {
	a := catalog.Actor{ID: r.id, Name: r.name, Age: r.age, Gender: r.gender, Movies: []catalog.MovieRef{}}
	for mid, ids := range s.cast {
		if _, ok := ids[r.id]; ok {
			a.Movies = append(a.Movies, catalog.MovieRef{ID: mid, Title: s.movies[mid].title})
		}
	}
	sort.Slice(a.Movies, func(i, j int) bool { return a.Movies[i].ID < a.Movies[j].ID })
	return a
}

func (s *Store) movieLocked(r *movieRow) catalog.Movie {
	m := catalog.Movie{ID: r.id, Title: r.title, ReleaseDate: r.date, Actors: []catalog.ActorRef{}}
	for aid := range s.cast[r.id] {
		m.Actors = append(m.Actors, catalog.ActorRef{ID: aid, Name: s.actors[aid].name})
	}
	sort.Slice(m.Actors, func(i, j int) bool { return m.Actors[i].ID < m.Actors[j].ID })
	return m
}

func (s *Store) ListActors(_ context.Context) ([]catalog.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Actor, 0, len(s.actors))
	for _, r := range s.actors {
		out = append(out, s.actorLocked(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetActor(_ context.Context, id int64) (*catalog.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.actors[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	a := s.actorLocked(r)
	return &a, nil
}

func (s *Store) CreateActor(_ context.Context, a catalog.Actor) (*catalog.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextA++
	r := &actorRow{id: s.nextA, name: a.Name, age: a.Age, gender: a.Gender}
	s.actors[r.id] = r
	out := s.actorLocked(r)
	return &out, nil
}

func (s *Store) UpdateActor(_ context.Context, id int64, p catalog.ActorPatch) (*catalog.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.actors[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	if p.Name != nil {
		r.name = *p.Name
	}
	if p.Age != nil {
		r.age = *p.Age
	}
	if p.Gender != nil {
		r.gender = *p.Gender
	}
	out := s.actorLocked(r)
	return &out, nil
}

func (s *Store) DeleteActor(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actors[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(s.actors, id)
	for _, ids := range s.cast {
		delete(ids, id)
	}
	return nil
}

func (s *Store) ListMovies(_ context.Context) ([]catalog.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Movie, 0, len(s.movies))
	for _, r := range s.movies {
		out = append(out, s.movieLocked(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetMovie(_ context.Context, id int64) (*catalog.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.movies[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	m := s.movieLocked(r)
	return &m, nil
}

func (s *Store) CreateMovie(_ context.Context, m catalog.Movie) (*catalog.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextM++
	r := &movieRow{id: s.nextM, title: m.Title, date: m.ReleaseDate.UTC()}
	s.movies[r.id] = r
	out := s.movieLocked(r)
	return &out, nil
}

func (s *Store) UpdateMovie(_ context.Context, id int64, p catalog.MoviePatch) (*catalog.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.movies[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	if p.Title != nil {
		r.title = *p.Title
	}
	if p.ReleaseDate != nil {
		r.date = p.ReleaseDate.UTC()
	}
	out := s.movieLocked(r)
	return &out, nil
}

func (s *Store) DeleteMovie(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(s.movies, id)
	delete(s.cast, id)
	return nil
}

func (s *Store) SetMovieActors(_ context.Context, movieID int64, actorIDs []int64) (*catalog.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.movies[movieID]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	ids := make(map[int64]struct{}, len(actorIDs))
	for _, id := range actorIDs {
		if _, ok := s.actors[id]; ok {
			ids[id] = struct{}{}
		}
	}
	s.cast[movieID] = ids
	out := s.movieLocked(r)
	return &out, nil
}
