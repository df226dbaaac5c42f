// Package catalog defines the actors and movies the service manages and the
// storage contract the HTTP handlers depend on.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when an actor or movie does not exist.
var ErrNotFound = errors.New("catalog: not found")

type Actor struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Age    int        `json:"age"`
	Gender string     `json:"gender"`
	Movies []MovieRef `json:"movies"`
}

type Movie struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	ReleaseDate time.Time  `json:"release_date"`
	Actors      []ActorRef `json:"actors"`
}

// ActorRef is an actor as listed on a movie.
type ActorRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MovieRef is a movie as listed on an actor.
type MovieRef struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// ActorPatch carries the fields of a partial update; nil fields are kept.
type ActorPatch struct {
	Name   *string
	Age    *int
	Gender *string
}

// MoviePatch carries the fields of a partial update; nil fields are kept.
type MoviePatch struct {
	Title       *string
	ReleaseDate *time.Time
}

// Store persists actors, movies and the links between them. Deleting either
// side of a link removes the link.
type Store interface {
	ListActors(ctx context.Context) ([]Actor, error)
	GetActor(ctx context.Context, id int64) (*Actor, error)
	CreateActor(ctx context.Context, a Actor) (*Actor, error)
	UpdateActor(ctx context.Context, id int64, p ActorPatch) (*Actor, error)
	DeleteActor(ctx context.Context, id int64) error

	ListMovies(ctx context.Context) ([]Movie, error)
	GetMovie(ctx context.Context, id int64) (*Movie, error)
	CreateMovie(ctx context.Context, m Movie) (*Movie, error)
	UpdateMovie(ctx context.Context, id int64, p MoviePatch) (*Movie, error)
	DeleteMovie(ctx context.Context, id int64) error

	// SetMovieActors replaces the cast of a movie. Unknown actor ids are
	// skipped.
	SetMovieActors(ctx context.Context, movieID int64, actorIDs []int64) (*Movie, error)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseReleaseDate accepts ISO 8601 dates such as "2023-09-28T14:30:00",
// with or without a zone offset, or a bare date. Values without a zone are UTC.
func ParseReleaseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use ISO 8601, e.g. 2023-09-28T14:30:00", s)
}
