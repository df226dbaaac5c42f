// Package pgcatalog is the Postgres-backed catalog.Store.
package pgcatalog

import (
	"context"
	"errors"
	"strings"

	"github.com/PaulFidika/casting/catalog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides catalog persistence against the actor, movie and
// actor_movie tables created by the migrations package.
type Store struct {
	pg     *pgxpool.Pool
	schema string
}

func NewStore(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "public"
	}
	return &Store{pg: pg, schema: s}
}

var _ catalog.Store = (*Store)(nil)

func (s *Store) actors() string { return s.schema + ".actor" }
func (s *Store) movies() string { return s.schema + ".movie" }
func (s *Store) links() string  { return s.schema + ".actor_movie" }

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.ErrNotFound
	}
	return err
}

func (s *Store) inTx(ctx context.Context, fn func(q querier) error) error {
	return pgx.BeginFunc(ctx, s.pg, func(tx pgx.Tx) error { return fn(tx) })
}

// moviesOf returns actor id -> movies it appears in.
func (s *Store) moviesOf(ctx context.Context, q querier, actorIDs []int64) (map[int64][]catalog.MovieRef, error) {
	out := make(map[int64][]catalog.MovieRef, len(actorIDs))
	if len(actorIDs) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `SELECT am.actor_id, m.id, m.title FROM `+s.links()+` am JOIN `+s.movies()+` m ON m.id = am.movie_id
		WHERE am.actor_id = ANY($1::bigint[]) ORDER BY am.actor_id, m.id`, actorIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var aid int64
		var ref catalog.MovieRef
		if err := rows.Scan(&aid, &ref.ID, &ref.Title); err != nil {
			return nil, err
		}
		out[aid] = append(out[aid], ref)
	}
	return out, rows.Err()
}

// castOf returns movie id -> actors linked to it.
func (s *Store) castOf(ctx context.Context, q querier, movieIDs []int64) (map[int64][]catalog.ActorRef, error) {
	out := make(map[int64][]catalog.ActorRef, len(movieIDs))
	if len(movieIDs) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `SELECT am.movie_id, a.id, a.name FROM `+s.links()+` am JOIN `+s.actors()+` a ON a.id = am.actor_id
		WHERE am.movie_id = ANY($1::bigint[]) ORDER BY am.movie_id, a.id`, movieIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var mid int64
		var ref catalog.ActorRef
		if err := rows.Scan(&mid, &ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		out[mid] = append(out[mid], ref)
	}
	return out, rows.Err()
}

func (s *Store) withMovies(ctx context.Context, q querier, list []catalog.Actor) error {
	ids := make([]int64, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	refs, err := s.moviesOf(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range list {
		list[i].Movies = refs[list[i].ID]
		if list[i].Movies == nil {
			list[i].Movies = []catalog.MovieRef{}
		}
	}
	return nil
}

func (s *Store) withCast(ctx context.Context, q querier, list []catalog.Movie) error {
	ids := make([]int64, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	refs, err := s.castOf(ctx, q, ids)
	if err != nil {
		return err
	}
	for i := range list {
		list[i].Actors = refs[list[i].ID]
		if list[i].Actors == nil {
			list[i].Actors = []catalog.ActorRef{}
		}
	}
	return nil
}

func (s *Store) ListActors(ctx context.Context) ([]catalog.Actor, error) {
	rows, err := s.pg.Query(ctx, `SELECT id, name, age, gender FROM `+s.actors()+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var out []catalog.Actor
	for rows.Next() {
		var a catalog.Actor
		if err := rows.Scan(&a.ID, &a.Name, &a.Age, &a.Gender); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.withMovies(ctx, s.pg, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) getActor(ctx context.Context, q querier, id int64) (*catalog.Actor, error) {
	var a catalog.Actor
	err := q.QueryRow(ctx, `SELECT id, name, age, gender FROM `+s.actors()+` WHERE id=$1`, id).Scan(&a.ID, &a.Name, &a.Age, &a.Gender)
	if err != nil {
		return nil, notFound(err)
	}
	list := []catalog.Actor{a}
	if err := s.withMovies(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *Store) GetActor(ctx context.Context, id int64) (*catalog.Actor, error) {
	return s.getActor(ctx, s.pg, id)
}

func (s *Store) CreateActor(ctx context.Context, a catalog.Actor) (*catalog.Actor, error) {
	err := s.pg.QueryRow(ctx, `INSERT INTO `+s.actors()+` (name, age, gender) VALUES ($1, $2, $3) RETURNING id`,
		a.Name, a.Age, a.Gender).Scan(&a.ID)
	if err != nil {
		return nil, err
	}
	a.Movies = []catalog.MovieRef{}
	return &a, nil
}

func (s *Store) UpdateActor(ctx context.Context, id int64, p catalog.ActorPatch) (*catalog.Actor, error) {
	var out *catalog.Actor
	err := s.inTx(ctx, func(q querier) error {
		tag, err := q.Exec(ctx, `UPDATE `+s.actors()+` SET
			name = COALESCE($2, name), age = COALESCE($3, age), gender = COALESCE($4, gender)
			WHERE id=$1`, id, p.Name, p.Age, p.Gender)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return catalog.ErrNotFound
		}
		out, err = s.getActor(ctx, q, id)
		return err
	})
	return out, err
}

// DeleteActor relies on ON DELETE CASCADE to drop the actor's links.
func (s *Store) DeleteActor(ctx context.Context, id int64) error {
	tag, err := s.pg.Exec(ctx, `DELETE FROM `+s.actors()+` WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *Store) ListMovies(ctx context.Context) ([]catalog.Movie, error) {
	rows, err := s.pg.Query(ctx, `SELECT id, title, release_date FROM `+s.movies()+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var out []catalog.Movie
	for rows.Next() {
		var m catalog.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.ReleaseDate); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.withCast(ctx, s.pg, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) getMovie(ctx context.Context, q querier, id int64) (*catalog.Movie, error) {
	var m catalog.Movie
	err := q.QueryRow(ctx, `SELECT id, title, release_date FROM `+s.movies()+` WHERE id=$1`, id).Scan(&m.ID, &m.Title, &m.ReleaseDate)
	if err != nil {
		return nil, notFound(err)
	}
	list := []catalog.Movie{m}
	if err := s.withCast(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *Store) GetMovie(ctx context.Context, id int64) (*catalog.Movie, error) {
	return s.getMovie(ctx, s.pg, id)
}

func (s *Store) CreateMovie(ctx context.Context, m catalog.Movie) (*catalog.Movie, error) {
	m.ReleaseDate = m.ReleaseDate.UTC()
	err := s.pg.QueryRow(ctx, `INSERT INTO `+s.movies()+` (title, release_date) VALUES ($1, $2) RETURNING id`,
		m.Title, m.ReleaseDate).Scan(&m.ID)
	if err != nil {
		return nil, err
	}
	m.Actors = []catalog.ActorRef{}
	return &m, nil
}

func (s *Store) UpdateMovie(ctx context.Context, id int64, p catalog.MoviePatch) (*catalog.Movie, error) {
	var out *catalog.Movie
	err := s.inTx(ctx, func(q querier) error {
		tag, err := q.Exec(ctx, `UPDATE `+s.movies()+` SET
			title = COALESCE($2, title), release_date = COALESCE($3, release_date)
			WHERE id=$1`, id, p.Title, p.ReleaseDate)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return catalog.ErrNotFound
		}
		out, err = s.getMovie(ctx, q, id)
		return err
	})
	return out, err
}

func (s *Store) DeleteMovie(ctx context.Context, id int64) error {
	tag, err := s.pg.Exec(ctx, `DELETE FROM `+s.movies()+` WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// SetMovieActors replaces the cast in one transaction; ids that do not name
// an actor are filtered by the INSERT ... SELECT.
func (s *Store) SetMovieActors(ctx context.Context, movieID int64, actorIDs []int64) (*catalog.Movie, error) {
	var out *catalog.Movie
	err := s.inTx(ctx, func(q querier) error {
		var id int64
		if err := q.QueryRow(ctx, `SELECT id FROM `+s.movies()+` WHERE id=$1 FOR UPDATE`, movieID).Scan(&id); err != nil {
			return notFound(err)
		}
		if _, err := q.Exec(ctx, `DELETE FROM `+s.links()+` WHERE movie_id=$1`, movieID); err != nil {
			return err
		}
		if len(actorIDs) > 0 {
			if _, err := q.Exec(ctx, `INSERT INTO `+s.links()+` (actor_id, movie_id)
				SELECT a.id, $1 FROM `+s.actors()+` a WHERE a.id = ANY($2::bigint[])
				ON CONFLICT DO NOTHING`, movieID, actorIDs); err != nil {
				return err
			}
		}
		var err error
		out, err = s.getMovie(ctx, q, movieID)
		return err
	})
	return out, err
}
