package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"

	"github.com/mark-c-hall/whatmovies/internal/config"
	"github.com/mark-c-hall/whatmovies/internal/favorites"
	"github.com/mark-c-hall/whatmovies/internal/models"
)

// Driver stores favorites as (:Visitor)-[:FAVORITED {at}]->(:Movie) edges.
type Driver struct {
	driver neo4j.Driver
}

var _ favorites.Store = (*Driver)(nil)

func NewDriver(ctx context.Context, cfg config.DBConfig) (*Driver, error) {
	driver, err := neo4j.NewDriver(
		cfg.URI,
		neo4j.BasicAuth(cfg.User, cfg.Pass, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating neo4j driver: %w", err)
	}

	if err = driver.VerifyAuthentication(ctx, nil); err != nil {
		return nil, fmt.Errorf("error authenticating into neo4j: %w", err)
	}

	return &Driver{driver: driver}, nil
}

func (d *Driver) SetupSchema(ctx context.Context) error {
	queries := []string{
		"CREATE CONSTRAINT visitor_id IF NOT EXISTS FOR (v:Visitor) REQUIRE v.id IS UNIQUE",
		"CREATE CONSTRAINT movie_tmdb_id IF NOT EXISTS FOR (m:Movie) REQUIRE m.tmdb_id IS UNIQUE",
	}

	session := d.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, query := range queries {
		if _, err := session.Run(ctx, query, nil); err != nil {
			return fmt.Errorf("error running schema query: %w", err)
		}
	}

	return nil
}

func (d *Driver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

func (d *Driver) VerifyConnectivity(ctx context.Context) error {
	return d.driver.VerifyConnectivity(ctx)
}

func (d *Driver) IsFavorite(ctx context.Context, visitor, movieID string) (bool, error) {
	if visitor == "" || movieID == "" {
		return false, nil
	}

	cypher := `
		MATCH (:Visitor {id: $visitor})-[r:FAVORITED]->(:Movie {tmdb_id: $movie})
		RETURN count(r) > 0 AS fav`
	params := map[string]any{"visitor": visitor, "movie": movieID}

	session := d.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return false, fmt.Errorf("error reading favorite: %w", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return false, fmt.Errorf("error reading favorite result: %w", err)
	}

	fav, _ := record.Get("fav")
	ok, _ := fav.(bool)
	return ok, nil
}

func (d *Driver) Add(ctx context.Context, visitor, movieID string) error {
	if visitor == "" || movieID == "" {
		return favorites.ErrNoIdentifier
	}

	cypher := `
		MERGE (v:Visitor {id: $visitor})
		MERGE (m:Movie {tmdb_id: $movie})
		MERGE (v)-[r:FAVORITED]->(m)
		ON CREATE SET r.at = $at`
	params := map[string]any{
		"visitor": visitor,
		"movie":   movieID,
		"at":      time.Now().UTC().UnixMilli(),
	}

	session := d.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	if _, err := session.Run(ctx, cypher, params); err != nil {
		return fmt.Errorf("error adding favorite: %w", err)
	}

	return nil
}

func (d *Driver) Remove(ctx context.Context, visitor, movieID string) error {
	if visitor == "" || movieID == "" {
		return favorites.ErrNoIdentifier
	}

	cypher := `
		MATCH (:Visitor {id: $visitor})-[r:FAVORITED]->(:Movie {tmdb_id: $movie})
		DELETE r`
	params := map[string]any{"visitor": visitor, "movie": movieID}

	session := d.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	if _, err := session.Run(ctx, cypher, params); err != nil {
		return fmt.Errorf("error removing favorite: %w", err)
	}

	return nil
}

// List returns the visitor's favorites, most recently added first.
func (d *Driver) List(ctx context.Context, visitor string) ([]models.Favorite, error) {
	cypher := `
		MATCH (:Visitor {id: $visitor})-[r:FAVORITED]->(m:Movie)
		RETURN m.tmdb_id AS id, r.at AS at
		ORDER BY r.at DESC, m.tmdb_id`
	params := map[string]any{"visitor": visitor}

	session := d.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("error listing favorites: %w", err)
	}

	favs := []models.Favorite{}
	for result.Next(ctx) {
		record := result.Record()
		id, _ := record.Get("id")
		at, _ := record.Get("at")
		millis, _ := at.(int64)
		favs = append(favs, models.Favorite{
			Visitor:   visitor,
			MovieID:   id.(string),
			CreatedAt: time.UnixMilli(millis).UTC(),
		})
	}
	if err = result.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favorite results: %w", err)
	}

	return favs, nil
}

// CountFavorites reports how many visitors favorited each movie, for the
// operator CLI.
func (d *Driver) CountFavorites(ctx context.Context, limit int) (map[string]int, error) {
	cypher := `
		MATCH (:Visitor)-[r:FAVORITED]->(m:Movie)
		RETURN m.tmdb_id AS id, count(r) AS c
		ORDER BY c DESC
		LIMIT $limit`

	session := d.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypher, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("error counting favorites: %w", err)
	}

	counts := map[string]int{}
	for result.Next(ctx) {
		record := result.Record()
		id, _ := record.Get("id")
		c, _ := record.Get("c")
		counts[id.(string)] = int(c.(int64))
	}
	if err = result.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favorite counts: %w", err)
	}

	return counts, nil
}
