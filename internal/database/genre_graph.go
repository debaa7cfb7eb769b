package database

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

// GenreGraph resolves artist names to genre tags through the music
// knowledge graph. Profiles use it to fill genre gaps when the listening
// data alone is too sparse.
type GenreGraph struct {
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

func NewGenreGraph(driver neo4j.DriverWithContext, logger *logrus.Logger) *GenreGraph {
	return &GenreGraph{driver: driver, logger: logger}
}

// GenresForArtists returns genre occurrence counts across the given
// artists. Unknown artists contribute nothing.
func (g *GenreGraph) GenresForArtists(ctx context.Context, artistNames []string) (map[string]int, error) {
	if len(artistNames) == 0 {
		return map[string]int{}, nil
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (a:Artist)-[:PLAYS_GENRE]->(g:Genre)
		WHERE toLower(a.name) IN [name IN $names | toLower(name)]
		RETURN g.name AS genre, count(a) AS artists
		ORDER BY artists DESC`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"names": artistNames,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query genre graph: %w", err)
	}

	counts := make(map[string]int)
	for result.Next(ctx) {
		record := result.Record()
		genre, ok := record.Values[0].(string)
		if !ok {
			continue
		}
		artists, ok := record.Values[1].(int64)
		if !ok {
			continue
		}
		counts[genre] = int(artists)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read genre graph results: %w", err)
	}

	return counts, nil
}
