package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphStorage - RelationshipStore поверх графа подписок и закладок:
// (:User)-[:FOLLOWS]->(:User), (:User)-[:BOOKMARKED]->(:Item)
type GraphStorage struct {
	driver neo4j.DriverWithContext
}

func New(ctx context.Context, uri, username, password string) (*GraphStorage, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}

	s := &GraphStorage{driver: driver}
	if err := s.ensureSchema(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}
	return s, nil
}

// ensureSchema создает ограничения уникальности (и индексы) для lookup по id
func (s *GraphStorage) ensureSchema(ctx context.Context) error {
	for _, query := range []string{
		`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
		`CREATE CONSTRAINT item_id_unique IF NOT EXISTS FOR (i:Item) REQUIRE i.id IS UNIQUE`,
	} {
		if err := s.write(ctx, query, nil); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (s *GraphStorage) Follow(ctx context.Context, followerID, ownerID string) error {
	// MERGE идемпотентен
	return s.write(ctx, `
		MERGE (a:User {id: $followerId})
		MERGE (b:User {id: $ownerId})
		MERGE (a)-[r:FOLLOWS]->(b)
		ON CREATE SET r.created_at = datetime()
	`, map[string]any{"followerId": followerID, "ownerId": ownerID})
}

func (s *GraphStorage) Bookmark(ctx context.Context, userID, itemID string) error {
	return s.write(ctx, `
		MERGE (u:User {id: $userId})
		MERGE (i:Item {id: $itemId})
		MERGE (u)-[r:BOOKMARKED]->(i)
		ON CREATE SET r.created_at = datetime()
	`, map[string]any{"userId": userID, "itemId": itemID})
}

func (s *GraphStorage) FollowedOwners(ctx context.Context, userID string) ([]string, error) {
	return s.readIDs(ctx, `MATCH (:User {id: $userId})-[:FOLLOWS]->(o:User) RETURN o.id AS id`, userID)
}

func (s *GraphStorage) BookmarkedItems(ctx context.Context, userID string) ([]string, error) {
	return s.readIDs(ctx, `MATCH (:User {id: $userId})-[:BOOKMARKED]->(i:Item) RETURN i.id AS id`, userID)
}

func (s *GraphStorage) Close() error {
	return s.driver.Close(context.Background())
}

func (s *GraphStorage) write(ctx context.Context, query string, params map[string]any) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	return err
}

func (s *GraphStorage) readIDs(ctx context.Context, query, userID string) ([]string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"userId": userID})
		if err != nil {
			return nil, err
		}

		var ids []string
		for res.Next(ctx) {
			id, _ := res.Record().Get("id")
			if v, ok := id.(string); ok {
				ids = append(ids, v)
			}
		}
		return ids, res.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}
