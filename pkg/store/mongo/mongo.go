// Package mongo provides a flow store backed by MongoDB. Each flow is one
// document in the "flows" collection, shaped like the JSON flow document.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/screenflow/screenflow/pkg/flow"
	"github.com/screenflow/screenflow/pkg/graph"
	"github.com/screenflow/screenflow/pkg/store"
)

// Collection is the name of the collection holding flow documents.
const Collection = "flows"

// Store is the MongoDB flow store.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	owned  bool
}

// Open connects to uri, verifies the connection and prepares indexes in the
// given database. Close disconnects the client.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	s, err := New(ctx, client.Database(database))
	if err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New wraps an existing database handle. Close leaves the client connected.
func New(ctx context.Context, db *mongo.Database) (*Store, error) {
	coll := db.Collection(Collection)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "title", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return &Store{client: db.Client(), coll: coll}, nil
}

func (s *Store) Save(ctx context.Context, f *flow.Flow) error {
	if err := store.Check(f); err != nil {
		return err
	}
	doc := graph.FromFlow(f)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": f.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save flow %s: %w", f.ID, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*flow.Flow, error) {
	var doc graph.Flow
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load flow %s: %w", id, err)
	}
	return graph.ToFlow(doc)
}

type summaryDoc struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Status      string    `bson:"status"`
	CreatedAt   time.Time `bson:"created_at"`
	Screens     int       `bson:"screens"`
	Connections int       `bson:"connections"`
}

// List aggregates summaries server side so screen lists never leave the
// database.
func (s *Store) List(ctx context.Context, filter store.Filter) ([]store.Summary, error) {
	match := bson.M{}
	if filter.Title != "" {
		match["title"] = filter.Title
	}
	if filter.Status != "" {
		match["status"] = string(filter.Status)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	if filter.Offset > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: int64(filter.Offset)}})
	}
	if filter.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(filter.Limit)}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$project", Value: bson.M{
		"title":       1,
		"status":      1,
		"created_at":  1,
		"screens":     bson.M{"$size": bson.M{"$ifNull": bson.A{"$screens", bson.A{}}}},
		"connections": bson.M{"$size": bson.M{"$ifNull": bson.A{"$connections", bson.A{}}}},
	}}})

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}
	var docs []summaryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode flows: %w", err)
	}

	out := make([]store.Summary, 0, len(docs))
	for _, d := range docs {
		out = append(out, store.Summary{
			ID:          d.ID,
			Title:       d.Title,
			Status:      flow.Status(d.Status),
			Screens:     d.Screens,
			Connections: d.Connections,
			CreatedAt:   d.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete flow %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return store.NotFound(id)
	}
	return nil
}

func (s *Store) CountByTitle(ctx context.Context, title string) (int, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"title": title})
	if err != nil {
		return 0, fmt.Errorf("count flows: %w", err)
	}
	return int(n), nil
}

func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

var _ store.Store = (*Store)(nil)
