package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps compositions as JSON text: elements are an interface
// union that bson cannot decode on its own.
type MongoStore struct {
	client       *mongo.Client
	compositions *mongo.Collection
	exports      *mongo.Collection
	logger       *slog.Logger
	now          func() time.Time
}

type compositionDoc struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Body        string    `bson:"body"`
	TotalFrames int       `bson:"total_frames"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

type exportDoc struct {
	ID            string       `bson:"_id"`
	CompositionID string       `bson:"composition_id"`
	Status        ExportStatus `bson:"status"`
	Output        string       `bson:"output"`
	Error         string       `bson:"error"`
	CreatedAt     time.Time    `bson:"created_at"`
	UpdatedAt     time.Time    `bson:"updated_at"`
}

func NewMongo(ctx context.Context, uri, database string, logger *slog.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:       client,
		compositions: db.Collection("compositions"),
		exports:      db.Collection("exports"),
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if err := s.createIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	_, err := s.compositions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create composition index: %w", err)
	}
	_, err = s.exports.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "composition_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create export index: %w", err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Save(ctx context.Context, rec *Record) (*Record, error) {
	out, body, err := prepare(rec, s.now())
	if err != nil {
		return nil, err
	}

	if existing, err := s.Get(ctx, out.ID); err == nil {
		out.CreatedAt = existing.CreatedAt
	}

	doc := compositionDoc{
		ID:          out.ID,
		Title:       out.Title,
		Body:        string(body),
		TotalFrames: out.TotalFrames,
		CreatedAt:   out.CreatedAt,
		UpdatedAt:   out.UpdatedAt,
	}
	_, err = s.compositions.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("save composition %s: %w", out.ID, err)
	}
	return out, nil
}

func (d compositionDoc) record() (*Record, error) {
	comp, err := decodeBody([]byte(d.Body))
	if err != nil {
		return nil, fmt.Errorf("composition %s: %w", d.ID, err)
	}
	return &Record{
		ID:          d.ID,
		Title:       d.Title,
		Composition: comp,
		TotalFrames: d.TotalFrames,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Record, error) {
	var doc compositionDoc
	err := s.compositions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("composition %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return doc.record()
}

func (s *MongoStore) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}
	cursor, err := s.compositions.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []compositionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(docs))
	for _, d := range docs {
		rec, err := d.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.compositions.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("composition %s: %w", id, ErrNotFound)
	}
	if _, err := s.exports.DeleteMany(ctx, bson.M{"composition_id": id}); err != nil && s.logger != nil {
		s.logger.Warn("failed to delete exports", "composition_id", id, "error", err)
	}
	return nil
}

func (s *MongoStore) SaveExport(ctx context.Context, exp *Export) (*Export, error) {
	out := prepareExport(exp, s.now())
	doc := exportDoc(*out)
	_, err := s.exports.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("save export %s: %w", out.ID, err)
	}
	return out, nil
}

func (s *MongoStore) GetExport(ctx context.Context, id string) (*Export, error) {
	var doc exportDoc
	err := s.exports.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("export %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	exp := Export(doc)
	return &exp, nil
}

func (s *MongoStore) ListExports(ctx context.Context, compositionID string) ([]*Export, error) {
	cursor, err := s.exports.Find(ctx, bson.M{"composition_id": compositionID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []exportDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*Export, len(docs))
	for i := range docs {
		exp := Export(docs[i])
		out[i] = &exp
	}
	return out, nil
}
