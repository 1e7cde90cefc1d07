// Package publish stores a run's result document in MongoDB.
package publish

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/roomstat/internal/export"
	"github.com/BartekS5/roomstat/pkg/logger"
)

// DefaultCollection receives one document per run.
const DefaultCollection = "reports"

// MongoPublisher upserts result documents keyed by run id.
type MongoPublisher struct {
	Client     *mongo.Client
	Database   string
	Collection string
	Timeout    time.Duration
}

func NewMongoPublisher(client *mongo.Client, database string) *MongoPublisher {
	return &MongoPublisher{
		Client:     client,
		Database:   database,
		Collection: DefaultCollection,
		Timeout:    30 * time.Second,
	}
}

// Publish writes r under _id = runID, replacing an earlier document with the
// same id.
func (p *MongoPublisher) Publish(ctx context.Context, runID string, r export.Result) error {
	coll := p.Client.Database(p.Database).Collection(p.Collection)

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	filter := bson.M{"_id": runID}
	update := bson.M{"$set": Document(r)}
	res, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("publish run %s to %s.%s: %w", runID, p.Database, p.Collection, err)
	}
	logger.Info().
		Str("run_id", runID).
		Str("collection", p.Database+"."+p.Collection).
		Int64("matched", res.MatchedCount).
		Int64("upserted", res.UpsertedCount).
		Msg("result published")
	return nil
}

// Document renders r as an ordered BSON document using the export scalar
// conversions.
func Document(r export.Result) bson.D {
	doc := make(bson.D, 0, len(r))
	for _, s := range r {
		var v any
		switch s.Kind {
		case export.SectionRows:
			rows := make(bson.A, 0, len(s.Rows))
			for _, rec := range s.Rows {
				rows = append(rows, record(rec))
			}
			v = rows
		case export.SectionRow:
			v = record(s.Row)
		default:
			v = export.Convert(s.Value)
		}
		doc = append(doc, bson.E{Key: s.Name, Value: v})
	}
	return doc
}

func record(rec export.Record) bson.D {
	d := make(bson.D, 0, len(rec))
	for _, f := range rec {
		d = append(d, bson.E{Key: f.Name, Value: export.Convert(f.Value)})
	}
	return d
}
