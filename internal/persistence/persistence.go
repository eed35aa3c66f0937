// Package persistence produces the engine's one durable artefact (the
// per-series JSON document) and a best-effort Mongo-backed lifecycle
// event log.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arcane-tourneys/botarena/internal/series"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// SeriesDocument is the wire-stable shape of the persisted series
// artefact: seriesId, startedAt, endedAt, tournaments, seriesStandings,
// seriesChampion.
type SeriesDocument struct {
	SeriesID        string                  `json:"seriesId"`
	StartedAt       time.Time               `json:"startedAt"`
	EndedAt         time.Time               `json:"endedAt"`
	Tournaments     interface{}             `json:"tournaments"`
	SeriesStandings []series.BotStanding    `json:"seriesStandings"`
	SeriesChampion  string                  `json:"seriesChampion"`
}

// ToDocument renormalises a series.Info into the persisted shape.
func ToDocument(info series.Info) SeriesDocument {
	return SeriesDocument{
		SeriesID:        info.SeriesID,
		StartedAt:       info.StartedAt,
		EndedAt:         info.EndedAt,
		Tournaments:     info.Tournaments,
		SeriesStandings: info.SeriesStandings,
		SeriesChampion:  info.SeriesChampion,
	}
}

// Marshal renders a SeriesDocument as stably-keyed JSON (sorted object
// keys via encoding/json's default map handling plus struct field
// order), satisfying the bytewise-stable round-trip property.
func Marshal(doc SeriesDocument) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Store persists the series document into Mongo's series collection
// and, separately, records lifecycle events in an analytics event log;
// the series document itself is not copied into that log.
type Store struct {
	db     *mongo.Database
	logger *zap.SugaredLogger
}

func NewStore(db *mongo.Database, logger *zap.SugaredLogger) *Store {
	return &Store{db: db, logger: logger}
}

func NewClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("persistence: connect: %w", err)
	}
	return client, nil
}

// SaveSeries upserts the series document by seriesId, the sole durable
// artefact the core produces.
func (s *Store) SaveSeries(ctx context.Context, doc SeriesDocument) error {
	_, err := s.db.Collection("series").ReplaceOne(
		ctx,
		bson.M{"seriesId": doc.SeriesID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("persistence: save series %s: %w", doc.SeriesID, err)
	}
	return nil
}

// LoadSeries fetches a previously persisted series document.
func (s *Store) LoadSeries(ctx context.Context, seriesID string) (SeriesDocument, error) {
	var doc SeriesDocument
	err := s.db.Collection("series").FindOne(ctx, bson.M{"seriesId": seriesID}).Decode(&doc)
	if err != nil {
		return SeriesDocument{}, fmt.Errorf("persistence: load series %s: %w", seriesID, err)
	}
	return doc, nil
}

// LogEvent records a best-effort lifecycle event. Failures are logged
// and swallowed: analytics must never break a running tournament.
func (s *Store) LogEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	event := bson.M{
		"type":      eventType,
		"data":      data,
		"timestamp": time.Now(),
	}
	if _, err := s.db.Collection("lifecycle_events").InsertOne(ctx, event); err != nil {
		if s.logger != nil {
			s.logger.Warnw("persistence: failed to log lifecycle event", "type", eventType, "error", err)
		}
	}
}
