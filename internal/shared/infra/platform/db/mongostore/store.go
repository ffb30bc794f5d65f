// Package mongostore es el repositorio genérico sobre MongoDB. Los joins se resuelven con
// $lookup y el outbox se escribe en la misma transacción de sesión.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	sharedApp "github.com/davicafu/crudlab/internal/shared/application"
	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	"github.com/davicafu/crudlab/internal/shared/query"
	"github.com/davicafu/crudlab/internal/shared/schema"
)

// DocCodec convierte entre la entidad y su documento BSON. Las claves bson del documento
// deben coincidir con las columnas del esquema, con el ID en _id.
type DocCodec[E, M any] struct {
	ToDoc   func(*E) *M
	FromDoc func(*M) *E
}

type Store[E, M any] struct {
	client     *mongo.Client
	coll       *mongo.Collection
	outboxColl *mongo.Collection
	binding    schema.Binding[E]
	codec      DocCodec[E, M]
}

// New comprueba la conexión y prepara las colecciones del tipo y del outbox.
func New[E, M any](ctx context.Context, client *mongo.Client, dbName string, binding schema.Binding[E], codec DocCodec[E, M]) (*Store[E, M], error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &Store[E, M]{
		client:     client,
		coll:       db.Collection(binding.Type.Table),
		outboxColl: db.Collection("outbox"),
		binding:    binding,
		codec:      codec,
	}, nil
}

// --- CRUD Transaccional ---

func (s *Store[E, M]) Insert(ctx context.Context, e *E, evt sharedDomain.OutboxEvent) error {
	if s.binding.Identity.Versioned() {
		s.binding.Identity.SetVersion(e, 1)
	}

	return s.inTx(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := s.coll.InsertOne(sessCtx, s.codec.ToDoc(e)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("%s %s already exists: %w", s.binding.Type.Name, s.binding.Identity.GetID(e), sharedDomain.ErrStaleVersion)
			}
			return err
		}
		return s.insertOutbox(sessCtx, evt)
	})
}

func (s *Store[E, M]) Update(ctx context.Context, e *E, evt sharedDomain.OutboxEvent) error {
	t := s.binding.Type
	ident := s.binding.Identity
	id, err := s.idValue(ident.GetID(e))
	if err != nil {
		return err
	}

	filter := bson.D{{Key: "_id", Value: id}}
	versioned := ident.Versioned() && t.VersionColumn() != ""
	var previous int64
	if versioned {
		previous = ident.GetVersion(e)
		filter = append(filter, bson.E{Key: t.VersionColumn(), Value: previous})
		ident.SetVersion(e, previous+1)
	}

	err = s.inTx(ctx, func(sessCtx mongo.SessionContext) error {
		res, err := s.coll.ReplaceOne(sessCtx, filter, s.codec.ToDoc(e))
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			n, err := s.coll.CountDocuments(sessCtx, bson.D{{Key: "_id", Value: id}})
			if err != nil {
				return err
			}
			if n > 0 && versioned {
				return fmt.Errorf("%s %s: %w", t.Name, ident.GetID(e), sharedDomain.ErrStaleVersion)
			}
			return fmt.Errorf("%s %s: %w", t.Name, ident.GetID(e), sharedDomain.ErrNotFound)
		}
		return s.insertOutbox(sessCtx, evt)
	})
	if err != nil && versioned {
		ident.SetVersion(e, previous)
	}
	return err
}

func (s *Store[E, M]) DeleteByID(ctx context.Context, id string, evt sharedDomain.OutboxEvent) error {
	key, err := s.idValue(id)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(sessCtx mongo.SessionContext) error {
		res, err := s.coll.DeleteOne(sessCtx, bson.D{{Key: "_id", Value: key}})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return fmt.Errorf("%s %s: %w", s.binding.Type.Name, id, sharedDomain.ErrNotFound)
		}
		return s.insertOutbox(sessCtx, evt)
	})
}

// --- Lectura ---

func (s *Store[E, M]) GetByID(ctx context.Context, id string) (*E, error) {
	key, err := s.idValue(id)
	if err != nil {
		return nil, err
	}

	var doc M
	if err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s %s: %w", s.binding.Type.Name, id, sharedDomain.ErrNotFound)
		}
		return nil, err
	}
	return s.codec.FromDoc(&doc), nil
}

func (s *Store[E, M]) FindAll(ctx context.Context) ([]*E, error) {
	cursor, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return s.decodeAll(ctx, cursor)
}

func (s *Store[E, M]) Find(ctx context.Context, spec query.QuerySpec) ([]*E, error) {
	stages, err := pipeline(spec)
	if err != nil {
		return nil, err
	}
	cursor, err := s.coll.Aggregate(ctx, stages)
	if err != nil {
		return nil, err
	}
	return s.decodeAll(ctx, cursor)
}

func (s *Store[E, M]) Count(ctx context.Context, sel query.Selection) (int64, error) {
	stages, err := countPipeline(sel)
	if err != nil {
		return 0, err
	}
	cursor, err := s.coll.Aggregate(ctx, stages)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var res struct {
		N int64 `bson:"n"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&res); err != nil {
			return 0, err
		}
	}
	return res.N, cursor.Err()
}

// --- Helpers ---

func (s *Store[E, M]) decodeAll(ctx context.Context, cursor *mongo.Cursor) ([]*E, error) {
	defer cursor.Close(ctx)

	var out []*E
	for cursor.Next(ctx) {
		var doc M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, s.codec.FromDoc(&doc))
	}
	return out, cursor.Err()
}

func (s *Store[E, M]) inTx(ctx context.Context, fn func(mongo.SessionContext) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	// La transacción asegura que la entidad y el evento se escriben juntos.
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

func (s *Store[E, M]) insertOutbox(ctx context.Context, evt sharedDomain.OutboxEvent) error {
	_, err := s.outboxColl.InsertOne(ctx, toMongoOutboxEvent(evt))
	return err
}

// idValue convierte el ID textual al tipo con el que se guarda en _id.
func (s *Store[E, M]) idValue(id string) (any, error) {
	t := s.binding.Type
	f, _ := t.Field(t.IDField)
	if f.Kind == schema.KindInt {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", t.Name, id, sharedDomain.ErrNotFound)
		}
		return n, nil
	}
	return id, nil
}

// ---------------- Outbox ----------------

type mongoOutboxEvent struct {
	ID            string      `bson:"_id"`
	AggregateType string      `bson:"aggregateType"`
	AggregateID   string      `bson:"aggregateId"`
	EventType     string      `bson:"eventType"`
	Payload       interface{} `bson:"payload"`
	CreatedAt     time.Time   `bson:"createdAt"`
	Processed     bool        `bson:"processed"`
}

func toMongoOutboxEvent(evt sharedDomain.OutboxEvent) *mongoOutboxEvent {
	return &mongoOutboxEvent{
		ID: evt.ID.String(), AggregateType: evt.AggregateType, AggregateID: evt.AggregateID,
		EventType: evt.EventType, Payload: evt.Payload, CreatedAt: evt.CreatedAt, Processed: false,
	}
}

// Outbox implementa sharedDomain.OutboxRepository sobre la colección outbox.
type Outbox struct {
	outboxColl *mongo.Collection
}

func NewOutbox(client *mongo.Client, dbName string) *Outbox {
	return &Outbox{outboxColl: client.Database(dbName).Collection("outbox")}
}

// FetchPendingOutbox obtiene los eventos no procesados, los más antiguos primero.
func (r *Outbox) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(int64(limit))

	cursor, err := r.outboxColl.Find(ctx, bson.M{"processed": false}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []sharedDomain.OutboxEvent
	for cursor.Next(ctx) {
		var mo mongoOutboxEvent
		if err := cursor.Decode(&mo); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(mo.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID in outbox document: %w", err)
		}
		events = append(events, sharedDomain.OutboxEvent{
			ID: id, AggregateType: mo.AggregateType, AggregateID: mo.AggregateID,
			EventType: mo.EventType, Payload: mo.Payload, CreatedAt: mo.CreatedAt, Processed: mo.Processed,
		})
	}
	return events, cursor.Err()
}

// MarkOutboxProcessed marca un evento como procesado.
func (r *Outbox) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := r.outboxColl.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": bson.M{"processed": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("outbox event not found: %s", id)
	}
	return nil
}

// Verificación en tiempo de compilación.
var (
	_ sharedApp.Repository[struct{}] = (*Store[struct{}, struct{}])(nil)
	_ sharedDomain.OutboxRepository  = (*Outbox)(nil)
)
