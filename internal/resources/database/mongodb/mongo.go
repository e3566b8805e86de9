package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/entities"
	"github.com/patrik-rangel/melcloud-data-logger/internal/domain/gateways"
)

// replacer is the part of *mongo.Collection the sink uses.
type replacer interface {
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// document is what gets stored: the snapshot with its key as _id.
type document struct {
	ID                      string `bson:"_id"`
	entities.DeviceSnapshot `bson:",inline"`
}

type MongoSink struct {
	gateways.Switch
	client         *mongo.Client
	collection     replacer
	databaseName   string
	collectionName string
	log            *logrus.Entry
}

func NewMongoSink(ctx context.Context, connectionString, databaseName, collectionName string, log *logrus.Entry) (*MongoSink, error) {
	clientOptions := options.Client().ApplyURI(connectionString)
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar ao MongoDB: %w", err)
	}

	err = client.Ping(connectCtx, readpref.Primary())
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("falha ao fazer ping no MongoDB: %w", err)
	}

	log.Info("Conectado com sucesso ao MongoDB!")
	s := newMongoSink(client.Database(databaseName).Collection(collectionName), log)
	s.client = client
	s.databaseName = databaseName
	s.collectionName = collectionName
	return s, nil
}

func newMongoSink(collection replacer, log *logrus.Entry) *MongoSink {
	s := &MongoSink{collection: collection, log: log}
	s.SetEnabled(true)
	return s
}

func (r *MongoSink) Name() string {
	return "mongodb"
}

// Upsert replaces the document whose _id is the snapshot key, inserting it
// when absent.
func (r *MongoSink) Upsert(ctx context.Context, snapshot entities.DeviceSnapshot) error {
	if !r.Enabled() {
		return nil
	}

	doc := document{ID: snapshot.Key(), DeviceSnapshot: snapshot}
	doc.Time = snapshot.Time.UTC()

	replaceCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	res, err := r.collection.ReplaceOne(replaceCtx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("falha ao gravar documento %s no MongoDB: %w", doc.ID, err)
	}

	r.log.Debugf("Documento %s gravado (inserido: %t) na coleção '%s'", doc.ID, res.UpsertedCount > 0, r.collectionName)
	return nil
}

func (r *MongoSink) Close() error {
	if r.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
