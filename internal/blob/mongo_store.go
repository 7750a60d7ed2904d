package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type blobDocument struct {
	Ref         string    `bson:"_id"`
	Data        []byte    `bson:"data"`
	ContentType string    `bson:"content_type"`
	UploadedAt  time.Time `bson:"uploaded_at"`
}

type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection("receipt_blobs"),
	}
}

// Store inserts the blob under a fresh reference. The reference is only
// returned after the insert succeeds, so a failed attempt leaves nothing
// to orphan.
func (s *MongoStore) Store(ctx context.Context, data []byte, contentType string) (string, error) {
	ref := fmt.Sprintf("receipts/%s", uuid.New().String())

	doc := blobDocument{
		Ref:         ref,
		Data:        data,
		ContentType: contentType,
		UploadedAt:  time.Now(),
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("%w: insert blob: %v", ErrStorage, err)
	}

	return ref, nil
}

func (s *MongoStore) Open(ctx context.Context, ref string) ([]byte, string, error) {
	var doc blobDocument

	err := s.collection.FindOne(ctx, bson.M{"_id": ref}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("%w: find blob: %v", ErrStorage, err)
	}

	return doc.Data, doc.ContentType, nil
}

func (s *MongoStore) Delete(ctx context.Context, ref string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": ref}); err != nil {
		return fmt.Errorf("%w: delete blob: %v", ErrStorage, err)
	}
	return nil
}
