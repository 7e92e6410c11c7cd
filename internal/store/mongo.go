package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/erazemk/menza/internal/model"
)

// Collection names.
const (
	mongoItemsCollection    = "menuItems"
	mongoMetadataCollection = "metadata"
)

// Mongo stores the menu as documents in a MongoDB database.
type Mongo struct {
	client   *mongo.Client
	items    *mongo.Collection
	metadata *mongo.Collection
}

// ConnectMongo connects to the server at uri and uses the named database.
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	s := NewMongo(client, client.Database(database))

	_, err = s.items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("creating mongodb index: %w", err)
	}
	return s, nil
}

// NewMongo uses the collections of db. The client is disconnected on Close.
func NewMongo(client *mongo.Client, db *mongo.Database) *Mongo {
	return &Mongo{
		client:   client,
		items:    db.Collection(mongoItemsCollection),
		metadata: db.Collection(mongoMetadataCollection),
	}
}

// mongoItemProjection keeps image bytes out of item reads.
var mongoItemProjection = bson.M{"image": 0, "image_mime": 0}

// ListItems returns all items ordered by creation time.
func (s *Mongo) ListItems(ctx context.Context) ([]model.MenuItem, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetProjection(mongoItemProjection)

	cursor, err := s.items.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	var items []model.MenuItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}
	return items, nil
}

// GetItem returns an item by ID.
func (s *Mongo) GetItem(ctx context.Context, id string) (*model.MenuItem, error) {
	item := &model.MenuItem{}
	err := s.items.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(mongoItemProjection)).Decode(item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// CountItems returns the number of items.
func (s *Mongo) CountItems(ctx context.Context) (int, error) {
	n, err := s.items.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return int(n), nil
}

// CreateItem inserts a new item.
func (s *Mongo) CreateItem(ctx context.Context, item model.MenuItem) error {
	if _, err := s.items.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("creating item: %w", err)
	}
	return nil
}

// UpdateItem applies a partial update and returns the updated item.
func (s *Mongo) UpdateItem(ctx context.Context, id string, patch model.ItemPatch, updatedAt time.Time) (*model.MenuItem, error) {
	set := bson.M{"updated_at": updatedAt}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Available != nil {
		set["available"] = *patch.Available
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(mongoItemProjection)

	item := &model.MenuItem{}
	err := s.items.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	return item, nil
}

// DeleteItem removes an item.
func (s *Mongo) DeleteItem(ctx context.Context, id string) error {
	result, err := s.items.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetItemImage sets an item's image data.
func (s *Mongo) SetItemImage(ctx context.Context, id string, data []byte, mime string, updatedAt time.Time) error {
	result, err := s.items.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"image":      primitive.Binary{Data: data},
		"image_mime": mime,
		"has_image":  true,
		"updated_at": updatedAt,
	}})
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func (s *Mongo) GetItemImage(ctx context.Context, id string) ([]byte, string, error) {
	var doc struct {
		Image     primitive.Binary `bson:"image"`
		ImageMime string           `bson:"image_mime"`
	}
	opts := options.FindOne().SetProjection(bson.M{"image": 1, "image_mime": 1})
	err := s.items.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	if len(doc.Image.Data) == 0 {
		return nil, "", nil
	}
	return doc.Image.Data, doc.ImageMime, nil
}

// GetMetadata returns the metadata record, or nil if the menu was never changed.
func (s *Mongo) GetMetadata(ctx context.Context) (*model.Metadata, error) {
	md := &model.Metadata{}
	err := s.metadata.FindOne(ctx, bson.M{"_id": metadataKey}).Decode(md)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting metadata: %w", err)
	}
	return md, nil
}

// SetMetadata overwrites the metadata record.
func (s *Mongo) SetMetadata(ctx context.Context, md model.Metadata) error {
	_, err := s.metadata.ReplaceOne(ctx,
		bson.M{"_id": metadataKey},
		bson.M{"_id": metadataKey, "timestamp": md.Timestamp, "updated_by": md.UpdatedBy},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("setting metadata: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Mongo) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
