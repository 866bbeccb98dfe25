package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zxc1031408077/line-bot-ordering/internal/domain"
)

// cartTTL drops carts nobody touched for 90 days.
const cartTTL = 90 * 24 * time.Hour

type cartDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Lines     []lineDocument     `bson:"lines"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type lineDocument struct {
	ItemID    int64                `bson:"item_id"`
	Name      string               `bson:"name"`
	Quantity  int                  `bson:"quantity"`
	UnitPrice primitive.Decimal128 `bson:"unit_price"`
	ListPrice primitive.Decimal128 `bson:"list_price"`
	AddedAt   time.Time            `bson:"added_at"`
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var doc cartDocument

	err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return fromDocument(doc)
}

func (m *MongoRepository) SaveCart(ctx context.Context, c *domain.Cart) error {
	lines, err := toLineDocuments(c.Lines)
	if err != nil {
		return err
	}

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = c.UpdatedAt
	}

	filter := bson.M{"user_id": c.UserID}
	update := bson.M{
		"$set": bson.M{
			"lines":      lines,
			"updated_at": c.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"user_id":    c.UserID,
			"created_at": createdAt,
		},
	}

	_, err = m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(cartTTL / time.Second)),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func toLineDocuments(lines []domain.CartLine) ([]lineDocument, error) {
	docs := make([]lineDocument, len(lines))
	for i, l := range lines {
		unit, err := primitive.ParseDecimal128(l.UnitPrice.String())
		if err != nil {
			return nil, fmt.Errorf("encode unit price for item %d: %w", l.ItemID, err)
		}
		list, err := primitive.ParseDecimal128(l.ListPrice.String())
		if err != nil {
			return nil, fmt.Errorf("encode list price for item %d: %w", l.ItemID, err)
		}
		docs[i] = lineDocument{
			ItemID:    l.ItemID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: unit,
			ListPrice: list,
			AddedAt:   l.AddedAt,
		}
	}
	return docs, nil
}

func fromDocument(doc cartDocument) (*domain.Cart, error) {
	c := &domain.Cart{
		UserID:    doc.UserID,
		Lines:     make([]domain.CartLine, len(doc.Lines)),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for i, l := range doc.Lines {
		unit, err := decimal.NewFromString(l.UnitPrice.String())
		if err != nil {
			return nil, fmt.Errorf("decode unit price for item %d: %w", l.ItemID, err)
		}
		list, err := decimal.NewFromString(l.ListPrice.String())
		if err != nil {
			return nil, fmt.Errorf("decode list price for item %d: %w", l.ItemID, err)
		}
		c.Lines[i] = domain.CartLine{
			ItemID:    l.ItemID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: unit,
			ListPrice: list,
			AddedAt:   l.AddedAt,
		}
	}
	return c, nil
}
