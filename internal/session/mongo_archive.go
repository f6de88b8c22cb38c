package session

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/EndoRodrigo/eCommerce/internal/cart"
)

func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse archived unit price %q: %w", s, err)
	}
	return d, nil
}

type archivedLine struct {
	ProductRef string `bson:"product_ref"`
	Name       string `bson:"name"`
	UnitPrice  string `bson:"unit_price"`
	Quantity   int    `bson:"quantity"`
}

type archivedCart struct {
	SessionID  string         `bson:"session_id"`
	Lines      []archivedLine `bson:"lines"`
	CreatedAt  time.Time      `bson:"created_at"`
	UpdatedAt  time.Time      `bson:"updated_at"`
	ArchivedAt time.Time      `bson:"archived_at"`
}

// MongoArchive keeps a record of abandoned carts purged by the sweep.
type MongoArchive struct {
	collection *mongo.Collection
}

func NewMongoArchive(client *mongo.Client, database, collection string) *MongoArchive {
	return &MongoArchive{collection: client.Database(database).Collection(collection)}
}

func (a *MongoArchive) Archive(ctx context.Context, sessionID string, lines []cart.Line, createdAt, updatedAt time.Time) error {
	doc := archivedCart{
		SessionID:  sessionID,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
		ArchivedAt: time.Now(),
	}
	for _, l := range lines {
		doc.Lines = append(doc.Lines, archivedLine{
			ProductRef: l.ProductRef,
			Name:       l.Name,
			UnitPrice:  l.UnitPrice.String(),
			Quantity:   l.Quantity,
		})
	}

	filter := bson.M{"session_id": sessionID}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	if _, err := a.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to archive cart: %w", err)
	}
	return nil
}

// Get returns the archived cart for a session, if any.
func (a *MongoArchive) Get(ctx context.Context, sessionID string) (sessionID_ string, lines []cart.Line, err error) {
	var doc archivedCart
	if err := a.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc); err != nil {
		return "", nil, fmt.Errorf("failed to get archived cart: %w", err)
	}
	out := make([]cart.Line, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		line := cart.Line{ProductRef: l.ProductRef, Name: l.Name, Quantity: l.Quantity}
		if l.UnitPrice != "" {
			line.UnitPrice, err = parsePrice(l.UnitPrice)
			if err != nil {
				return "", nil, err
			}
		}
		out = append(out, line)
	}
	return doc.SessionID, out, nil
}
