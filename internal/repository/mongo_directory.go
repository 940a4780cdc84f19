package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// prices are stored as decimal strings so no precision is lost in BSON
type productDocument struct {
	ID       int64  `bson:"id"`
	Name     string `bson:"name"`
	Price    string `bson:"price"`
	Category string `bson:"category"`
}

type businessDocument struct {
	ID          string            `bson:"_id"`
	DisplayName string            `bson:"display_name"`
	FiscalName  string            `bson:"fiscal_name,omitempty"`
	Description string            `bson:"description,omitempty"`
	Category    string            `bson:"category,omitempty"`
	Verified    bool              `bson:"verified"`
	Location    *domain.Location  `bson:"location,omitempty"`
	Reviews     []domain.Review   `bson:"reviews"`
	Products    []productDocument `bson:"products"`
	CreatedAt   time.Time         `bson:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at"`
}

type MongoDirectory struct {
	collection *mongo.Collection
}

func NewMongoDirectory(db *mongo.Database) *MongoDirectory {
	return &MongoDirectory{
		collection: db.Collection("businesses"),
	}
}

func (m *MongoDirectory) ListBusinesses(ctx context.Context) ([]domain.BusinessProfile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []businessDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode businesses: %w", err)
	}

	out := make([]domain.BusinessProfile, 0, len(docs))
	for _, doc := range docs {
		p, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *MongoDirectory) GetBusiness(ctx context.Context, id string) (*domain.BusinessProfile, error) {
	var doc businessDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBusinessNotFound
		}
		return nil, fmt.Errorf("failed to get business: %w", err)
	}

	p, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertBusiness writes the profile fields. Reviews are only ever appended
// through AddReview and survive re-registration.
func (m *MongoDirectory) UpsertBusiness(ctx context.Context, profile *domain.BusinessProfile) error {
	now := time.Now().UTC()

	filter := bson.M{"_id": profile.ID}
	update := bson.M{
		"$set": bson.M{
			"display_name": profile.DisplayName,
			"fiscal_name":  profile.FiscalName,
			"description":  profile.Description,
			"category":     profile.Category,
			"verified":     profile.Verified,
			"location":     profile.Location,
			"products":     toProductDocuments(profile.Products),
			"updated_at":   now,
		},
		"$setOnInsert": bson.M{
			"reviews":    []domain.Review{},
			"created_at": now,
		},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert business: %w", err)
	}
	return nil
}

func (m *MongoDirectory) AddReview(ctx context.Context, businessID string, review domain.Review) error {
	filter := bson.M{"_id": businessID}
	update := bson.M{
		"$push": bson.M{"reviews": review},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to add review: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrBusinessNotFound
	}
	return nil
}

func (m *MongoDirectory) UpdateProducts(ctx context.Context, businessID string, products []domain.Product) error {
	filter := bson.M{"_id": businessID}
	update := bson.M{
		"$set": bson.M{
			"products":   toProductDocuments(products),
			"updated_at": time.Now().UTC(),
		},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update products: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrBusinessNotFound
	}
	return nil
}

// Seed inserts businesses that do not exist yet, leaving existing ones untouched.
func (m *MongoDirectory) Seed(ctx context.Context, businesses []domain.BusinessProfile) error {
	for _, b := range businesses {
		doc := fromDomain(b)
		filter := bson.M{"_id": doc.ID}
		update := bson.M{"$setOnInsert": bson.M{
			"display_name": doc.DisplayName,
			"fiscal_name":  doc.FiscalName,
			"description":  doc.Description,
			"category":     doc.Category,
			"verified":     doc.Verified,
			"location":     doc.Location,
			"reviews":      doc.Reviews,
			"products":     doc.Products,
			"created_at":   doc.CreatedAt,
			"updated_at":   doc.UpdatedAt,
		}}
		if _, err := m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("failed to seed business %s: %w", b.ID, err)
		}
	}
	return nil
}

func (m *MongoDirectory) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "reviews.author", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (d businessDocument) toDomain() (domain.BusinessProfile, error) {
	products := make([]domain.Product, 0, len(d.Products))
	for _, p := range d.Products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return domain.BusinessProfile{}, fmt.Errorf("invalid price for product %d of %s: %w", p.ID, d.ID, err)
		}
		products = append(products, domain.Product{ID: p.ID, Name: p.Name, Price: price, Category: p.Category})
	}

	reviews := d.Reviews
	if reviews == nil {
		reviews = []domain.Review{}
	}
	profile := domain.BusinessProfile{
		ID:          d.ID,
		DisplayName: d.DisplayName,
		FiscalName:  d.FiscalName,
		Description: d.Description,
		Category:    d.Category,
		Verified:    d.Verified,
		Location:    d.Location,
		Reviews:     reviews,
		Products:    products,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	profile.AverageRating()
	return profile, nil
}

func fromDomain(p domain.BusinessProfile) businessDocument {
	reviews := p.Reviews
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return businessDocument{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		FiscalName:  p.FiscalName,
		Description: p.Description,
		Category:    p.Category,
		Verified:    p.Verified,
		Location:    p.Location,
		Reviews:     reviews,
		Products:    toProductDocuments(p.Products),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProductDocuments(products []domain.Product) []productDocument {
	docs := make([]productDocument, 0, len(products))
	for _, p := range products {
		docs = append(docs, productDocument{ID: p.ID, Name: p.Name, Price: p.Price.String(), Category: p.Category})
	}
	return docs
}
