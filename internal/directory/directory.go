package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fjod/squeeze/internal/cache"
	"github.com/fjod/squeeze/internal/domain"
	"github.com/fjod/squeeze/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidRating = errors.New("please select a rating")

const listKey = "businesses"

// DefaultCatalog is offered to businesses that have not published products.
func DefaultCatalog() []domain.Product {
	p := func(id int64, name, price, category string) domain.Product {
		return domain.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Category: category}
	}
	return []domain.Product{
		p(1, "Coffee", "3.5", "Drinks"),
		p(2, "Cappuccino", "4.0", "Drinks"),
		p(3, "Latte", "4.5", "Drinks"),
		p(4, "Muffin", "2.5", "Bakery"),
		p(5, "Croissant", "3.0", "Bakery"),
		p(6, "Sandwich", "7.0", "Food"),
		p(7, "Salad", "8.5", "Food"),
	}
}

type Service struct {
	repo   repository.DirectoryRepository
	cache  cache.DirectoryCache
	sfg    singleflight.Group // Prevents cache stampede
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo repository.DirectoryRepository, c cache.DirectoryCache, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
}

// List returns every business, served from the cache when possible.
func (s *Service) List(ctx context.Context) ([]domain.BusinessProfile, error) {
	v, err, _ := s.sfg.Do(listKey, func() (interface{}, error) {
		businesses, err := s.cache.GetBusinesses(ctx)
		if err == nil {
			return businesses, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get error", zap.Error(err))
		}

		businesses, err = s.repo.ListBusinesses(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list businesses: %w", err)
		}

		go func(snapshot []domain.BusinessProfile) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.SetBusinesses(ctx, snapshot); err != nil {
				s.logger.Warn("cache set error", zap.Error(err))
			}
		}(businesses)

		return businesses, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.BusinessProfile), nil
}

// Search filters the directory by a case-insensitive match on name or
// category and drops the hidden ids.
func (s *Service) Search(ctx context.Context, query string, hidden []string) ([]domain.BusinessProfile, error) {
	businesses, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]bool, len(hidden))
	for _, id := range hidden {
		skip[id] = true
	}
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]domain.BusinessProfile, 0, len(businesses))
	for _, b := range businesses {
		if skip[b.ID] {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(b.DisplayName), q) &&
			!strings.Contains(strings.ToLower(b.Category), q) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Service) Find(ctx context.Context, id string) (*domain.BusinessProfile, error) {
	return s.repo.GetBusiness(ctx, id)
}

// Rankings orders businesses by average rating, then by review count.
func (s *Service) Rankings(ctx context.Context) ([]domain.RankedBusiness, error) {
	businesses, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.RankedBusiness, 0, len(businesses))
	for _, b := range businesses {
		ranked = append(ranked, domain.RankedBusiness{
			ID:          b.ID,
			DisplayName: b.DisplayName,
			Category:    b.Category,
			Verified:    b.Verified,
			AvgRating:   b.AvgRating,
			ReviewCount: len(b.Reviews),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].AvgRating != ranked[j].AvgRating {
			return ranked[i].AvgRating > ranked[j].AvgRating
		}
		return ranked[i].ReviewCount > ranked[j].ReviewCount
	})
	return ranked, nil
}

// ReviewsBy lists the reviews written by author, newest first.
func (s *Service) ReviewsBy(ctx context.Context, author string) ([]domain.AuthoredReview, error) {
	businesses, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	out := []domain.AuthoredReview{}
	for _, b := range businesses {
		for _, r := range b.Reviews {
			if r.Author != author {
				continue
			}
			out = append(out, domain.AuthoredReview{
				BusinessID:   b.ID,
				BusinessName: b.DisplayName,
				Rating:       r.Rating,
				Comment:      r.Comment,
				Timestamp:    r.Timestamp,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Catalog returns the products of a business, or DefaultCatalog when it has none.
func (s *Service) Catalog(ctx context.Context, businessID string) ([]domain.Product, error) {
	b, err := s.repo.GetBusiness(ctx, businessID)
	if errors.Is(err, repository.ErrBusinessNotFound) {
		return DefaultCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if len(b.Products) == 0 {
		return DefaultCatalog(), nil
	}
	return b.Products, nil
}

// ResolveName returns the display name registered for address, or "" when
// the address is not in the directory.
func (s *Service) ResolveName(ctx context.Context, address string) (string, error) {
	businesses, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	for _, b := range businesses {
		if b.ID == address {
			return b.DisplayName, nil
		}
	}
	return "", nil
}

// Register publishes the listing under the owner's wallet.
func (s *Service) Register(ctx context.Context, wallet string, listing domain.BusinessListing) error {
	profile := &domain.BusinessProfile{
		ID:          wallet,
		DisplayName: listing.Name,
		Description: listing.Description,
		Category:    listing.Category,
		Products:    listing.Products,
		Location:    listing.Location,
	}

	existing, err := s.repo.GetBusiness(ctx, wallet)
	switch {
	case err == nil:
		profile.FiscalName = existing.FiscalName
		profile.Verified = existing.Verified
		if len(profile.Products) == 0 {
			profile.Products = existing.Products
		}
	case !errors.Is(err, repository.ErrBusinessNotFound):
		return fmt.Errorf("failed to load business %s: %w", wallet, err)
	}

	if err := s.repo.UpsertBusiness(ctx, profile); err != nil {
		return fmt.Errorf("failed to register business: %w", err)
	}
	s.invalidate()
	s.logger.Info("business registered", zap.String("wallet", wallet), zap.String("name", listing.Name))
	return nil
}

func (s *Service) SubmitReview(ctx context.Context, businessID string, review domain.Review) error {
	if review.Rating < 1 || review.Rating > 5 {
		return ErrInvalidRating
	}
	if review.Timestamp.IsZero() {
		review.Timestamp = s.now().UTC()
	}

	if err := s.repo.AddReview(ctx, businessID, review); err != nil {
		return fmt.Errorf("failed to submit review: %w", err)
	}
	s.invalidate()
	return nil
}

func (s *Service) UpdateProducts(ctx context.Context, wallet string, products []domain.Product) error {
	if err := s.repo.UpdateProducts(ctx, wallet, products); err != nil {
		return fmt.Errorf("failed to update products: %w", err)
	}
	s.invalidate()
	return nil
}

func (s *Service) invalidate() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.InvalidateBusinesses(ctx); err != nil {
		s.logger.Warn("cache invalidate error", zap.Error(err))
	}
}
