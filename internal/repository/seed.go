package repository

import (
	"time"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/shopspring/decimal"
)

func product(id int64, name, price, category string) domain.Product {
	return domain.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Category: category}
}

// SeedBusinesses returns the demo directory: the verified showcase
// businesses plus the demo wallets that carry a catalog and reviews.
func SeedBusinesses(now time.Time) []domain.BusinessProfile {
	review := func(author string, rating int, comment string) domain.Review {
		return domain.Review{Author: author, Rating: rating, Comment: comment, Timestamp: now}
	}

	businesses := []domain.BusinessProfile{
		{
			ID:          "0xBUSI_001_LemonCoffee",
			DisplayName: "Lemon Coffee",
			FiscalName:  "Lemon Coffee LLC",
			Description: "Specialty coffee and fresh pastries.",
			Category:    "Food & Beverage",
			Verified:    true,
			Location:    &domain.Location{Lat: 40.758, Lng: -73.9855, Address: "123 Broadway, New York, NY"},
		},
		{
			ID:          "0xBUSI_002_CryptoBurgers",
			DisplayName: "Crypto Burgers",
			FiscalName:  "Crypto Burgers Inc.",
			Description: "Gourmet burgers, paid on-chain.",
			Category:    "Food & Beverage",
			Verified:    true,
			Location:    &domain.Location{Lat: 34.0522, Lng: -118.2437, Address: "Los Angeles, CA"},
		},
		{
			ID:          "0xBUSI_003_PixelArt",
			DisplayName: "Pixel Art Store",
			FiscalName:  "Pixel Art Studio S.A.",
			Description: "Digital art and custom prints.",
			Category:    "Art & Design",
			Verified:    true,
			Location:    &domain.Location{Lat: 37.7749, Lng: -122.4194, Address: "San Francisco, CA"},
		},
		{
			ID:          "0xBUSI_004_BaseElectronics",
			DisplayName: "Base Electronics",
			FiscalName:  "Base Electronics Corp.",
			Description: "Gadgets and accessories.",
			Category:    "Electronics",
			Location:    &domain.Location{Lat: 41.8781, Lng: -87.6298, Address: "Chicago, IL"},
		},
		{
			ID:          "0xBUSI_005_GreenMarket",
			DisplayName: "Green Market",
			FiscalName:  "Green Market Organic Foods Ltd.",
			Description: "Organic groceries from local farms.",
			Category:    "Grocery",
			Location:    &domain.Location{Lat: 40.7128, Lng: -74.006, Address: "Brooklyn, NY"},
		},
		{
			ID:          "0xDEMO_WALLET_2",
			DisplayName: "Lemon Coffee",
			Description: "Premium coffee shop with a citrus twist",
			Category:    "Food & Beverage",
			Location:    &domain.Location{Lat: 40.758, Lng: -73.9855, Address: "123 Broadway, New York, NY 10001"},
			Products: []domain.Product{
				product(1, "Lemon Cold Brew", "4.5", "Drinks"),
				product(2, "Cappuccino", "4.0", "Drinks"),
				product(3, "Lemon Cake", "3.5", "Bakery"),
			},
			Reviews: []domain.Review{
				review("0x123...abc", 5, "Best cold brew in town!"),
				review("0x456...def", 4, "Great atmosphere, slightly pricey."),
				review("0x789...ghi", 5, "Love the lemon cake!"),
			},
		},
		{
			ID:          "0xDEMO_WALLET_4",
			DisplayName: "Crypto Burgers",
			Description: "Gourmet burgers for the blockchain era",
			Category:    "Food & Beverage",
			Location:    &domain.Location{Lat: 34.0522, Lng: -118.2437, Address: "456 Sunset Blvd, Los Angeles, CA 90028"},
			Products: []domain.Product{
				product(1, "Classic Burger", "8.0", "Food"),
				product(2, "Crypto Combo", "12.0", "Food"),
			},
			Reviews: []domain.Review{
				review("0xabc...123", 3, "Good burger, slow service."),
				review("0xdef...456", 5, "Accepts crypto! Awesome."),
			},
		},
		{
			ID:          "0xDEMO_WALLET_5",
			DisplayName: "Pixel Art Store",
			Description: "Custom NFT and digital art prints",
			Category:    "Art & Design",
			Location:    &domain.Location{Lat: 37.7749, Lng: -122.4194, Address: "789 Market St, San Francisco, CA 94103"},
			Products: []domain.Product{
				product(1, "Custom NFT Print", "25.0", "Art"),
				product(2, "Pixel Avatar", "15.0", "Art"),
			},
			Reviews: []domain.Review{
				review("0xghi...789", 5, "Amazing custom prints."),
			},
		},
		{
			ID:          "0xDEMO_WALLET_6",
			DisplayName: "Base Electronics",
			Description: "Tech gadgets and accessories",
			Category:    "Electronics",
			Location:    &domain.Location{Lat: 41.8781, Lng: -87.6298, Address: "321 Michigan Ave, Chicago, IL 60601"},
			Products: []domain.Product{
				product(1, "USB-C Cable", "12.0", "Accessories"),
				product(2, "Wireless Mouse", "25.0", "Accessories"),
			},
			Reviews: []domain.Review{
				review("0xjkl...012", 2, "Item arrived damaged."),
				review("0xmno...345", 5, "Fast shipping!"),
			},
		},
	}

	for i := range businesses {
		businesses[i].CreatedAt = now
		businesses[i].UpdatedAt = now
		if businesses[i].Reviews == nil {
			businesses[i].Reviews = []domain.Review{}
		}
		businesses[i].AverageRating()
	}
	return businesses
}
