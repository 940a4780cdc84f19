package domain

import "time"

type Location struct {
	Lat     float64 `json:"lat" bson:"lat"`
	Lng     float64 `json:"lng" bson:"lng"`
	Address string  `json:"address" bson:"address"`
}

type Review struct {
	Author    string    `json:"author" bson:"author"`
	Rating    int       `json:"rating" bson:"rating"`
	Comment   string    `json:"comment" bson:"comment"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// BusinessProfile is a directory entry. ID is the business wallet address.
type BusinessProfile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	FiscalName  string    `json:"fiscal_name,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Verified    bool      `json:"verified"`
	Location    *Location `json:"location,omitempty"`
	AvgRating   float64   `json:"avg_rating"`
	Reviews     []Review  `json:"reviews"`
	Products    []Product `json:"products,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AverageRating recomputes AvgRating from Reviews.
func (b *BusinessProfile) AverageRating() float64 {
	if len(b.Reviews) == 0 {
		b.AvgRating = 0
		return 0
	}
	sum := 0
	for _, r := range b.Reviews {
		sum += r.Rating
	}
	b.AvgRating = float64(sum) / float64(len(b.Reviews))
	return b.AvgRating
}

// BusinessRegistration is the owner's profile form, persisted on the device.
type BusinessRegistration struct {
	Name         string `json:"name"`
	BusinessID   string `json:"businessId"`
	FiscalPermit string `json:"fiscalPermit"`
}

func (r BusinessRegistration) IsComplete() bool {
	return r.Name != "" && r.BusinessID != "" && r.FiscalPermit != ""
}

// BusinessListing is what an owner publishes to the directory.
type BusinessListing struct {
	Name        string
	Description string
	Category    string
	Products    []Product
	Location    *Location
}

// RankedBusiness is a directory entry summarized for the rankings screen.
type RankedBusiness struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Category    string  `json:"category"`
	Verified    bool    `json:"verified"`
	AvgRating   float64 `json:"avg_rating"`
	ReviewCount int     `json:"review_count"`
}

// AuthoredReview is a review listed on the "my reviews" screen.
type AuthoredReview struct {
	BusinessID   string    `json:"business_id"`
	BusinessName string    `json:"business_name"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	Timestamp    time.Time `json:"timestamp"`
}
