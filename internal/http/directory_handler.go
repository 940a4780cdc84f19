package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/go-chi/chi/v5"
)

// DirectoryReader is the read side of the business directory.
type DirectoryReader interface {
	Search(ctx context.Context, query string, hidden []string) ([]domain.BusinessProfile, error)
	Find(ctx context.Context, id string) (*domain.BusinessProfile, error)
	Rankings(ctx context.Context) ([]domain.RankedBusiness, error)
	ReviewsBy(ctx context.Context, author string) ([]domain.AuthoredReview, error)
	Catalog(ctx context.Context, businessID string) ([]domain.Product, error)
}

type DirectoryHandler struct {
	directory DirectoryReader
	timeout   time.Duration
}

func NewDirectoryHandler(directory DirectoryReader, timeout time.Duration) *DirectoryHandler {
	return &DirectoryHandler{
		directory: directory,
		timeout:   timeout,
	}
}

// ListBusinesses supports ?q= for name or category and ?hide=id1,id2.
func (h *DirectoryHandler) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var hidden []string
	if raw := r.URL.Query().Get("hide"); raw != "" {
		hidden = strings.Split(raw, ",")
	}

	businesses, err := h.directory.Search(ctx, r.URL.Query().Get("q"), hidden)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, businesses)
}

func (h *DirectoryHandler) GetBusiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	b, err := h.directory.Find(ctx, chi.URLParam(r, "business_id"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (h *DirectoryHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rankings, err := h.directory.Rankings(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rankings)
}

func (h *DirectoryHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.directory.Catalog(ctx, chi.URLParam(r, "business_id"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *DirectoryHandler) ReviewsBy(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	author := r.URL.Query().Get("author")
	if author == "" {
		respondError(w, http.StatusBadRequest, "invalid_author", "author is required")
		return
	}

	reviews, err := h.directory.ReviewsBy(ctx, author)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reviews)
}
