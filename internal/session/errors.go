package session

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrNoWallet           = errors.New("wallet not connected")
	ErrIncompleteBusiness = errors.New("please fill in all business fields")
	ErrUnknownProduct     = errors.New("product not found")
	ErrInvalidProduct     = errors.New("products need a unique positive id, a name and a non-negative price")
	ErrNoBusiness         = errors.New("register your business first")
	ErrNoRating           = errors.New("please select a rating")
	ErrNoRatingTarget     = errors.New("no business selected for rating")
	ErrWrongScreen        = errors.New("action not available on the current screen")
)
