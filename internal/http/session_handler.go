package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/fjod/squeeze/internal/logger"
	"github.com/fjod/squeeze/internal/navigation"
	"github.com/fjod/squeeze/internal/payment"
	"github.com/fjod/squeeze/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type SessionHandler struct {
	manager *session.Manager
	timeout time.Duration
	logger  *zap.Logger
}

func NewSessionHandler(manager *session.Manager, timeout time.Duration, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		manager: manager,
		timeout: timeout,
		logger:  logger,
	}
}

// SessionResponse is returned by every session endpoint: the rendered
// current screen plus what the action produced.
type SessionResponse struct {
	SessionID  string                 `json:"session_id"`
	View       navigation.ScreenProps `json:"view"`
	Transition *navigation.Transition `json:"transition,omitempty"`
	QRCodeURL  string                 `json:"qr_code_url,omitempty"`
	Cart       *domain.Cart           `json:"cart,omitempty"`
	Receipt    *ReceiptDTO            `json:"receipt,omitempty"`
}

type ReceiptDTO struct {
	Outcome      string `json:"outcome"`
	TxRef        string `json:"tx_ref,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
	Amount       string `json:"amount"`
	Balance      string `json:"balance,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type NavigateRequestDTO struct {
	Screen string `json:"screen"`
}

type SearchRequestDTO struct {
	Query string `json:"query"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CatalogRequestDTO struct {
	Products []domain.Product `json:"products"`
}

type SaleQRRequestDTO struct {
	Amount string `json:"amount"`
}

type StartPaymentRequestDTO struct {
	BusinessName string `json:"business_name"`
	Recipient    string `json:"recipient"`
	Amount       string `json:"amount"`
}

type ScanRequestDTO struct {
	Raw string `json:"raw"`
}

type RecipientRequestDTO struct {
	BusinessName string `json:"business_name"`
	Recipient    string `json:"recipient"`
}

type SubmitPaymentRequestDTO struct {
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

type ReviewRequestDTO struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Create starts a session. The entry URL's deep-link parameters are passed
// as this request's query string.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.manager.Create(r.Context(), session.CreateRequest{
		DeviceID:  getDeviceID(r.Context()),
		Query:     r.URL.Query(),
		AuthToken: bearerToken(r),
	})
	logger.FromContext(r.Context(), h.logger).Info("session started",
		zap.String("session_id", s.ID()),
		zap.String("request_id", getRequestID(r.Context())))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	respondJSON(w, http.StatusCreated, h.response(ctx, s))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, func(ctx context.Context, s *session.Session, resp *SessionResponse) error {
		return nil
	})
}

func (h *SessionHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequestDTO
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, func(_ context.Context, s *session.Session, resp *SessionResponse) error {
		t := s.Navigate(req.Screen)
		resp.Transition = &t
		return nil
	})
}

func (h *SessionHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, func(_ context.Context, s *session.Session, resp *SessionResponse) error {
		t := s.Back()
		resp.Transition = &t
		return nil
	})
}

func (h *SessionHandler) Forward(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, func(_ context.Context, s *session.Session, resp *SessionResponse) error {
		if t, ok := s.Forward(); ok {
			resp.Transition = &t
		}
		return nil
	})
}

func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequestDTO
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, func(_ context.Context, s *session.Session, _ *SessionResponse) error {
		s.Search(req.Query)
		return nil
	})
}

func (h *SessionHandler) RefreshBalance(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, func(ctx context.Context, s *session.Session, _ *SessionResponse) error {
		return s.RefreshBalance(ctx)
	})
}

func (h *SessionHandler) SubmitBusiness(w http.ResponseWriter, r *http.Request) {
	var req domain.BusinessRegistration
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, func(ctx context.Context, s *session.Session, _ *SessionResponse) error {
		return s.SubmitBusiness(ctx, req)
	})
}

func (h *SessionHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	var req UpdateQuantityRequestDTO
	if !decode(w, r, &req) {
		return
	}
	if req.Quantity < 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	h.with(w, r, func(ctx context.Context, s *session.Session, resp *SessionResponse) error {
		c, err := s.UpdateCart(ctx, productID, req.Quantity)
		if err != nil {
			return err
		}
		resp.Cart = &c
		return nil
	})
}

// UpdateCatalog replaces the products the owner sells from the catalog
// sale screen.
func (h *SessionHandler) UpdateCatalog(w http.ResponseWriter, r *http.Request) {
	var req CatalogRequestDTO
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, func(ctx context.Context, s *session.Session, _ *SessionResponse) error {
		return s.UpdateCatalog(ctx, req.Products)
	})
}

func (h *SessionHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, func(_ context.Context, s *session.Session, resp *SessionResponse) error {
		s.ClearCart()
		c := s.Cart()
		resp.Cart = &c
		return nil
	})
}

func (h *SessionHandler) CartQR(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, func(_ context.Context, s *session.Session, resp *SessionResponse) error {
		url, err := s.GenerateCartQR()
		resp.QRCodeURL = url
		return err
	})
}

// SaleQR encodes a fixed amount sale, or an open amount one when no
// amount is given.
func (h *SessionHandler) SaleQR(w http.ResponseWriter, r *http.Request) {
	var req SaleQRRequestDTO
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, func(_ context.Context, s *session.Session, resp *SessionResponse) error {
		var (
			url string
			err error
		)
		if strings.TrimSpace(req.Amount) == "" {
			url, err = s.GeneralSaleQR()
		} else {
			url, err = s.GenerateSaleQR(req.Amount)
		}
		resp.QRCodeURL = url
		return err
	})
}

func (h *SessionHandler) StartPayment(w http.ResponseWriter, r *http.Request) {
	var req StartPaymentRequestDTO
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, func(ctx context.Context, s *session.Session, _ *SessionResponse) error {
		_, err := s.StartPayment(ctx, domain.PaymentIntent{
			BusinessName:     strings.TrimSpace(req.BusinessName),
			RecipientAddress: strings.TrimSpace(req.Recipient),
			Amount:           strings.TrimSpace(req.Amount),
		})
		return err
	})
}

func (h *SessionHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequestDTO
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, func(_ context.Context, s *session.Session, _ *SessionResponse) error {
		_, err := s.ScanQR(req.Raw)
		return err
	})
}

func (h *SessionHandler) EnterRecipient(w http.ResponseWriter, r *http.Request) {
	var req RecipientRequestDTO
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, func(_ context.Context, s *session.Session, _ *SessionResponse) error {
		_, err := s.EnterRecipient(req.BusinessName, req.Recipient)
		return err
	})
}

func (h *SessionHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req SubmitPaymentRequestDTO
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, func(ctx context.Context, s *session.Session, resp *SessionResponse) error {
		receipt, err := s.Pay(ctx, req.Amount, req.Recipient)
		if receipt.Outcome != nil {
			resp.Receipt = receiptDTO(receipt)
		}
		return err
	})
}

func (h *SessionHandler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, func(_ context.Context, s *session.Session, resp *SessionResponse) error {
		t, err := s.CancelPayment()
		if err != nil {
			return err
		}
		resp.Transition = &t
		return nil
	})
}

func (h *SessionHandler) PaymentDone(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, func(_ context.Context, s *session.Session, resp *SessionResponse) error {
		t, err := s.CompletePaymentSuccess()
		if err != nil {
			return err
		}
		resp.Transition = &t
		return nil
	})
}

func (h *SessionHandler) Rate(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "business_id")
	h.with(w, r, func(ctx context.Context, s *session.Session, resp *SessionResponse) error {
		t, err := s.RateBusiness(ctx, businessID)
		if err != nil {
			return err
		}
		resp.Transition = &t
		return nil
	})
}

func (h *SessionHandler) ViewBusiness(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "business_id")
	h.with(w, r, func(ctx context.Context, s *session.Session, resp *SessionResponse) error {
		t, err := s.ViewBusiness(ctx, businessID)
		if err != nil {
			return err
		}
		resp.Transition = &t
		return nil
	})
}

func (h *SessionHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequestDTO
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, func(ctx context.Context, s *session.Session, _ *SessionResponse) error {
		return s.SubmitReview(ctx, req.Rating, req.Comment)
	})
}

func (h *SessionHandler) AcknowledgeReview(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, func(_ context.Context, s *session.Session, resp *SessionResponse) error {
		t := s.AcknowledgeReview()
		resp.Transition = &t
		return nil
	})
}

// with looks up the session, runs fn and renders the resulting screen.
func (h *SessionHandler) with(w http.ResponseWriter, r *http.Request, fn func(context.Context, *session.Session, *SessionResponse) error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, err := h.manager.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		handleError(w, err)
		return
	}

	var resp SessionResponse
	if err := fn(ctx, s, &resp); err != nil {
		logger.FromContext(r.Context(), h.logger).Info("session action rejected",
			zap.String("session_id", s.ID()),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		if errors.Is(err, payment.ErrPaymentFailed) && resp.Receipt != nil {
			respondJSON(w, http.StatusBadGateway, ErrorResponse{
				Error:   err.Error(),
				Code:    "payment_failed",
				Receipt: resp.Receipt,
			})
			return
		}
		handleError(w, err)
		return
	}

	out := h.response(ctx, s)
	out.Transition = resp.Transition
	out.QRCodeURL = resp.QRCodeURL
	out.Cart = resp.Cart
	out.Receipt = resp.Receipt
	respondJSON(w, http.StatusOK, out)
}

func (h *SessionHandler) response(ctx context.Context, s *session.Session) SessionResponse {
	return SessionResponse{SessionID: s.ID(), View: s.Render(ctx)}
}

func receiptDTO(r payment.Receipt) *ReceiptDTO {
	dto := &ReceiptDTO{
		Outcome:      domain.OutcomeName(r.Outcome),
		TxRef:        r.TxRef,
		BusinessName: r.BusinessName,
		Amount:       r.Amount.StringFixed(2),
	}
	switch o := r.Outcome.(type) {
	case domain.PaymentSucceeded:
		dto.Balance = r.Balance.StringFixed(2)
	case domain.PaymentFailed:
		dto.Reason = o.Reason
	}
	return dto
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
