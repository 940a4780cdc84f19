package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fjod/squeeze/internal/bootstrap"
	"github.com/fjod/squeeze/internal/cart"
	"github.com/fjod/squeeze/internal/domain"
	"github.com/fjod/squeeze/internal/localstore"
	"github.com/fjod/squeeze/internal/navigation"
	"github.com/fjod/squeeze/internal/payment"
	"github.com/fjod/squeeze/internal/qrcode"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	registeredDescription = "User-created business"
	registeredCategory    = "General"
)

// Directory is the part of the business directory a session uses.
type Directory interface {
	Search(ctx context.Context, query string, hidden []string) ([]domain.BusinessProfile, error)
	Find(ctx context.Context, id string) (*domain.BusinessProfile, error)
	Rankings(ctx context.Context) ([]domain.RankedBusiness, error)
	ReviewsBy(ctx context.Context, author string) ([]domain.AuthoredReview, error)
	Catalog(ctx context.Context, businessID string) ([]domain.Product, error)
	Register(ctx context.Context, wallet string, listing domain.BusinessListing) error
	UpdateProducts(ctx context.Context, wallet string, products []domain.Product) error
	SubmitReview(ctx context.Context, businessID string, review domain.Review) error
}

// Session owns the application state of one webview. Events are serialized
// by mu; the payment capability call runs outside it while the controller
// holds the Submitting state.
type Session struct {
	id     string
	device *localstore.Device

	directory Directory
	balances  payment.BalanceReader
	codec     *qrcode.Codec
	logger    *zap.Logger

	nav     *navigation.Navigator
	cart    *cart.Store
	payment *payment.Controller

	mu              sync.Mutex
	loading         bool
	blocked         bool
	status          string
	wallet          string
	balance         decimal.Decimal
	business        *domain.BusinessRegistration
	reviewedIDs     []string
	qrURL           string
	query           string
	selected        *domain.BusinessProfile
	ratingTarget    navigation.RatingTarget
	reviewSubmitted bool
	lastSeen        time.Time
	ready           chan struct{}
	now             func() time.Time
}

type config struct {
	id        string
	device    *localstore.Device
	directory Directory
	payer     payment.Payer
	balances  payment.BalanceReader
	names     payment.NameResolver
	codec     *qrcode.Codec
	logger    *zap.Logger
	now       func() time.Time
}

func newSession(cfg config, boot bootstrap.Result) *Session {
	store := cart.NewStore()
	logger := cfg.logger.With(zap.String("session_id", cfg.id))
	s := &Session{
		id:          cfg.id,
		device:      cfg.device,
		directory:   cfg.directory,
		balances:    cfg.balances,
		codec:       cfg.codec,
		logger:      logger,
		nav:         navigation.NewNavigator(boot.Screen, store, logger),
		cart:        store,
		payment:     payment.NewController(cfg.codec, cfg.payer, cfg.balances, cfg.names, logger),
		loading:     true,
		status:      boot.Status,
		business:    boot.Business,
		reviewedIDs: boot.ReviewedIDs,
		ready:       make(chan struct{}),
		now:         cfg.now,
	}
	s.lastSeen = s.now()
	if boot.Intent != nil {
		// A deep link carries both name and recipient, so this cannot fail.
		_, _ = s.payment.Begin(*boot.Intent)
	}
	return s
}

func (s *Session) ID() string { return s.id }

// Ready is closed once wallet authentication has finished.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// WaitReady blocks until authentication has finished or ctx is done.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Wallet() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallet
}

func (s *Session) Screen() domain.Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Current()
}

func (s *Session) Cart() domain.Cart {
	return s.cart.Snapshot()
}

func (s *Session) touch() {
	s.lastSeen = s.now()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// completeAuth applies the authentication result and loads the balance.
func (s *Session) completeAuth(ctx context.Context, res bootstrap.AuthResult) {
	s.mu.Lock()
	s.wallet = res.Wallet
	s.blocked = res.Blocked
	if res.Status != "" {
		s.status = res.Status
	}
	s.loading = false
	s.mu.Unlock()
	close(s.ready)

	s.logger.Info("session authenticated",
		zap.String("wallet", res.Wallet),
		zap.Bool("degraded", res.Degraded),
		zap.Bool("blocked", res.Blocked))

	if res.Wallet != "" {
		_ = s.RefreshBalance(ctx)
	}
}

// Navigate pushes screen. Unknown names resolve to the default screen.
func (s *Session) Navigate(screen string) navigation.Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	target := domain.ParseScreen(screen)
	s.prepare(target)
	return s.nav.NavigateTo(target)
}

func (s *Session) Back() navigation.Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.nav.Back()
}

func (s *Session) Forward() (navigation.Transition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.nav.Forward()
}

// prepare sets up per-screen state before target becomes current.
// Must be called with mu held.
func (s *Session) prepare(target domain.Screen) {
	switch target {
	case domain.ScreenGeneralSale:
		s.qrURL = s.generalSaleURL()
	case domain.ScreenSpecificSale:
		s.qrURL = ""
	case domain.ScreenPaymentInterface:
		if s.payment.State() == payment.StateIdle {
			_, _ = s.payment.Begin(domain.PaymentIntent{BalanceAtEntry: s.balance})
		}
	}
}

// View snapshots the session and loads the directory data the current
// screen shows. Directory failures are reported through Status.
func (s *Session) View(ctx context.Context) navigation.View {
	s.mu.Lock()
	s.touch()
	v := navigation.View{
		Screen:          s.nav.Current(),
		Loading:         s.loading,
		Blocked:         s.blocked,
		Status:          s.status,
		Wallet:          s.wallet,
		Balance:         s.balance,
		Cart:            s.cart.Snapshot(),
		QRCodeURL:       s.qrURL,
		Payment:         s.payment.Snapshot(),
		Query:           s.query,
		RatingTarget:    s.ratingTarget,
		ReviewSubmitted: s.reviewSubmitted,
		CanGoBack:       s.nav.History().CanGoBack(),
		CanGoForward:    s.nav.History().CanGoForward(),
	}
	if s.business != nil {
		b := *s.business
		v.Business = &b
	}
	if s.selected != nil {
		sel := *s.selected
		v.Selected = &sel
	}
	if s.wallet != "" {
		v.WalletQRCodeURL = s.codec.WalletImageURL(s.wallet)
	}
	// the open amount code follows the wallet, which may arrive after navigation
	if v.Screen == domain.ScreenGeneralSale {
		v.QRCodeURL = s.generalSaleURL()
	}
	hidden := slices.Clone(s.reviewedIDs)
	s.mu.Unlock()

	if v.Loading {
		return v
	}

	var err error
	switch v.Screen {
	case domain.ScreenBusinessList:
		v.Businesses, err = s.directory.Search(ctx, v.Query, hidden)
	case domain.ScreenBusinessRankings:
		v.Rankings, err = s.directory.Rankings(ctx)
	case domain.ScreenMyReviews:
		v.MyReviews, err = s.directory.ReviewsBy(ctx, v.Wallet)
	case domain.ScreenCatalogSale:
		v.Catalog, err = s.directory.Catalog(ctx, v.Wallet)
	}
	if err != nil {
		s.logger.Warn("failed to load directory data", zap.String("screen", v.Screen.String()), zap.Error(err))
		v.Status = "Error loading businesses: " + err.Error()
	}
	return v
}

func (s *Session) Render(ctx context.Context) navigation.ScreenProps {
	return navigation.RenderScreen(s.View(ctx))
}

// Search sets the directory filter used by the business list.
func (s *Session) Search(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.query = strings.TrimSpace(query)
}

// RefreshBalance reloads the wallet balance.
func (s *Session) RefreshBalance(ctx context.Context) error {
	wallet := s.Wallet()
	if wallet == "" {
		return ErrNoWallet
	}

	bal, err := s.balances.Balance(ctx, wallet)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = "Error fetching balance: " + err.Error()
		return fmt.Errorf("failed to refresh balance: %w", err)
	}
	s.balance = bal
	return nil
}

// SubmitBusiness stores the owner's registration on the device, publishes
// it to the directory when a wallet is connected and opens the hub.
func (s *Session) SubmitBusiness(ctx context.Context, reg domain.BusinessRegistration) error {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.BusinessID = strings.TrimSpace(reg.BusinessID)
	reg.FiscalPermit = strings.TrimSpace(reg.FiscalPermit)
	if !reg.IsComplete() {
		return ErrIncompleteBusiness
	}

	if s.device != nil {
		if err := s.device.SaveBusiness(ctx, reg); err != nil {
			return fmt.Errorf("failed to save business data: %w", err)
		}
	}

	wallet := s.Wallet()
	var registerErr error
	if wallet != "" {
		registerErr = s.directory.Register(ctx, wallet, domain.BusinessListing{
			Name:        reg.Name,
			Description: registeredDescription,
			Category:    registeredCategory,
			Products:    []domain.Product{},
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.business = &reg
	if registerErr != nil {
		s.logger.Warn("failed to register business", zap.Error(registerErr))
		s.status = "Error registering business: " + registerErr.Error()
	}
	s.nav.NavigateTo(domain.ScreenBusinessHub)
	return nil
}

// UpdateCatalog publishes the owner's products, which replace the default
// catalog on the catalog sale screen.
func (s *Session) UpdateCatalog(ctx context.Context, products []domain.Product) error {
	s.mu.Lock()
	s.touch()
	wallet, registered := s.wallet, s.business != nil
	s.mu.Unlock()

	if wallet == "" {
		return ErrNoWallet
	}
	if !registered {
		return ErrNoBusiness
	}

	seen := make(map[int64]bool, len(products))
	for i := range products {
		p := &products[i]
		p.Name = strings.TrimSpace(p.Name)
		p.Category = strings.TrimSpace(p.Category)
		if p.ID <= 0 || seen[p.ID] || p.Name == "" || p.Price.IsNegative() {
			return ErrInvalidProduct
		}
		seen[p.ID] = true
	}

	if err := s.directory.UpdateProducts(ctx, wallet, products); err != nil {
		return err
	}
	s.logger.Info("catalog updated", zap.String("wallet", wallet), zap.Int("products", len(products)))
	return nil
}

// UpdateCart sets the quantity of a product. The product is looked up in
// the cart first and then in the wallet's catalog.
func (s *Session) UpdateCart(ctx context.Context, productID int64, quantity int) (domain.Cart, error) {
	current := s.cart.Snapshot()
	if i := current.Find(productID); i >= 0 {
		return s.setCart(current.Items[i].Product, quantity), nil
	}
	if quantity <= 0 {
		return current, nil
	}

	products, err := s.directory.Catalog(ctx, s.Wallet())
	if err != nil {
		return current, fmt.Errorf("failed to load catalog: %w", err)
	}
	for _, p := range products {
		if p.ID == productID {
			return s.setCart(p, quantity), nil
		}
	}
	return current, ErrUnknownProduct
}

func (s *Session) setCart(p domain.Product, quantity int) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.cart.Set(p, quantity)
}

func (s *Session) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.cart.Clear()
}

// GenerateCartQR encodes the cart total for the owner's wallet and replaces
// the current entry with the QR display.
func (s *Session) GenerateCartQR() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	c := s.cart.Snapshot()
	if _, err := cart.RequirePayable(c); err != nil {
		s.status = "Cart is empty."
		return "", err
	}
	if s.wallet == "" {
		return "", ErrNoWallet
	}

	s.qrURL = s.codec.Encode(qrcode.Payload{
		BusinessName: s.businessName(),
		Recipient:    s.wallet,
		Amount:       cart.FormatTotal(c),
	})
	s.nav.Replace(domain.ScreenQRCodeDisplay)
	return s.qrURL, nil
}

// GenerateSaleQR encodes a fixed amount sale.
func (s *Session) GenerateSaleQR(amount string) (string, error) {
	amount = strings.TrimSpace(amount)
	d, err := decimal.NewFromString(amount)
	if err != nil || !d.IsPositive() {
		return "", payment.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.wallet == "" {
		return "", ErrNoWallet
	}
	s.qrURL = s.codec.Encode(qrcode.Payload{BusinessName: s.businessName(), Recipient: s.wallet, Amount: amount})
	return s.qrURL, nil
}

// GeneralSaleQR encodes an open amount sale.
func (s *Session) GeneralSaleQR() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.wallet == "" {
		return "", ErrNoWallet
	}
	s.qrURL = s.generalSaleURL()
	return s.qrURL, nil
}

// StartPayment opens the payment screen, pre-filled when intent is known.
func (s *Session) StartPayment(ctx context.Context, intent domain.PaymentIntent) (payment.State, error) {
	_ = s.RefreshBalance(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	intent.BalanceAtEntry = s.balance
	state, err := s.payment.Begin(intent)
	if err != nil {
		return state, err
	}
	s.status = ""
	s.nav.NavigateTo(domain.ScreenPaymentInterface)
	return state, nil
}

func (s *Session) ScanQR(raw string) (domain.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.payment.ApplyScan(raw)
}

func (s *Session) EnterRecipient(businessName, recipient string) (domain.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.payment.EnterRecipient(businessName, recipient)
}

// Pay submits the payment. On success the session moves to the success
// screen and remembers the recipient for the rating that follows.
func (s *Session) Pay(ctx context.Context, amount, recipient string) (payment.Receipt, error) {
	recipient = strings.TrimSpace(recipient)

	s.mu.Lock()
	s.touch()
	wallet, balance := s.wallet, s.balance
	s.mu.Unlock()

	if wallet == "" {
		return payment.Receipt{}, ErrNoWallet
	}

	receipt, err := s.payment.Submit(ctx, payment.SubmitRequest{
		From:      wallet,
		Amount:    amount,
		Recipient: recipient,
		Balance:   balance,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if msg := s.payment.Snapshot().Message; msg != "" {
			s.status = msg
		}
		return receipt, err
	}
	if _, ok := receipt.Outcome.(domain.PaymentSucceeded); !ok {
		return receipt, nil
	}

	if recipient == "" {
		recipient = s.payment.Snapshot().Intent.RecipientAddress
	}
	s.balance = receipt.Balance
	s.ratingTarget = navigation.RatingTarget{
		BusinessID:   recipient,
		BusinessName: receipt.BusinessName,
	}
	s.reviewSubmitted = false
	s.status = "Payment successful!"
	s.nav.NavigateTo(domain.ScreenPaymentSuccess)
	return receipt, nil
}

// CancelPayment discards the payment and returns to the directory.
func (s *Session) CancelPayment() (navigation.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.payment.Cancel(); err != nil {
		return navigation.Transition{}, err
	}
	s.status = ""
	return s.nav.NavigateTo(domain.ScreenBusinessList), nil
}

// CompletePaymentSuccess leaves the success screen for the rating screen.
func (s *Session) CompletePaymentSuccess() (navigation.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.nav.Current() != domain.ScreenPaymentSuccess {
		return navigation.Transition{}, ErrWrongScreen
	}
	s.payment.Complete()
	s.status = ""
	return s.nav.NavigateTo(domain.ScreenRating), nil
}

// RateBusiness opens the rating screen for a directory entry.
func (s *Session) RateBusiness(ctx context.Context, businessID string) (navigation.Transition, error) {
	b, err := s.directory.Find(ctx, businessID)
	if err != nil {
		return navigation.Transition{}, fmt.Errorf("failed to find business %s: %w", businessID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.ratingTarget = navigation.RatingTarget{BusinessID: b.ID, BusinessName: b.DisplayName}
	s.reviewSubmitted = false
	return s.nav.NavigateTo(domain.ScreenRating), nil
}

func (s *Session) ViewBusiness(ctx context.Context, businessID string) (navigation.Transition, error) {
	b, err := s.directory.Find(ctx, businessID)
	if err != nil {
		return navigation.Transition{}, fmt.Errorf("failed to find business %s: %w", businessID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.selected = b
	return s.nav.NavigateTo(domain.ScreenBusinessDetail), nil
}

// SubmitReview stores a review for the rating target. The business is
// marked as reviewed even when the directory rejects the review.
func (s *Session) SubmitReview(ctx context.Context, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return ErrNoRating
	}

	s.mu.Lock()
	s.touch()
	wallet, target := s.wallet, s.ratingTarget
	s.mu.Unlock()

	if wallet == "" {
		return ErrNoWallet
	}
	if target.BusinessID == "" {
		return ErrNoRatingTarget
	}

	err := s.directory.SubmitReview(ctx, target.BusinessID, domain.Review{
		Author:    wallet,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		Timestamp: s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to submit review", zap.String("business_id", target.BusinessID), zap.Error(err))
	}

	s.mu.Lock()
	if !slices.Contains(s.reviewedIDs, target.BusinessID) {
		s.reviewedIDs = append(s.reviewedIDs, target.BusinessID)
	}
	ids := slices.Clone(s.reviewedIDs)
	s.reviewSubmitted = true
	s.mu.Unlock()

	if s.device != nil {
		if err := s.device.SaveReviewedIDs(ctx, ids); err != nil {
			s.logger.Warn("failed to save reviewed businesses", zap.Error(err))
		}
	}
	return nil
}

// AcknowledgeReview closes the confirmation and returns to the directory.
func (s *Session) AcknowledgeReview() navigation.Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.reviewSubmitted = false
	s.ratingTarget = navigation.RatingTarget{}
	return s.nav.NavigateTo(domain.ScreenBusinessList)
}

// generalSaleURL is empty until a wallet is known. Must be called with mu held.
func (s *Session) generalSaleURL() string {
	if s.wallet == "" {
		return ""
	}
	return s.codec.Encode(qrcode.Payload{BusinessName: s.businessName(), Recipient: s.wallet})
}

func (s *Session) businessName() string {
	if s.business == nil {
		return ""
	}
	return s.business.Name
}
