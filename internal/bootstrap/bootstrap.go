package bootstrap

import (
	"context"
	"net/url"
	"strings"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/fjod/squeeze/internal/localstore"
	"github.com/fjod/squeeze/internal/wallet"
	"go.uber.org/zap"
)

// DemoWalletID is used when the app runs outside the host container.
const DemoWalletID = "0xDEMO_WALLET_1"

const paymentPage = "payment"

// Params are the deep-link query parameters of the entry URL.
type Params struct {
	Page         string
	BusinessName string
	Recipient    string
	Amount       string
}

func ParseParams(q url.Values) Params {
	return Params{
		Page:         strings.TrimSpace(q.Get("page")),
		BusinessName: strings.TrimSpace(q.Get("businessName")),
		Recipient:    strings.TrimSpace(q.Get("recipient")),
		Amount:       strings.TrimSpace(q.Get("amount")),
	}
}

// IsPaymentLink reports whether the parameters carry a payment target.
// The page parameter is optional but must name the payment page when set.
func (p Params) IsPaymentLink() bool {
	if p.BusinessName == "" || p.Recipient == "" {
		return false
	}
	return p.Page == "" || p.Page == paymentPage
}

type Result struct {
	Screen      domain.Screen
	Intent      *domain.PaymentIntent
	Business    *domain.BusinessRegistration
	ReviewedIDs []string
	Status      string
}

// Resolve picks the initial screen. Local data that cannot be read is
// logged and treated as absent.
func Resolve(ctx context.Context, device *localstore.Device, params Params, logger *zap.Logger) Result {
	res := Result{Screen: domain.DefaultScreen, ReviewedIDs: []string{}}

	if device != nil {
		business, err := device.LoadBusiness(ctx)
		if err != nil {
			logger.Warn("failed to load business data", zap.String("device_id", device.ID()), zap.Error(err))
		} else {
			res.Business = business
		}

		ids, err := device.LoadReviewedIDs(ctx)
		if err != nil {
			logger.Warn("failed to load reviewed businesses", zap.String("device_id", device.ID()), zap.Error(err))
		} else {
			res.ReviewedIDs = ids
		}
	}

	if params.IsPaymentLink() {
		res.Intent = &domain.PaymentIntent{
			BusinessName:     params.BusinessName,
			RecipientAddress: params.Recipient,
			Amount:           params.Amount,
		}
		res.Screen = domain.ScreenPaymentInterface
	}
	return res
}

type AuthResult struct {
	Wallet   string
	Status   string
	Degraded bool
	Blocked  bool
}

// Authenticate resolves the session wallet. It never fails: problems are
// reported through Status, and Blocked is set when the host container
// refused to authenticate.
func Authenticate(ctx context.Context, auth wallet.Authenticator, chain string, logger *zap.Logger) AuthResult {
	if !auth.IsInsideHostContainer(ctx) {
		return AuthResult{Wallet: DemoWalletID, Degraded: true}
	}

	res, err := auth.Authenticate(ctx, chain)
	if err != nil {
		logger.Warn("wallet authentication error", zap.Error(err))
		return AuthResult{Status: "Error: " + err.Error(), Blocked: true}
	}
	if res.Status != wallet.StatusSuccess || res.WalletID == "" {
		reason := res.Reason
		if reason == "" {
			reason = "Unknown error"
		}
		logger.Info("wallet authentication rejected", zap.String("status", string(res.Status)), zap.String("reason", reason))
		return AuthResult{Status: "Authentication failed: " + reason, Blocked: true}
	}
	return AuthResult{Wallet: res.WalletID}
}
