package navigation

import (
	"github.com/fjod/squeeze/internal/cart"
	"github.com/fjod/squeeze/internal/domain"
	"github.com/fjod/squeeze/internal/payment"
	"github.com/shopspring/decimal"
)

// View is a snapshot of everything a screen may need. The session fills in
// the directory data relevant to the current screen before rendering.
type View struct {
	Screen          domain.Screen
	Loading         bool
	Blocked         bool
	Status          string
	Wallet          string
	Balance         decimal.Decimal
	Business        *domain.BusinessRegistration
	Cart            domain.Cart
	QRCodeURL       string
	WalletQRCodeURL string
	Payment         payment.Snapshot
	Businesses      []domain.BusinessProfile
	Query           string
	Rankings        []domain.RankedBusiness
	MyReviews       []domain.AuthoredReview
	Catalog         []domain.Product
	Selected        *domain.BusinessProfile
	RatingTarget    RatingTarget
	ReviewSubmitted bool
	CanGoBack       bool
	CanGoForward    bool
}

// RatingTarget is the business the rating screen reviews.
type RatingTarget struct {
	BusinessID   string `json:"business_id"`
	BusinessName string `json:"business_name"`
}

type ScreenProps struct {
	Screen       domain.Screen `json:"screen"`
	Loading      bool          `json:"loading"`
	Blocked      bool          `json:"blocked"`
	Status       string        `json:"status,omitempty"`
	Wallet       string        `json:"wallet,omitempty"`
	CanGoBack    bool          `json:"can_go_back"`
	CanGoForward bool          `json:"can_go_forward"`
	Props        any           `json:"props,omitempty"`
}

type BusinessCard struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Category    string           `json:"category,omitempty"`
	Verified    bool             `json:"verified"`
	AvgRating   float64          `json:"avg_rating"`
	ReviewCount int              `json:"review_count"`
	Location    *domain.Location `json:"location,omitempty"`
}

type BusinessListProps struct {
	Query      string         `json:"query,omitempty"`
	Businesses []BusinessCard `json:"businesses"`
}

type BusinessFormProps struct {
	Registration domain.BusinessRegistration `json:"registration"`
}

type BusinessHubProps struct {
	Business        domain.BusinessRegistration `json:"business"`
	Balance         string                      `json:"balance"`
	WalletQRCodeURL string                      `json:"wallet_qr_code_url,omitempty"`
}

type SaleProps struct {
	BusinessName string `json:"business_name"`
	Recipient    string `json:"recipient"`
	QRCodeURL    string `json:"qr_code_url,omitempty"`
}

type CatalogSaleProps struct {
	BusinessName string           `json:"business_name"`
	Products     []domain.Product `json:"products"`
	Cart         domain.Cart      `json:"cart"`
	ItemCount    int              `json:"item_count"`
	Total        string           `json:"total"`
}

type CartSummaryProps struct {
	Items     []domain.CartItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Total     string            `json:"total"`
}

type QRCodeDisplayProps struct {
	BusinessName string `json:"business_name"`
	Total        string `json:"total"`
	QRCodeURL    string `json:"qr_code_url"`
}

type PaymentInterfaceProps struct {
	State        payment.State `json:"state"`
	BusinessName string        `json:"business_name,omitempty"`
	Recipient    string        `json:"recipient,omitempty"`
	Amount       string        `json:"amount,omitempty"`
	Balance      string        `json:"balance"`
	Message      string        `json:"message,omitempty"`
	LastOutcome  string        `json:"last_outcome"`
	ManualEntry  bool          `json:"manual_entry"`
}

type PaymentSuccessProps struct {
	BusinessName string `json:"business_name"`
	Amount       string `json:"amount"`
	TxRef        string `json:"tx_ref,omitempty"`
	Balance      string `json:"balance"`
}

type RatingProps struct {
	RatingTarget
	ReviewSubmitted bool `json:"review_submitted"`
}

type BusinessDetailProps struct {
	Business *domain.BusinessProfile `json:"business,omitempty"`
}

type RankingsProps struct {
	Rankings []domain.RankedBusiness `json:"rankings"`
}

type MyReviewsProps struct {
	Reviews []domain.AuthoredReview `json:"reviews"`
}

// RenderScreen maps the view to the props of its current screen. It has no
// side effects.
func RenderScreen(v View) ScreenProps {
	screen := v.Screen.Normalize()
	out := ScreenProps{
		Screen:       screen,
		Status:       v.Status,
		Wallet:       v.Wallet,
		CanGoBack:    v.CanGoBack,
		CanGoForward: v.CanGoForward,
	}
	if v.Loading {
		out.Loading = true
		return out
	}
	if v.Blocked && RequiresWallet(screen) {
		out.Blocked = true
		return out
	}

	switch screen {
	case domain.ScreenBusinessList:
		out.Props = businessListProps(v)
	case domain.ScreenBusinessForm:
		out.Props = BusinessFormProps{Registration: registration(v)}
	case domain.ScreenBusinessHub:
		out.Props = BusinessHubProps{
			Business:        registration(v),
			Balance:         v.Balance.StringFixed(2),
			WalletQRCodeURL: v.WalletQRCodeURL,
		}
	case domain.ScreenGeneralSale, domain.ScreenSpecificSale:
		out.Props = SaleProps{
			BusinessName: registration(v).Name,
			Recipient:    v.Wallet,
			QRCodeURL:    v.QRCodeURL,
		}
	case domain.ScreenCatalogSale:
		out.Props = CatalogSaleProps{
			BusinessName: registration(v).Name,
			Products:     v.Catalog,
			Cart:         v.Cart,
			ItemCount:    cart.ItemCount(v.Cart),
			Total:        cart.FormatTotal(v.Cart),
		}
	case domain.ScreenCartSummary:
		out.Props = CartSummaryProps{
			Items:     v.Cart.Items,
			ItemCount: cart.ItemCount(v.Cart),
			Total:     cart.FormatTotal(v.Cart),
		}
	case domain.ScreenQRCodeDisplay:
		out.Props = QRCodeDisplayProps{
			BusinessName: registration(v).Name,
			Total:        cart.FormatTotal(v.Cart),
			QRCodeURL:    v.QRCodeURL,
		}
	case domain.ScreenPaymentInterface:
		p := v.Payment
		out.Props = PaymentInterfaceProps{
			State:        p.State,
			BusinessName: p.Intent.BusinessName,
			Recipient:    p.Intent.RecipientAddress,
			Amount:       p.Intent.Amount,
			Balance:      v.Balance.StringFixed(2),
			Message:      p.Message,
			LastOutcome:  p.LastOutcome,
			ManualEntry:  !p.Intent.HasRecipient(),
		}
	case domain.ScreenPaymentSuccess:
		props := PaymentSuccessProps{
			BusinessName: v.Payment.Intent.BusinessName,
			Amount:       v.Payment.Intent.Amount,
			Balance:      v.Balance.StringFixed(2),
		}
		if r := v.Payment.Receipt; r != nil {
			props.BusinessName = r.BusinessName
			props.Amount = r.Amount.StringFixed(2)
			props.TxRef = r.TxRef
		}
		out.Props = props
	case domain.ScreenRating:
		out.Props = RatingProps{RatingTarget: v.RatingTarget, ReviewSubmitted: v.ReviewSubmitted}
	case domain.ScreenBusinessDetail:
		out.Props = BusinessDetailProps{Business: v.Selected}
	case domain.ScreenBusinessRankings:
		out.Props = RankingsProps{Rankings: v.Rankings}
	case domain.ScreenMyReviews:
		out.Props = MyReviewsProps{Reviews: v.MyReviews}
	}
	return out
}

func businessListProps(v View) BusinessListProps {
	cards := make([]BusinessCard, 0, len(v.Businesses))
	for _, b := range v.Businesses {
		cards = append(cards, BusinessCard{
			ID:          b.ID,
			Name:        b.DisplayName,
			Category:    b.Category,
			Verified:    b.Verified,
			AvgRating:   b.AvgRating,
			ReviewCount: len(b.Reviews),
			Location:    b.Location,
		})
	}
	return BusinessListProps{Query: v.Query, Businesses: cards}
}

func registration(v View) domain.BusinessRegistration {
	if v.Business == nil {
		return domain.BusinessRegistration{}
	}
	return *v.Business
}
