package navigation

import (
	"testing"

	"github.com/fjod/squeeze/internal/cart"
	"github.com/fjod/squeeze/internal/domain"
	"github.com/fjod/squeeze/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderScreen_Loading(t *testing.T) {
	props := RenderScreen(View{Screen: domain.ScreenBusinessHub, Loading: true})

	assert.True(t, props.Loading)
	assert.Nil(t, props.Props)
}

func TestRenderScreen_BlockedOnlyForWalletScreens(t *testing.T) {
	blocked := RenderScreen(View{Screen: domain.ScreenBusinessHub, Blocked: true, Status: "Authentication failed: denied"})
	assert.True(t, blocked.Blocked)
	assert.Equal(t, "Authentication failed: denied", blocked.Status)
	assert.Nil(t, blocked.Props)

	list := RenderScreen(View{Screen: domain.ScreenBusinessList, Blocked: true})
	assert.False(t, list.Blocked)
	assert.IsType(t, BusinessListProps{}, list.Props)
}

func TestRenderScreen_UnknownScreenRendersDefault(t *testing.T) {
	props := RenderScreen(View{Screen: "bogus"})

	assert.Equal(t, domain.DefaultScreen, props.Screen)
}

func TestRenderScreen_CatalogSale(t *testing.T) {
	coffee := domain.Product{ID: 1, Name: "Coffee", Price: decimal.RequireFromString("3.50")}
	muffin := domain.Product{ID: 4, Name: "Muffin", Price: decimal.RequireFromString("2.50")}
	c := cart.Update(cart.Update(domain.Cart{}, coffee, 2), muffin, 1)

	props := RenderScreen(View{
		Screen:   domain.ScreenCatalogSale,
		Business: &domain.BusinessRegistration{Name: "Lemon Coffee"},
		Catalog:  []domain.Product{coffee, muffin},
		Cart:     c,
	})

	catalog, ok := props.Props.(CatalogSaleProps)
	require.True(t, ok)
	assert.Equal(t, "Lemon Coffee", catalog.BusinessName)
	assert.Equal(t, "9.50", catalog.Total)
	assert.Equal(t, 3, catalog.ItemCount)
	assert.Len(t, catalog.Products, 2)
}

func TestRenderScreen_PaymentInterface(t *testing.T) {
	props := RenderScreen(View{
		Screen:  domain.ScreenPaymentInterface,
		Balance: decimal.NewFromInt(100),
		Payment: payment.Snapshot{
			State:       payment.StateReadyToPay,
			Intent:      domain.PaymentIntent{BusinessName: "Cafe", RecipientAddress: "0xR", Amount: "10"},
			LastOutcome: "none",
		},
	})

	p, ok := props.Props.(PaymentInterfaceProps)
	require.True(t, ok)
	assert.Equal(t, payment.StateReadyToPay, p.State)
	assert.Equal(t, "10", p.Amount)
	assert.Equal(t, "100.00", p.Balance)
	assert.False(t, p.ManualEntry)
}

func TestRenderScreen_PaymentSuccessUsesReceipt(t *testing.T) {
	props := RenderScreen(View{
		Screen:  domain.ScreenPaymentSuccess,
		Balance: decimal.RequireFromString("87.5"),
		Payment: payment.Snapshot{
			State:  payment.StateSucceeded,
			Intent: domain.PaymentIntent{BusinessName: "Unknown Business", RecipientAddress: "0xR", Amount: "12.5"},
			Receipt: &payment.Receipt{
				BusinessName: "Lemon Coffee",
				Amount:       decimal.RequireFromString("12.5"),
				TxRef:        "tx-1",
			},
		},
	})

	p, ok := props.Props.(PaymentSuccessProps)
	require.True(t, ok)
	assert.Equal(t, "Lemon Coffee", p.BusinessName)
	assert.Equal(t, "12.50", p.Amount)
	assert.Equal(t, "87.50", p.Balance)
}

func TestRenderScreen_IsPure(t *testing.T) {
	v := View{
		Screen:     domain.ScreenBusinessList,
		Businesses: []domain.BusinessProfile{{ID: "0xA", DisplayName: "A", Reviews: []domain.Review{{Rating: 5}}}},
	}

	first := RenderScreen(v)
	second := RenderScreen(v)

	assert.Equal(t, first, second)
	list := first.Props.(BusinessListProps)
	require.Len(t, list.Businesses, 1)
	assert.Equal(t, 1, list.Businesses[0].ReviewCount)
}
