package navigation

import (
	"testing"

	"github.com/fjod/squeeze/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingCart struct {
	clears int
}

func (c *countingCart) Clear() {
	c.clears++
}

func newNavigator(cart CartClearer) *Navigator {
	return NewNavigator(domain.DefaultScreen, cart, zap.NewNop())
}

func TestNavigateTo_PushesEntry(t *testing.T) {
	nav := newNavigator(&countingCart{})

	tr := nav.NavigateTo(domain.ScreenBusinessForm)

	assert.Equal(t, domain.ScreenBusinessList, tr.From)
	assert.Equal(t, domain.ScreenBusinessForm, tr.To)
	assert.Equal(t, KindPush, tr.Kind)
	assert.Equal(t, domain.ScreenBusinessForm, nav.Current())
	require.Len(t, nav.History().Entries(), 1)
	assert.Equal(t, "businessForm", nav.History().Entries()[0].State["screen"])
}

func TestCatalogExit_ClearsCartOnce(t *testing.T) {
	cart := &countingCart{}
	nav := newNavigator(cart)

	nav.NavigateTo(domain.ScreenMain)
	nav.NavigateTo(domain.ScreenCatalogSale)
	assert.Equal(t, 0, cart.clears)

	nav.NavigateTo(domain.ScreenCartSummary)
	assert.Equal(t, 0, cart.clears, "moving inside the catalog flow keeps the cart")

	tr := nav.NavigateTo(domain.ScreenBusinessHub)
	assert.Equal(t, 1, cart.clears)
	assert.Equal(t, []Effect{EffectClearCart}, tr.Effects)
}

func TestBack_WithoutHistoryGoesToDefault(t *testing.T) {
	nav := NewNavigator(domain.ScreenPaymentInterface, &countingCart{}, zap.NewNop())

	tr := nav.Back()

	assert.Equal(t, domain.DefaultScreen, nav.Current())
	assert.Equal(t, KindBack, tr.Kind)
	assert.Empty(t, nav.History().Entries(), "back must not push")
}

func TestBack_ReturnsToPreviousEntry(t *testing.T) {
	nav := newNavigator(&countingCart{})
	nav.NavigateTo(domain.ScreenBusinessHub)
	nav.NavigateTo(domain.ScreenGeneralSale)

	nav.Back()
	assert.Equal(t, domain.ScreenBusinessHub, nav.Current())

	nav.Back()
	assert.Equal(t, domain.DefaultScreen, nav.Current())
	assert.Len(t, nav.History().Entries(), 2)
}

func TestBack_OutOfCatalogClearsCart(t *testing.T) {
	cart := &countingCart{}
	nav := newNavigator(cart)
	nav.NavigateTo(domain.ScreenBusinessHub)
	nav.NavigateTo(domain.ScreenCatalogSale)

	nav.Back()

	assert.Equal(t, domain.ScreenBusinessHub, nav.Current())
	assert.Equal(t, 1, cart.clears)
}

func TestReplace_DoesNotGrowHistory(t *testing.T) {
	cart := &countingCart{}
	nav := newNavigator(cart)
	nav.NavigateTo(domain.ScreenBusinessHub)
	nav.NavigateTo(domain.ScreenCatalogSale)
	nav.NavigateTo(domain.ScreenCartSummary)

	tr := nav.Replace(domain.ScreenQRCodeDisplay)

	assert.Equal(t, KindReplace, tr.Kind)
	assert.Equal(t, domain.ScreenQRCodeDisplay, nav.Current())
	assert.Len(t, nav.History().Entries(), 3)
	assert.Equal(t, 0, cart.clears)

	// back skips the replaced cart summary
	nav.Back()
	assert.Equal(t, domain.ScreenCatalogSale, nav.Current())
	assert.Equal(t, 0, cart.clears)
}

func TestForward_ReappliesPoppedEntry(t *testing.T) {
	cart := &countingCart{}
	nav := newNavigator(cart)
	nav.NavigateTo(domain.ScreenCatalogSale)
	nav.NavigateTo(domain.ScreenCartSummary)
	nav.NavigateTo(domain.ScreenBusinessHub)
	require.Equal(t, 1, cart.clears)

	nav.Back()
	assert.Equal(t, domain.ScreenCartSummary, nav.Current())

	tr, ok := nav.Forward()
	require.True(t, ok)
	assert.Equal(t, KindForward, tr.Kind)
	assert.Equal(t, domain.ScreenBusinessHub, nav.Current())
	assert.Equal(t, 2, cart.clears)

	_, ok = nav.Forward()
	assert.False(t, ok)
	assert.Equal(t, domain.ScreenBusinessHub, nav.Current())
}

func TestPush_TruncatesForwardEntries(t *testing.T) {
	nav := newNavigator(nil)
	nav.NavigateTo(domain.ScreenBusinessHub)
	nav.NavigateTo(domain.ScreenGeneralSale)
	nav.Back()

	nav.NavigateTo(domain.ScreenSpecificSale)

	entries := nav.History().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ScreenSpecificSale, entries[1].Screen)
	assert.False(t, nav.History().CanGoForward())
}

func TestUnknownScreenFallsBackToDefault(t *testing.T) {
	nav := newNavigator(nil)
	nav.NavigateTo(domain.ScreenBusinessHub)

	nav.NavigateTo(domain.Screen("settings"))

	assert.Equal(t, domain.DefaultScreen, nav.Current())
	assert.True(t, nav.Current().IsValid())
}

func TestWithRules(t *testing.T) {
	cart := &countingCart{}
	nav := newNavigator(cart).WithRules([]Rule{
		{From: GroupOther, To: GroupCatalogFlow, Effects: []Effect{EffectClearCart}},
	})

	nav.NavigateTo(domain.ScreenCatalogSale)
	nav.NavigateTo(domain.ScreenBusinessHub)

	assert.Equal(t, 1, cart.clears)
}

func TestGroupOf(t *testing.T) {
	assert.Equal(t, GroupCatalogFlow, GroupOf(domain.ScreenQRCodeDisplay))
	assert.Equal(t, GroupOther, GroupOf(domain.ScreenPaymentInterface))
}
