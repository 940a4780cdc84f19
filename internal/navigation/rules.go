package navigation

import "github.com/fjod/squeeze/internal/domain"

type Group string

const (
	GroupCatalogFlow Group = "catalogFlow"
	GroupOther       Group = "other"
)

type Effect string

const (
	EffectClearCart Effect = "clear_cart"
)

// Rule attaches side effects to transitions between two screen groups.
type Rule struct {
	From    Group
	To      Group
	Effects []Effect
}

// DefaultRules: leaving the catalog flow discards the cart.
var DefaultRules = []Rule{
	{From: GroupCatalogFlow, To: GroupOther, Effects: []Effect{EffectClearCart}},
}

var catalogFlow = map[domain.Screen]bool{
	domain.ScreenCatalogSale:   true,
	domain.ScreenCartSummary:   true,
	domain.ScreenQRCodeDisplay: true,
}

func GroupOf(s domain.Screen) Group {
	if catalogFlow[s] {
		return GroupCatalogFlow
	}
	return GroupOther
}

// effectsFor collects the effects of every rule matching from -> to.
func effectsFor(rules []Rule, from, to domain.Screen) []Effect {
	fg, tg := GroupOf(from), GroupOf(to)
	var effects []Effect
	for _, r := range rules {
		if r.From == fg && r.To == tg {
			effects = append(effects, r.Effects...)
		}
	}
	return effects
}

// screens that need an authenticated wallet
var walletScreens = map[domain.Screen]bool{
	domain.ScreenBusinessHub:      true,
	domain.ScreenGeneralSale:      true,
	domain.ScreenSpecificSale:     true,
	domain.ScreenCatalogSale:      true,
	domain.ScreenCartSummary:      true,
	domain.ScreenQRCodeDisplay:    true,
	domain.ScreenPaymentInterface: true,
	domain.ScreenPaymentSuccess:   true,
	domain.ScreenRating:           true,
	domain.ScreenMyReviews:        true,
}

func RequiresWallet(s domain.Screen) bool {
	return walletScreens[s]
}
