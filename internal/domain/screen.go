package domain

// Screen is one named view of the mini app.
type Screen string

const (
	ScreenBusinessList     Screen = "businessList"
	ScreenBusinessForm     Screen = "businessForm"
	ScreenBusinessHub      Screen = "businessHub"
	ScreenGeneralSale      Screen = "generalSale"
	ScreenSpecificSale     Screen = "specificSale"
	ScreenCatalogSale      Screen = "catalogSale"
	ScreenCartSummary      Screen = "cartSummary"
	ScreenQRCodeDisplay    Screen = "qrCodeDisplay"
	ScreenPaymentInterface Screen = "paymentInterface"
	ScreenPaymentSuccess   Screen = "paymentSuccess"
	ScreenRating           Screen = "ratingScreen"
	ScreenBusinessDetail   Screen = "businessDetail"
	ScreenBusinessRankings Screen = "businessRankings"
	ScreenMyReviews        Screen = "myReviews"

	// ScreenMain is the legacy name of the business list.
	ScreenMain Screen = "main"
)

// DefaultScreen is shown on startup and whenever history runs out.
const DefaultScreen = ScreenBusinessList

var knownScreens = map[Screen]struct{}{
	ScreenBusinessList:     {},
	ScreenBusinessForm:     {},
	ScreenBusinessHub:      {},
	ScreenGeneralSale:      {},
	ScreenSpecificSale:     {},
	ScreenCatalogSale:      {},
	ScreenCartSummary:      {},
	ScreenQRCodeDisplay:    {},
	ScreenPaymentInterface: {},
	ScreenPaymentSuccess:   {},
	ScreenRating:           {},
	ScreenBusinessDetail:   {},
	ScreenBusinessRankings: {},
	ScreenMyReviews:        {},
}

// IsValid reports whether s is one of the known screens. ScreenMain is not,
// it only exists as an input alias.
func (s Screen) IsValid() bool {
	_, ok := knownScreens[s]
	return ok
}

func (s Screen) String() string {
	return string(s)
}

// ParseScreen maps raw input to a known screen, falling back to DefaultScreen.
func ParseScreen(raw string) Screen {
	s := Screen(raw)
	if s == ScreenMain {
		return ScreenBusinessList
	}
	if !s.IsValid() {
		return DefaultScreen
	}
	return s
}

// Normalize is ParseScreen for values that are already typed.
func (s Screen) Normalize() Screen {
	return ParseScreen(string(s))
}
