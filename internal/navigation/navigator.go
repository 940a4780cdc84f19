package navigation

import (
	"github.com/fjod/squeeze/internal/domain"
	"go.uber.org/zap"
)

type Kind string

const (
	KindPush    Kind = "push"
	KindReplace Kind = "replace"
	KindBack    Kind = "back"
	KindForward Kind = "forward"
)

// CartClearer is the cart the navigator empties when a rule says so.
type CartClearer interface {
	Clear()
}

// Transition describes one applied screen change.
type Transition struct {
	From    domain.Screen `json:"from"`
	To      domain.Screen `json:"to"`
	Kind    Kind          `json:"kind"`
	Effects []Effect      `json:"effects,omitempty"`
}

// Navigator owns the current screen and its history. It is not safe for
// concurrent use; callers serialize events.
type Navigator struct {
	history *History
	current domain.Screen
	rules   []Rule
	cart    CartClearer
	logger  *zap.Logger
}

func NewNavigator(initial domain.Screen, cart CartClearer, logger *zap.Logger) *Navigator {
	return &Navigator{
		history: NewHistory(),
		current: initial.Normalize(),
		rules:   DefaultRules,
		cart:    cart,
		logger:  logger,
	}
}

// WithRules replaces the rule table.
func (n *Navigator) WithRules(rules []Rule) *Navigator {
	n.rules = rules
	return n
}

func (n *Navigator) Current() domain.Screen {
	return n.current
}

func (n *Navigator) History() *History {
	return n.history
}

// NavigateTo pushes a new entry and makes screen current.
func (n *Navigator) NavigateTo(screen domain.Screen) Transition {
	screen = screen.Normalize()
	n.history.Push(newEntry(screen))
	return n.apply(screen, KindPush)
}

// Replace swaps the current entry for screen without growing the back stack.
func (n *Navigator) Replace(screen domain.Screen) Transition {
	screen = screen.Normalize()
	n.history.Replace(newEntry(screen))
	return n.apply(screen, KindReplace)
}

// Back returns to the previous entry, or to the default screen when there
// is none. It never pushes.
func (n *Navigator) Back() Transition {
	target := domain.DefaultScreen
	if e, ok := n.history.Back(); ok {
		target = e.Screen.Normalize()
	}
	return n.apply(target, KindBack)
}

// Forward re-applies the entry the last Back left. ok is false at the end of history.
func (n *Navigator) Forward() (Transition, bool) {
	e, ok := n.history.Forward()
	if !ok {
		return Transition{From: n.current, To: n.current, Kind: KindForward}, false
	}
	return n.apply(e.Screen.Normalize(), KindForward), true
}

func (n *Navigator) apply(to domain.Screen, kind Kind) Transition {
	t := Transition{
		From:    n.current,
		To:      to,
		Kind:    kind,
		Effects: effectsFor(n.rules, n.current, to),
	}
	for _, effect := range t.Effects {
		switch effect {
		case EffectClearCart:
			if n.cart != nil {
				n.cart.Clear()
			}
		}
	}
	n.current = to

	n.logger.Debug("screen transition",
		zap.String("from", t.From.String()),
		zap.String("to", t.To.String()),
		zap.String("kind", string(kind)),
		zap.Int("history_pos", n.history.Position()))
	return t
}

func newEntry(screen domain.Screen) Entry {
	return Entry{Screen: screen, State: map[string]string{"screen": screen.String()}}
}
