// Package classifier maps free-text guest replies to RSVP intents.
package classifier

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Kind is the category of a classified reply.
type Kind int

const (
	Unrecognized Kind = iota
	Reset
	Digit
	Yes
	No
	Maybe
)

func (k Kind) String() string {
	switch k {
	case Reset:
		return "reset"
	case Digit:
		return "digit"
	case Yes:
		return "yes"
	case No:
		return "no"
	case Maybe:
		return "maybe"
	default:
		return "unrecognized"
	}
}

// Intent is the result of classifying one message. N is set for Digit only.
type Intent struct {
	Kind Kind
	N    int
}

// MenuChoice maps the invitation menu digits 1, 2 and 3 to Yes, No and Maybe.
// Any other digit is Unrecognized; non-digit intents are returned unchanged.
func (i Intent) MenuChoice() Intent {
	if i.Kind != Digit {
		return i
	}
	switch i.N {
	case 1:
		return Intent{Kind: Yes}
	case 2:
		return Intent{Kind: No}
	case 3:
		return Intent{Kind: Maybe}
	}
	return Intent{Kind: Unrecognized}
}

// Fuzzy is a best-effort natural language classifier. Implementations return
// Yes, No or Maybe; anything else is treated as Unrecognized.
type Fuzzy interface {
	Classify(ctx context.Context, text string) (Kind, error)
}

// DefaultTimeout bounds a single fuzzy classification call.
const DefaultTimeout = 5 * time.Second

var digitsRe = regexp.MustCompile(`^\d+$`)

var tokens = map[string]Kind{
	"כן":        Yes,
	"מגיע":      Yes,
	"מגיעה":     Yes,
	"מגיעים":    Yes,
	"yes":       Yes,
	"לא":        No,
	"לא מגיע":   No,
	"לא מגיעה":  No,
	"לא מגיעים": No,
	"no":        No,
	"אולי":      Maybe,
	"maybe":     Maybe,
}

// Classifier applies exact rules first and falls back to an optional Fuzzy classifier.
type Classifier struct {
	resetKeyword string
	fuzzy        Fuzzy
	timeout      time.Duration
	log          zerolog.Logger
}

// New creates a classifier. fuzzy may be nil.
func New(resetKeyword string, fuzzy Fuzzy, timeout time.Duration, log zerolog.Logger) *Classifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Classifier{
		resetKeyword: strings.TrimSpace(resetKeyword),
		fuzzy:        fuzzy,
		timeout:      timeout,
		log:          log.With().Str("component", "Classifier").Logger(),
	}
}

// Exact classifies text using only the fixed rules: reset keyword, digits, token table.
func (c *Classifier) Exact(text string) Intent {
	text = strings.TrimSpace(text)
	if text == "" {
		return Intent{Kind: Unrecognized}
	}
	if text == c.resetKeyword {
		return Intent{Kind: Reset}
	}
	if digitsRe.MatchString(text) {
		n, err := strconv.Atoi(text)
		if err != nil {
			n = math.MaxInt
		}
		return Intent{Kind: Digit, N: n}
	}
	if kind, ok := tokens[strings.ToLower(text)]; ok {
		return Intent{Kind: kind}
	}
	return Intent{Kind: Unrecognized}
}

// Classify runs the exact rules and, when they do not match, asks the fuzzy
// classifier. Fuzzy failures and timeouts yield Unrecognized.
func (c *Classifier) Classify(ctx context.Context, text string) Intent {
	intent := c.Exact(text)
	if intent.Kind != Unrecognized || c.fuzzy == nil || strings.TrimSpace(text) == "" {
		return intent
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	kind, err := c.fuzzy.Classify(ctx, strings.TrimSpace(text))
	if err != nil {
		c.log.Warn().Err(err).Msg("Fuzzy classification failed")
		return Intent{Kind: Unrecognized}
	}
	switch kind {
	case Yes, No, Maybe:
		c.log.Debug().Str("intent", kind.String()).Msg("Fuzzy classification matched")
		return Intent{Kind: kind}
	}
	return Intent{Kind: Unrecognized}
}
