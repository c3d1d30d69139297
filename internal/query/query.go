package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Kind tags an Intent variant.
type Kind int

const (
	Unrecognized Kind = iota
	DividendRank
	BuybackScreen
)

func (k Kind) String() string {
	switch k {
	case DividendRank:
		return "dividend_rank"
	case BuybackScreen:
		return "buyback_screen"
	default:
		return "unrecognized"
	}
}

// DefaultTopN is used when a dividend request names no count.
const DefaultTopN = 10

// Intent is the structured form of a free-text request. N is set only for DividendRank.
type Intent struct {
	Kind Kind `json:"kind"`
	N    int  `json:"n,omitempty"`
}

// Describe renders the intent for the user.
func (i Intent) Describe() string {
	switch i.Kind {
	case DividendRank:
		return fmt.Sprintf("Request: top %d dividend yield companies", i.N)
	case BuybackScreen:
		return "Request: companies with high treasury stock not cancelled"
	default:
		return "Request not recognized"
	}
}

// Rule is one entry of the interpretation table.
type Rule struct {
	Name  string
	Match func(text string) (Intent, bool)
}

var topNPatterns = []*regexp.Regexp{
	regexp.MustCompile(`배당.*상위\s*(\d+)`),
	regexp.MustCompile(`dividend[- ]yield.*top\s*(\d+)`),
}

var (
	treasuryTokens     = []string{"자사주", "treasury stock"}
	notCancelledTokens = []string{"소각", "not cancelled"}
	dividendTokens     = []string{"배당", "dividend yield"}
)

func containsAny(text string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

// matchTopN claims any text with a written count. A count that is zero or
// does not fit an int is Unrecognized; it never falls back to DefaultTopN.
func matchTopN(text string) (Intent, bool) {
	for _, re := range topNPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return Intent{Kind: Unrecognized}, true
		}
		return Intent{Kind: DividendRank, N: n}, true
	}
	return Intent{}, false
}

func matchBuyback(text string) (Intent, bool) {
	if containsAny(text, treasuryTokens) && containsAny(text, notCancelledTokens) {
		return Intent{Kind: BuybackScreen}, true
	}
	return Intent{}, false
}

func matchDividend(text string) (Intent, bool) {
	if containsAny(text, dividendTokens) {
		return Intent{Kind: DividendRank, N: DefaultTopN}, true
	}
	return Intent{}, false
}

// Rules is evaluated in order; the first match wins.
var Rules = []Rule{
	{Name: "dividend_top_n", Match: matchTopN},
	{Name: "buyback_not_cancelled", Match: matchBuyback},
	{Name: "dividend_default", Match: matchDividend},
}

// Interpret maps text to an Intent. Matching is case-sensitive.
func Interpret(text string) Intent {
	for _, r := range Rules {
		if intent, ok := r.Match(text); ok {
			return intent
		}
	}
	return Intent{Kind: Unrecognized}
}

// Session holds the single pending interpretation.
type Session struct {
	mu      sync.Mutex
	pending *Intent
	gen     uint64
}

func NewSession() *Session {
	return &Session{}
}

// Interpret replaces any pending intent with the interpretation of text.
func (s *Session) Interpret(text string) Intent {
	intent := Interpret(text)

	s.mu.Lock()
	s.pending = &intent
	s.gen++
	s.mu.Unlock()

	return intent
}

// Pending peeks at the pending intent.
func (s *Session) Pending() (Intent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Intent{}, false
	}
	return *s.pending, true
}

// Cancel discards the pending intent and reports whether there was one.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.pending != nil
	s.pending = nil
	s.gen++
	return had
}

// Claim returns the pending intent with a token for Release.
func (s *Session) Claim() (Intent, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Intent{}, 0, false
	}
	return *s.pending, s.gen, true
}

// Release clears the pending intent if it is still the one claimed with gen.
func (s *Session) Release(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen {
		s.pending = nil
		s.gen++
	}
}
