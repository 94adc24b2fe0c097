// Package tier is the static catalog of subscription tiers: usage limits,
// text-length limits and translation language policy.
// Both the server and the client read from it; nothing in here mutates.
package tier

import "strings"

type Tier string

const (
	Free    Tier = "free"
	Starter Tier = "starter"
	Pro     Tier = "pro"
)

// Plan is the persisted subscription plan. It maps 1:1 onto a Tier.
type Plan string

const (
	PlanFree           Plan = "free"
	PlanStarterMonthly Plan = "starter_monthly"
	PlanProMonthly     Plan = "pro_monthly"
)

// App Store product identifiers.
const (
	ProductStarterMonthly = "textassist.starter.monthly"
	ProductProMonthly     = "textassist.pro.monthly"
)

// Definition holds the limits of one tier.
type Definition struct {
	Tier            Tier
	UsageLimit      int  // lifetime cap when IsLifetimeLimit, otherwise per calendar day
	MaxTextLength   int  // in characters (runes)
	IsLifetimeLimit bool // only free
	// Languages lists the translation targets allowed on this tier. Nil means unrestricted.
	Languages []string
	rank      int
}

var freeLanguages = []string{"en", "es", "fr", "de", "it", "pt"}

// supportedLanguages is every translation target the service accepts at all.
var supportedLanguages = []string{
	"ar", "bg", "cs", "da", "de", "el", "en", "es", "et", "fi", "fr", "he", "hi", "hu", "id",
	"it", "ja", "ko", "lt", "lv", "nb", "nl", "pl", "pt", "ro", "ru", "sk", "sl", "sv", "th",
	"tr", "uk", "vi", "zh",
}

var catalog = map[Tier]Definition{
	Free: {
		Tier:            Free,
		UsageLimit:      10,
		MaxTextLength:   2000,
		IsLifetimeLimit: true,
		Languages:       freeLanguages,
		rank:            0,
	},
	Starter: {
		Tier:          Starter,
		UsageLimit:    100,
		MaxTextLength: 20000,
		rank:          1,
	},
	Pro: {
		Tier:          Pro,
		UsageLimit:    500,
		MaxTextLength: 20000,
		rank:          2,
	},
}

var productTiers = map[string]Tier{
	ProductStarterMonthly: Starter,
	ProductProMonthly:     Pro,
}

var planTiers = map[Plan]Tier{
	PlanFree:           Free,
	PlanStarterMonthly: Starter,
	PlanProMonthly:     Pro,
}

// Lookup returns the definition of t, defaulting to free for unknown tiers.
func Lookup(t Tier) Definition {
	if def, ok := catalog[t]; ok {
		return def
	}
	return catalog[Free]
}

func UsageLimit(t Tier) int {
	return Lookup(t).UsageLimit
}

func MaxTextLength(t Tier) int {
	return Lookup(t).MaxTextLength
}

func IsLifetime(t Tier) bool {
	return Lookup(t).IsLifetimeLimit
}

// Rank orders tiers: pro > starter > free.
func Rank(t Tier) int {
	return Lookup(t).rank
}

// IsPaid reports whether t is above free.
func IsPaid(t Tier) bool {
	return Rank(t) > Rank(Free)
}

// IsLanguageAvailable reports whether translation into language is allowed on t.
// Region suffixes are ignored ("pt-BR" is "pt").
func IsLanguageAvailable(t Tier, language string) bool {
	code := NormalizeLanguage(language)
	if !IsSupportedLanguage(code) {
		return false
	}
	allowed := Lookup(t).Languages
	if allowed == nil {
		return true
	}
	for _, l := range allowed {
		if l == code {
			return true
		}
	}
	return false
}

// IsSupportedLanguage reports whether the service translates into language on any tier.
func IsSupportedLanguage(language string) bool {
	code := NormalizeLanguage(language)
	for _, l := range supportedLanguages {
		if l == code {
			return true
		}
	}
	return false
}

func SupportedLanguages() []string {
	out := make([]string, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

func FreeLanguages() []string {
	out := make([]string, len(freeLanguages))
	copy(out, freeLanguages)
	return out
}

func NormalizeLanguage(language string) string {
	code := strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// BestTier returns the highest tier implied by any of the purchased product ids,
// free if none match.
func BestTier(productIDs []string) Tier {
	best := Free
	for _, id := range productIDs {
		if t, ok := productTiers[id]; ok && Rank(t) > Rank(best) {
			best = t
		}
	}
	return best
}

// TierForProduct maps a product id onto its tier.
func TierForProduct(productID string) (Tier, bool) {
	t, ok := productTiers[productID]
	return t, ok
}

// PlanForProduct maps a product id onto the persisted plan.
func PlanForProduct(productID string) (Plan, bool) {
	t, ok := productTiers[productID]
	if !ok {
		return "", false
	}
	return PlanForTier(t), true
}

func PlanForTier(t Tier) Plan {
	switch t {
	case Starter:
		return PlanStarterMonthly
	case Pro:
		return PlanProMonthly
	default:
		return PlanFree
	}
}

// TierForPlan maps a persisted plan onto its tier, free for unknown plans.
func TierForPlan(p Plan) Tier {
	if t, ok := planTiers[p]; ok {
		return t
	}
	return Free
}

// Parse converts a string to a Tier.
func Parse(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	_, ok := catalog[t]
	return t, ok
}
