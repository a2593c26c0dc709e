package listing

import (
	"regexp"
	"strings"
)

// ConditionPolicy controls how ungraded listings with unknown condition are
// treated. Graded listings bypass the policy entirely.
//
// The asymmetry is deliberate: active listings price cards someone could
// buy right now, so unknown condition is untrusted (strict). Sold comps are
// historical, informational averages that should not starve on missing
// metadata (permissive).
type ConditionPolicy int

const (
	// ConditionStrict rejects ungraded listings unless an allow-list
	// keyword is present. Used for currently purchasable listings.
	ConditionStrict ConditionPolicy = iota
	// ConditionPermissive accepts ungraded listings with unknown
	// condition. Used for historical sold comps.
	ConditionPermissive
)

// String returns the policy name for logging and snapshot metadata.
func (p ConditionPolicy) String() string {
	switch p {
	case ConditionStrict:
		return "strict"
	case ConditionPermissive:
		return "permissive"
	default:
		return "unknown"
	}
}

// allowedBrands restricts samples to the major sports card makers plus the
// Venezuelan league issuers the catalog tracks.
var allowedBrands = []string{
	"topps", "panini", "upper deck", "leaf",
	"artesania sport", "ovenca venezuelan", "sport grafico",
	"line up", "venezuelan league", "byn",
}

// junkPhrases mark bulk lots, set breaks and pick-your-card listings whose
// prices say nothing about a single card.
var junkPhrases = []string{
	"you pick", "you choose", "pick your", "choose your",
	"your choice", "complete your set", "complete set",
	"set builder", "set break", "base singles", "insert singles",
	"singles you pick", "you pick!", "you pick -",
	"lot", "team lot", "player lot", "break", "case break",
	"random", "bulk", "paper rc's & vets", "rc's & vets",
}

// ungradedAllowed are the condition hints that admit an ungraded listing
// under the strict policy.
var ungradedAllowed = []string{
	"near mint or better",
	"near-mint or better",
	"near mint",
	"nm",
	"nm-mt",
	"nmt",
	"excellent",
	"ex",
}

// ungradedBlocklist rejects an ungraded listing under either policy.
var ungradedBlocklist = []string{
	"damaged", "damage", "poor", "fair", "very good", "vg",
	"good", "gd", "creases", "crease", "wrinkle", "wrinkling",
	"corner wear", "surface wear", "paper loss", "stain", "stained",
	"water damage", "tape", "writing", "marked", "marked up",
	"pin hole", "hole", "torn", "tear", "scratches", "scratch",
}

// graderHints identify professionally graded cards from the title.
var graderHints = []string{
	"psa", "bgs", "sgc", "cgc", "beckett", "gem mint", "gm mt", "9.5", "10",
}

var condSpaceRe = regexp.MustCompile(`\s+`)

func normText(s string) string {
	return condSpaceRe.ReplaceAllString(strings.TrimSpace(strings.ToLower(s)), " ")
}

func containsAny(text string, words []string) bool {
	t := normText(text)
	for _, w := range words {
		if strings.Contains(t, normText(w)) {
			return true
		}
	}
	return false
}

// HasAllowedBrand reports whether the title mentions an allowed card maker.
// Case-insensitive substring match.
func HasAllowedBrand(title string) bool {
	return containsAny(title, allowedBrands)
}

// IsJunkTitle reports whether the title matches a junk phrase.
func IsJunkTitle(title string) bool {
	return containsAny(title, junkPhrases)
}

// TitleLooksRelevant checks that the title mentions the last token of the
// player's name. Single-token names are always considered relevant: a lone
// token cannot disambiguate anything by substring match.
func TitleLooksRelevant(title, playerName string) bool {
	tokens := strings.Fields(normText(playerName))
	if len(tokens) <= 1 {
		return true
	}
	return strings.Contains(normText(title), tokens[len(tokens)-1])
}

// IsGraded reports whether the listing is a professionally graded card:
// the condition field says "graded" or the title carries a grader hint.
func (l RawListing) IsGraded() bool {
	if strings.Contains(normText(l.Condition), "graded") {
		return true
	}
	return containsAny(l.Title, graderHints)
}

// passesUngradedPolicy applies the condition gates for ungraded listings.
// Blocklist keywords in title, condition or descriptors reject under both
// policies; allow-list keywords accept; unknown condition is the policy
// branch point.
func passesUngradedPolicy(l RawListing, policy ConditionPolicy) bool {
	parts := append([]string{l.Title, l.Condition}, l.ConditionDescriptors...)
	joined := strings.Join(parts, " | ")

	if containsAny(joined, ungradedBlocklist) {
		return false
	}
	if containsAny(joined, ungradedAllowed) {
		return true
	}
	return policy == ConditionPermissive
}

// Admit runs every admission gate for one listing against one catalog
// item's player name. All gates must pass: allowed brand, no junk phrase,
// title relevance, and the condition policy for ungraded listings.
func Admit(l RawListing, playerName string, policy ConditionPolicy) bool {
	if !HasAllowedBrand(l.Title) {
		return false
	}
	if IsJunkTitle(l.Title) {
		return false
	}
	if !TitleLooksRelevant(l.Title, playerName) {
		return false
	}
	if !l.IsGraded() && !passesUngradedPolicy(l, policy) {
		return false
	}
	return true
}
