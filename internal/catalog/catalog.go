// Package catalog defines the tracked card catalog: the athletes whose
// market prices the aggregator follows, and the normalized identity key
// shared by the aggregator snapshot and the budget optimizer.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Item is one tracked catalog entry.
type Item struct {
	Name   string `json:"name"`
	Sport  string `json:"sport"`
	League string `json:"league,omitempty"`
	Team   string `json:"team,omitempty"`
}

// Key returns the item's normalized identity key. Two listings that map to
// the same key refer to the same catalog item regardless of case or
// whitespace differences.
func (it Item) Key() string {
	return Key(it.Name, it.Sport)
}

// Valid reports whether the item can be aggregated at all.
func (it Item) Valid() bool {
	return strings.TrimSpace(it.Name) != ""
}

// Key builds the normalized "name|sport" identity key.
func Key(name, sport string) string {
	return normKey(name) + "|" + normKey(sport)
}

var spaceRe = regexp.MustCompile(`\s+`)

func normKey(s string) string {
	return spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// NormalizeName prepares a player name for fuzzy comparison: diacritics
// stripped, punctuation softened, Jr/Sr suffixes removed.
func NormalizeName(s string) string {
	s = StripDiacritics(s)
	s = strings.ToLower(s)
	s = strings.NewReplacer(".", "", "'", "", "’", "", `"`, "").Replace(s)
	s = jrSrRe.ReplaceAllString(s, "")
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

var jrSrRe = regexp.MustCompile(`\b(jr|sr)\b`)

// StripDiacritics removes combining marks so accented names match their
// ASCII spellings in marketplace titles.
func StripDiacritics(s string) string {
	decomposed := norm.NFKD.String(s)
	out := make([]rune, 0, len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// SearchQuery builds the marketplace search query for an item, matching
// the published data's "<name> <sport> card" convention.
func (it Item) SearchQuery() string {
	name := strings.TrimSpace(it.Name)
	sport := strings.TrimSpace(it.Sport)
	if sport == "" {
		return name + " card"
	}
	return name + " " + sport + " card"
}

// Load reads a catalog JSON file: an array of {name, sport} objects.
// Entries without a name are dropped; whitespace is collapsed.
func Load(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var raw []Item
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}

	items := make([]Item, 0, len(raw))
	for _, it := range raw {
		it.Name = spaceRe.ReplaceAllString(strings.TrimSpace(it.Name), " ")
		it.Sport = spaceRe.ReplaceAllString(strings.TrimSpace(it.Sport), " ")
		if !it.Valid() {
			continue
		}
		items = append(items, it)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no usable entries", path)
	}

	return items, nil
}
