package classify

import (
	"sort"
	"strings"
)

const (
	MODEL_ACCESSORY = "악세사리"
	MODEL_OTHER     = "기타"
)

// Rule maps a name containing Pattern to Model, ignoring case, spaces and hyphens.
// Rules are tried in ascending Priority.
type Rule struct {
	Pattern  string
	Model    string
	Priority int
}

// generation builds the rules of one device generation, rank 1 being the newest.
// Patterns are listed most specific first.
func generation(rank int, pairs ...string) []Rule {
	rules := make([]Rule, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		rules = append(rules, Rule{
			Pattern:  pairs[i],
			Model:    pairs[i+1],
			Priority: rank*100 + i/2,
		})
	}
	return rules
}

var rules = buildRules(
	generation(1,
		"17Pro-Max", "iPhone 17 Pro Max", "17Pro", "iPhone 17 Pro", "17AIR", "iPhone 17 Air",
		"17", "iPhone 17",
	),
	generation(2,
		"16Pro-Max", "iPhone 16 Pro Max", "16Pro", "iPhone 16 Pro", "16+", "iPhone 16 Plus",
		"16E", "iPhone 16E", "16", "iPhone 16",
	),
	generation(3, "15Pro-Max", "iPhone 15 Pro Max", "15Pro", "iPhone 15 Pro", "15+", "iPhone 15 Plus", "15", "iPhone 15"),
	generation(4, "14Pro-Max", "iPhone 14 Pro Max", "14Pro", "iPhone 14 Pro", "14+", "iPhone 14 Plus", "14", "iPhone 14"),
	generation(5,
		"13Pro-Max", "iPhone 13 Pro Max", "13Pro", "iPhone 13 Pro", "13Mini", "iPhone 13 Mini",
		"13", "iPhone 13",
	),
	generation(6,
		"12Pro-Max", "iPhone 12 Pro Max", "12Pro", "iPhone 12 Pro", "12Mini", "iPhone 12 Mini",
		"12", "iPhone 12",
	),
	generation(7, "11Pro-Max", "iPhone 11 Pro Max", "11Pro", "iPhone 11 Pro", "11", "iPhone 11"),
	// X family, the bare "X" has to come last since every other pattern contains it
	generation(8,
		"XSMax", "iPhone XS Max", "XS Max", "iPhone XS Max", "XS-Max", "iPhone XS Max",
		"XS", "iPhone XS", "XR", "iPhone XR", "X", "iPhone X",
	),
	generation(9,
		"SE", "iPhone SE", "8+", "iPhone 8 Plus", "8", "iPhone 8", "7+", "iPhone 7 Plus",
		"7", "iPhone 7", "6+", "iPhone 6 Plus", "6", "iPhone 6",
	),
)

func buildRules(generations ...[]Rule) []Rule {
	var out []Rule
	for _, g := range generations {
		out = append(out, g...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// Rules returns a copy of the ranked rule list.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// normalize folds case and drops the separators listings put inside model names,
// "16 Pro Max", "16Pro-Max" and "16promax" all compare equal.
func normalize(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.ToLower(s))
}

var normalizedPatterns = func() []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = normalize(r.Pattern)
	}
	return out
}()

func matchModel(name string) string {
	name = normalize(name)
	for i, pattern := range normalizedPatterns {
		if strings.Contains(name, pattern) {
			return rules[i].Model
		}
	}
	return MODEL_OTHER
}
