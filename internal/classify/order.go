package classify

import "strings"

const SERIES_OTHER = "기타"

// SeriesOrder is the display order of the series buckets, the catch-all bucket goes
// after all of them.
var SeriesOrder = []string{
	"iPhone 17 Series",
	"iPhone 16 Series",
	"iPhone 15 Series",
	"iPhone 14 Series",
	"iPhone 13 Series",
	"iPhone 12 Series",
	"iPhone 11 Series",
	"iPhone X/XS/XR Series",
	"iPhone SE/8/7/6 Series",
	MODEL_ACCESSORY,
}

var generationSeries = []struct {
	token  string
	series string
}{
	{"17", "iPhone 17 Series"},
	{"16", "iPhone 16 Series"},
	{"15", "iPhone 15 Series"},
	{"14", "iPhone 14 Series"},
	{"13", "iPhone 13 Series"},
	{"12", "iPhone 12 Series"},
	{"11", "iPhone 11 Series"},
}

// Series returns the presentation bucket of a model.
func Series(model string) string {
	if model == MODEL_ACCESSORY {
		return MODEL_ACCESSORY
	}
	for _, g := range generationSeries {
		if strings.Contains(model, g.token) {
			return g.series
		}
	}
	if containsAny(model, []string{"X", "XS", "XR"}) {
		return "iPhone X/XS/XR Series"
	}
	if containsAny(model, []string{"SE", "8", "7", "6"}) {
		return "iPhone SE/8/7/6 Series"
	}
	return SERIES_OTHER
}

// SeriesRank is the position of a series in SeriesOrder, unknown series rank last.
func SeriesRank(series string) int {
	for i, s := range SeriesOrder {
		if s == series {
			return i
		}
	}
	return len(SeriesOrder)
}

// ModelSortKey orders the models of one series: base, then plus/mini/air, then pro,
// then pro max. The X and SE/8/7/6 families have their own fixed order.
func ModelSortKey(model string) int {
	m := strings.ToLower(model)

	if strings.Contains(m, "iphone x") || strings.Contains(m, "xs") || strings.Contains(m, "xr") {
		switch {
		case strings.Contains(m, "xr"):
			return 14
		case strings.Contains(m, "xs max"):
			return 13
		case strings.Contains(m, "xs"):
			return 12
		}
		return 11
	}

	plus := strings.Contains(m, "plus")
	switch {
	case strings.Contains(m, "iphone se"):
		return 20
	case strings.Contains(m, "iphone 6"):
		return pick(plus, 22, 21)
	case strings.Contains(m, "iphone 7"):
		return pick(plus, 24, 23)
	case strings.Contains(m, "iphone 8"):
		return pick(plus, 26, 25)
	}

	switch {
	case strings.Contains(m, "16e"):
		return 5
	case strings.Contains(m, "pro max"):
		return 4
	case strings.Contains(m, "pro"):
		return 3
	case containsAny(m, []string{"plus", "+", "mini", "air"}):
		return 2
	}
	return 1
}

func pick(cond bool, a, b int) int {
	if cond {
		return a
	}
	return b
}

var partOrder = []string{PART_SCREEN, PART_BATTERY, PART_CAMERA, PART_BACKGLASS, PART_BOARD}

// PartSortKey orders part types, anything unknown goes last.
func PartSortKey(part string) int {
	for i, p := range partOrder {
		if strings.Contains(part, p) {
			return i
		}
	}
	return len(partOrder)
}

// ShortLabel is the compact form of a model name, "iPhone 16 Pro" becomes "16Pro".
func ShortLabel(model string) string {
	return strings.ReplaceAll(strings.ReplaceAll(model, "iPhone ", ""), " ", "")
}
