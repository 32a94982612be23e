// Package classify maps catalog listings onto device models and part types.
package classify

import (
	"strings"

	"partwatch/internal/catalog"
)

const (
	PART_SCREEN    = "액정"
	PART_BATTERY   = "배터리"
	PART_CAMERA    = "카메라"
	PART_BACKGLASS = "후면유리"
	PART_BOARD     = "메인보드"
	PART_OTHER     = "기타"

	PART_FILM  = "필름"
	PART_CASE  = "케이스"
	PART_CABLE = "케이블, 어댑터"
)

// Classification is the model and part a listing belongs to. A nil Part means the
// listing is excluded from every view.
type Classification struct {
	Model string
	Part  *string
}

// Excluded reports whether the listing should be dropped from views.
func (c Classification) Excluded() bool {
	return c.Part == nil
}

// PartOr returns the part or fallback when the listing is excluded.
func (c Classification) PartOr(fallback string) string {
	if c.Part == nil {
		return fallback
	}
	return *c.Part
}

type keywordClass struct {
	part     string
	keywords []string
}

var accessoryClasses = []keywordClass{
	{part: PART_FILM, keywords: []string{"필름", "카메라링", "카메라 링", "강화유리"}},
	{part: PART_CASE, keywords: []string{"케이스"}},
	{part: PART_CABLE, keywords: []string{"케이블", "어댑터", "어덥터", "충전기", "젠더"}},
}

// exclusions are housing variants and known bad entries.
var exclusions = []string{"하우징", "(베젤형)", "(일반형)", "(고급형)", "13Pro 골드"}

var partClasses = []keywordClass{
	{part: PART_SCREEN, keywords: []string{"액정"}},
	{part: PART_BATTERY, keywords: []string{"배터리"}},
	{part: PART_CAMERA, keywords: []string{"카메라"}},
	{part: PART_BACKGLASS, keywords: []string{"유리"}},
	{part: PART_BOARD, keywords: []string{"보드"}},
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func firstClass(name string, classes []keywordClass) string {
	for _, c := range classes {
		if containsAny(name, c.keywords) {
			return c.part
		}
	}
	return PART_OTHER
}

// Model resolves the model of a listing.
func Model(category, name string) string {
	if catalog.IsAccessory(category) {
		return MODEL_ACCESSORY
	}
	return matchModel(name)
}

// Part resolves the part of a listing, nil if it is excluded.
func Part(category, name string) *string {
	var part string
	switch {
	case catalog.IsAccessory(category):
		part = firstClass(name, accessoryClasses)
	case containsAny(name, exclusions):
		return nil
	default:
		part = firstClass(name, partClasses)
	}
	return &part
}

// Classify is a pure function of category and name.
func Classify(category, name string) Classification {
	return Classification{
		Model: Model(category, name),
		Part:  Part(category, name),
	}
}

// ClassifyProduct classifies a stored listing.
func ClassifyProduct(p catalog.Product) Classification {
	return Classify(p.Category, p.Name)
}
