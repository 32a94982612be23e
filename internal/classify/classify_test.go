package classify

import (
	"sort"
	"strings"
	"testing"

	"github.com/mazen160/go-random"
	"github.com/stretchr/testify/require"
)

func part(p string) *string {
	return &p
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		category string
		name     string
		expected Classification
	}{
		{"iPhone", "아이폰 16 Pro 액정", Classification{"iPhone 16 Pro", part(PART_SCREEN)}},
		{"iPhone", "아이폰 16 Pro 액정(고급형)", Classification{"iPhone 16 Pro", nil}},
		{"iPhone", "아이폰 16 Pro Max 액정", Classification{"iPhone 16 Pro Max", part(PART_SCREEN)}},
		{"iPhone", "아이폰 16 Plus 배터리", Classification{"iPhone 16", part(PART_BATTERY)}},
		{"iPhone", "아이폰 XS-Max 카메라", Classification{"iPhone XS Max", part(PART_CAMERA)}},
		{"iPhone", "아이폰 16Pro-Max 배터리", Classification{"iPhone 16 Pro Max", part(PART_BATTERY)}},
		{"iPhone", "아이폰 16pro 후면 카메라", Classification{"iPhone 16 Pro", part(PART_CAMERA)}},
		{"iPhone", "아이폰 16E 후면유리", Classification{"iPhone 16E", part(PART_BACKGLASS)}},
		{"iPhone", "아이폰 17AIR 메인보드", Classification{"iPhone 17 Air", part(PART_BOARD)}},
		{"iPhone", "아이폰 XS Max 진동모터", Classification{"iPhone XS Max", part(PART_OTHER)}},
		{"iPhone", "아이폰 xr 액정", Classification{"iPhone XR", part(PART_SCREEN)}},
		{"iPhone", "아이폰 8+ 하우징", Classification{"iPhone 8 Plus", nil}},
		{"iPhone", "아이폰 13Pro 골드 후면유리", Classification{"iPhone 13 Pro", nil}},
		{"iPhone", "갤럭시 전용 공구", Classification{MODEL_OTHER, part(PART_OTHER)}},
		{"Acc_Apple", "아이폰 16 Pro 카메라링", Classification{MODEL_ACCESSORY, part(PART_FILM)}},
		{"Acc_Apple", "아이폰 15 케이스", Classification{MODEL_ACCESSORY, part(PART_CASE)}},
		{"Acc_Apple", "C to 8핀 케이블", Classification{MODEL_ACCESSORY, part(PART_CABLE)}},
		{"Acc_Apple", "20W 어덥터", Classification{MODEL_ACCESSORY, part(PART_CABLE)}},
		{"Acc_Apple", "하우징 보호 스티커", Classification{MODEL_ACCESSORY, part(PART_OTHER)}},
		{"애플 악세사리", "강화유리 필름", Classification{MODEL_ACCESSORY, part(PART_FILM)}},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, Classify(test.category, test.name), test.name)
	}
}

func TestRulesAreSortedByPriority(t *testing.T) {
	r := Rules()
	require.True(t, sort.SliceIsSorted(r, func(i, j int) bool {
		return r[i].Priority < r[j].Priority
	}))
	require.Equal(t, "17Pro-Max", r[0].Pattern)
	require.Equal(t, "6", r[len(r)-1].Pattern)
}

// a rule may only be shadowed by an earlier rule for the same model
func TestNoRuleIsShadowed(t *testing.T) {
	r := Rules()
	for j := range r {
		for i := 0; i < j; i++ {
			if !strings.Contains(normalize(r[j].Pattern), normalize(r[i].Pattern)) {
				continue
			}
			require.Equal(t, r[i].Model, r[j].Model, "%q is tried before %q", r[i].Pattern, r[j].Pattern)
		}
	}
}

func TestEveryRuleWinsForItsPattern(t *testing.T) {
	for _, r := range Rules() {
		name := "아이폰 " + r.Pattern + " 액정"
		require.Equal(t, r.Model, Classify("iPhone", name).Model, name)
		require.Equal(t, r.Model, Classify("iPhone", strings.ToLower(name)).Model, name)
	}
}

func TestAdjacentRulesPreferSpecific(t *testing.T) {
	r := Rules()
	for i := 0; i+1 < len(r); i++ {
		specific, generic := r[i], r[i+1]
		if !strings.Contains(strings.ToLower(specific.Pattern), strings.ToLower(generic.Pattern)) {
			continue
		}
		name := "아이폰 " + generic.Pattern + " / " + specific.Pattern + " 배터리"
		require.Equal(t, specific.Model, Classify("iPhone", name).Model, name)
	}
}

func TestExclusionPrecedesParts(t *testing.T) {
	for _, exclusion := range exclusions {
		for _, class := range partClasses {
			name := "아이폰 14 " + class.keywords[0] + " " + exclusion
			require.Nil(t, Classify("iPhone", name).Part, name)
		}
	}
}

func TestClassifyIsPure(t *testing.T) {
	var names []string
	for _, r := range Rules() {
		noise, err := random.String(8)
		require.NoError(t, err)
		names = append(names, noise+r.Pattern+" 액정 "+noise)
	}

	first := make([]Classification, len(names))
	for i, name := range names {
		first[i] = Classify("iPhone", name)
	}
	// classify again in reverse order, nothing carries over between calls
	for i := len(names) - 1; i >= 0; i-- {
		require.Equal(t, first[i], Classify("iPhone", names[i]))
	}
}

func TestSeries(t *testing.T) {
	testCases := []struct {
		model  string
		series string
	}{
		{"iPhone 17 Air", "iPhone 17 Series"},
		{"iPhone 16E", "iPhone 16 Series"},
		{"iPhone 11 Pro Max", "iPhone 11 Series"},
		{"iPhone XS Max", "iPhone X/XS/XR Series"},
		{"iPhone X", "iPhone X/XS/XR Series"},
		{"iPhone SE", "iPhone SE/8/7/6 Series"},
		{"iPhone 6 Plus", "iPhone SE/8/7/6 Series"},
		{MODEL_ACCESSORY, MODEL_ACCESSORY},
		{MODEL_OTHER, SERIES_OTHER},
	}
	for _, test := range testCases {
		require.Equal(t, test.series, Series(test.model), test.model)
	}
	require.Equal(t, len(SeriesOrder), SeriesRank(SERIES_OTHER))
	require.Less(t, SeriesRank("iPhone 17 Series"), SeriesRank("iPhone 11 Series"))
}

func TestModelSortKey(t *testing.T) {
	orders := [][]string{
		{"iPhone 16", "iPhone 16 Plus", "iPhone 16 Pro", "iPhone 16 Pro Max", "iPhone 16E"},
		{"iPhone 17", "iPhone 17 Air", "iPhone 17 Pro", "iPhone 17 Pro Max"},
		{"iPhone 13", "iPhone 13 Mini", "iPhone 13 Pro", "iPhone 13 Pro Max"},
		{"iPhone X", "iPhone XS", "iPhone XS Max", "iPhone XR"},
		{"iPhone SE", "iPhone 6", "iPhone 6 Plus", "iPhone 7", "iPhone 7 Plus", "iPhone 8", "iPhone 8 Plus"},
	}
	for _, expected := range orders {
		shuffled := append([]string(nil), expected...)
		sort.Sort(sort.Reverse(sort.StringSlice(shuffled)))
		sort.SliceStable(shuffled, func(i, j int) bool {
			return ModelSortKey(shuffled[i]) < ModelSortKey(shuffled[j])
		})
		require.Equal(t, expected, shuffled)
	}

	require.Equal(t, 11, ModelSortKey("iPhone X"))
	require.Equal(t, 20, ModelSortKey("iPhone SE"))
	require.Equal(t, 1, ModelSortKey("iPhone 12"))
}

func TestPartSortKey(t *testing.T) {
	parts := []string{PART_OTHER, PART_BOARD, PART_CAMERA, PART_SCREEN, PART_BACKGLASS, PART_BATTERY}
	sort.SliceStable(parts, func(i, j int) bool {
		return PartSortKey(parts[i]) < PartSortKey(parts[j])
	})
	require.Equal(
		t,
		[]string{PART_SCREEN, PART_BATTERY, PART_CAMERA, PART_BACKGLASS, PART_BOARD, PART_OTHER},
		parts,
	)
}

func TestShortLabel(t *testing.T) {
	require.Equal(t, "16Pro", ShortLabel("iPhone 16 Pro"))
	require.Equal(t, "XSMax", ShortLabel("iPhone XS Max"))
	require.Equal(t, "악세사리", ShortLabel("악세사리"))
}
