package views

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"partwatch/internal/catalog"
	"partwatch/internal/classify"
	"partwatch/internal/components/chrono"
	"partwatch/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshots []catalog.Snapshot // oldest first

	latestCalls   int
	productsCalls int
}

func (f *fakeSource) LatestKey(ctx context.Context) (time.Time, string, bool, error) {
	f.latestCalls++
	if len(f.snapshots) == 0 {
		return time.Time{}, "", false, nil
	}
	latest := f.snapshots[len(f.snapshots)-1]
	return latest.CapturedAt, latest.RunId, true, nil
}

func (f *fakeSource) SnapshotKeys(ctx context.Context) ([]time.Time, error) {
	var keys []time.Time
	for _, s := range f.snapshots {
		keys = append(keys, s.CapturedAt)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].After(keys[j]) })
	return keys, nil
}

func (f *fakeSource) Products(ctx context.Context, key time.Time) ([]catalog.Product, error) {
	f.productsCalls++
	for _, s := range f.snapshots {
		if s.CapturedAt.Equal(key) {
			return s.Products, nil
		}
	}
	return nil, errors.New("not found")
}

func p(category, name, price string, status catalog.Status) catalog.Product {
	return catalog.Product{Category: category, Name: name, PriceRaw: price, Status: status}
}

var day1 = time.Date(2024, 5, 1, 9, 0, 0, 0, chrono.KST())
var day2 = time.Date(2024, 5, 2, 9, 0, 0, 0, chrono.KST())

func fixture() *fakeSource {
	return &fakeSource{snapshots: []catalog.Snapshot{
		{
			CapturedAt: day1,
			RunId:      "run-1",
			Products: []catalog.Product{
				p("iPhone", "아이폰 16 Pro 액정", "150,000원", catalog.STATUS_AVAILABLE),
				p("iPad", "아이패드 액정", "99,000원", catalog.STATUS_AVAILABLE),
			},
		},
		{
			CapturedAt: day2,
			RunId:      "run-2",
			Products: []catalog.Product{
				p("iPhone", "아이폰 16 Pro 액정", "132,000원", catalog.STATUS_AVAILABLE),
				p("iPhone", "아이폰 16 Pro 액정", "132,000원", catalog.STATUS_AVAILABLE),
				p("iPhone", "아이폰 16 Pro 액정 정품", "158,999원", catalog.STATUS_SOLD_OUT),
				p("iPhone", "아이폰 16 Pro 액정(고급형)", "99,000원", catalog.STATUS_AVAILABLE),
				p("iPhone", "아이폰 16 Pro 액정 재생", catalog.PRICE_UNKNOWN, catalog.STATUS_AVAILABLE),
				p("iPhone", "아이폰 16 Pro 배터리", "45,000원", catalog.STATUS_AVAILABLE),
				p("iPhone", "아이폰 16 배터리", "40,000원", catalog.STATUS_AVAILABLE),
				p("iPhone", "아이폰 16 Pro Max 카메라", "80,000원", catalog.STATUS_AVAILABLE),
				p("iPhone", "아이폰 XR 액정", "30,000원", catalog.STATUS_AVAILABLE),
				p("iPhone", "아이폰 X 액정", "28,000원", catalog.STATUS_AVAILABLE),
				p("Acc_Apple", "C to 8핀 케이블", "9,000원", catalog.STATUS_AVAILABLE),
				p("iPad", "아이패드 액정", "90,000원", catalog.STATUS_AVAILABLE),
			},
		},
	}}
}

func newTestService(t testing.TB, source Source) Service {
	cache, err := NewCache()
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return NewService(source, cache, &telemetry.RecordingAPI{})
}

func TestCatalog(t *testing.T) {
	service := newTestService(t, fixture())

	c, err := service.Catalog(context.Background())
	require.NoError(t, err)
	require.Equal(t, "run-2", c.RunId)
	require.True(t, c.CapturedAt.Equal(day2))

	expected := []SeriesGroup{
		{Name: "iPhone 16 Series", Models: []ModelEntry{
			{Model: "iPhone 16", Label: "16"},
			{Model: "iPhone 16 Pro", Label: "16Pro"},
			{Model: "iPhone 16 Pro Max", Label: "16ProMax"},
		}},
		{Name: "iPhone X/XS/XR Series", Models: []ModelEntry{
			{Model: "iPhone X", Label: "X"},
			{Model: "iPhone XR", Label: "XR"},
		}},
		{Name: classify.MODEL_ACCESSORY, Models: []ModelEntry{
			{Model: classify.MODEL_ACCESSORY, Label: classify.MODEL_ACCESSORY},
		}},
	}
	require.Equal(t, expected, c.Series)
}

func TestParts(t *testing.T) {
	service := newTestService(t, fixture())

	parts, err := service.Parts(context.Background(), "iPhone 16 Pro")
	require.NoError(t, err)
	require.Equal(t, []string{classify.PART_SCREEN, classify.PART_BATTERY}, parts)

	parts, err = service.Parts(context.Background(), classify.MODEL_ACCESSORY)
	require.NoError(t, err)
	require.Equal(t, []string{classify.PART_CABLE}, parts)
}

func TestListings(t *testing.T) {
	service := newTestService(t, fixture())

	listings, err := service.Listings(context.Background(), "iPhone 16 Pro", classify.PART_SCREEN)
	require.NoError(t, err)
	require.Equal(t, []Listing{
		{
			Name:     "아이폰 16 Pro 액정 정품",
			PriceRaw: "158,999원",
			Price:    158999,
			Vat:      15899,
			Total:    174898,
			Status:   catalog.STATUS_SOLD_OUT,
		},
		{
			Name:     "아이폰 16 Pro 액정",
			PriceRaw: "132,000원",
			Price:    132000,
			Vat:      13200,
			Total:    145200,
			Status:   catalog.STATUS_AVAILABLE,
		},
	}, listings)
}

func TestListingsUnparseablePrice(t *testing.T) {
	entries := []Entry{
		{Product: p("iPhone", "a", "문의", catalog.STATUS_AVAILABLE), Model: "m", Part: "액정"},
		{Product: p("iPhone", "b", "1,000원", catalog.STATUS_AVAILABLE), Model: "m", Part: "액정"},
	}
	out := listings(entries, "m", "액정")
	require.Len(t, out, 2)
	require.Equal(t, "b", out[0].Name)
	require.Equal(t, 0, out[1].Price)
	require.Equal(t, 0, out[1].Vat)
	require.Equal(t, 0, out[1].Total)
}

func TestSearch(t *testing.T) {
	service := newTestService(t, fixture())

	hits, err := service.Search(context.Background(), "16 pro 배터리", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	require.Equal(t, "아이폰 16 Pro 배터리", hits[0].Entry.Product.Name)
	for i := 1; i < len(hits); i++ {
		require.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}

	hits, err = service.Search(context.Background(), "   ", 3)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestHistory(t *testing.T) {
	service := newTestService(t, fixture())

	days, err := service.History(context.Background())
	require.NoError(t, err)
	require.Len(t, days, 1)
	// the iPad price drop is not part of the dashboard
	require.Len(t, days[0].Changes, 2)
	for _, c := range days[0].Changes {
		require.Equal(t, "아이폰 16 Pro 액정", c.Name)
		require.Equal(t, -18000, c.Delta)
	}
}

func TestNoSnapshot(t *testing.T) {
	service := newTestService(t, &fakeSource{})
	_, err := service.Catalog(context.Background())
	require.ErrorIs(t, err, ErrNoSnapshot)
}

func TestEntriesAreCachedPerRun(t *testing.T) {
	source := fixture()
	service := newTestService(t, source)
	ctx := context.Background()

	_, first, err := service.entries(ctx)
	require.NoError(t, err)

	cached, err := service.cache.get(ctx, "iPhone", "run-2")
	require.NoError(t, err)
	require.NotEmpty(t, cached)

	_, second, err := service.entries(ctx)
	require.NoError(t, err)
	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i].Product.Name, second[i].Product.Name)
		require.Equal(t, first[i].Part, second[i].Part)
	}

	service.Invalidate()
	_, err = service.cache.get(ctx, "iPhone", "run-2")
	require.ErrorIs(t, err, errEntryNotFound)
}

func TestCachedRunSkipsRowReads(t *testing.T) {
	source := fixture()
	service := newTestService(t, source)
	ctx := context.Background()

	first, err := service.Catalog(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, source.productsCalls)

	second, err := service.Catalog(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 2, source.latestCalls)
	require.Equal(t, 1, source.productsCalls)

	_, err = service.Listings(ctx, "iPhone 16 Pro", classify.PART_SCREEN)
	require.NoError(t, err)
	require.Equal(t, 1, source.productsCalls)

	service.Invalidate()
	_, err = service.Catalog(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, source.productsCalls)
}

func TestRunWithoutIdIsNotCached(t *testing.T) {
	source := &fakeSource{snapshots: []catalog.Snapshot{{
		CapturedAt: day1,
		Products:   []catalog.Product{p("iPhone", "아이폰 16 배터리", "40,000원", catalog.STATUS_AVAILABLE)},
	}}}
	service := newTestService(t, source)
	ctx := context.Background()

	for range 2 {
		parts, err := service.Parts(ctx, "iPhone 16")
		require.NoError(t, err)
		require.Equal(t, []string{classify.PART_BATTERY}, parts)
	}
	require.Equal(t, 2, source.productsCalls)
}
