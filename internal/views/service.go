// Package views derives everything the dashboard shows from the stored snapshots.
package views

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"partwatch/internal/catalog"
	"partwatch/internal/classify"
	"partwatch/internal/components/assert"
	"partwatch/internal/components/telemetry"
	"partwatch/internal/history"

	"github.com/antzucaro/matchr"
)

const (
	report_cache    = "cache"
	report_snapshot = "snapshot"
)

// Source is the read side of the snapshot store.
type Source interface {
	// LatestKey returns the key and run id of the newest snapshot, false when nothing
	// is stored.
	LatestKey(ctx context.Context) (time.Time, string, bool, error)
	SnapshotKeys(ctx context.Context) ([]time.Time, error)
	Products(ctx context.Context, key time.Time) ([]catalog.Product, error)
}

// ErrNoSnapshot means nothing has been crawled yet.
var ErrNoSnapshot = errors.New("views: no snapshot stored yet")

// Entry is a classified listing that is shown in views, excluded listings never
// become entries.
type Entry struct {
	Product catalog.Product `json:"product"`
	Model   string          `json:"model"`
	Part    string          `json:"part"`
}

type ModelEntry struct {
	Model string `json:"model"`
	Label string `json:"label"`
}

type SeriesGroup struct {
	Name   string       `json:"name"`
	Models []ModelEntry `json:"models"`
}

// Catalog is the navigation tree of the newest snapshot.
type Catalog struct {
	CapturedAt time.Time     `json:"captured_at"`
	RunId      string        `json:"run_id"`
	Series     []SeriesGroup `json:"series"`
}

// Listing is a single priced row of a model and part.
type Listing struct {
	Name     string         `json:"name"`
	PriceRaw string         `json:"price_raw"`
	Price    int            `json:"price"`
	Vat      int            `json:"vat"`
	Total    int            `json:"total"`
	Status   catalog.Status `json:"status"`
	Url      string         `json:"url"`
	ImageUrl string         `json:"image_url"`
}

type SearchHit struct {
	Entry Entry   `json:"entry"`
	Score float64 `json:"score"`
}

type Service struct {
	source Source
	cache  *Cache
	tel    telemetry.API
}

func NewService(source Source, cache *Cache, tel telemetry.API) Service {
	assert.NotNil(source)
	assert.NotNil(cache)
	assert.NotNil(tel)

	return Service{
		source: source,
		cache:  cache,
		tel:    telemetry.NewScopedAPI("views", tel),
	}
}

// Invalidate drops cached entries after a new snapshot was stored.
func (s Service) Invalidate() {
	err := s.cache.Invalidate()
	if err != nil {
		s.tel.ReportBroken(report_cache, err, "Invalidate")
	}
}

// shown reports whether a category is part of the dashboard.
func shown(category string) bool {
	return category == "iPhone" || strings.HasPrefix(category, catalog.ACCESSORY_PREFIX)
}

func classifyAll(products []catalog.Product) []Entry {
	entries := make([]Entry, 0, len(products))
	for _, p := range products {
		c := classify.ClassifyProduct(p)
		if c.Excluded() {
			continue
		}
		entries = append(entries, Entry{Product: p, Model: c.Model, Part: *c.Part})
	}
	return entries
}

// cached returns the entries of a run when every shown category of it is cached.
func (s Service) cached(ctx context.Context, runId string) ([]Entry, bool) {
	categories, err := s.cache.categories(ctx, runId)
	if err != nil {
		if !errors.Is(err, errEntryNotFound) {
			s.tel.ReportWarning(report_cache, err, runId)
		}
		return nil, false
	}

	var out []Entry
	for _, category := range categories {
		entries, err := s.cache.get(ctx, category, runId)
		if err != nil {
			if !errors.Is(err, errEntryNotFound) {
				s.tel.ReportWarning(report_cache, err, category, runId)
			}
			return nil, false
		}
		out = append(out, entries...)
	}
	return out, true
}

// load reads the rows of a snapshot, classifies them and caches the result per category.
func (s Service) load(ctx context.Context, key time.Time, runId string) ([]Entry, error) {
	products, err := s.source.Products(ctx, key)
	if err != nil {
		s.tel.ReportBroken(report_snapshot, err, "Products")
		return nil, err
	}

	var categories []string
	byCategory := map[string][]catalog.Product{}
	for _, p := range products {
		if !shown(p.Category) {
			continue
		}
		if _, seen := byCategory[p.Category]; !seen {
			categories = append(categories, p.Category)
		}
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}

	var out []Entry
	for _, category := range categories {
		entries := classifyAll(byCategory[category])
		out = append(out, entries...)
		// snapshots written before run ids existed share the empty id
		if runId == "" {
			continue
		}
		err = s.cache.set(ctx, category, runId, entries)
		if err != nil {
			s.tel.ReportWarning(report_cache, err, category, runId)
		}
	}
	if runId != "" {
		err = s.cache.setCategories(ctx, runId, categories)
		if err != nil {
			s.tel.ReportWarning(report_cache, err, runId)
		}
	}
	return out, nil
}

// entries returns the classified entries of the newest snapshot. Only the key and run
// id are looked up when the run is cached, the returned snapshot carries no products.
func (s Service) entries(ctx context.Context) (catalog.Snapshot, []Entry, error) {
	key, runId, ok, err := s.source.LatestKey(ctx)
	if err != nil {
		s.tel.ReportBroken(report_snapshot, err, "LatestKey")
		return catalog.Snapshot{}, nil, err
	}
	if !ok {
		return catalog.Snapshot{}, nil, ErrNoSnapshot
	}
	snapshot := catalog.Snapshot{CapturedAt: key, RunId: runId}

	if runId != "" {
		if entries, hit := s.cached(ctx, runId); hit {
			return snapshot, entries, nil
		}
	}
	entries, err := s.load(ctx, key, runId)
	if err != nil {
		return catalog.Snapshot{}, nil, err
	}
	return snapshot, entries, nil
}

func (s Service) Catalog(ctx context.Context) (Catalog, error) {
	snapshot, entries, err := s.entries(ctx)
	if err != nil {
		return Catalog{}, err
	}

	modelsBySeries := map[string][]string{}
	seen := map[string]bool{}
	for _, e := range entries {
		if seen[e.Model] {
			continue
		}
		seen[e.Model] = true
		series := classify.Series(e.Model)
		modelsBySeries[series] = append(modelsBySeries[series], e.Model)
	}

	seriesNames := make([]string, 0, len(modelsBySeries))
	for name := range modelsBySeries {
		seriesNames = append(seriesNames, name)
	}
	sort.Slice(seriesNames, func(i, j int) bool {
		return classify.SeriesRank(seriesNames[i]) < classify.SeriesRank(seriesNames[j])
	})

	out := Catalog{CapturedAt: snapshot.CapturedAt, RunId: snapshot.RunId}
	for _, name := range seriesNames {
		models := modelsBySeries[name]
		sort.SliceStable(models, func(i, j int) bool {
			return classify.ModelSortKey(models[i]) < classify.ModelSortKey(models[j])
		})
		group := SeriesGroup{Name: name}
		for _, m := range models {
			group.Models = append(group.Models, ModelEntry{Model: m, Label: classify.ShortLabel(m)})
		}
		out.Series = append(out.Series, group)
	}
	return out, nil
}

// Parts lists the part types available for a model.
func (s Service) Parts(ctx context.Context, model string) ([]string, error) {
	_, entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}

	var parts []string
	seen := map[string]bool{}
	for _, e := range entries {
		if e.Model != model || seen[e.Part] {
			continue
		}
		seen[e.Part] = true
		parts = append(parts, e.Part)
	}
	sort.SliceStable(parts, func(i, j int) bool {
		return classify.PartSortKey(parts[i]) < classify.PartSortKey(parts[j])
	})
	return parts, nil
}

// Listings returns the priced rows of a model and part, most expensive first, without
// duplicate (name, price) pairs.
func (s Service) Listings(ctx context.Context, model, part string) ([]Listing, error) {
	_, entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	return listings(entries, model, part), nil
}

func listings(entries []Entry, model, part string) []Listing {
	var out []Listing
	for _, e := range entries {
		if e.Model != model || e.Part != part {
			continue
		}
		raw := e.Product.PriceRaw
		if raw == catalog.PRICE_UNKNOWN || raw == "" {
			continue
		}
		price, _ := catalog.ParsePrice(raw)
		listing := Listing{
			Name:     e.Product.Name,
			PriceRaw: raw,
			Price:    price,
			Status:   e.Product.Status,
			Url:      e.Product.Url,
			ImageUrl: e.Product.ImageUrl,
		}
		if price > 0 {
			listing.Vat = catalog.VAT(price)
			listing.Total = price + listing.Vat
		}
		out = append(out, listing)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Price > out[j].Price
	})

	type key struct{ name, price string }
	seen := map[key]bool{}
	deduped := out[:0]
	for _, l := range out {
		k := key{l.Name, l.PriceRaw}
		if seen[k] {
			continue
		}
		seen[k] = true
		deduped = append(deduped, l)
	}
	return deduped
}

// Search ranks the entries of the newest snapshot by Jaro-Winkler similarity of their
// name to query, names containing the query verbatim always rank first.
func (s Service) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	_, entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	return search(entries, query, limit), nil
}

func search(entries []Entry, query string, limit int) []SearchHit {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	hits := make([]SearchHit, 0, len(entries))
	for _, e := range entries {
		name := strings.ToLower(e.Product.Name)
		score := matchr.JaroWinkler(query, name, true)
		if strings.Contains(name, query) {
			score += 1
		}
		hits = append(hits, SearchHit{Entry: e, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// History diffs the stored snapshots, restricted to the categories of the dashboard.
func (s Service) History(ctx context.Context) ([]history.DayChanges, error) {
	keys, err := s.source.SnapshotKeys(ctx)
	if err != nil {
		s.tel.ReportBroken(report_snapshot, err, "SnapshotKeys")
		return nil, err
	}
	return history.Diff(keys, func(key time.Time) ([]catalog.Product, error) {
		products, err := s.source.Products(ctx, key)
		if err != nil {
			return nil, err
		}
		filtered := products[:0:0]
		for _, p := range products {
			if shown(p.Category) {
				filtered = append(filtered, p)
			}
		}
		return filtered, nil
	})
}
