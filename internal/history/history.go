// Package history finds the price and availability changes between consecutive
// snapshots.
package history

import (
	"fmt"
	"strings"
	"time"

	"partwatch/internal/catalog"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	LOOKBACK   = 50
	MAX_GROUPS = 7
)

type Kind int

const (
	// KIND_PRICE_DELTA is a change between two parseable prices.
	KIND_PRICE_DELTA Kind = iota
	// KIND_PRICE_CHANGED is a change where at least one side is not a number.
	KIND_PRICE_CHANGED
	KIND_STATUS
)

func (k Kind) String() string {
	switch k {
	case KIND_PRICE_DELTA:
		return "price_delta"
	case KIND_PRICE_CHANGED:
		return "price_changed"
	case KIND_STATUS:
		return "status"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type Change struct {
	Name       string
	Kind       Kind
	PrevPrice  string
	CurrPrice  string
	PrevStatus catalog.Status
	CurrStatus catalog.Status
	// Delta is the signed difference of the prices, only set for KIND_PRICE_DELTA.
	Delta int
}

// DayChanges is every change between the snapshot at Date and the one before it.
type DayChanges struct {
	Date     time.Time
	PrevDate time.Time
	Changes  []Change
}

// Lookup returns the products of a snapshot in capture order.
type Lookup func(key time.Time) ([]catalog.Product, error)

type indexed struct {
	products []catalog.Product
	byName   map[string][]catalog.Product
}

// Compare lists the changes of every current record against the first previous record
// with the same name. Records are walked in capture order.
func Compare(curr []catalog.Product, prev map[string][]catalog.Product) []Change {
	var changes []Change
	for _, c := range curr {
		matches := prev[c.Name]
		if len(matches) == 0 {
			continue
		}
		p := matches[0]

		currPrice, currOk := catalog.ParsePrice(c.PriceRaw)
		prevPrice, prevOk := catalog.ParsePrice(p.PriceRaw)
		switch {
		case currOk && prevOk:
			if delta := currPrice - prevPrice; delta != 0 {
				changes = append(changes, Change{
					Name:      c.Name,
					Kind:      KIND_PRICE_DELTA,
					PrevPrice: p.PriceRaw,
					CurrPrice: c.PriceRaw,
					Delta:     delta,
				})
			}
		case c.PriceRaw != p.PriceRaw:
			changes = append(changes, Change{
				Name:      c.Name,
				Kind:      KIND_PRICE_CHANGED,
				PrevPrice: p.PriceRaw,
				CurrPrice: c.PriceRaw,
			})
		}

		if c.Status != p.Status {
			changes = append(changes, Change{
				Name:       c.Name,
				Kind:       KIND_STATUS,
				PrevStatus: p.Status,
				CurrStatus: c.Status,
			})
		}
	}
	return changes
}

// Diff walks consecutive pairs of the newest LOOKBACK keys (keys must be sorted newest
// first) and returns at most MAX_GROUPS pairs that had any change.
func Diff(keys []time.Time, lookup Lookup) ([]DayChanges, error) {
	if len(keys) > LOOKBACK {
		keys = keys[:LOOKBACK]
	}

	cache := map[time.Time]indexed{}
	load := func(key time.Time) (indexed, error) {
		if snapshot, ok := cache[key]; ok {
			return snapshot, nil
		}
		products, err := lookup(key)
		if err != nil {
			return indexed{}, fmt.Errorf("load snapshot %s: %w", key.Format(catalog.CAPTURED_AT_LAYOUT), err)
		}
		snapshot := indexed{products: products, byName: catalog.ByName(products)}
		cache[key] = snapshot
		return snapshot, nil
	}

	var groups []DayChanges
	for i := 0; i+1 < len(keys) && len(groups) < MAX_GROUPS; i++ {
		curr, err := load(keys[i])
		if err != nil {
			return nil, err
		}
		prev, err := load(keys[i+1])
		if err != nil {
			return nil, err
		}
		// the previous snapshot is only needed for the next pair as current
		delete(cache, keys[i])

		changes := Compare(curr.products, prev.byName)
		if len(changes) == 0 {
			continue
		}
		groups = append(groups, DayChanges{
			Date:     keys[i],
			PrevDate: keys[i+1],
			Changes:  changes,
		})
	}
	return groups, nil
}

var printer = message.NewPrinter(language.Korean)

// Format renders a change as a single line.
func Format(c Change) string {
	switch c.Kind {
	case KIND_PRICE_DELTA:
		icon := "🔺"
		if c.Delta < 0 {
			icon = "🔻"
		}
		return printer.Sprintf("%s %s: %s → %s (%d원)", icon, c.Name, c.PrevPrice, c.CurrPrice, c.Delta)
	case KIND_PRICE_CHANGED:
		return fmt.Sprintf("🔄 %s: %s → %s", c.Name, c.PrevPrice, c.CurrPrice)
	case KIND_STATUS:
		return fmt.Sprintf("📦 %s: %s → %s", c.Name, c.PrevStatus, c.CurrStatus)
	}
	return c.Name
}

// FormatDay renders a group as a heading followed by one line per change.
func FormatDay(day DayChanges) string {
	var b strings.Builder
	fmt.Fprintf(
		&b, "%s (vs %s)\n",
		day.Date.Format(catalog.CAPTURED_AT_LAYOUT),
		day.PrevDate.Format(catalog.CAPTURED_AT_LAYOUT),
	)
	for _, c := range day.Changes {
		b.WriteString(Format(c))
		b.WriteString("\n")
	}
	return b.String()
}
