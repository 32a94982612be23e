// Package catalog holds the records observed on the catalog site and the helpers
// every other package uses to read them.
package catalog

import (
	"strings"
	"time"
)

// Status is the availability of a listing, it only ever takes one of two values.
type Status string

const (
	STATUS_AVAILABLE Status = "판매중"
	STATUS_SOLD_OUT  Status = "품절"
)

// PRICE_UNKNOWN is stored as the raw price when no price line could be found.
const PRICE_UNKNOWN = "Unknown"

// CAPTURED_AT_LAYOUT is the layout snapshot keys are persisted with.
const CAPTURED_AT_LAYOUT = "2006-01-02 15:04:05"

// ACCESSORY_PREFIX marks the accessory family of category labels.
const ACCESSORY_PREFIX = "Acc_"

// Category is a listing on the catalog site, Name is what records are labelled with.
type Category struct {
	Name string `json:"name"`
	Id   string `json:"id"`
}

// DefaultCategories are the listings crawled when the config does not name any.
var DefaultCategories = []Category{
	{Name: "iPhone", Id: "24"},
}

// IsAccessory reports whether a category label belongs to the accessory family.
func IsAccessory(category string) bool {
	return strings.HasPrefix(category, ACCESSORY_PREFIX) || strings.Contains(category, "악세")
}

// Product is one observed listing at one point in time.
type Product struct {
	CapturedAt time.Time `json:"captured_at"`
	Category   string    `json:"category"`
	Name       string    `json:"name"`
	PriceRaw   string    `json:"price_raw"`
	Status     Status    `json:"status"`
	Url        string    `json:"url"`
	ImageUrl   string    `json:"image_url"`
}

// Snapshot is every product captured by one crawl run, duplicates included.
type Snapshot struct {
	CapturedAt time.Time
	RunId      string
	Products   []Product
}

// ByName indexes products by name, keeping every duplicate in capture order.
func ByName(products []Product) map[string][]Product {
	out := make(map[string][]Product, len(products))
	for _, p := range products {
		out[p.Name] = append(out[p.Name], p)
	}
	return out
}
