package cafe24

import (
	"net/url"
	"strings"
	"time"
	"unicode"

	"partwatch/internal/catalog"
	"partwatch/pkg/htmlutil"
)

const namePrefix = "상품명 :"

// Extract turns a listing fragment into a product. It returns false when the fragment
// has no name, every other missing field falls back to a default.
func Extract(
	origin *url.URL,
	frag Fragment,
	category string,
	capturedAt time.Time,
) (catalog.Product, bool) {
	nameSel, _ := nameChain.First(frag.Sel)
	if nameSel.Length() == 0 {
		return catalog.Product{}, false
	}
	nameSel = nameSel.First()

	name := strings.TrimSpace(nameSel.Text())
	name = strings.TrimSpace(strings.TrimPrefix(name, namePrefix))
	if name == "" {
		return catalog.Product{}, false
	}

	// only the first description block carries the price
	price := catalog.PRICE_UNKNOWN
	if desc := frag.Sel.Find(".description").First(); desc.Length() > 0 {
		if line, ok := findPriceLine(htmlutil.GetTextLines(desc.Nodes[0])); ok {
			price = line
		}
	}

	status := catalog.STATUS_AVAILABLE
	if frag.Sel.Find("img[alt='품절']").Length() > 0 {
		status = catalog.STATUS_SOLD_OUT
	}

	imageUrl := ""
	if src, ok := frag.Sel.Find(".thumbnail img").Attr("src"); ok {
		imageUrl = htmlutil.ResolveUrl(origin, strings.TrimSpace(src))
	}

	productUrl := ""
	if href, ok := nameSel.Attr("href"); ok && href != "" {
		productUrl = origin.Scheme + "://" + origin.Host + href
	}

	return catalog.Product{
		CapturedAt: capturedAt,
		Category:   category,
		Name:       name,
		PriceRaw:   price,
		Status:     status,
		Url:        productUrl,
		ImageUrl:   imageUrl,
	}, true
}

func findPriceLine(lines []string) (string, bool) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasSuffix(line, "원") {
			continue
		}
		if strings.IndexFunc(line, unicode.IsDigit) >= 0 {
			return line, true
		}
	}
	return "", false
}
