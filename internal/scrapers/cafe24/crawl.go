package cafe24

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"partwatch/internal/catalog"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_client_crawl = "client.crawl"
)

const (
	MAX_PAGES      = 30
	PAGE_DELAY     = 500 * time.Millisecond
	CATEGORY_DELAY = time.Second
)

// Fragment is the markup of a single listing item on a catalog page.
type Fragment struct {
	Page int
	Sel  *goquery.Selection
}

// CrawlResult is everything collected from one category.
type CrawlResult struct {
	Items     []Fragment
	Pages     int
	Truncated bool
}

func listUrl(category catalog.Category, page int) string {
	query := url.Values{}
	query.Set("cate_no", category.Id)
	query.Set("page", strconv.Itoa(page))
	return LIST_PATH + "?" + query.Encode()
}

// Pages walks the pages of a category in order, calling yield with the items of every
// non-empty page. It stops at the first empty page, when yield returns false or after
// MAX_PAGES pages, in which case truncated is true.
func (c *Client) Pages(
	ctx context.Context,
	category catalog.Category,
	yield func(page int, frags []Fragment) bool,
) (truncated bool, err error) {
	for pageNum := 1; pageNum <= MAX_PAGES; pageNum++ {
		if pageNum > 1 {
			err = c.time.Sleep(ctx, PAGE_DELAY)
			if err != nil {
				return false, &NetworkError{Category: category.Name, Page: pageNum, Cause: err}
			}
		}

		c.tel.ReportDebug("fetch catalog page", category.Name, pageNum)
		listPage, err := c.get(ctx, listUrl(category, pageNum))
		if err != nil {
			err = &NetworkError{Category: category.Name, Page: pageNum, Cause: err}
			c.tel.ReportBroken(report_client_fetch_page, err)
			return false, err
		}

		items, strategy := itemChain.First(listPage.doc.Selection)
		if items.Length() == 0 {
			c.tel.ReportDebug("empty catalog page", category.Name, pageNum)
			return false, nil
		}
		c.tel.ReportDebug("found items", category.Name, pageNum, strategy, items.Length())

		frags := make([]Fragment, 0, items.Length())
		items.Each(func(_ int, item *goquery.Selection) {
			frags = append(frags, Fragment{Page: pageNum, Sel: item})
		})
		if !yield(pageNum, frags) {
			return false, nil
		}
	}

	c.tel.ReportWarning(
		report_client_crawl,
		fmt.Errorf("crawl truncated after %d pages", MAX_PAGES),
		category.Name,
	)
	return true, nil
}

// Crawl collects every item of a category. On a NetworkError the items of the pages
// before the failing one are returned alongside the error.
func (c *Client) Crawl(ctx context.Context, category catalog.Category) (CrawlResult, error) {
	var result CrawlResult
	truncated, err := c.Pages(ctx, category, func(page int, frags []Fragment) bool {
		result.Items = append(result.Items, frags...)
		result.Pages = page
		return true
	})
	result.Truncated = truncated
	return result, err
}

// PauseCategory waits out the delay that separates the crawls of two categories.
func (c *Client) PauseCategory(ctx context.Context) error {
	return c.time.Sleep(ctx, CATEGORY_DELAY)
}
