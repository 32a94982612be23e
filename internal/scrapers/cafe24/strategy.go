package cafe24

import (
	"github.com/PuerkitoBio/goquery"
)

// Strategy is one way of locating something in a page, strategies are grouped into
// chains that are tried in order until one of them matches.
type Strategy struct {
	Name string
	Find func(root *goquery.Selection) *goquery.Selection
}

// Selector is a Strategy that matches a plain css selector.
func Selector(selector string) Strategy {
	return Strategy{
		Name: selector,
		Find: func(root *goquery.Selection) *goquery.Selection {
			return root.Find(selector)
		},
	}
}

// EnclosingForm is a Strategy that matches the form that encloses the first element
// matched by selector.
func EnclosingForm(selector string) Strategy {
	return Strategy{
		Name: "form > " + selector,
		Find: func(root *goquery.Selection) *goquery.Selection {
			return root.Find(selector).First().Closest("form")
		},
	}
}

// Chain is an ordered list of strategies.
type Chain []Strategy

// First returns the result of the first strategy that matched anything along with its
// name. When none match the returned selection is empty and the name is "".
func (c Chain) First(root *goquery.Selection) (*goquery.Selection, string) {
	for _, s := range c {
		sel := s.Find(root)
		if sel.Length() > 0 {
			return sel, s.Name
		}
	}
	return root.Slice(0, 0), ""
}

var (
	loginFormChain = Chain{
		Selector("form#member_form_0"),
		EnclosingForm("input[name=member_id]"),
	}
	itemChain = Chain{
		Selector("ul.prdList > li"),
		Selector(".xans-product-listnormal > li"),
		Selector("li.xans-record-"),
	}
	nameChain = Chain{
		Selector(".name a"),
		Selector(".pname"),
	}
)
