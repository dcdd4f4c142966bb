package ricardo

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The marketplace is a Next.js app: search and listing pages embed
// their data in a script#__NEXT_DATA__ payload. Field names in that
// payload drift between deployments, so everything here works off
// candidate key lists instead of a fixed schema.

var (
	titleKeys      = []string{"title", "name"}
	urlKeys        = []string{"url", "href", "link", "seoUrl"}
	imageKeys      = []string{"image", "img", "imageUrl", "image_url", "thumbnail"}
	priceKeys      = []string{"buy_now_price", "buyNowPrice", "price", "buyNow"}
	buyNowFlagKeys = []string{"has_buy_now", "hasBuyNow"}
	auctionKeys    = []string{"has_auction", "hasAuction"}
	bidKeys        = []string{"bids_count", "bidsCount"}
	sellerNameKeys = []string{"sellerName", "seller_name", "sellerNickname", "username", "userName", "displayName", "nick"}
	sellerTypeKeys = []string{"sellerType", "seller_type", "sellerKind"}
	hasNextKeys    = []string{"hasNextPage", "has_next_page", "hasMore"}
	nextOffsetKeys = []string{"nextPageOffset", "next_page_offset", "nextOffset"}
)

func extractNextData(doc *goquery.Document) map[string]any {
	payload := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text())
	if payload == "" {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil
	}
	return data
}

// walkJSON visits every object nested anywhere inside v, depth first.
func walkJSON(v any, visit func(map[string]any)) {
	switch t := v.(type) {
	case map[string]any:
		visit(t)
		for _, child := range t {
			walkJSON(child, visit)
		}
	case []any:
		for _, child := range t {
			walkJSON(child, visit)
		}
	}
}

// guessItemDicts collects the objects that look like listing cards:
// a plausible title plus at least one pricing-mode key and one
// URL-or-image key.
func guessItemDicts(data map[string]any) []map[string]any {
	var items []map[string]any
	walkJSON(data, func(d map[string]any) {
		title, ok := pick(d, titleKeys...).(string)
		if !ok || len(title) < 3 {
			return
		}
		if !hasAnyKey(d, buyNowFlagKeys, priceKeys, bidKeys) {
			return
		}
		if !hasAnyKey(d, urlKeys, imageKeys) {
			return
		}
		items = append(items, d)
	})
	return items
}

func hasAnyKey(d map[string]any, keyLists ...[]string) bool {
	for _, keys := range keyLists {
		for _, k := range keys {
			if v, ok := d[k]; ok && v != nil {
				return true
			}
		}
	}
	return false
}

func pick(d map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := d[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// pickString unwraps one level of {"url": ...} / {"src": ...} style
// nesting, which the payload uses for links and images.
func pickString(d map[string]any, keys ...string) string {
	v := pick(d, keys...)
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if s, ok := pick(t, "url", "href", "src").(string); ok {
			return s
		}
	}
	return ""
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	case float64:
		return t != 0, true
	}
	return false, false
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	}
	return 0, false
}

func absURL(base, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		b, err := url.Parse(base)
		if err != nil {
			return ""
		}
		return b.Scheme + "://" + b.Host + href
	}
	return ""
}
