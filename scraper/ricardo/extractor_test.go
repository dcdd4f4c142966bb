package ricardo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ricardo-scout/models"
)

type stubDetails struct {
	detail *Detail
	err    error
	calls  int
}

func (s *stubDetails) Lookup(_ context.Context, _ string) (*Detail, error) {
	s.calls++
	return s.detail, s.err
}

func itemHandle(item map[string]any) Handle {
	cfg := testConfig()
	return Handle{
		AdURL: absURL(cfg.BaseURL, pickString(item, urlKeys...)),
		Item:  item,
	}
}

func TestExtractDropsListingWithoutAdURL(t *testing.T) {
	ext := NewExtractor(testConfig(), testLogger(), nil)

	raw := ext.Extract(context.Background(), Handle{Item: map[string]any{
		"title":     "Alte Uhr",
		"hasBuyNow": true,
	}})

	assert.Nil(t, raw)
}

func TestExtractFromItemFixedPrice(t *testing.T) {
	ext := NewExtractor(testConfig(), testLogger(), nil)

	raw := ext.Extract(context.Background(), itemHandle(map[string]any{
		"title":       "Vintage Uhr",
		"url":         "/de/a/vintage-uhr-1234567/",
		"buyNowPrice": float64(120),
		"hasBuyNow":   true,
		"bidsCount":   float64(0),
		"sellerName":  "Anna Keller",
		"sellerType":  "private",
		"image":       map[string]any{"url": "https://img.ricardostatic.ch/x.jpg"},
	}))

	require.NotNil(t, raw)
	assert.Equal(t, "https://www.ricardo.ch/de/a/vintage-uhr-1234567/", raw.AdURL)
	assert.Equal(t, "Vintage Uhr", raw.Title)
	assert.Equal(t, models.PriceModeFixed, raw.PriceMode)
	assert.Equal(t, "CHF 120", raw.PriceText)
	assert.Equal(t, "Anna Keller", raw.SellerName)
	assert.Equal(t, models.SellerPrivate, raw.SellerTypeHint)
	assert.Equal(t, "https://img.ricardostatic.ch/x.jpg", raw.PhotoURL)
}

func TestExtractFromItemPriceModes(t *testing.T) {
	cases := []struct {
		name string
		item map[string]any
		want models.PriceMode
	}{
		{"bids present", map[string]any{"bidsCount": float64(3)}, models.PriceModeAuction},
		{"buy now flag", map[string]any{"hasBuyNow": true}, models.PriceModeFixed},
		{"buy now explicitly off", map[string]any{"hasBuyNow": false}, models.PriceModeAuction},
		{"auction flag only", map[string]any{"hasAuction": true}, models.PriceModeAuction},
		{"price with zero bids", map[string]any{"buyNowPrice": float64(50), "bidsCount": float64(0)}, models.PriceModeFixed},
		{"bare price", map[string]any{"price": float64(50)}, models.PriceModeUnknown},
		{"no signals", map[string]any{}, models.PriceModeUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, priceModeFromItem(tc.item))
		})
	}
}

func TestExtractFromCard(t *testing.T) {
	html := `<article>
		<a href="/de/a/vintage-uhr-1234567/"><h3>Vintage Uhr</h3></a>
		<img src="/images/x.jpg">
		<span>Sofort kaufen</span>
		<span>CHF 120.–</span>
		<span>Privatverkäufer</span>
	</article>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	ext := NewExtractor(testConfig(), testLogger(), nil)
	raw := ext.Extract(context.Background(), Handle{
		AdURL: "https://www.ricardo.ch/de/a/vintage-uhr-1234567/",
		Card:  doc.Find("article").First(),
	})

	require.NotNil(t, raw)
	assert.Equal(t, "Vintage Uhr", raw.Title)
	assert.Equal(t, models.PriceModeFixed, raw.PriceMode)
	assert.Contains(t, raw.PriceText, "CHF 120")
	assert.Equal(t, models.SellerPrivate, raw.SellerTypeHint)
	assert.Equal(t, "https://www.ricardo.ch/images/x.jpg", raw.PhotoURL)
}

func TestExtractFromCardAuctionAndShop(t *testing.T) {
	html := `<article>
		<a href="/de/a/alte-lampe-7654321/">Alte Lampe</a>
		<span>5 Gebote</span>
		<a href="/de/shop/lampen-paradies/">Lampen Paradies</a>
	</article>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	ext := NewExtractor(testConfig(), testLogger(), nil)
	raw := ext.Extract(context.Background(), Handle{
		AdURL: "https://www.ricardo.ch/de/a/alte-lampe-7654321/",
		Card:  doc.Find("article").First(),
	})

	require.NotNil(t, raw)
	assert.Equal(t, models.PriceModeAuction, raw.PriceMode)
	assert.Equal(t, models.SellerProfessional, raw.SellerTypeHint)
}

func TestExtractFallsBackToDetailPage(t *testing.T) {
	details := &stubDetails{detail: &Detail{
		SellerName: "Anna Keller",
		SellerType: models.SellerPrivate,
		PriceMode:  models.PriceModeFixed,
		PriceText:  "CHF 80",
	}}
	ext := NewExtractor(testConfig(), testLogger(), details)

	raw := ext.Extract(context.Background(), itemHandle(map[string]any{
		"title": "Vintage Uhr",
		"url":   "/de/a/vintage-uhr-1234567/",
		"price": float64(80),
	}))

	require.NotNil(t, raw)
	assert.Equal(t, 1, details.calls)
	assert.Equal(t, "Anna Keller", raw.SellerName)
	assert.Equal(t, models.PriceModeFixed, raw.PriceMode)
	assert.Equal(t, models.SellerPrivate, raw.SellerTypeHint)
}

func TestExtractSkipsDetailWhenCardIsComplete(t *testing.T) {
	details := &stubDetails{detail: &Detail{SellerName: "Someone Else"}}
	ext := NewExtractor(testConfig(), testLogger(), details)

	raw := ext.Extract(context.Background(), itemHandle(map[string]any{
		"title":      "Vintage Uhr",
		"url":        "/de/a/vintage-uhr-1234567/",
		"hasBuyNow":  true,
		"sellerName": "Anna Keller",
	}))

	require.NotNil(t, raw)
	assert.Equal(t, 0, details.calls)
	assert.Equal(t, "Anna Keller", raw.SellerName)
}

func TestExtractKeepsUnknownsWhenDetailFails(t *testing.T) {
	details := &stubDetails{err: errors.New("boom")}
	ext := NewExtractor(testConfig(), testLogger(), details)

	raw := ext.Extract(context.Background(), itemHandle(map[string]any{
		"title": "Vintage Uhr",
		"url":   "/de/a/vintage-uhr-1234567/",
		"price": float64(80),
	}))

	require.NotNil(t, raw, "a failed detail lookup is an extraction gap, not a drop")
	assert.Equal(t, models.PriceModeUnknown, raw.PriceMode)
	assert.Empty(t, raw.SellerName)
}

func TestParseDetailPage(t *testing.T) {
	html := `<html><head>
		<script type="application/ld+json">{
			"@context": "https://schema.org",
			"@type": "Product",
			"name": "Vintage Uhr",
			"image": "https://img.ricardostatic.ch/x.jpg",
			"offers": {
				"@type": "Offer",
				"price": "120",
				"priceCurrency": "CHF",
				"seller": {"@type": "Person", "name": "Anna Keller"}
			}
		}</script>
		<script id="__NEXT_DATA__" type="application/json">{
			"props": {"listing": {"sellerType": "private", "hasBuyNow": true, "bidsCount": 0}}
		}</script>
	</head><body></body></html>`

	d, err := parseDetailPage([]byte(html), "https://www.ricardo.ch")
	require.NoError(t, err)

	assert.Equal(t, "Vintage Uhr", d.Title)
	assert.Equal(t, "Anna Keller", d.SellerName)
	assert.Equal(t, "CHF 120", d.PriceText)
	assert.Equal(t, models.SellerPrivate, d.SellerType)
	assert.Equal(t, models.PriceModeFixed, d.PriceMode)
	assert.Equal(t, "https://img.ricardostatic.ch/x.jpg", d.PhotoURL)
}

func TestParseDetailPageSellerNicknameFallback(t *testing.T) {
	html := `<html><body><script>window.__STATE__ = {"sellerNickname":"Anna Keller"};</script></body></html>`

	d, err := parseDetailPage([]byte(html), "https://www.ricardo.ch")
	require.NoError(t, err)

	assert.Equal(t, "Anna Keller", d.SellerName)
	assert.Equal(t, models.PriceModeUnknown, d.PriceMode)
}
