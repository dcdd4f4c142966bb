package ricardo

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"ricardo-scout/config"
	"ricardo-scout/models"
)

// Detail holds the fields the listing detail page can supply when the
// search-result card leaves gaps.
type Detail struct {
	Title      string
	PriceText  string
	PriceMode  models.PriceMode
	SellerName string
	SellerType models.SellerType
	PhotoURL   string
}

// DetailLookup opens a listing's detail page. Nil lookups disable the
// fallback; tests substitute a stub.
type DetailLookup interface {
	Lookup(ctx context.Context, adURL string) (*Detail, error)
}

// Label and marker tables are policy, not algorithm: the site's
// private/professional and fixed/auction signals change with redesigns
// and should be re-tuned here against the live markup.
var (
	fixedPriceLabels = []string{"Sofort kaufen", "Sofort-Kaufen", "Festpreis", "Buy now"}
	auctionLabels    = []string{"Gebote", "Gebot", "Aktuelles Gebot", "Auktion"}
	privateBadges    = []string{"Privatverkäufer", "Privat"}
	shopLinkMarkers  = []string{"/shop/", "/shops/"}

	privateTypeWords      = []string{"private", "privat", "individual"}
	professionalTypeWords = []string{"professional", "commercial", "business", "shop", "haendler", "händler"}
)

// moneyRe matches displayed Swiss prices like "CHF 120.–" or "Fr. 45.50".
var moneyRe = regexp.MustCompile(`(?:CHF|Fr\.)\s*[0-9][0-9'.,]*(?:[.,]-|\.–|–)?`)

type Extractor struct {
	cfg     *config.Config
	log     *slog.Logger
	details DetailLookup
}

func NewExtractor(cfg *config.Config, log *slog.Logger, details DetailLookup) *Extractor {
	return &Extractor{cfg: cfg, log: log, details: details}
}

// Extract turns a handle into a RawListing. A missing ad URL is the
// only hard failure and returns nil; every other gap degrades to an
// UNKNOWN sentinel the classifier knows how to judge.
func (e *Extractor) Extract(ctx context.Context, h Handle) *models.RawListing {
	var raw models.RawListing
	switch {
	case h.Item != nil:
		raw = e.fromItem(h)
	case h.Card != nil:
		raw = e.fromCard(h)
	default:
		raw = models.RawListing{
			AdURL:          h.AdURL,
			PriceMode:      models.PriceModeUnknown,
			SellerTypeHint: models.SellerUnknown,
		}
	}

	if raw.AdURL == "" {
		e.log.Debug("listing dropped: no ad url", "title", raw.Title)
		return nil
	}

	if e.details != nil && (raw.SellerName == "" || raw.PriceMode == models.PriceModeUnknown) {
		e.mergeDetail(ctx, &raw)
	}

	return &raw
}

func (e *Extractor) fromItem(h Handle) models.RawListing {
	item := h.Item

	raw := models.RawListing{
		AdURL:          h.AdURL,
		Title:          strings.TrimSpace(pickString(item, titleKeys...)),
		PhotoURL:       absOrKeep(e.cfg.BaseURL, pickString(item, imageKeys...)),
		PriceText:      priceTextFromItem(item),
		PriceMode:      priceModeFromItem(item),
		SellerName:     sellerNameFromItem(item),
		SellerTypeHint: sellerTypeFromWord(pickString(item, sellerTypeKeys...)),
	}
	return raw
}

func (e *Extractor) fromCard(h Handle) models.RawListing {
	card := h.Card
	text := card.Text()

	raw := models.RawListing{
		AdURL:          h.AdURL,
		PriceText:      moneyRe.FindString(text),
		PriceMode:      priceModeFromLabels(text),
		SellerTypeHint: sellerTypeFromCardMarkup(h),
	}

	raw.Title = strings.TrimSpace(card.Find("h2, h3, [class*=title]").First().Text())
	if raw.Title == "" {
		raw.Title = strings.TrimSpace(card.Find(`a[href]`).First().Text())
	}
	if src, ok := card.Find("img").First().Attr("src"); ok {
		raw.PhotoURL = absOrKeep(e.cfg.BaseURL, src)
	}
	return raw
}

func (e *Extractor) mergeDetail(ctx context.Context, raw *models.RawListing) {
	d, err := e.details.Lookup(ctx, raw.AdURL)
	if err != nil {
		e.log.Warn("detail page lookup failed, keeping card fields", "ad_url", raw.AdURL, "error", err)
		return
	}
	if d == nil {
		return
	}

	if raw.SellerName == "" {
		raw.SellerName = d.SellerName
	}
	if raw.PriceMode == models.PriceModeUnknown && d.PriceMode != "" {
		raw.PriceMode = d.PriceMode
	}
	if raw.SellerTypeHint == models.SellerUnknown && d.SellerType != "" {
		raw.SellerTypeHint = d.SellerType
	}
	if raw.Title == "" {
		raw.Title = d.Title
	}
	if raw.PriceText == "" {
		raw.PriceText = d.PriceText
	}
	if raw.PhotoURL == "" {
		raw.PhotoURL = d.PhotoURL
	}
}

// priceModeFromItem applies the rule table to the payload fields:
// any bids mean an auction; an explicit buy-now flag or buy-now price
// with zero bids means fixed price; anything else stays unknown.
func priceModeFromItem(item map[string]any) models.PriceMode {
	bids, hasBids := toInt(pick(item, bidKeys...))
	if hasBids && bids > 0 {
		return models.PriceModeAuction
	}

	if buyNow, ok := toBool(pick(item, buyNowFlagKeys...)); ok {
		if buyNow {
			return models.PriceModeFixed
		}
		return models.PriceModeAuction
	}

	if auction, ok := toBool(pick(item, auctionKeys...)); ok && auction {
		return models.PriceModeAuction
	}

	// A bare buy-now price key with a known-zero bid count still
	// signals fixed price.
	if hasBids && pick(item, "buy_now_price", "buyNowPrice") != nil {
		return models.PriceModeFixed
	}

	return models.PriceModeUnknown
}

func priceModeFromLabels(text string) models.PriceMode {
	for _, label := range auctionLabels {
		if strings.Contains(text, label) {
			return models.PriceModeAuction
		}
	}
	for _, label := range fixedPriceLabels {
		if strings.Contains(text, label) {
			return models.PriceModeFixed
		}
	}
	return models.PriceModeUnknown
}

func sellerNameFromItem(item map[string]any) string {
	name := strings.TrimSpace(pickString(item, sellerNameKeys...))
	if len(name) < 2 || len(name) > 80 {
		return ""
	}
	return name
}

func sellerTypeFromWord(word string) models.SellerType {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return models.SellerUnknown
	}
	for _, w := range privateTypeWords {
		if strings.Contains(word, w) {
			return models.SellerPrivate
		}
	}
	for _, w := range professionalTypeWords {
		if strings.Contains(word, w) {
			return models.SellerProfessional
		}
	}
	return models.SellerUnknown
}

func sellerTypeFromCardMarkup(h Handle) models.SellerType {
	card := h.Card

	for _, marker := range shopLinkMarkers {
		if card.Find(fmt.Sprintf(`a[href*="%s"]`, marker)).Length() > 0 {
			return models.SellerProfessional
		}
	}

	text := card.Text()
	for _, badge := range privateBadges {
		if strings.Contains(text, badge) {
			return models.SellerPrivate
		}
	}
	return models.SellerUnknown
}

func priceTextFromItem(item map[string]any) string {
	switch v := pick(item, priceKeys...).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return "CHF " + trimFloat(v)
	}
	return ""
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func absOrKeep(base, href string) string {
	if abs := absURL(base, href); abs != "" {
		return abs
	}
	return href
}
