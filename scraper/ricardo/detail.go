package ricardo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"

	"ricardo-scout/config"
	"ricardo-scout/models"
)

// DetailFetcher pulls a listing's detail page over plain HTTP. Detail
// pages render their data into JSON-LD and __NEXT_DATA__, so a full
// browser is not needed for the fallback path.
type DetailFetcher struct {
	collector *colly.Collector
	log       *slog.Logger
	baseURL   string
}

func NewDetailFetcher(cfg *config.Config, log *slog.Logger) (*DetailFetcher, error) {
	host := ""
	if u, err := url.Parse(cfg.BaseURL); err == nil {
		host = u.Host
	}

	c := colly.NewCollector(
		colly.AllowedDomains(host, strings.TrimPrefix(host, "www.")),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(cfg.PageTimeout)

	err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*" + strings.TrimPrefix(host, "www."),
		Parallelism: 1,
		RandomDelay: cfg.MaxDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("detail fetcher limit rule: %w", err)
	}

	extensions.RandomUserAgent(c)
	extensions.Referer(c)

	return &DetailFetcher{collector: c, log: log, baseURL: cfg.BaseURL}, nil
}

// Lookup fetches and parses one detail page. The clone inherits the
// parent collector's limits but gets its own handlers.
func (f *DetailFetcher) Lookup(ctx context.Context, adURL string) (*Detail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := f.collector.Clone()

	var detail *Detail
	var parseErr error

	collector.OnResponse(func(r *colly.Response) {
		detail, parseErr = parseDetailPage(r.Body, f.baseURL)
	})
	collector.OnError(func(r *colly.Response, err error) {
		parseErr = fmt.Errorf("detail request failed (status %d): %w", r.StatusCode, err)
	})

	if err := collector.Visit(adURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", adURL, err)
	}
	collector.Wait()

	if parseErr != nil {
		return nil, parseErr
	}
	return detail, nil
}

var sellerNicknameRe = regexp.MustCompile(`"sellerNickname"\s*:\s*"([^"]+)"`)

// parseDetailPage reads the fields in preference order: JSON-LD
// Product node, then the __NEXT_DATA__ payload, then a raw regex over
// the HTML. Each layer only fills what the previous one left empty.
func parseDetailPage(body []byte, baseURL string) (*Detail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("detail page is not parseable html: %w", err)
	}

	d := &Detail{
		PriceMode:  models.PriceModeUnknown,
		SellerType: models.SellerUnknown,
	}

	fillFromJSONLD(doc, d)
	fillFromNextData(doc, d, baseURL)

	if d.SellerName == "" {
		if m := sellerNicknameRe.FindSubmatch(body); m != nil {
			d.SellerName = strings.TrimSpace(string(m[1]))
		}
	}

	return d, nil
}

func fillFromJSONLD(doc *goquery.Document, d *Detail) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return true
		}
		product := findProductNode(payload)
		if product == nil {
			return true
		}

		if name, ok := product["name"].(string); ok {
			d.Title = strings.TrimSpace(name)
		}
		if img := pickString(product, "image"); img != "" {
			d.PhotoURL = img
		}

		offers := product["offers"]
		walkJSON(offers, func(o map[string]any) {
			if d.PriceText == "" {
				if price := o["price"]; price != nil {
					currency, _ := o["priceCurrency"].(string)
					if currency == "" {
						currency = "CHF"
					}
					switch p := price.(type) {
					case string:
						d.PriceText = currency + " " + p
					case float64:
						d.PriceText = currency + " " + trimFloat(p)
					}
				}
			}
			if d.SellerName == "" {
				if seller, ok := o["seller"].(map[string]any); ok {
					if name, ok := seller["name"].(string); ok {
						d.SellerName = strings.TrimSpace(name)
					}
				}
			}
		})
		return false
	})
}

func findProductNode(v any) map[string]any {
	var product map[string]any
	walkJSON(v, func(d map[string]any) {
		if product != nil {
			return
		}
		if t, ok := d["@type"].(string); ok && t == "Product" {
			product = d
		}
	})
	return product
}

func fillFromNextData(doc *goquery.Document, d *Detail, baseURL string) {
	data := extractNextData(doc)
	if data == nil {
		return
	}

	walkJSON(data, func(node map[string]any) {
		if d.SellerName == "" {
			if name := sellerNameFromItem(node); name != "" {
				d.SellerName = name
			}
		}
		if d.SellerType == models.SellerUnknown {
			if t := sellerTypeFromWord(pickString(node, sellerTypeKeys...)); t != models.SellerUnknown {
				d.SellerType = t
			}
		}
		if d.PriceMode == models.PriceModeUnknown {
			if hasAnyKey(node, buyNowFlagKeys, bidKeys, auctionKeys) {
				if mode := priceModeFromItem(node); mode != models.PriceModeUnknown {
					d.PriceMode = mode
				}
			}
		}
		if d.PhotoURL == "" {
			d.PhotoURL = absOrKeep(baseURL, pickString(node, imageKeys...))
		}
	})
}
