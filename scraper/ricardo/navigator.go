package ricardo

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ricardo-scout/config"
	"ricardo-scout/models"
	"ricardo-scout/utils"
)

// PageFetcher loads one page and returns its HTML. *Session is the
// production implementation; tests substitute a stub.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (string, error)
}

// Handle points at one listing summary on a search-result page.
// Item carries the card's __NEXT_DATA__ object when the Next.js
// payload was present, Card the DOM node otherwise. Exactly one of
// the two is set; AdURL may be empty when the card had no usable link.
type Handle struct {
	AdURL string
	Item  map[string]any
	Card  *goquery.Selection
}

type Navigator struct {
	cfg *config.Config
	log *slog.Logger
}

func NewNavigator(cfg *config.Config, log *slog.Logger) *Navigator {
	return &Navigator{cfg: cfg, log: log}
}

// SearchURL builds the search page URL for the given result page.
// The fixed-price and private-seller query filters are best effort:
// the site does not always honor them, so the classifier re-validates
// every listing anyway.
func (n *Navigator) SearchURL(q models.SearchQuery, page int) string {
	u, err := url.Parse(n.cfg.BaseURL)
	if err != nil {
		return ""
	}
	u.Path = "/" + n.cfg.Locale + "/s/"

	v := url.Values{}
	v.Set("searchText", q.Name())
	v.Set("offer_type", "fixed_price")
	v.Set("seller_type", "private")
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = v.Encode()
	return u.String()
}

// Search pages through result screens and emits listing handles.
// The returned channel is lazy, finite and closed by the producer;
// each handle is consumed at most once downstream.
//
// Pagination stops on the first of: no next page, a page that yields
// no new handles (duplicate-content loop), a navigation failure
// (partial results are kept), ctx cancellation, or cfg.MaxPages.
func (n *Navigator) Search(ctx context.Context, fetcher PageFetcher, q models.SearchQuery) <-chan Handle {
	out := make(chan Handle)

	go func() {
		defer close(out)

		seen := make(map[string]bool)
		for page := 1; page <= n.cfg.MaxPages; page++ {
			if ctx.Err() != nil {
				return
			}

			pageURL := n.SearchURL(q, page)
			n.log.Debug("fetching result page", "page", page, "url", pageURL)

			html, err := fetcher.FetchPage(ctx, pageURL)
			if err != nil {
				n.log.Warn("result page failed, keeping partial results", "page", page, "error", err)
				return
			}

			handles, hasNext := n.parseResultPage(html)
			fresh := 0
			for _, h := range handles {
				if h.AdURL != "" {
					if seen[h.AdURL] {
						continue
					}
					seen[h.AdURL] = true
				}
				select {
				case out <- h:
					fresh++
				case <-ctx.Done():
					return
				}
			}

			n.log.Info("result page processed", "page", page, "handles", fresh, "has_next", hasNext)

			if fresh == 0 || !hasNext {
				return
			}
			if page < n.cfg.MaxPages {
				utils.RandomDelay(n.cfg.MinDelay, n.cfg.MaxDelay)
			}
		}
	}()

	return out
}

// adPathRe matches listing detail paths like /de/a/some-thing-1234567/.
var adPathRe = regexp.MustCompile(`/a/[a-zA-Z0-9%_-]*\d+/?(?:[?#]|$)`)

func (n *Navigator) parseResultPage(html string) ([]Handle, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		n.log.Warn("result page is not parseable html", "error", err)
		return nil, false
	}

	data := extractNextData(doc)

	var handles []Handle
	if data != nil {
		for _, item := range guessItemDicts(data) {
			handles = append(handles, Handle{
				AdURL: absURL(n.cfg.BaseURL, pickString(item, urlKeys...)),
				Item:  item,
			})
		}
	}

	// DOM fallback for pages where the Next.js payload is missing or
	// no longer matches the key heuristics.
	if len(handles) == 0 {
		handles = n.cardHandles(doc)
	}

	return handles, hasNextPage(doc, data)
}

func (n *Navigator) cardHandles(doc *goquery.Document) []Handle {
	var handles []Handle
	seen := make(map[string]bool)

	doc.Find(`a[href]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !adPathRe.MatchString(href) {
			return
		}
		adURL := absURL(n.cfg.BaseURL, href)
		if adURL == "" || seen[adURL] {
			return
		}
		seen[adURL] = true

		card := a.Closest("article")
		if card.Length() == 0 {
			card = a
		}
		handles = append(handles, Handle{AdURL: adURL, Card: card})
	})

	return handles
}

// hasNextPage reads the payload's pagination node when present, then
// falls back to a rel=next link or a "Weiter" anchor. Absent all
// signals it reports false, which errs toward stopping early rather
// than looping.
func hasNextPage(doc *goquery.Document, data map[string]any) bool {
	if data != nil {
		found := false
		walkJSON(data, func(d map[string]any) {
			if found {
				return
			}
			if v := pick(d, hasNextKeys...); v != nil {
				if b, ok := toBool(v); ok && b {
					found = true
				}
				return
			}
			if v := pick(d, nextOffsetKeys...); v != nil {
				if off, ok := toInt(v); ok && off > 0 {
					found = true
				}
			}
		})
		if found {
			return true
		}
	}

	if doc.Find(`a[rel="next"]`).Length() > 0 {
		return true
	}

	next := false
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.Contains(strings.TrimSpace(a.Text()), "Weiter") {
			next = true
			return false
		}
		return true
	})
	return next
}
