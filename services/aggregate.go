package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"ricardo-scout/models"
)

// exportItem fixes the field order of the rendered output.
type exportItem struct {
	SellerName string `json:"seller_name"`
	PhotoURL   string `json:"photo_url"`
	AdURL      string `json:"ad_url"`
	PriceText  string `json:"price_text"`
	Title      string `json:"title"`
}

const emptyTXTArtifact = "No matches found.\n"

// Aggregate filters the classified sequence down to included
// listings, deduplicates by ad URL (first occurrence wins, stable in
// input order) and renders the requested format. An empty result is
// a valid artifact, not an error.
func Aggregate(classified []models.ClassifiedListing, q models.SearchQuery) (models.ResultSet, error) {
	seen := make(map[string]bool)
	kept := make([]models.ClassifiedListing, 0, len(classified))
	for _, c := range classified {
		if !c.Included || seen[c.AdURL] {
			continue
		}
		seen[c.AdURL] = true
		kept = append(kept, c)
	}

	var content []byte
	var err error
	switch q.Format {
	case models.FormatJSON:
		content, err = renderJSON(kept)
	default:
		content = renderTXT(kept)
	}
	if err != nil {
		return models.ResultSet{}, fmt.Errorf("render %s: %w", q.Format, err)
	}

	return models.ResultSet{
		Listings: kept,
		Content:  content,
		Filename: FileName(q),
	}, nil
}

func renderJSON(kept []models.ClassifiedListing) ([]byte, error) {
	items := make([]exportItem, 0, len(kept))
	for _, c := range kept {
		items = append(items, exportItem{
			SellerName: c.SellerName,
			PhotoURL:   c.PhotoURL,
			AdURL:      c.AdURL,
			PriceText:  c.PriceText,
			Title:      c.Title,
		})
	}
	out, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func renderTXT(kept []models.ClassifiedListing) []byte {
	if len(kept) == 0 {
		return []byte(emptyTXTArtifact)
	}

	var b strings.Builder
	for i, c := range kept {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Seller: %s\n", c.SellerName)
		fmt.Fprintf(&b, "Photo: %s\n", c.PhotoURL)
		fmt.Fprintf(&b, "Ad: %s\n", c.AdURL)
		fmt.Fprintf(&b, "Price: %s\n", c.PriceText)
		fmt.Fprintf(&b, "Title: %s\n", c.Title)
	}
	return []byte(b.String())
}

// FileName derives a deterministic file name from the query and
// format, e.g. "ricardo_anna_keller.json". A zero-value format renders
// as TXT, so the extension follows suit.
func FileName(q models.SearchQuery) string {
	format := q.Format
	if format == "" {
		format = models.FormatTXT
	}
	return "ricardo_" + safeFilename(q.Name()) + "." + string(format)
}

func safeFilename(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 80 {
		out = out[:80]
	}
	if out == "" {
		return "items"
	}
	return out
}
