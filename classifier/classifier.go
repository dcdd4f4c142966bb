// Package classifier decides whether a scraped listing belongs in the
// result set. It is pure and deterministic: the same RawListing always
// yields the same decision, which keeps the rules testable without a
// browser.
package classifier

import (
	"strings"
	"unicode"

	"ricardo-scout/models"
)

// Classify applies the three inclusion rules to a raw listing. Each
// failed rule contributes its own rejection reason; a listing is
// included only when all of them pass.
//
// Seller-type rule: PRIVATE passes, PROFESSIONAL rejects. UNKNOWN
// falls through without a reason, leaving the name-shape rule as the
// sole seller signal — the site's own hints are best effort and the
// badge is often simply absent.
//
// Price-mode rule: only FIXED passes. AUCTION and UNKNOWN both
// reject, so an undetermined pricing mode can never leak an auction
// into fixed-price results.
//
// Name-shape rule: the seller display name must look like a
// "Name Surname" pair; see LooksLikePersonName.
func Classify(raw models.RawListing) models.ClassifiedListing {
	var reasons []models.RejectionReason

	if raw.SellerTypeHint == models.SellerProfessional {
		reasons = append(reasons, models.RejectSellerType)
	}

	if raw.PriceMode != models.PriceModeFixed {
		reasons = append(reasons, models.RejectPriceMode)
	}

	if !LooksLikePersonName(raw.SellerName) {
		reasons = append(reasons, models.RejectNameShape)
	}

	return models.ClassifiedListing{
		RawListing:       raw,
		Included:         len(reasons) == 0,
		RejectionReasons: reasons,
	}
}

// LooksLikePersonName reports whether a display name splits into two
// or more whitespace-separated tokens that each contain at least one
// letter. Single words, bare numbers and handle-style names fail.
func LooksLikePersonName(name string) bool {
	tokens := strings.Fields(strings.TrimSpace(name))
	if len(tokens) < 2 {
		return false
	}
	for _, token := range tokens {
		if !containsLetter(token) {
			return false
		}
	}
	return true
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
