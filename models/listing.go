package models

import "strings"

// PriceMode describes how a listing is sold.
type PriceMode string

const (
	PriceModeFixed   PriceMode = "FIXED"
	PriceModeAuction PriceMode = "AUCTION"
	PriceModeUnknown PriceMode = "UNKNOWN"
)

// SellerType is the on-page hint about who is selling.
type SellerType string

const (
	SellerPrivate      SellerType = "PRIVATE"
	SellerProfessional SellerType = "PROFESSIONAL"
	SellerUnknown      SellerType = "UNKNOWN"
)

// RejectionReason names the classifier rule a listing failed.
type RejectionReason string

const (
	RejectSellerType RejectionReason = "seller_type"
	RejectPriceMode  RejectionReason = "price_mode"
	RejectNameShape  RejectionReason = "name_shape"
)

// OutputFormat is the rendering requested by the user.
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatTXT  OutputFormat = "txt"
)

// ParseFormat maps a user-supplied token to an output format.
// Unrecognized or empty tokens fall back to TXT.
func ParseFormat(token string) OutputFormat {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "json":
		return FormatJSON
	default:
		return FormatTXT
	}
}

// RawListing is one scraped candidate before classification.
// Every field except AdURL may be missing; missing enum fields
// carry the UNKNOWN sentinel so the classifier decides what to do.
type RawListing struct {
	AdURL          string     `json:"ad_url"`
	Title          string     `json:"title"`
	PriceText      string     `json:"price_text"`
	PriceMode      PriceMode  `json:"price_mode"`
	SellerName     string     `json:"seller_name"`
	SellerTypeHint SellerType `json:"seller_type_hint"`
	PhotoURL       string     `json:"photo_url,omitempty"`
}

// ClassifiedListing is a RawListing plus the inclusion decision.
// Created once by the classifier and never mutated afterwards.
type ClassifiedListing struct {
	RawListing
	Included         bool              `json:"included"`
	RejectionReasons []RejectionReason `json:"rejection_reasons,omitempty"`
}

// SearchQuery is the argument of one command invocation.
type SearchQuery struct {
	RawName string
	Format  OutputFormat
}

// Name returns the trimmed query name.
func (q SearchQuery) Name() string {
	return strings.TrimSpace(q.RawName)
}

// ResultSet is the final artifact of one invocation: the included
// listings after dedup, plus the rendered file content.
type ResultSet struct {
	Listings []ClassifiedListing
	Content  []byte
	Filename string
}
