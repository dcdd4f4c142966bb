package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ricardo-scout/models"
)

func privateFixed(seller string) models.RawListing {
	return models.RawListing{
		AdURL:          "https://www.ricardo.ch/de/a/test-1234567/",
		Title:          "Vintage Uhr",
		PriceText:      "CHF 120",
		PriceMode:      models.PriceModeFixed,
		SellerName:     seller,
		SellerTypeHint: models.SellerPrivate,
	}
}

func TestClassifyAcceptsPrivateFixedWithFullName(t *testing.T) {
	c := Classify(privateFixed("Anna Keller"))

	assert.True(t, c.Included)
	assert.Empty(t, c.RejectionReasons)
}

func TestClassifyRejectsAuctions(t *testing.T) {
	raw := privateFixed("Anna Keller")
	raw.PriceMode = models.PriceModeAuction

	c := Classify(raw)

	require.False(t, c.Included)
	assert.Contains(t, c.RejectionReasons, models.RejectPriceMode)
}

func TestClassifyRejectsUnknownPriceMode(t *testing.T) {
	// Unknown pricing must never leak an auction into fixed-price
	// results, so it rejects like an auction does.
	raw := privateFixed("Anna Keller")
	raw.PriceMode = models.PriceModeUnknown

	c := Classify(raw)

	require.False(t, c.Included)
	assert.Contains(t, c.RejectionReasons, models.RejectPriceMode)
}

func TestClassifyRejectsSingleTokenNames(t *testing.T) {
	raw := privateFixed("Anna")

	c := Classify(raw)

	require.False(t, c.Included)
	assert.Contains(t, c.RejectionReasons, models.RejectNameShape)
}

func TestClassifyRejectsProfessionalSellers(t *testing.T) {
	raw := privateFixed("Anna Keller")
	raw.SellerTypeHint = models.SellerProfessional

	c := Classify(raw)

	require.False(t, c.Included)
	assert.Contains(t, c.RejectionReasons, models.RejectSellerType)
}

func TestClassifyUnknownSellerTypeDefersToNameShape(t *testing.T) {
	raw := privateFixed("Anna Keller")
	raw.SellerTypeHint = models.SellerUnknown

	c := Classify(raw)

	assert.True(t, c.Included, "unknown hint with a person-shaped name should pass")

	raw.SellerName = "topdeals24"
	c = Classify(raw)
	require.False(t, c.Included)
	assert.Contains(t, c.RejectionReasons, models.RejectNameShape)
}

func TestClassifyCollectsAllFailedRules(t *testing.T) {
	raw := models.RawListing{
		AdURL:          "https://www.ricardo.ch/de/a/test-1/",
		PriceMode:      models.PriceModeAuction,
		SellerName:     "shop_88",
		SellerTypeHint: models.SellerProfessional,
	}

	c := Classify(raw)

	require.False(t, c.Included)
	assert.ElementsMatch(t, []models.RejectionReason{
		models.RejectSellerType,
		models.RejectPriceMode,
		models.RejectNameShape,
	}, c.RejectionReasons)
}

func TestClassifyIsDeterministic(t *testing.T) {
	raw := privateFixed("Anna Keller")
	assert.Equal(t, Classify(raw), Classify(raw))
}

func TestLooksLikePersonName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"Anna Keller", true},
		{"  Anna   Keller  ", true},
		{"Jean-Pierre Müller", true},
		{"Anna Maria Keller", true},
		{"A1 B2", true},
		{"Anna", false},
		{"", false},
		{"   ", false},
		{"12345 6789", false},
		{"anna_keller", false},
		{"Anna 99", false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.want, LooksLikePersonName(tc.name), "name %q", tc.name)
	}
}
