package tiers

import (
	"errors"
	"testing"
)

func TestFromProductIDIsTotal(t *testing.T) {
	c := NewCatalog(
		map[Tier]string{
			TierStarter:     "prod_st_live",
			TierContributor: "prod_co_live",
			TierPatron:      "prod_pa_live",
		},
		nil,
	)

	tests := []struct {
		id   string
		want Tier
	}{
		{id: "prod_st_live", want: TierStarter},
		{id: "prod_co_live", want: TierContributor},
		{id: "prod_pa_live", want: TierPatron},
		{id: "starter-membership", want: TierStarter},
		{id: "contributor-membership", want: TierContributor},
		{id: "patron-membership", want: TierPatron},
		{id: "prod_mystery", want: TierUnknown},
		{id: "", want: TierUnknown},
	}

	for _, tt := range tests {
		if got := c.FromProductID(tt.id); got != tt.want {
			t.Fatalf("FromProductID(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestLegacyProductIDsAlwaysMapped(t *testing.T) {
	// Even an empty catalog resolves ids issued years ago.
	c := NewCatalog(nil, nil)

	if got := c.FromProductID("starter-membership"); got != TierStarter {
		t.Fatalf("legacy starter id = %q", got)
	}
	if got := c.FromProductID("patron-membership"); got != TierPatron {
		t.Fatalf("legacy patron id = %q", got)
	}
}

func TestDescriptions(t *testing.T) {
	tests := []struct {
		tier Tier
		want string
	}{
		{tier: TierStarter, want: "Starter – Free Membership for 0€ p.a."},
		{tier: TierContributor, want: "Contributor – Standard membership for 39€ p.a."},
		{tier: TierPatron, want: "Patron – Premium membership for 249€ p.a."},
	}

	for _, tt := range tests {
		got, ok := Description(tt.tier)
		if !ok {
			t.Fatalf("Description(%q) missing", tt.tier)
		}
		if got != tt.want {
			t.Fatalf("Description(%q) = %q, want %q", tt.tier, got, tt.want)
		}
	}

	if _, ok := Description(TierUnknown); ok {
		t.Fatalf("TierUnknown must not have a description")
	}
	if _, ok := Description(Tier("xx")); ok {
		t.Fatalf("arbitrary codes must not have a description")
	}
}

func TestValid(t *testing.T) {
	for _, tier := range All() {
		if !Valid(tier) {
			t.Fatalf("expected %q to be selectable", tier)
		}
	}
	for _, tier := range []Tier{TierUnknown, "", "starter"} {
		if Valid(tier) {
			t.Fatalf("expected %q to be rejected", tier)
		}
	}
}

func TestPriceID(t *testing.T) {
	c := NewCatalog(nil, map[Tier]string{TierContributor: "price_co"})

	id, err := c.PriceID(TierContributor)
	if err != nil || id != "price_co" {
		t.Fatalf("PriceID(contributor) = %q, %v", id, err)
	}

	if _, err := c.PriceID(TierPatron); !errors.Is(err, ErrNoPriceConfigured) {
		t.Fatalf("expected ErrNoPriceConfigured, got %v", err)
	}
}

func TestProductIDFallsBackToLegacy(t *testing.T) {
	c := NewCatalog(map[Tier]string{TierPatron: "prod_pa_live"}, nil)

	if got := c.ProductID(TierPatron); got != "prod_pa_live" {
		t.Fatalf("ProductID(patron) = %q", got)
	}
	if got := c.ProductID(TierStarter); got != "starter-membership" {
		t.Fatalf("ProductID(starter) = %q", got)
	}
}
