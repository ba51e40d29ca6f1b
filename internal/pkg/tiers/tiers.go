package tiers

import (
	"errors"

	"github.com/MemberFox/MemberFox/internal/pkg/env"
)

// Tier is the persisted short code of a membership level.
type Tier string

const (
	TierStarter     Tier = "st"
	TierContributor Tier = "co"
	TierPatron      Tier = "pa"

	// TierUnknown is the sentinel for provider product ids that map to no
	// membership level. It is never persisted as a membership tier; callers
	// branch on it instead of comparing display strings.
	TierUnknown Tier = "unknown"
)

// ErrNoPriceConfigured signals an operator-side misconfiguration: the tier
// exists but no Stripe price id was configured for it.
var ErrNoPriceConfigured = errors.New("no stripe price configured for tier")

var descriptions = map[Tier]string{
	TierStarter:     "Starter – Free Membership for 0€ p.a.",
	TierContributor: "Contributor – Standard membership for 39€ p.a.",
	TierPatron:      "Patron – Premium membership for 249€ p.a.",
}

// Product ids issued before per-environment Stripe products existed.
// These stay mapped forever; old subscriptions still reference them.
var legacyProductIDs = map[string]Tier{
	"starter-membership":     TierStarter,
	"contributor-membership": TierContributor,
	"patron-membership":      TierPatron,
}

// All returns the selectable tiers in display order.
func All() []Tier {
	return []Tier{TierContributor, TierStarter, TierPatron}
}

// Valid reports whether t is a selectable tier code.
func Valid(t Tier) bool {
	_, ok := descriptions[t]
	return ok
}

// Description returns the display string for a tier, ok=false for anything
// that is not a selectable tier (including TierUnknown).
func Description(t Tier) (string, bool) {
	d, ok := descriptions[t]
	return d, ok
}

// Catalog holds the Stripe product/price ids for each tier. It is built once
// at startup and treated as immutable afterwards.
type Catalog struct {
	productIDs    map[Tier]string
	priceIDs      map[Tier]string
	productToTier map[string]Tier
}

// NewCatalog builds a catalog from explicit product and price id maps.
// Legacy product ids are always included in the reverse mapping.
func NewCatalog(productIDs, priceIDs map[Tier]string) *Catalog {
	c := &Catalog{
		productIDs:    make(map[Tier]string, len(productIDs)),
		priceIDs:      make(map[Tier]string, len(priceIDs)),
		productToTier: make(map[string]Tier, len(legacyProductIDs)+len(productIDs)),
	}
	for id, t := range legacyProductIDs {
		c.productToTier[id] = t
	}
	for t, id := range productIDs {
		c.productIDs[t] = id
		if id != "" {
			c.productToTier[id] = t
		}
	}
	for t, id := range priceIDs {
		if id != "" {
			c.priceIDs[t] = id
		}
	}
	return c
}

// CatalogFromEnv builds the catalog from the STRIPE_*_PRODUCT_ID and
// STRIPE_*_PRICE_ID environment variables.
func CatalogFromEnv() *Catalog {
	return NewCatalog(
		map[Tier]string{
			TierStarter:     env.GetEnv("STRIPE_STARTER_PRODUCT_ID", ""),
			TierContributor: env.GetEnv("STRIPE_CONTRIBUTOR_PRODUCT_ID", ""),
			TierPatron:      env.GetEnv("STRIPE_PATRON_PRODUCT_ID", ""),
		},
		map[Tier]string{
			TierStarter:     env.GetEnv("STRIPE_STARTER_PRICE_ID", ""),
			TierContributor: env.GetEnv("STRIPE_CONTRIBUTOR_PRICE_ID", ""),
			TierPatron:      env.GetEnv("STRIPE_PATRON_PRICE_ID", ""),
		},
	)
}

// PriceID returns the Stripe price id used to check out the given tier.
func (c *Catalog) PriceID(t Tier) (string, error) {
	id, ok := c.priceIDs[t]
	if !ok || id == "" {
		return "", ErrNoPriceConfigured
	}
	return id, nil
}

// ProductID returns the canonical Stripe product id for a tier: the
// configured one when present, otherwise the legacy name.
func (c *Catalog) ProductID(t Tier) string {
	if id := c.productIDs[t]; id != "" {
		return id
	}
	for id, tier := range legacyProductIDs {
		if tier == t {
			return id
		}
	}
	return ""
}

// FromProductID maps a Stripe product id to its tier. Total over all inputs:
// ids outside the mapping (current or legacy) yield TierUnknown, never an
// error. Subscriptions created years ago must keep resolving.
func (c *Catalog) FromProductID(id string) Tier {
	if t, ok := c.productToTier[id]; ok {
		return t
	}
	return TierUnknown
}
