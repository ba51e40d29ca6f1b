package controllers

import (
	"errors"
	"sync"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/internal/pkg/billing"
	"github.com/MemberFox/MemberFox/internal/pkg/database"
	"github.com/MemberFox/MemberFox/internal/pkg/tiers"
	"github.com/MemberFox/MemberFox/internal/pkg/usercontext"
)

var (
	catalogOnce sync.Once
	catalog     *tiers.Catalog

	providerOnce sync.Once
	provider     billing.Provider
)

// tierCatalog returns the process-wide tier catalog, built once from env.
func tierCatalog() *tiers.Catalog {
	catalogOnce.Do(func() {
		catalog = tiers.CatalogFromEnv()
	})
	return catalog
}

// stripeProvider returns the process-wide Stripe adapter.
func stripeProvider() billing.Provider {
	providerOnce.Do(func() {
		provider = billing.NewStripeProvider(billing.StripeConfigFromEnv())
	})
	return provider
}

// billingService builds the request-scoped billing service on the shared DB
// handle, catalog and provider.
func billingService() *billing.Service {
	return billing.NewServiceFromDB(database.GetDB(), stripeProvider(), tierCatalog())
}

// currentUser loads the signed-in user behind the request.
func currentUser(c *fiber.Ctx) (*models.User, error) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return nil, errors.New("not logged in")
	}

	var user models.User
	if err := database.GetDB().First(&user, userCtx.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	return &user, nil
}
