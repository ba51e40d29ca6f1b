package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/internal/pkg/tiers"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

var (
	// ErrInvalidTier signals a tier code outside the selectable set.
	ErrInvalidTier = errors.New("invalid membership tier")

	// ErrNoCustomer signals an operation that needs a provider customer on a
	// membership that has none.
	ErrNoCustomer = errors.New("membership has no billing customer")

	// ErrWebhookVerification wraps signature or parse failures at the webhook
	// boundary so handlers can answer with a client error.
	ErrWebhookVerification = errors.New("webhook verification failed")
)

// paymentIntentEventPrefix selects the event family the webhook ingestor
// handles; everything else is accepted and ignored.
const paymentIntentEventPrefix = "payment_intent."

// IsPaymentIntentEvent reports whether an event type belongs to the
// payment-intent family the ingestor persists.
func IsPaymentIntentEvent(eventType string) bool {
	return strings.HasPrefix(eventType, paymentIntentEventPrefix)
}

// Service drives membership billing: tier selection, starter synthesis,
// checkout/portal sessions, provider sync and webhook ingestion.
type Service struct {
	repo     Repository
	provider Provider
	catalog  *tiers.Catalog
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, provider Provider, catalog *tiers.Catalog) *Service {
	return &Service{repo: repo, provider: provider, catalog: catalog}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, provider Provider, catalog *tiers.Catalog) *Service {
	return NewService(NewRepository(db), provider, catalog)
}

// GetMembership returns the user's membership, nil when none exists yet.
func (s *Service) GetMembership(ctx context.Context, userID uint) (*models.Membership, error) {
	_ = ctx
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}
	m, err := s.repo.GetMembershipByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// SelectTier creates or updates the user's membership for the chosen tier.
// Starter memberships get their free window immediately and never touch the
// provider; paid tiers get a provider customer on first selection.
func (s *Service) SelectTier(ctx context.Context, user *models.User, tier tiers.Tier) (*models.Membership, error) {
	if user == nil || user.ID == 0 {
		return nil, errors.New("user is required")
	}
	if !tiers.Valid(tier) {
		return nil, ErrInvalidTier
	}

	membership, err := s.repo.GetMembershipByUserID(user.ID)
	switch {
	case err == nil:
		if membership.Tier != string(tier) {
			membership.Tier = string(tier)
			if err := s.repo.SaveMembership(membership); err != nil {
				return nil, err
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		membership = &models.Membership{UserID: user.ID, Tier: string(tier)}
		if err := s.repo.CreateMembership(membership); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if tier == tiers.TierStarter {
		if err := s.CreateStarterSubscription(ctx, membership); err != nil {
			return nil, err
		}
		return membership, nil
	}

	if membership.HasCustomer() {
		return membership, nil
	}
	customerID, err := s.provider.CreateCustomer(ctx, user.Email, user.Name)
	if err != nil {
		return nil, err
	}
	membership.CustomerID = customerID
	if err := s.repo.SaveMembership(membership); err != nil {
		return nil, err
	}
	return membership, nil
}

// CreateStarterSubscription writes the open-ended free window for a starter
// membership. Upserting on the fixed synthetic id keeps repeated selections
// idempotent.
func (s *Service) CreateStarterSubscription(ctx context.Context, membership *models.Membership) error {
	_ = ctx
	if membership == nil || membership.ID == 0 {
		return errors.New("membership is required")
	}
	return s.repo.UpsertSubscription(&models.SubscriptionInformation{
		MembershipID:           membership.ID,
		ProviderSubscriptionID: models.StarterSubscriptionID,
		Tier:                   string(tiers.TierStarter),
		Status:                 models.SubscriptionStatusActive,
		Start:                  time.Now(),
	})
}

// ShouldSetup reports whether the subscription step still needs action. A
// locally active window short-circuits without any provider call; otherwise
// an existing customer is synced once and the window re-checked.
func (s *Service) ShouldSetup(ctx context.Context, membership *models.Membership) (bool, error) {
	if membership == nil || membership.ID == 0 {
		return true, nil
	}
	active, err := s.repo.HasActiveSubscription(membership.ID, time.Now())
	if err != nil {
		return false, err
	}
	if active {
		return false, nil
	}
	if !membership.HasCustomer() {
		return true, nil
	}
	if err := s.SyncFromProvider(ctx, membership); err != nil {
		return false, err
	}
	active, err = s.repo.HasActiveSubscription(membership.ID, time.Now())
	if err != nil {
		return false, err
	}
	return !active, nil
}

// SyncFromProvider overwrites local subscription windows with the provider's
// authoritative state. States whose product maps to no tier are skipped and
// logged; the unknown sentinel is never persisted.
func (s *Service) SyncFromProvider(ctx context.Context, membership *models.Membership) error {
	if membership == nil || membership.ID == 0 {
		return errors.New("membership is required")
	}
	if !membership.HasCustomer() {
		return nil
	}

	states, err := s.provider.ListSubscriptions(ctx, membership.CustomerID)
	if err != nil {
		return err
	}

	for _, state := range states {
		tier := s.catalog.FromProductID(state.ProductID)
		if tier == tiers.TierUnknown {
			log.Warnf("[Billing] Skipping subscription %s with unmapped product %s", state.ProviderSubscriptionID, state.ProductID)
			continue
		}
		sub := &models.SubscriptionInformation{
			MembershipID:           membership.ID,
			ProviderSubscriptionID: state.ProviderSubscriptionID,
			Tier:                   string(tier),
			Status:                 state.Status,
			Start:                  state.PeriodStart,
			End:                    state.PeriodEnd,
		}
		if err := s.repo.UpsertSubscription(sub); err != nil {
			return err
		}
	}
	return nil
}

// StartCheckout creates a provider checkout session for the membership's
// tier. A missing price id is an operator misconfiguration and aborts before
// any provider call.
func (s *Service) StartCheckout(ctx context.Context, membership *models.Membership, successURL, cancelURL string) (string, error) {
	if membership == nil || membership.ID == 0 {
		return "", errors.New("membership is required")
	}
	if !membership.HasCustomer() {
		return "", ErrNoCustomer
	}
	priceID, err := s.catalog.PriceID(tiers.Tier(membership.Tier))
	if err != nil {
		return "", err
	}
	return s.provider.CreateCheckoutSession(ctx, membership.CustomerID, priceID, successURL, cancelURL)
}

// PortalURL creates a billing-portal session for an existing customer.
func (s *Service) PortalURL(ctx context.Context, membership *models.Membership, returnURL string) (string, error) {
	if membership == nil || !membership.HasCustomer() {
		return "", ErrNoCustomer
	}
	return s.provider.CustomerPortalURL(ctx, membership.CustomerID, returnURL)
}

// Invoices returns the display-ready invoice table for a membership.
func (s *Service) Invoices(ctx context.Context, membership *models.Membership) ([]InvoiceRow, error) {
	if membership == nil || !membership.HasCustomer() {
		return nil, ErrNoCustomer
	}
	return s.provider.FetchInvoices(ctx, membership.CustomerID)
}

// PaymentMethods returns the display-ready payment methods for a membership.
func (s *Service) PaymentMethods(ctx context.Context, membership *models.Membership) ([]PaymentMethodRow, error) {
	if membership == nil || !membership.HasCustomer() {
		return nil, ErrNoCustomer
	}
	return s.provider.FetchPaymentMethods(ctx, membership.CustomerID)
}

// HandleWebhook verifies, records and processes one raw webhook delivery.
// Successfully processed replays short-circuit after the dedupe lookup;
// failed ones are processed again so provider retries can recover them.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.provider.VerifyAndParseWebhook(payload, sigHeader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWebhookVerification, err)
	}

	created, stored, err := s.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		PayloadJSON:     string(payload),
	})
	if err != nil {
		return err
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		return nil
	}

	procErr := s.ProcessEvent(ctx, event)
	if err := s.MarkWebhookProcessed(ctx, stored.ID, procErr); err != nil {
		log.Errorf("[Billing] Failed to mark webhook event %d processed: %v", stored.ID, err)
	}
	return procErr
}

// paymentIntentObject is the subset of the provider's payment-intent payload
// the ingestor extracts; the full object is stored as an opaque snapshot.
type paymentIntentObject struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Customer string `json:"customer"`
}

// ProcessEvent applies one verified event. Payment-intent lifecycle events
// upsert the intent snapshot; all other event types are accepted unchanged.
func (s *Service) ProcessEvent(ctx context.Context, event WebhookEvent) error {
	_ = ctx
	if !IsPaymentIntentEvent(event.Type) {
		return nil
	}

	var obj paymentIntentObject
	if err := json.Unmarshal(event.ObjectJSON, &obj); err != nil {
		return fmt.Errorf("parse payment intent object: %w", err)
	}
	if obj.ID == "" {
		return errors.New("payment intent object without id")
	}

	return s.repo.UpsertPaymentIntent(&models.PaymentIntent{
		ProviderIntentID: obj.ID,
		Status:           obj.Status,
		Amount:           obj.Amount,
		Currency:         obj.Currency,
		CustomerID:       obj.Customer,
		SnapshotJSON:     string(event.ObjectJSON),
	})
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// RecentWebhookEvents returns the newest stored webhook events for review.
func (s *Service) RecentWebhookEvents(ctx context.Context, limit int) ([]models.WebhookEvent, error) {
	_ = ctx
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListRecentWebhookEvents(limit)
}

// RecentPaymentIntents returns the newest payment-intent snapshots.
func (s *Service) RecentPaymentIntents(ctx context.Context, limit int) ([]models.PaymentIntent, error) {
	_ = ctx
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListRecentPaymentIntents(limit)
}
