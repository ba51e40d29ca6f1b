package billing

import (
	"time"

	"github.com/MemberFox/MemberFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetMembershipByUserID(userID uint) (*models.Membership, error)
	CreateMembership(m *models.Membership) error
	SaveMembership(m *models.Membership) error
	HasActiveSubscription(membershipID uint, at time.Time) (bool, error)
	UpsertSubscription(sub *models.SubscriptionInformation) error
	ListSubscriptionsByMembership(membershipID uint) ([]models.SubscriptionInformation, error)
	UpsertPaymentIntent(pi *models.PaymentIntent) error
	GetPaymentIntentByProviderID(providerIntentID string) (*models.PaymentIntent, error)
	ListRecentPaymentIntents(limit int) ([]models.PaymentIntent, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	ListRecentWebhookEvents(limit int) ([]models.WebhookEvent, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetMembershipByUserID(userID uint) (*models.Membership, error) {
	var m models.Membership
	err := r.db.Where("user_id = ?", userID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) CreateMembership(m *models.Membership) error {
	return r.db.Create(m).Error
}

func (r *gormRepository) SaveMembership(m *models.Membership) error {
	return r.db.Save(m).Error
}

func (r *gormRepository) HasActiveSubscription(membershipID uint, at time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.SubscriptionInformation{}).
		Where("membership_id = ? AND `start` <= ? AND (`end` IS NULL OR `end` >= ?)", membershipID, at, at).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *gormRepository) UpsertSubscription(sub *models.SubscriptionInformation) error {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "membership_id"}, {Name: "provider_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tier", "status", "start", "end", "updated_at"}),
	}
	if err := r.db.Clauses(onConflict).Create(sub).Error; err != nil {
		return err
	}

	// re-read so the caller sees the row id and timestamps
	return r.db.Where("membership_id = ? AND provider_subscription_id = ?", sub.MembershipID, sub.ProviderSubscriptionID).
		First(sub).Error
}

func (r *gormRepository) ListSubscriptionsByMembership(membershipID uint) ([]models.SubscriptionInformation, error) {
	var subs []models.SubscriptionInformation
	err := r.db.Where("membership_id = ?", membershipID).Order("`start` DESC").Find(&subs).Error
	return subs, err
}

func (r *gormRepository) UpsertPaymentIntent(pi *models.PaymentIntent) error {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_intent_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "amount", "currency", "customer_id", "snapshot_json", "updated_at"}),
	}
	if err := r.db.Clauses(onConflict).Create(pi).Error; err != nil {
		return err
	}

	return r.db.Where("provider_intent_id = ?", pi.ProviderIntentID).First(pi).Error
}

func (r *gormRepository) GetPaymentIntentByProviderID(providerIntentID string) (*models.PaymentIntent, error) {
	var pi models.PaymentIntent
	err := r.db.Where("provider_intent_id = ?", providerIntentID).First(&pi).Error
	if err != nil {
		return nil, err
	}
	return &pi, nil
}

func (r *gormRepository) ListRecentPaymentIntents(limit int) ([]models.PaymentIntent, error) {
	var intents []models.PaymentIntent
	err := r.db.Order("updated_at DESC").Limit(limit).Find(&intents).Error
	return intents, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	res := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(event)
	if res.Error != nil {
		return false, nil, res.Error
	}

	// the stored row is authoritative whether this delivery was first or a replay
	var stored models.WebhookEvent
	err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error
	if err != nil {
		return false, nil, err
	}
	return res.RowsAffected > 0, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) ListRecentWebhookEvents(limit int) ([]models.WebhookEvent, error) {
	var events []models.WebhookEvent
	err := r.db.Order("created_at DESC").Limit(limit).Find(&events).Error
	return events, err
}
