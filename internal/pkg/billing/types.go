package billing

import (
	"html/template"
	"time"
)

// SubscriptionState is the provider-agnostic snapshot of one remote
// subscription, used when syncing external state into local tables.
type SubscriptionState struct {
	ProviderSubscriptionID string
	ProductID              string
	Status                 string
	PeriodStart            time.Time
	PeriodEnd              *time.Time // nil = open-ended
}

// InvoiceRow is one display-ready invoice for the payments table.
type InvoiceRow struct {
	Lines    []string
	Date     string
	Total    string
	Paid     bool
	Closed   bool
	Upcoming bool
}

// InvoiceLine is the normalized shape of a single invoice line before
// formatting. Description stays empty when the provider sent none.
type InvoiceLine struct {
	Description  string
	Subscription bool
	Quantity     int64
	PlanName     string
	PeriodStart  int64 // unix seconds
	PeriodEnd    int64
}

// PaymentMethod is the normalized shape of a stored payment method.
type PaymentMethod struct {
	Kind             string // "card", "sepa", anything else renders generically
	Brand            string
	Last4            string
	ExpMonth         uint64
	ExpYear          uint64
	MandateReference string
	MandateURL       string
}

// PaymentMethodRow is one display-ready payment method. Description is
// template.HTML because SEPA rows carry a mandate link.
type PaymentMethodRow struct {
	Kind        string
	Description template.HTML
}

// WebhookEvent is a verified, parsed provider webhook notification.
type WebhookEvent struct {
	ID         string
	Type       string
	ObjectJSON []byte // the event's nested object, as received
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
}
