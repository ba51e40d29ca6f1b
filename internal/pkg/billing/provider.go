package billing

import "context"

// Provider is the outbound payment-provider boundary. Every call returns
// expected failures (network, provider rejection) as errors; raw provider
// error text stays inside the adapter's logs and wrapped errors and is never
// shown to end users by callers.
type Provider interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error)
	CustomerPortalURL(ctx context.Context, customerID, returnURL string) (string, error)
	VerifyAndParseWebhook(payload []byte, sigHeader string) (WebhookEvent, error)
	FetchInvoices(ctx context.Context, customerID string) ([]InvoiceRow, error)
	FetchPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethodRow, error)
	ListSubscriptions(ctx context.Context, customerID string) ([]SubscriptionState, error)
}
