package billing

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"

	"github.com/MemberFox/MemberFox/internal/pkg/env"
)

// StripeConfig holds the credentials for the Stripe adapter. Loaded once at
// startup and immutable afterwards.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// StripeConfigFromEnv reads the Stripe credentials from the environment.
func StripeConfigFromEnv() StripeConfig {
	return StripeConfig{
		SecretKey:     env.GetEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	}
}

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct {
	sc  *client.API
	cfg StripeConfig
}

// NewStripeProvider creates a Stripe-backed provider adapter.
func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &StripeProvider{sc: sc, cfg: cfg}
}

func (p *StripeProvider) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
		Name:   stripe.String(name),
	}
	cus, err := p.sc.Customers.New(params)
	if err != nil {
		log.Errorf("[Stripe] create customer failed: %v", err)
		return "", fmt.Errorf("create customer: %w", err)
	}
	return cus.ID, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	sess, err := p.sc.CheckoutSessions.New(params)
	if err != nil {
		log.Errorf("[Stripe] create checkout session failed: %v", err)
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	if sess.URL == "" {
		return "", errors.New("checkout session without url")
	}
	return sess.URL, nil
}

func (p *StripeProvider) CustomerPortalURL(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	ps, err := p.sc.BillingPortalSessions.New(params)
	if err != nil {
		log.Errorf("[Stripe] create portal session failed: %v", err)
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return ps.URL, nil
}

// VerifyAndParseWebhook is the sole authenticity boundary for inbound
// webhooks. Anything not signed with the configured secret is rejected.
func (p *StripeProvider) VerifyAndParseWebhook(payload []byte, sigHeader string) (WebhookEvent, error) {
	if p.cfg.WebhookSecret == "" {
		return WebhookEvent{}, errors.New("stripe webhook secret not configured")
	}
	event, err := webhook.ConstructEvent(payload, sigHeader, p.cfg.WebhookSecret)
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("verify webhook: %w", err)
	}
	ev := WebhookEvent{ID: event.ID, Type: event.Type}
	if event.Data != nil {
		ev.ObjectJSON = event.Data.Raw
	}
	return ev, nil
}

func (p *StripeProvider) FetchInvoices(ctx context.Context, customerID string) ([]InvoiceRow, error) {
	var rows []InvoiceRow

	// The upcoming invoice is not part of the list endpoint. A customer
	// without one is normal (starter tier, canceled subscription).
	upParams := &stripe.InvoiceParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(customerID),
	}
	if up, err := p.sc.Invoices.GetNext(upParams); err == nil {
		row, ferr := p.invoiceRow(up, true)
		if ferr != nil {
			return nil, ferr
		}
		rows = append(rows, row)
	} else if !isUpcomingNone(err) {
		log.Errorf("[Stripe] fetch upcoming invoice failed: %v", err)
		return nil, fmt.Errorf("fetch upcoming invoice: %w", err)
	}

	listParams := &stripe.InvoiceListParams{
		Customer: stripe.String(customerID),
	}
	listParams.Context = ctx
	it := p.sc.Invoices.List(listParams)
	for it.Next() {
		row, err := p.invoiceRow(it.Invoice(), false)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := it.Err(); err != nil {
		log.Errorf("[Stripe] list invoices failed: %v", err)
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	return rows, nil
}

func (p *StripeProvider) invoiceRow(inv *stripe.Invoice, upcoming bool) (InvoiceRow, error) {
	total, err := FormatTotal(inv.Total, string(inv.Currency))
	if err != nil {
		return InvoiceRow{}, err
	}

	var lines []string
	if inv.Lines != nil {
		for _, l := range inv.Lines.Data {
			desc, err := InvoiceLineDescription(normalizeLine(l))
			if err != nil {
				return InvoiceRow{}, err
			}
			lines = append(lines, desc)
		}
	}

	return InvoiceRow{
		Lines:    lines,
		Date:     FormatInvoiceDate(inv.Created),
		Total:    total,
		Paid:     inv.Paid,
		Closed:   invoiceClosed(inv.Status),
		Upcoming: upcoming,
	}, nil
}

func (p *StripeProvider) FetchPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethodRow, error) {
	var rows []PaymentMethodRow

	// Stripe's list endpoint requires a type filter, one call per kind.
	for _, kind := range []string{"card", "sepa_debit"} {
		params := &stripe.PaymentMethodListParams{
			Customer: stripe.String(customerID),
			Type:     stripe.String(kind),
		}
		params.Context = ctx
		it := p.sc.PaymentMethods.List(params)
		for it.Next() {
			m := normalizeMethod(it.PaymentMethod())
			rows = append(rows, PaymentMethodRow{
				Kind:        m.Kind,
				Description: template.HTML(PaymentMethodDescription(m)),
			})
		}
		if err := it.Err(); err != nil {
			log.Errorf("[Stripe] list payment methods failed: %v", err)
			return nil, fmt.Errorf("list payment methods: %w", err)
		}
	}

	return rows, nil
}

func (p *StripeProvider) ListSubscriptions(ctx context.Context, customerID string) ([]SubscriptionState, error) {
	params := &stripe.SubscriptionListParams{
		Customer: customerID,
		Status:   "all",
	}
	params.Context = ctx

	var states []SubscriptionState
	it := p.sc.Subscriptions.List(params)
	for it.Next() {
		states = append(states, subscriptionState(it.Subscription()))
	}
	if err := it.Err(); err != nil {
		log.Errorf("[Stripe] list subscriptions failed: %v", err)
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return states, nil
}

func subscriptionState(s *stripe.Subscription) SubscriptionState {
	st := SubscriptionState{
		ProviderSubscriptionID: s.ID,
		Status:                 string(s.Status),
		PeriodStart:            time.Unix(s.CurrentPeriodStart, 0),
	}
	if s.CurrentPeriodEnd > 0 {
		end := time.Unix(s.CurrentPeriodEnd, 0)
		st.PeriodEnd = &end
	}
	if s.Items != nil && len(s.Items.Data) > 0 {
		if price := s.Items.Data[0].Price; price != nil && price.Product != nil {
			st.ProductID = price.Product.ID
		}
	}
	if st.ProductID == "" && s.Plan != nil && s.Plan.Product != nil {
		st.ProductID = s.Plan.Product.ID
	}
	return st
}

func normalizeLine(l *stripe.InvoiceLine) InvoiceLine {
	out := InvoiceLine{
		Description:  l.Description,
		Subscription: l.Type == stripe.InvoiceLineTypeSubscription,
		Quantity:     l.Quantity,
	}
	if l.Plan != nil {
		out.PlanName = l.Plan.Nickname
	}
	if l.Period != nil {
		out.PeriodStart = l.Period.Start
		out.PeriodEnd = l.Period.End
	}
	return out
}

func normalizeMethod(pm *stripe.PaymentMethod) PaymentMethod {
	switch {
	case pm.Type == stripe.PaymentMethodTypeCard && pm.Card != nil:
		return PaymentMethod{
			Kind:     "card",
			Brand:    brandLabel(string(pm.Card.Brand)),
			Last4:    pm.Card.Last4,
			ExpMonth: pm.Card.ExpMonth,
			ExpYear:  pm.Card.ExpYear,
		}
	case pm.Type == stripe.PaymentMethodTypeSepaDebit && pm.SepaDebit != nil:
		m := PaymentMethod{
			Kind:             "sepa",
			Last4:            pm.SepaDebit.Last4,
			MandateReference: pm.Metadata["mandate_reference"],
			MandateURL:       pm.Metadata["mandate_url"],
		}
		// Without mandate metadata the SEPA snippet would render a broken
		// link; show the generic row instead.
		if m.MandateReference == "" || m.MandateURL == "" {
			return PaymentMethod{Kind: string(pm.Type)}
		}
		return m
	default:
		return PaymentMethod{Kind: string(pm.Type)}
	}
}

func invoiceClosed(status stripe.InvoiceStatus) bool {
	switch status {
	case stripe.InvoiceStatusPaid, stripe.InvoiceStatusVoid, stripe.InvoiceStatusUncollectible:
		return true
	default:
		return false
	}
}

func isUpcomingNone(err error) bool {
	var se *stripe.Error
	if errors.As(err, &se) {
		return se.Code == stripe.ErrorCodeInvoiceUpcomingNone
	}
	return false
}

func brandLabel(brand string) string {
	if brand == "" {
		return ""
	}
	return strings.ToUpper(brand[:1]) + brand[1:]
}
