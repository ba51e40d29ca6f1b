package billing

import (
	"errors"
	"testing"
	"time"
)

func TestFormatTotal(t *testing.T) {
	tests := []struct {
		amount   int64
		currency string
		want     string
	}{
		{amount: 4250, currency: "eur", want: "42.50 €"},
		{amount: 999, currency: "usd", want: "9.99 $"},
		{amount: 0, currency: "EUR", want: "0.00 €"},
		{amount: 123456, currency: "usd", want: "1234.56 $"},
	}

	for _, tt := range tests {
		got, err := FormatTotal(tt.amount, tt.currency)
		if err != nil {
			t.Fatalf("FormatTotal(%d, %q) returned error: %v", tt.amount, tt.currency, err)
		}
		if got != tt.want {
			t.Fatalf("FormatTotal(%d, %q) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestFormatTotalUnsupportedCurrency(t *testing.T) {
	if _, err := FormatTotal(100, "gbp"); !errors.Is(err, ErrUnsupportedCurrency) {
		t.Fatalf("expected ErrUnsupportedCurrency, got %v", err)
	}
}

func TestInvoiceLineDescriptionPrefersProviderText(t *testing.T) {
	got, err := InvoiceLineDescription(InvoiceLine{Description: "Donation"})
	if err != nil || got != "Donation" {
		t.Fatalf("expected provider description to win, got %q (%v)", got, err)
	}
}

func TestInvoiceLineDescriptionSynthesizesSubscriptionLine(t *testing.T) {
	start := time.Date(2021, time.March, 1, 12, 0, 0, 0, time.Local).Unix()
	end := time.Date(2021, time.April, 1, 12, 0, 0, 0, time.Local).Unix()

	got, err := InvoiceLineDescription(InvoiceLine{
		Subscription: true,
		Quantity:     1,
		PlanName:     "Contributor",
		PeriodStart:  start,
		PeriodEnd:    end,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "1 x Contributor (Mar 1, 2021 - Apr 1, 2021)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInvoiceLineDescriptionMissing(t *testing.T) {
	if _, err := InvoiceLineDescription(InvoiceLine{Subscription: false}); !errors.Is(err, ErrMissingDescription) {
		t.Fatalf("expected ErrMissingDescription, got %v", err)
	}
}

func TestFormatInvoiceDate(t *testing.T) {
	epoch := time.Date(2021, time.June, 5, 14, 30, 0, 0, time.Local).Unix()
	if got := FormatInvoiceDate(epoch); got != "Jun 5, 2021 14:30" {
		t.Fatalf("FormatInvoiceDate = %q", got)
	}
}

func TestPaymentMethodDescription(t *testing.T) {
	card := PaymentMethod{Kind: "card", Brand: "Visa", Last4: "4242", ExpMonth: 12, ExpYear: 2027}
	if got := PaymentMethodDescription(card); got != "Visa Card ending in 4242 (valid until 12/2027)" {
		t.Fatalf("card description = %q", got)
	}

	sepa := PaymentMethod{
		Kind:             "sepa",
		Last4:            "3000",
		MandateReference: "REF-2021-042",
		MandateURL:       "https://example.com/mandate/42",
	}
	want := `Bank Account ending in 3000 (<a href="https://example.com/mandate/42" target="_blank">SEPA Mandate Reference REF-2021-042</a>)`
	if got := PaymentMethodDescription(sepa); got != want {
		t.Fatalf("sepa description = %q, want %q", got, want)
	}

	if got := PaymentMethodDescription(PaymentMethod{Kind: "paypal"}); got != "Unknown Payment Method. Please contact support. " {
		t.Fatalf("unknown kind description = %q", got)
	}
}
