package billing

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnsupportedCurrency is returned for currencies without a display
// symbol. Only EUR and USD invoices exist in this system.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// ErrMissingDescription signals a data-integrity fault: a non-subscription
// invoice line arrived without a description.
var ErrMissingDescription = errors.New("non-subscription line without description")

const (
	invoiceDateFormat = "Jan 2, 2006 15:04"
	periodDateFormat  = "Jan 2, 2006"
)

// FormatTotal renders an amount in minor units with its currency symbol,
// e.g. FormatTotal(4250, "eur") == "42.50 €".
func FormatTotal(amount int64, currency string) (string, error) {
	switch strings.ToLower(currency) {
	case "eur":
		return fmt.Sprintf("%0.2f €", float64(amount)/100), nil
	case "usd":
		return fmt.Sprintf("%0.2f $", float64(amount)/100), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCurrency, currency)
	}
}

// FormatInvoiceDate renders an invoice timestamp for the payments table.
func FormatInvoiceDate(epoch int64) string {
	return time.Unix(epoch, 0).Format(invoiceDateFormat)
}

// FormatPeriodDate renders a billing-period boundary.
func FormatPeriodDate(epoch int64) string {
	return time.Unix(epoch, 0).Format(periodDateFormat)
}

// InvoiceLineDescription renders one invoice line. Provider descriptions win;
// subscription lines without one get a synthesized "{n} x {plan} ({start} -
// {end})" form; anything else without a description is a fault upstream.
func InvoiceLineDescription(line InvoiceLine) (string, error) {
	if line.Description != "" {
		return line.Description, nil
	}

	if line.Subscription {
		name := fmt.Sprintf("%s (%s - %s)",
			line.PlanName,
			FormatPeriodDate(line.PeriodStart),
			FormatPeriodDate(line.PeriodEnd),
		)
		return fmt.Sprintf("%d x %s", line.Quantity, name), nil
	}

	return "", ErrMissingDescription
}

// PaymentMethodDescription renders one stored payment method. Unknown kinds
// render a support hint instead of failing; new method types must never
// break the payments page.
func PaymentMethodDescription(m PaymentMethod) string {
	switch m.Kind {
	case "card":
		return fmt.Sprintf("%s Card ending in %s (valid until %d/%d)",
			m.Brand, m.Last4, m.ExpMonth, m.ExpYear)
	case "sepa":
		return fmt.Sprintf(`Bank Account ending in %s (<a href="%s" target="_blank">SEPA Mandate Reference %s</a>)`,
			m.Last4, m.MandateURL, m.MandateReference)
	default:
		return "Unknown Payment Method. Please contact support. "
	}
}
