package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/sevsync/internal/order/domain"
	"github.com/smallbiznis/sevsync/internal/sevdesk"
)

const (
	defaultTaxRate = 19

	// fallbackCustomerName is the display name used when the order carries
	// no usable name at all.
	fallbackCustomerName = "Webshop customer"
)

var minorUnitFactor = decimal.NewFromInt(100)

// resolveName picks a display name from the order's billing data. First
// non-empty wins: first+last name, billing full name, billing company,
// customer email, fixed fallback.
func resolveName(ord *orderdomain.Order) string {
	name := strings.TrimSpace(ord.FirstName() + " " + ord.LastName())
	if name != "" {
		return name
	}
	if ord.BillingAddress != nil && ord.BillingAddress.FullName != "" {
		return ord.BillingAddress.FullName
	}
	if company := ord.Company(); company != "" {
		return company
	}
	if ord.CustomerEmail != "" {
		return ord.CustomerEmail
	}
	return fallbackCustomerName
}

// positionFor maps one order line to an invoice position. number is the
// 1-based position number.
func positionFor(item orderdomain.LineItem, number int) sevdesk.InvoicePosition {
	price := itemPrice(item)
	title := item.DisplayTitle()

	quantity := 1.0
	if item.Quantity != nil {
		quantity = *item.Quantity
	}

	return sevdesk.InvoicePosition{
		ObjectName:     "InvoicePos",
		MapAll:         true,
		Quantity:       quantity,
		Price:          price.InexactFloat64(),
		PriceGross:     price.InexactFloat64(),
		Name:           title,
		Text:           title,
		PositionNumber: number,
		TaxRate:        itemTaxRate(item),
		TaxRule:        sevdesk.TaxRuleRef(defaultTaxRuleID),
		Unity:          sevdesk.UnityRef(defaultUnityID),
	}
}

// itemPrice converts the line price to a major-unit amount: unit_price is in
// cents, item_price is already decimal, absence of both means 0.
func itemPrice(item orderdomain.LineItem) decimal.Decimal {
	if item.UnitPrice != nil {
		return decimal.NewFromInt(*item.UnitPrice).Div(minorUnitFactor)
	}
	if item.ItemPrice != nil {
		return decimal.NewFromFloat(*item.ItemPrice)
	}
	return decimal.Zero
}

// itemTaxRate preserves the shop's rate quirk verbatim: a "rate" field above
// 1 is already a percentage, anything else means the standard rate. Without
// a rate field the item's own tax_rate applies, defaulting to the standard
// rate. The >1 heuristic cannot express a literal 1% rate; tax_rate is the
// precise field for shops that need it.
func itemTaxRate(item orderdomain.LineItem) float64 {
	if item.Rate != nil {
		if *item.Rate > 1 {
			return *item.Rate
		}
		return defaultTaxRate
	}
	if item.TaxRate != nil {
		return *item.TaxRate
	}
	return defaultTaxRate
}

var orderTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseOrderTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range orderTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
