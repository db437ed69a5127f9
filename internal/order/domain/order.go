package domain

import "strings"

// Order is the inbound order payload emitted by the shop platform. The
// platform is not consistent about where billing fields live: most exist
// both as top-level billing_* fields and nested under billing_address, and
// several have two alternative names. The accessors below encode the
// coalescing order the shop actually uses.
type Order struct {
	ID                  int64           `json:"id"`
	CreatedAt           string          `json:"created_at"`
	Currency            string          `json:"currency"`
	CustomerEmail       string          `json:"customer_email"`
	InvoiceNo           string          `json:"invoice_no"`
	ReceiptNumber       string          `json:"receipt_number"`
	PaymentDeadlineDays *int            `json:"payment_deadline_days"`
	BillingFirstName    string          `json:"billing_first_name"`
	BillingLastName     string          `json:"billing_last_name"`
	BillingCompany      string          `json:"billing_company"`
	BillingPhone        string          `json:"billing_phone"`
	BillingVATNumber    string          `json:"billing_vat_number"`
	BillingTaxNumber    string          `json:"billing_tax_number"`
	BillingAddress      *BillingAddress `json:"billing_address"`
	Items               []LineItem      `json:"order_items"`
}

type BillingAddress struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Company      string `json:"company"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Mobile       string `json:"mobile"`
	Address1     string `json:"address_1"`
	AddressLine1 string `json:"address_line_1"`
	Address2     string `json:"address_2"`
	Postcode     string `json:"postcode"`
	PostalCode   string `json:"postal_code"`
	City         string `json:"city"`
	Country      string `json:"country"`
	VATNumber    string `json:"vat_number"`
	TaxNumber    string `json:"tax_number"`
	OrderNote    string `json:"order_note"`
}

// LineItem carries one purchased position. unit_price is in minor currency
// units (cents); item_price is already a decimal amount. Only one of the two
// is usually present.
type LineItem struct {
	Quantity     *float64 `json:"quantity"`
	UnitPrice    *int64   `json:"unit_price"`
	ItemPrice    *float64 `json:"item_price"`
	Rate         *float64 `json:"rate"`
	TaxRate      *float64 `json:"tax_rate"`
	Title        string   `json:"title"`
	PostTitle    string   `json:"post_title"`
	ProductTitle string   `json:"product_title"`
	ItemTitle    string   `json:"item_title"`
}

func (o *Order) billing() *BillingAddress {
	if o.BillingAddress != nil {
		return o.BillingAddress
	}
	return &BillingAddress{}
}

func (o *Order) Email() string {
	if e := o.billing().Email; e != "" {
		return e
	}
	return o.CustomerEmail
}

func (o *Order) FirstName() string {
	if o.BillingFirstName != "" {
		return o.BillingFirstName
	}
	return o.billing().FirstName
}

func (o *Order) LastName() string {
	if o.BillingLastName != "" {
		return o.BillingLastName
	}
	return o.billing().LastName
}

func (o *Order) Company() string {
	if c := o.billing().Company; c != "" {
		return c
	}
	return o.BillingCompany
}

func (o *Order) VATNumber() string {
	if o.BillingVATNumber != "" {
		return o.BillingVATNumber
	}
	return o.billing().VATNumber
}

func (o *Order) TaxNumber() string {
	if o.BillingTaxNumber != "" {
		return o.BillingTaxNumber
	}
	return o.billing().TaxNumber
}

func (o *Order) Phone() string {
	if p := o.billing().Phone; p != "" {
		return p
	}
	return o.BillingPhone
}

func (o *Order) Mobile() string {
	return o.billing().Mobile
}

func (o *Order) Street() string {
	b := o.billing()
	line1 := b.Address1
	if line1 == "" {
		line1 = b.AddressLine1
	}
	return strings.TrimSpace(line1 + " " + b.Address2)
}

func (o *Order) StreetLine1() string {
	b := o.billing()
	if b.Address1 != "" {
		return b.Address1
	}
	return b.AddressLine1
}

func (o *Order) Zip() string {
	b := o.billing()
	if b.Postcode != "" {
		return b.Postcode
	}
	return b.PostalCode
}

func (o *Order) City() string {
	return o.billing().City
}

func (o *Order) Country() string {
	return o.billing().Country
}

func (o *Order) OrderNote() string {
	return o.billing().OrderNote
}

// InvoiceNumber returns the externally assigned invoice or receipt number,
// empty when the shop assigned none.
func (o *Order) InvoiceNumber() string {
	if o.InvoiceNo != "" {
		return o.InvoiceNo
	}
	return o.ReceiptNumber
}

// DisplayTitle resolves the position title from the alternative title fields.
func (i LineItem) DisplayTitle() string {
	for _, title := range []string{i.Title, i.PostTitle, i.ProductTitle, i.ItemTitle} {
		if title != "" {
			return title
		}
	}
	return "Position"
}
