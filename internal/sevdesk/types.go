package sevdesk

import (
	"bytes"
	"strconv"
)

// ID is a sevdesk object identifier. The API is inconsistent about the wire
// type and returns ids both as numbers and as quoted strings.
type ID int64

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	parsed, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*id = ID(parsed)
	return nil
}

// Ref is the {id, objectName} reference shape used throughout the API.
type Ref struct {
	ID         int64  `json:"id"`
	ObjectName string `json:"objectName"`
}

func CategoryRef(id int64) *Ref    { return &Ref{ID: id, ObjectName: "Category"} }
func ContactRef(id int64) *Ref    { return &Ref{ID: id, ObjectName: "Contact"} }
func TaxRuleRef(id int64) *Ref    { return &Ref{ID: id, ObjectName: "TaxRule"} }
func UnityRef(id int64) *Ref      { return &Ref{ID: id, ObjectName: "Unity"} }
func SevUserRef(id int64) *Ref    { return &Ref{ID: id, ObjectName: "SevUser"} }
func CountryRef(id int64) *Ref    { return &Ref{ID: id, ObjectName: "StaticCountry"} }
func CommWayKeyRef(id int64) *Ref { return &Ref{ID: id, ObjectName: "CommunicationWayKey"} }

// Contact is the create/update payload for a contact. Empty fields are
// omitted on the wire; the API rejects explicit nulls and empty strings.
type Contact struct {
	ObjectName       string `json:"objectName"`
	MapAll           bool   `json:"mapAll"`
	Status           int    `json:"status,omitempty"`
	Surename         string `json:"surename,omitempty"`
	Familyname       string `json:"familyname,omitempty"`
	Name             string `json:"name,omitempty"`
	CustomerNumber   string `json:"customerNumber,omitempty"`
	Category         *Ref   `json:"category,omitempty"`
	Description      string `json:"description,omitempty"`
	VatNumber        string `json:"vatNumber,omitempty"`
	TaxNumber        string `json:"taxNumber,omitempty"`
	DefaultTimeToPay int    `json:"defaultTimeToPay,omitempty"`
}

// ContactAddress attaches a billing address to a contact.
type ContactAddress struct {
	ObjectName string `json:"objectName"`
	Contact    *Ref   `json:"contact"`
	Street     string `json:"street,omitempty"`
	Zip        string `json:"zip,omitempty"`
	City       string `json:"city,omitempty"`
	Country    *Ref   `json:"country,omitempty"`
	Name       string `json:"name,omitempty"`
	Category   *Ref   `json:"category,omitempty"`
}

// CommunicationWay is one reachable channel of a contact.
type CommunicationWay struct {
	ObjectName string `json:"objectName"`
	Contact    *Ref   `json:"contact"`
	Type       string `json:"type"`
	Value      string `json:"value"`
	Key        *Ref   `json:"key,omitempty"`
	Main       bool   `json:"main"`
}

const (
	CommunicationWayEmail  = "EMAIL"
	CommunicationWayPhone  = "PHONE"
	CommunicationWayMobile = "MOBILE"
)

// Invoice is the draft-invoice payload of the factory call.
type Invoice struct {
	ObjectName     string  `json:"objectName"`
	MapAll         bool    `json:"mapAll"`
	Contact        *Ref    `json:"contact,omitempty"`
	InvoiceDate    string  `json:"invoiceDate"`
	InvoiceNumber  string  `json:"invoiceNumber,omitempty"`
	Status         int     `json:"status"`
	Currency       string  `json:"currency"`
	InvoiceType    string  `json:"invoiceType"`
	TaxRule        *Ref    `json:"taxRule"`
	TaxRate        float64 `json:"taxRate"`
	TimeToPay      int     `json:"timeToPay"`
	AddressName    string  `json:"addressName,omitempty"`
	AddressStreet  string  `json:"addressStreet,omitempty"`
	AddressZip     string  `json:"addressZip,omitempty"`
	AddressCity    string  `json:"addressCity,omitempty"`
	AddressCountry *Ref    `json:"addressCountry,omitempty"`
	ContactPerson  *Ref    `json:"contactPerson,omitempty"`
}

// InvoicePosition is one line of the invoice, created together with it.
type InvoicePosition struct {
	ObjectName     string  `json:"objectName"`
	MapAll         bool    `json:"mapAll"`
	Quantity       float64 `json:"quantity"`
	Price          float64 `json:"price"`
	PriceGross     float64 `json:"priceGross"`
	Name           string  `json:"name,omitempty"`
	Text           string  `json:"text,omitempty"`
	PositionNumber int     `json:"positionNumber"`
	TaxRate        float64 `json:"taxRate"`
	TaxRule        *Ref    `json:"taxRule"`
	Unity          *Ref    `json:"unity"`
}

// SaveInvoiceRequest is the factory body creating invoice and positions in
// one call.
type SaveInvoiceRequest struct {
	Invoice        Invoice           `json:"invoice"`
	InvoicePosSave []InvoicePosition `json:"invoicePosSave"`
}

// InvoiceStatusDraft is the sevdesk draft status code.
const InvoiceStatusDraft = 100

// ContactStatusActive is the sevdesk active-contact status code.
const ContactStatusActive = 1000
