package sevdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CredentialSource yields the current API key. An empty key disables the
// integration; callers gate on that before reaching the client.
type CredentialSource interface {
	APIKey() string
}

// Client is a thin typed client for the sevdesk REST API. Every call is
// independently fallible; retry policy is the caller's concern.
type Client struct {
	baseURL string
	creds   CredentialSource
	client  *http.Client
	metrics *Metrics
}

func NewClient(baseURL string, creds CredentialSource, metrics *Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		creds:   creds,
		client:  &http.Client{Timeout: 15 * time.Second},
		metrics: metrics,
	}
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.creds.APIKey())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.observe(op, "error")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		c.observe(op, "error")
		return fmt.Errorf("sevdesk: %s %s: status %d", method, path, resp.StatusCode)
	}
	c.observe(op, "ok")

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) observe(op, outcome string) {
	if c.metrics != nil {
		c.metrics.RemoteCalls.WithLabelValues(op, outcome).Inc()
	}
}

// GetInvoiceContactID fetches an existing invoice with its embedded contact
// and returns that contact's id, 0 when the invoice carries none.
func (c *Client) GetInvoiceContactID(ctx context.Context, invoiceID int64) (int64, error) {
	var envelope struct {
		Objects []struct {
			ID      ID `json:"id"`
			Contact struct {
				ID ID `json:"id"`
			} `json:"contact"`
		} `json:"objects"`
	}
	query := url.Values{"embed": {"contact"}}
	err := c.do(ctx, "get_invoice", http.MethodGet, fmt.Sprintf("/Invoice/%d", invoiceID), query, nil, &envelope)
	if err != nil {
		return 0, err
	}
	if len(envelope.Objects) == 0 {
		return 0, nil
	}
	return int64(envelope.Objects[0].Contact.ID), nil
}

// FindContactByEmail searches contacts by exact email match and returns the
// first hit, 0 when none.
func (c *Client) FindContactByEmail(ctx context.Context, email string) (int64, error) {
	if email == "" {
		return 0, nil
	}
	var envelope struct {
		Objects []struct {
			ID ID `json:"id"`
		} `json:"objects"`
	}
	query := url.Values{"email": {email}, "limit": {"1"}}
	if err := c.do(ctx, "find_contact", http.MethodGet, "/Contact", query, nil, &envelope); err != nil {
		return 0, err
	}
	if len(envelope.Objects) == 0 {
		return 0, nil
	}
	return int64(envelope.Objects[0].ID), nil
}

// NextCustomerNumber asks the API for the next free customer number. The
// envelope carries it as a string or a number depending on the account.
func (c *Client) NextCustomerNumber(ctx context.Context) (string, error) {
	var envelope struct {
		Objects any `json:"objects"`
	}
	err := c.do(ctx, "next_customer_number", http.MethodGet, "/Contact/Factory/getNextCustomerNumber", nil, nil, &envelope)
	if err != nil {
		return "", err
	}
	switch v := envelope.Objects.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	default:
		return "", nil
	}
}

// CreateContact creates a contact and returns its id. A response missing the
// id yields 0, not an error.
func (c *Client) CreateContact(ctx context.Context, contact Contact) (int64, error) {
	var envelope struct {
		Objects struct {
			ID ID `json:"id"`
		} `json:"objects"`
	}
	if err := c.do(ctx, "create_contact", http.MethodPost, "/Contact", nil, contact, &envelope); err != nil {
		return 0, err
	}
	return int64(envelope.Objects.ID), nil
}

func (c *Client) UpdateContact(ctx context.Context, contactID int64, contact Contact) error {
	return c.do(ctx, "update_contact", http.MethodPut, fmt.Sprintf("/Contact/%d", contactID), nil, contact, nil)
}

func (c *Client) CreateContactAddress(ctx context.Context, address ContactAddress) error {
	return c.do(ctx, "create_contact_address", http.MethodPost, "/ContactAddress", nil, address, nil)
}

func (c *Client) CreateCommunicationWay(ctx context.Context, way CommunicationWay) error {
	return c.do(ctx, "create_communication_way", http.MethodPost, "/CommunicationWay", nil, way, nil)
}

// GetStaticCountryID looks up the static country catalog by ISO code and
// returns the internal id, 0 when the catalog has no entry for code.
func (c *Client) GetStaticCountryID(ctx context.Context, code string) (int64, error) {
	var envelope struct {
		Objects []struct {
			ID ID `json:"id"`
		} `json:"objects"`
	}
	query := url.Values{"countryCode": {code}}
	if err := c.do(ctx, "get_static_country", http.MethodGet, "/StaticCountry", query, nil, &envelope); err != nil {
		return 0, err
	}
	if len(envelope.Objects) == 0 {
		return 0, nil
	}
	return int64(envelope.Objects[0].ID), nil
}

// FirstSevUser returns the id of the first user of the account, 0 when the
// list is empty.
func (c *Client) FirstSevUser(ctx context.Context) (int64, error) {
	var envelope struct {
		Objects []struct {
			ID ID `json:"id"`
		} `json:"objects"`
	}
	query := url.Values{"limit": {"1"}}
	if err := c.do(ctx, "get_sev_users", http.MethodGet, "/SevUser", query, nil, &envelope); err != nil {
		return 0, err
	}
	if len(envelope.Objects) == 0 {
		return 0, nil
	}
	return int64(envelope.Objects[0].ID), nil
}

// SaveInvoice creates the invoice and all positions in one factory call and
// returns the created invoice id. A response missing the nested id yields 0.
func (c *Client) SaveInvoice(ctx context.Context, save SaveInvoiceRequest) (int64, error) {
	var envelope struct {
		Objects struct {
			Invoice struct {
				ID ID `json:"id"`
			} `json:"invoice"`
		} `json:"objects"`
	}
	if err := c.do(ctx, "save_invoice", http.MethodPost, "/Invoice/Factory/saveInvoice", nil, save, &envelope); err != nil {
		return 0, err
	}
	return int64(envelope.Objects.Invoice.ID), nil
}
