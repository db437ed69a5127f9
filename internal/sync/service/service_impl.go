package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/smallbiznis/sevsync/internal/clock"
	"github.com/smallbiznis/sevsync/internal/config"
	orderdomain "github.com/smallbiznis/sevsync/internal/order/domain"
	"github.com/smallbiznis/sevsync/internal/sevdesk"
	"github.com/smallbiznis/sevsync/internal/sync/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultCurrency      = "EUR"
	defaultCountryCode   = "DE"
	defaultTimeToPayDays = 14
	invoiceType          = "RE"

	// Account defaults of the sevdesk instance.
	defaultCategoryID = 1
	defaultTaxRuleID  = 1
	defaultUnityID    = 1
	fallbackCountryID = 1
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Client   *sevdesk.Client
	Store    orderdomain.Store
	Clock    clock.Clock
	Settings *config.SettingsHolder
}

type Service struct {
	log      *zap.Logger
	client   *sevdesk.Client
	store    orderdomain.Store
	clock    clock.Clock
	settings *config.SettingsHolder

	countryMu    sync.Mutex
	countryCache map[string]*sevdesk.Ref

	personMu        sync.Mutex
	contactPersonID int64
}

func New(p Params) domain.Service {
	return &Service{
		log:          p.Log.Named("sync.service"),
		client:       p.Client,
		store:        p.Store,
		clock:        p.Clock,
		settings:     p.Settings,
		countryCache: make(map[string]*sevdesk.Ref),
	}
}

func (s *Service) PushOrder(ctx context.Context, ord *orderdomain.Order) (int64, error) {
	if ord == nil || ord.ID == 0 {
		return 0, domain.ErrMissingOrder
	}

	sentID, err := s.invoiceMarker(ctx, ord.ID)
	if err != nil {
		return 0, fmt.Errorf("read invoice marker: %w", err)
	}
	if sentID != 0 {
		s.log.Debug("order already synced", zap.Int64("order_id", ord.ID), zap.Int64("invoice_id", sentID))
		return sentID, nil
	}

	contactID, err := s.upsertContact(ctx, ord)
	if err != nil {
		return 0, err
	}

	invoiceID, err := s.createInvoice(ctx, ord, contactID)
	if err != nil {
		return 0, err
	}

	if invoiceID != 0 {
		// Conditional write: concurrent triggers for the same order converge
		// on whichever invoice id landed first.
		won, err := s.store.SetMetaIfAbsent(ctx, ord.ID, domain.MetaKeyInvoiceID, strconv.FormatInt(invoiceID, 10))
		if err != nil {
			return 0, fmt.Errorf("persist invoice marker: %w", err)
		}
		if parsed, parseErr := strconv.ParseInt(won, 10, 64); parseErr == nil && parsed != 0 {
			invoiceID = parsed
		}

		if err := s.store.AppendNote(ctx, ord.ID, fmt.Sprintf("sevdesk: invoice #%d created.", invoiceID)); err != nil {
			s.log.Warn("append success note failed", zap.Int64("order_id", ord.ID), zap.Error(err))
		}
	}

	return invoiceID, nil
}

// SyncContact re-runs the contact upsert alone, without touching invoices.
func (s *Service) SyncContact(ctx context.Context, ord *orderdomain.Order) (int64, error) {
	if ord == nil || ord.ID == 0 {
		return 0, domain.ErrMissingOrder
	}
	return s.upsertContact(ctx, ord)
}

func (s *Service) invoiceMarker(ctx context.Context, orderID int64) (int64, error) {
	raw, err := s.store.GetMeta(ctx, orderID, domain.MetaKeyInvoiceID)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return parsed, nil
}

// upsertContact discovers or creates the remote contact for the order's
// billing data, then best-effort attaches address and communication ways.
// Discovery and update failures are non-fatal; only a failed create aborts
// the sync.
func (s *Service) upsertContact(ctx context.Context, ord *orderdomain.Order) (int64, error) {
	var existingID int64

	// A previously created invoice links the contact we want.
	if markerID, err := s.invoiceMarker(ctx, ord.ID); err == nil && markerID != 0 {
		contactID, err := s.client.GetInvoiceContactID(ctx, markerID)
		if err != nil {
			s.log.Warn("contact discovery via invoice failed", zap.Int64("order_id", ord.ID), zap.Error(err))
		} else {
			existingID = contactID
		}
	}

	if existingID == 0 {
		contactID, err := s.client.FindContactByEmail(ctx, ord.Email())
		if err != nil {
			s.log.Warn("contact discovery via email failed", zap.Int64("order_id", ord.ID), zap.Error(err))
		} else {
			existingID = contactID
		}
	}

	timeToPay := defaultTimeToPayDays
	if ord.PaymentDeadlineDays != nil {
		timeToPay = *ord.PaymentDeadlineDays
	}

	// sevdesk wants a running customer number; when the fetch fails the field
	// stays empty and the account's auto assignment takes over.
	customerNumber, err := s.client.NextCustomerNumber(ctx)
	if err != nil {
		s.log.Warn("next customer number fetch failed", zap.Error(err))
		customerNumber = ""
	}

	company := ord.Company()
	displayName := company
	if displayName == "" {
		displayName = resolveName(ord)
	}

	contact := sevdesk.Contact{
		ObjectName:       "Contact",
		MapAll:           true,
		Status:           sevdesk.ContactStatusActive,
		Surename:         ord.FirstName(),
		Familyname:       ord.LastName(),
		Name:             displayName,
		CustomerNumber:   customerNumber,
		Category:         sevdesk.CategoryRef(defaultCategoryID),
		Description:      ord.OrderNote(),
		VatNumber:        ord.VATNumber(),
		TaxNumber:        ord.TaxNumber(),
		DefaultTimeToPay: timeToPay,
	}

	contactID := existingID
	if existingID != 0 {
		if err := s.client.UpdateContact(ctx, existingID, contact); err != nil {
			s.log.Warn("contact update failed, keeping existing contact", zap.Int64("contact_id", existingID), zap.Error(err))
		}
	} else {
		createdID, err := s.client.CreateContact(ctx, contact)
		if err != nil {
			return 0, fmt.Errorf("create contact: %w", err)
		}
		contactID = createdID
	}

	address := sevdesk.ContactAddress{
		ObjectName: "ContactAddress",
		Contact:    sevdesk.ContactRef(contactID),
		Street:     ord.Street(),
		Zip:        ord.Zip(),
		City:       ord.City(),
		Country:    s.countryRef(ctx, ord.Country()),
		Name:       displayName,
		Category:   sevdesk.CategoryRef(defaultCategoryID),
	}
	if err := s.client.CreateContactAddress(ctx, address); err != nil {
		s.log.Warn("contact address create failed", zap.Int64("contact_id", contactID), zap.Error(err))
	}

	if email := ord.Email(); email != "" {
		s.createCommunicationWay(ctx, contactID, sevdesk.CommunicationWayEmail, email, 2, true)
	}
	if phone := ord.Phone(); phone != "" {
		s.createCommunicationWay(ctx, contactID, sevdesk.CommunicationWayPhone, phone, 2, false)
	}
	if mobile := ord.Mobile(); mobile != "" {
		s.createCommunicationWay(ctx, contactID, sevdesk.CommunicationWayMobile, mobile, 4, false)
	}

	return contactID, nil
}

func (s *Service) createCommunicationWay(ctx context.Context, contactID int64, wayType, value string, keyID int64, main bool) {
	way := sevdesk.CommunicationWay{
		ObjectName: "CommunicationWay",
		Contact:    sevdesk.ContactRef(contactID),
		Type:       wayType,
		Value:      value,
		Key:        sevdesk.CommWayKeyRef(keyID),
		Main:       main,
	}
	if err := s.client.CreateCommunicationWay(ctx, way); err != nil {
		s.log.Warn("communication way create failed",
			zap.Int64("contact_id", contactID),
			zap.String("type", wayType),
			zap.Error(err))
	}
}

func (s *Service) createInvoice(ctx context.Context, ord *orderdomain.Order, contactID int64) (int64, error) {
	currency := ord.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	invoiceTaxRate := float64(defaultTaxRate)
	if len(ord.Items) > 0 && ord.Items[0].TaxRate != nil {
		invoiceTaxRate = *ord.Items[0].TaxRate
	}

	invoice := sevdesk.Invoice{
		ObjectName:     "Invoice",
		MapAll:         true,
		InvoiceDate:    s.invoiceDate(ord),
		InvoiceNumber:  ord.InvoiceNumber(),
		Status:         sevdesk.InvoiceStatusDraft,
		Currency:       currency,
		InvoiceType:    invoiceType,
		TaxRule:        sevdesk.TaxRuleRef(defaultTaxRuleID),
		TaxRate:        invoiceTaxRate,
		TimeToPay:      defaultTimeToPayDays,
		AddressName:    resolveName(ord),
		AddressStreet:  ord.StreetLine1(),
		AddressZip:     ord.Zip(),
		AddressCity:    ord.City(),
		AddressCountry: s.countryRef(ctx, ord.Country()),
	}
	if contactID != 0 {
		invoice.Contact = sevdesk.ContactRef(contactID)
	}
	if personID := s.defaultContactPersonID(ctx); personID != 0 {
		invoice.ContactPerson = sevdesk.SevUserRef(personID)
	}

	positions := make([]sevdesk.InvoicePosition, 0, len(ord.Items))
	for i, item := range ord.Items {
		positions = append(positions, positionFor(item, i+1))
	}

	invoiceID, err := s.client.SaveInvoice(ctx, sevdesk.SaveInvoiceRequest{
		Invoice:        invoice,
		InvoicePosSave: positions,
	})
	if err != nil {
		return 0, fmt.Errorf("create invoice: %w", err)
	}
	return invoiceID, nil
}

// invoiceDate renders the order's creation timestamp in the DD.MM.YYYY form
// the API expects; an unparseable timestamp falls back to today.
func (s *Service) invoiceDate(ord *orderdomain.Order) string {
	t, err := parseOrderTime(ord.CreatedAt)
	if err != nil {
		t = s.clock.Now()
	}
	return t.Format("02.01.2006")
}

// countryRef resolves the static-country reference for an ISO code, cached
// for the lifetime of this service instance. Lookup failure and unknown
// codes both fall back to the default country.
func (s *Service) countryRef(ctx context.Context, code string) *sevdesk.Ref {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = defaultCountryCode
	}

	s.countryMu.Lock()
	if ref, ok := s.countryCache[code]; ok {
		s.countryMu.Unlock()
		return ref
	}
	s.countryMu.Unlock()

	ref := sevdesk.CountryRef(fallbackCountryID)
	countryID, err := s.client.GetStaticCountryID(ctx, code)
	if err != nil {
		s.log.Warn("static country lookup failed", zap.String("code", code), zap.Error(err))
	} else if countryID != 0 {
		ref = sevdesk.CountryRef(countryID)
	}

	s.countryMu.Lock()
	s.countryCache[code] = ref
	s.countryMu.Unlock()
	return ref
}

// defaultContactPersonID resolves the SevUser attached to invoices: the
// account's first user, else the configured fallback. Resolved once per
// service instance.
func (s *Service) defaultContactPersonID(ctx context.Context) int64 {
	s.personMu.Lock()
	defer s.personMu.Unlock()

	if s.contactPersonID != 0 {
		return s.contactPersonID
	}

	userID, err := s.client.FirstSevUser(ctx)
	if err != nil {
		s.log.Warn("sev user lookup failed", zap.Error(err))
	}
	if userID == 0 {
		userID = s.settings.FallbackContactPersonID()
		if userID == 0 {
			s.log.Warn("no contact person resolvable; configure SEVDESK_FALLBACK_CONTACT_PERSON_ID")
			return 0
		}
	}

	s.contactPersonID = userID
	return userID
}
