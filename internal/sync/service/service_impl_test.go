package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/sevsync/internal/clock"
	"github.com/smallbiznis/sevsync/internal/config"
	orderdomain "github.com/smallbiznis/sevsync/internal/order/domain"
	"github.com/smallbiznis/sevsync/internal/order/repository"
	"github.com/smallbiznis/sevsync/internal/sevdesk"
	syncdomain "github.com/smallbiznis/sevsync/internal/sync/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeSevdesk answers the subset of the sevdesk API the sync touches and
// records every call.
type fakeSevdesk struct {
	mu    sync.Mutex
	calls map[string]int

	contactByEmail   int64
	invoiceContactID int64
	countryID        int64
	sevUserID        int64

	failCreateContact bool
	failUpdateContact bool
	failSaveInvoice   bool
	failFindContact   bool

	lastContact  map[string]any
	lastAddress  map[string]any
	commWays     []map[string]any
	lastSaveBody map[string]any
}

func newFakeSevdesk() *fakeSevdesk {
	return &fakeSevdesk{calls: map[string]int{}}
}

func (f *fakeSevdesk) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeSevdesk) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeSevdesk) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	write := func(status int, body string) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/Contact/Factory/getNextCustomerNumber":
		f.calls["next_customer_number"]++
		write(http.StatusOK, `{"objects":"1005"}`)

	case r.Method == http.MethodGet && r.URL.Path == "/Contact":
		f.calls["find_contact"]++
		if f.failFindContact {
			write(http.StatusInternalServerError, `{}`)
			return
		}
		if f.contactByEmail != 0 {
			write(http.StatusOK, fmt.Sprintf(`{"objects":[{"id":"%d"}]}`, f.contactByEmail))
			return
		}
		write(http.StatusOK, `{"objects":[]}`)

	case r.Method == http.MethodPost && r.URL.Path == "/Contact":
		f.calls["create_contact"]++
		if f.failCreateContact {
			write(http.StatusInternalServerError, `{}`)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&f.lastContact)
		write(http.StatusCreated, `{"objects":{"id":"901"}}`)

	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/Contact/"):
		f.calls["update_contact"]++
		if f.failUpdateContact {
			write(http.StatusInternalServerError, `{}`)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&f.lastContact)
		write(http.StatusOK, `{"objects":{}}`)

	case r.Method == http.MethodPost && r.URL.Path == "/ContactAddress":
		f.calls["create_contact_address"]++
		_ = json.NewDecoder(r.Body).Decode(&f.lastAddress)
		write(http.StatusCreated, `{"objects":{}}`)

	case r.Method == http.MethodPost && r.URL.Path == "/CommunicationWay":
		f.calls["create_communication_way"]++
		var way map[string]any
		_ = json.NewDecoder(r.Body).Decode(&way)
		f.commWays = append(f.commWays, way)
		write(http.StatusCreated, `{"objects":{}}`)

	case r.Method == http.MethodGet && r.URL.Path == "/StaticCountry":
		f.calls["get_static_country"]++
		if f.countryID != 0 {
			write(http.StatusOK, fmt.Sprintf(`{"objects":[{"id":"%d"}]}`, f.countryID))
			return
		}
		write(http.StatusOK, `{"objects":[]}`)

	case r.Method == http.MethodGet && r.URL.Path == "/SevUser":
		f.calls["get_sev_users"]++
		if f.sevUserID != 0 {
			write(http.StatusOK, fmt.Sprintf(`{"objects":[{"id":"%d"}]}`, f.sevUserID))
			return
		}
		write(http.StatusOK, `{"objects":[]}`)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/Invoice/"):
		f.calls["get_invoice"]++
		write(http.StatusOK, fmt.Sprintf(`{"objects":[{"id":1,"contact":{"id":%d}}]}`, f.invoiceContactID))

	case r.Method == http.MethodPost && r.URL.Path == "/Invoice/Factory/saveInvoice":
		f.calls["save_invoice"]++
		if f.failSaveInvoice {
			write(http.StatusInternalServerError, `{}`)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&f.lastSaveBody)
		write(http.StatusCreated, `{"objects":{"invoice":{"id":"3001"}}}`)

	default:
		write(http.StatusNotFound, `{}`)
	}
}

func newTestStore(t *testing.T) (orderdomain.Store, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orderdomain.OrderMeta{},
		&orderdomain.OrderNote{},
		&orderdomain.WebhookEvent{},
	))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return repository.NewStore(db, node), db
}

func newTestService(t *testing.T, fake *fakeSevdesk, cfg config.Config) (*Service, orderdomain.Store, *gorm.DB) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg.Sevdesk.BaseURL = srv.URL
	if cfg.Sevdesk.APIKey == "" {
		cfg.Sevdesk.APIKey = "test-key"
	}
	settings, err := config.NewSettingsHolder(cfg)
	require.NoError(t, err)

	store, db := newTestStore(t)
	svc := New(Params{
		Log:      zap.NewNop(),
		Client:   sevdesk.NewClient(srv.URL, settings, nil),
		Store:    store,
		Clock:    clock.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		Settings: settings,
	}).(*Service)
	return svc, store, db
}

func testOrder() *orderdomain.Order {
	return &orderdomain.Order{
		ID:        10,
		CreatedAt: "2024-05-01 10:30:00",
		Currency:  "EUR",
		BillingAddress: &orderdomain.BillingAddress{
			FirstName: "Erika",
			LastName:  "Mustermann",
			Email:     "a@example.com",
			Address1:  "Musterstr. 1",
			Postcode:  "10115",
			City:      "Berlin",
			Country:   "DE",
		},
		Items: []orderdomain.LineItem{
			{Quantity: floatPtr(1), UnitPrice: intPtr64(5000), Title: "Widget"},
		},
	}
}

func TestPushOrder_AlreadySynced_NoRemoteCalls(t *testing.T) {
	fake := newFakeSevdesk()
	svc, store, _ := newTestService(t, fake, config.Load())

	ctx := context.Background()
	require.NoError(t, store.SetMeta(ctx, 10, syncdomain.MetaKeyInvoiceID, "555"))

	invoiceID, err := svc.PushOrder(ctx, testOrder())
	require.NoError(t, err)
	assert.Equal(t, int64(555), invoiceID)
	assert.Equal(t, 0, fake.totalCalls())
}

func TestPushOrder_MissingOrder(t *testing.T) {
	fake := newFakeSevdesk()
	svc, _, _ := newTestService(t, fake, config.Load())

	_, err := svc.PushOrder(context.Background(), nil)
	assert.ErrorIs(t, err, syncdomain.ErrMissingOrder)

	_, err = svc.PushOrder(context.Background(), &orderdomain.Order{})
	assert.ErrorIs(t, err, syncdomain.ErrMissingOrder)
}

func TestPushOrder_FullScenario(t *testing.T) {
	fake := newFakeSevdesk()
	fake.countryID = 55
	fake.sevUserID = 7
	svc, store, db := newTestService(t, fake, config.Load())

	ctx := context.Background()
	invoiceID, err := svc.PushOrder(ctx, testOrder())
	require.NoError(t, err)
	assert.Equal(t, int64(3001), invoiceID)

	// new contact path
	assert.Equal(t, 1, fake.count("find_contact"))
	assert.Equal(t, 1, fake.count("create_contact"))
	assert.Equal(t, 0, fake.count("update_contact"))
	assert.Equal(t, "Erika", fake.lastContact["surename"])
	assert.Equal(t, "Mustermann", fake.lastContact["familyname"])
	assert.Equal(t, "Erika Mustermann", fake.lastContact["name"])
	assert.Equal(t, "1005", fake.lastContact["customerNumber"])

	// address attached with resolved country
	assert.Equal(t, 1, fake.count("create_contact_address"))
	country := fake.lastAddress["country"].(map[string]any)
	assert.Equal(t, float64(55), country["id"])
	assert.Equal(t, "StaticCountry", country["objectName"])
	assert.Equal(t, "Musterstr. 1", fake.lastAddress["street"])

	// email is the only communication way, marked main
	require.Len(t, fake.commWays, 1)
	assert.Equal(t, "EMAIL", fake.commWays[0]["type"])
	assert.Equal(t, "a@example.com", fake.commWays[0]["value"])
	assert.Equal(t, true, fake.commWays[0]["main"])

	// one factory call with one position: 50.00 at 19%
	assert.Equal(t, 1, fake.count("save_invoice"))
	invoice := fake.lastSaveBody["invoice"].(map[string]any)
	assert.Equal(t, "01.05.2024", invoice["invoiceDate"])
	assert.Equal(t, float64(sevdesk.InvoiceStatusDraft), invoice["status"])
	person := invoice["contactPerson"].(map[string]any)
	assert.Equal(t, float64(7), person["id"])
	positions := fake.lastSaveBody["invoicePosSave"].([]any)
	require.Len(t, positions, 1)
	pos := positions[0].(map[string]any)
	assert.Equal(t, float64(50), pos["price"])
	assert.Equal(t, float64(19), pos["taxRate"])
	assert.Equal(t, float64(1), pos["positionNumber"])

	// marker set and success note appended
	marker, err := store.GetMeta(ctx, 10, syncdomain.MetaKeyInvoiceID)
	require.NoError(t, err)
	assert.Equal(t, "3001", marker)

	var notes []orderdomain.OrderNote
	require.NoError(t, db.Where("order_id = ?", 10).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Note, "#3001")
}

func TestPushOrder_InvoiceFailure_NoMarkerNoRollback(t *testing.T) {
	fake := newFakeSevdesk()
	fake.failSaveInvoice = true
	svc, store, db := newTestService(t, fake, config.Load())

	ctx := context.Background()
	_, err := svc.PushOrder(ctx, testOrder())
	require.Error(t, err)

	// the contact stays created remotely
	assert.Equal(t, 1, fake.count("create_contact"))

	marker, getErr := store.GetMeta(ctx, 10, syncdomain.MetaKeyInvoiceID)
	require.NoError(t, getErr)
	assert.Empty(t, marker)

	var notes []orderdomain.OrderNote
	require.NoError(t, db.Where("order_id = ?", 10).Find(&notes).Error)
	assert.Empty(t, notes)
}

func TestPushOrder_ContactCreateFailure_Propagates(t *testing.T) {
	fake := newFakeSevdesk()
	fake.failCreateContact = true
	svc, _, _ := newTestService(t, fake, config.Load())

	_, err := svc.PushOrder(context.Background(), testOrder())
	require.Error(t, err)
	assert.Equal(t, 0, fake.count("save_invoice"))
}

func TestSyncContact_DiscoveryViaExistingInvoice(t *testing.T) {
	fake := newFakeSevdesk()
	fake.invoiceContactID = 42
	svc, store, _ := newTestService(t, fake, config.Load())

	ctx := context.Background()
	require.NoError(t, store.SetMeta(ctx, 10, syncdomain.MetaKeyInvoiceID, "123"))

	contactID, err := svc.SyncContact(ctx, testOrder())
	require.NoError(t, err)
	assert.Equal(t, int64(42), contactID)
	assert.Equal(t, 1, fake.count("get_invoice"))
	assert.Equal(t, 0, fake.count("find_contact"))
	assert.Equal(t, 1, fake.count("update_contact"))
	assert.Equal(t, 0, fake.count("create_contact"))
}

func TestSyncContact_DiscoveryViaEmail(t *testing.T) {
	fake := newFakeSevdesk()
	fake.contactByEmail = 777
	svc, _, _ := newTestService(t, fake, config.Load())

	contactID, err := svc.SyncContact(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, int64(777), contactID)
	assert.Equal(t, 1, fake.count("update_contact"))
	assert.Equal(t, 0, fake.count("create_contact"))
}

func TestSyncContact_UpdateFailureKeepsExistingID(t *testing.T) {
	fake := newFakeSevdesk()
	fake.contactByEmail = 777
	fake.failUpdateContact = true
	svc, _, _ := newTestService(t, fake, config.Load())

	contactID, err := svc.SyncContact(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, int64(777), contactID)
}

func TestSyncContact_NoEmailNoInvoice_CreatesNew(t *testing.T) {
	fake := newFakeSevdesk()
	svc, _, _ := newTestService(t, fake, config.Load())

	ord := testOrder()
	ord.BillingAddress.Email = ""
	ord.CustomerEmail = ""

	contactID, err := svc.SyncContact(context.Background(), ord)
	require.NoError(t, err)
	assert.Equal(t, int64(901), contactID)
	// empty email short-circuits before any contact search
	assert.Equal(t, 0, fake.count("find_contact"))
	assert.Equal(t, 1, fake.count("create_contact"))
	// without an email only phone/mobile could be attached, and there are none
	assert.Empty(t, fake.commWays)
}

func TestSyncContact_DiscoveryFailureFallsThrough(t *testing.T) {
	fake := newFakeSevdesk()
	fake.failFindContact = true
	svc, _, _ := newTestService(t, fake, config.Load())

	contactID, err := svc.SyncContact(context.Background(), testOrder())
	require.NoError(t, err)
	assert.Equal(t, int64(901), contactID)
	assert.Equal(t, 1, fake.count("create_contact"))
}

func TestCountryRef_Memoized(t *testing.T) {
	fake := newFakeSevdesk()
	fake.countryID = 55
	svc, _, _ := newTestService(t, fake, config.Load())

	ctx := context.Background()
	first := svc.countryRef(ctx, "de")
	second := svc.countryRef(ctx, "DE")

	assert.Equal(t, 1, fake.count("get_static_country"))
	assert.Equal(t, first, second)
	assert.Equal(t, int64(55), first.ID)
}

func TestCountryRef_FallbackCachedOnLookupMiss(t *testing.T) {
	fake := newFakeSevdesk()
	svc, _, _ := newTestService(t, fake, config.Load())

	ctx := context.Background()
	ref := svc.countryRef(ctx, "XX")
	assert.Equal(t, int64(fallbackCountryID), ref.ID)
	assert.Equal(t, "StaticCountry", ref.ObjectName)

	svc.countryRef(ctx, "xx")
	assert.Equal(t, 1, fake.count("get_static_country"))
}

func TestDefaultContactPerson_CachedAfterFirstResolution(t *testing.T) {
	fake := newFakeSevdesk()
	fake.sevUserID = 7
	svc, _, _ := newTestService(t, fake, config.Load())

	ctx := context.Background()
	assert.Equal(t, int64(7), svc.defaultContactPersonID(ctx))
	assert.Equal(t, int64(7), svc.defaultContactPersonID(ctx))
	assert.Equal(t, 1, fake.count("get_sev_users"))
}

func TestDefaultContactPerson_ConfiguredFallback(t *testing.T) {
	fake := newFakeSevdesk()
	cfg := config.Load()
	cfg.Sevdesk.FallbackContactPersonID = 1446019
	svc, _, _ := newTestService(t, fake, cfg)

	assert.Equal(t, int64(1446019), svc.defaultContactPersonID(context.Background()))
}

func TestDefaultContactPerson_Unconfigured(t *testing.T) {
	fake := newFakeSevdesk()
	svc, _, _ := newTestService(t, fake, config.Load())

	assert.Equal(t, int64(0), svc.defaultContactPersonID(context.Background()))
}
