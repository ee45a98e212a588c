package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SaaSFox/app/models"
	"github.com/ManuelReschke/SaaSFox/app/repository"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/apperrors"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/database"
)

const testWebhookSecret = "whsec_test_secret"

var t0 = time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

type webhookFixture struct {
	db    *gorm.DB
	repos *repository.Repositories
	svc   *Service
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	db := database.NewTestDB(t)
	repos := repository.NewRepositories(db)
	cfg := Config{SecretKey: "sk_test_123", WebhookSecret: testWebhookSecret, BaseURL: "http://localhost:4000"}
	return &webhookFixture{
		db:    db,
		repos: repos,
		svc:   NewService(cfg, newStripeGateway("", testWebhookSecret), repos.User, NewRepository(db)),
	}
}

func (f *webhookFixture) createUser(t *testing.T, email, customerID string) *models.User {
	t.Helper()
	u, err := models.NewUser("Test User", email)
	require.NoError(t, err)
	require.NoError(t, f.repos.User.Create(u))
	if customerID != "" {
		linked, err := f.repos.User.SetCustomerIDIfEmpty(u.ID, customerID)
		require.NoError(t, err)
		require.True(t, linked)
	}
	return u
}

func (f *webhookFixture) status(t *testing.T, userID uint) *SubscriptionStatus {
	t.Helper()
	st, err := f.svc.GetSubscriptionStatus(context.Background(), userID)
	require.NoError(t, err)
	return st
}

func (f *webhookFixture) eventCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.BillingWebhookEvent{}).Count(&n).Error)
	return n
}

func (f *webhookFixture) deliver(t *testing.T, payload []byte) (*WebhookResult, error) {
	t.Helper()
	return f.svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret, time.Now()))
}

func signPayload(payload []byte, secret string, ts time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: ts,
	}).Header
}

func eventPayload(id, eventType string, created time.Time, object map[string]interface{}) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"created":     created.Unix(),
		"api_version": "2023-10-16",
		"data":        map[string]interface{}{"object": object},
	})
	return b
}

func checkoutCompleted(id, customerID string, userID uint, created time.Time) []byte {
	return eventPayload(id, EventCheckoutCompleted, created, map[string]interface{}{
		"id":                  "cs_" + id,
		"object":              "checkout.session",
		"customer":            customerID,
		"client_reference_id": fmt.Sprint(userID),
		"metadata":            map[string]string{"user_id": fmt.Sprint(userID)},
	})
}

func subscriptionEvent(id, eventType, customerID, status string, created time.Time) []byte {
	return eventPayload(id, eventType, created, map[string]interface{}{
		"id":       "sub_" + id,
		"object":   "subscription",
		"customer": customerID,
		"status":   status,
	})
}

func invoiceFailed(id, customerID string, created time.Time) []byte {
	return eventPayload(id, EventInvoicePaymentFailed, created, map[string]interface{}{
		"id":       "in_" + id,
		"object":   "invoice",
		"customer": customerID,
	})
}

func TestSubscriptionLifecycle(t *testing.T) {
	f := newWebhookFixture(t)
	u := f.createUser(t, "ada@example.com", "cus_123")

	st := f.status(t, u.ID)
	assert.Equal(t, "none", st.Status)
	assert.Nil(t, st.Plan)

	res, err := f.deliver(t, checkoutCompleted("evt_1", "cus_123", u.ID, t0))
	require.NoError(t, err)
	assert.True(t, res.Received)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	st = f.status(t, u.ID)
	assert.Equal(t, "active", st.Status)
	require.NotNil(t, st.Plan)
	assert.Equal(t, "pro", *st.Plan)

	res, err = f.deliver(t, subscriptionEvent("evt_2", EventSubscriptionDeleted, "cus_123", "canceled", t0.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	st = f.status(t, u.ID)
	assert.Equal(t, "canceled", st.Status)
	assert.Nil(t, st.Plan)
}

func TestInvoicePaymentFailedSetsPastDue(t *testing.T) {
	f := newWebhookFixture(t)
	u := f.createUser(t, "ada@example.com", "cus_123")

	_, err := f.deliver(t, checkoutCompleted("evt_1", "cus_123", u.ID, t0))
	require.NoError(t, err)
	_, err = f.deliver(t, invoiceFailed("evt_2", "cus_123", t0.Add(24*time.Hour)))
	require.NoError(t, err)

	st := f.status(t, u.ID)
	assert.Equal(t, "past_due", st.Status)
	assert.Nil(t, st.Plan)
}

func TestInvalidSignatureIsRejectedWithoutMutation(t *testing.T) {
	f := newWebhookFixture(t)
	u := f.createUser(t, "ada@example.com", "cus_123")
	payload := checkoutCompleted("evt_1", "cus_123", u.ID, t0)

	tests := []struct {
		name      string
		payload   []byte
		signature string
	}{
		{name: "missing", payload: payload, signature: ""},
		{name: "wrong secret", payload: payload, signature: signPayload(payload, "whsec_other", time.Now())},
		{name: "garbage header", payload: payload, signature: "not-a-signature"},
		{name: "tampered body", payload: checkoutCompleted("evt_1", "cus_999", u.ID, t0), signature: signPayload(payload, testWebhookSecret, time.Now())},
		{name: "too old", payload: payload, signature: signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.HandleWebhook(context.Background(), tt.payload, tt.signature)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}

	assert.Equal(t, int64(0), f.eventCount(t))
	assert.Equal(t, "none", f.status(t, u.ID).Status)
}

func TestUndecodablePayloadIsRejected(t *testing.T) {
	f := newWebhookFixture(t)
	payload := []byte(`{"id": "evt_1", "type": `)

	_, err := f.svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret, time.Now()))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Equal(t, int64(0), f.eventCount(t))
}

func TestDuplicateDeliveryIsAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)
	u := f.createUser(t, "ada@example.com", "cus_123")
	completed := checkoutCompleted("evt_1", "cus_123", u.ID, t0)

	_, err := f.deliver(t, completed)
	require.NoError(t, err)
	_, err = f.deliver(t, subscriptionEvent("evt_2", EventSubscriptionDeleted, "cus_123", "canceled", t0.Add(time.Hour)))
	require.NoError(t, err)

	res, err := f.deliver(t, completed)
	require.NoError(t, err)
	assert.True(t, res.Received)
	assert.True(t, res.Duplicate)

	assert.Equal(t, int64(2), f.eventCount(t))
	assert.Equal(t, "canceled", f.status(t, u.ID).Status)
}

func TestOutOfOrderEventDoesNotDowngrade(t *testing.T) {
	f := newWebhookFixture(t)
	u := f.createUser(t, "ada@example.com", "cus_123")

	_, err := f.deliver(t, checkoutCompleted("evt_2", "cus_123", u.ID, t0.Add(time.Hour)))
	require.NoError(t, err)

	res, err := f.deliver(t, invoiceFailed("evt_1", "cus_123", t0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, res.Outcome)

	assert.Equal(t, "active", f.status(t, u.ID).Status)
}

func TestCheckoutLinksCustomerFromMetadata(t *testing.T) {
	f := newWebhookFixture(t)
	u := f.createUser(t, "ada@example.com", "")

	res, err := f.deliver(t, checkoutCompleted("evt_1", "cus_new", u.ID, t0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)

	got, err := f.repos.User.GetByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "cus_new", got.CustomerID())
	assert.Equal(t, "active", got.Status())
}

func TestCheckoutDoesNotRelinkExistingCustomer(t *testing.T) {
	f := newWebhookFixture(t)
	u := f.createUser(t, "ada@example.com", "cus_original")

	res, err := f.deliver(t, checkoutCompleted("evt_1", "cus_other", u.ID, t0))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnlinked, res.Outcome)

	got, err := f.repos.User.GetByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "cus_original", got.CustomerID())
	assert.Equal(t, "none", got.Status())
}

func TestUnknownEventTypeIsIgnored(t *testing.T) {
	f := newWebhookFixture(t)
	payload := eventPayload("evt_1", "customer.created", t0, map[string]interface{}{"id": "cus_1", "object": "customer"})

	res, err := f.deliver(t, payload)
	require.NoError(t, err)
	assert.True(t, res.Received)
	assert.Equal(t, OutcomeIgnored, res.Outcome)

	res, err = f.deliver(t, payload)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
}

func TestUnlinkedCustomerIsAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)

	res, err := f.deliver(t, invoiceFailed("evt_1", "cus_unknown", t0))
	require.NoError(t, err)
	assert.True(t, res.Received)
	assert.Equal(t, OutcomeUnlinked, res.Outcome)
}

func TestSubscriptionUpdatedMapsStatus(t *testing.T) {
	f := newWebhookFixture(t)
	u := f.createUser(t, "ada@example.com", "cus_123")

	_, err := f.deliver(t, subscriptionEvent("evt_1", EventSubscriptionCreated, "cus_123", "trialing", t0))
	require.NoError(t, err)
	assert.Equal(t, "trialing", f.status(t, u.ID).Status)

	res, err := f.deliver(t, subscriptionEvent("evt_2", EventSubscriptionUpdated, "cus_123", "incomplete", t0.Add(time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Equal(t, "trialing", f.status(t, u.ID).Status)

	_, err = f.deliver(t, subscriptionEvent("evt_3", EventSubscriptionUpdated, "cus_123", "unpaid", t0.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "past_due", f.status(t, u.ID).Status)
}

type flakyUsers struct {
	UserStore
	fail bool
}

func (f *flakyUsers) ApplySubscriptionStatus(id uint, status string, eventAt time.Time) (bool, error) {
	if f.fail {
		return false, errors.New("database is locked")
	}
	return f.UserStore.ApplySubscriptionStatus(id, status, eventAt)
}

func TestFailedProcessingIsRetriedOnRedelivery(t *testing.T) {
	f := newWebhookFixture(t)
	u := f.createUser(t, "ada@example.com", "cus_123")
	flaky := &flakyUsers{UserStore: f.repos.User, fail: true}
	f.svc.users = flaky
	payload := checkoutCompleted("evt_1", "cus_123", u.ID, t0)

	res, err := f.deliver(t, payload)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.NotErrorIs(t, err, apperrors.ErrInvalidInput)

	var stored models.BillingWebhookEvent
	require.NoError(t, f.db.Where("provider_event_id = ?", "evt_1").First(&stored).Error)
	assert.Nil(t, stored.ProcessedAt)
	assert.Contains(t, stored.ProcessingError, "database is locked")

	flaky.fail = false
	res, err = f.deliver(t, payload)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, "active", f.status(t, u.ID).Status)

	require.NoError(t, f.db.Where("provider_event_id = ?", "evt_1").First(&stored).Error)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Empty(t, stored.ProcessingError)
}
