package billing_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modbilling "github.com/botframe/billingcore/modules/billing"
	"github.com/botframe/billingcore/pkg/billing"
)

type stubProviderClient struct {
	cancelErr error
	resumeErr error
	cancels   int
	resumes   int
}

func (c *stubProviderClient) CancelSubscription(_ context.Context, subID string) error {
	c.cancels++
	return c.cancelErr
}

func (c *stubProviderClient) ResumeSubscription(_ context.Context, subID string) error {
	c.resumes++
	return c.resumeErr
}

func headerAccount(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-Account-ID")
	if raw == "" {
		return uuid.Nil, errors.New("no identity")
	}
	return uuid.Parse(raw)
}

func newManageServer(t *testing.T, store *billing.MemoryStore, client billing.ProviderClient) http.Handler {
	t.Helper()

	svc := billing.NewService(store, store, store,
		billing.WithLogger(quietLogger()),
		billing.WithProviderClient(billing.ProviderPaygate, client))
	return modbilling.Router(modbilling.RouterOptions{
		Manage: modbilling.NewManageService(svc, headerAccount, quietLogger()),
	})
}

func postManage(t *testing.T, h http.Handler, accountID uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/subscription/manage", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if accountID != uuid.Nil {
		req.Header.Set("X-Account-ID", accountID.String())
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestManage_Cancel(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	accountID := seedSubscription(t, store)
	client := &stubProviderClient{}
	h := newManageServer(t, store, client)

	rec := postManage(t, h, accountID, `{"action":"cancel"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, client.cancels)

	sub, err := store.Get(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCancelled, sub.Status)
	assert.True(t, sub.ExpiresAt.After(time.Now()), "access runs to the end of the paid period")
}

func TestManage_UpstreamFailureFailsClosed(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	accountID := seedSubscription(t, store)
	client := &stubProviderClient{cancelErr: errors.New("paygate 503")}
	h := newManageServer(t, store, client)

	rec := postManage(t, h, accountID, `{"action":"cancel"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	sub, err := store.Get(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, sub.Status, "local state untouched on upstream failure")
}

func TestManage_Resume(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	accountID := seedSubscription(t, store)

	sub, err := store.Get(context.Background(), accountID)
	require.NoError(t, err)
	sub.Status = billing.StatusCancelled
	require.NoError(t, store.Save(context.Background(), sub))

	client := &stubProviderClient{}
	h := newManageServer(t, store, client)

	rec := postManage(t, h, accountID, `{"action":"resume"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, client.resumes)

	sub, err = store.Get(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, sub.Status)
}

func TestManage_TrialHasNoProviderRelation(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	accountID := uuid.New()
	require.NoError(t, store.Save(context.Background(), billing.NewTrial(accountID, time.Now().UTC())))

	h := newManageServer(t, store, &stubProviderClient{})
	rec := postManage(t, h, accountID, `{"action":"cancel"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestManage_RequiresIdentity(t *testing.T) {
	t.Parallel()

	h := newManageServer(t, billing.NewMemoryStore(), &stubProviderClient{})
	rec := postManage(t, h, uuid.Nil, `{"action":"cancel"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestManage_UnknownAction(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	accountID := seedSubscription(t, store)
	h := newManageServer(t, store, &stubProviderClient{})

	rec := postManage(t, h, accountID, `{"action":"pause"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestManage_NoSubscription(t *testing.T) {
	t.Parallel()

	h := newManageServer(t, billing.NewMemoryStore(), &stubProviderClient{})
	rec := postManage(t, h, uuid.New(), `{"action":"cancel"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
