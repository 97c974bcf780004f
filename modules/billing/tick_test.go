package billing_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modbilling "github.com/botframe/billingcore/modules/billing"
	"github.com/botframe/billingcore/pkg/automation"
)

type stubEngine struct {
	executed int
	err      error
	calls    int
}

func (e *stubEngine) Tick(context.Context) (int, error) {
	e.calls++
	return e.executed, e.err
}

func newTickServer(t *testing.T, engine modbilling.TickRunner) http.Handler {
	t.Helper()
	return modbilling.Router(modbilling.RouterOptions{
		Tick: modbilling.NewTickService("cron-secret", engine, quietLogger()),
	})
}

func postTick(t *testing.T, h http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/automation/tick", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTick_RunsEngine(t *testing.T) {
	t.Parallel()

	engine := &stubEngine{executed: 7}
	rec := postTick(t, newTickServer(t, engine), "cron-secret")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp["executed"])
	assert.Equal(t, 1, engine.calls)
}

func TestTick_BadToken(t *testing.T) {
	t.Parallel()

	engine := &stubEngine{}
	h := newTickServer(t, engine)

	assert.Equal(t, http.StatusUnauthorized, postTick(t, h, "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, postTick(t, h, "").Code)
	assert.Zero(t, engine.calls, "unauthenticated requests never reach the engine")
}

func TestTick_OverlapIsConflict(t *testing.T) {
	t.Parallel()

	engine := &stubEngine{err: automation.ErrTickInProgress}
	rec := postTick(t, newTickServer(t, engine), "cron-secret")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTick_EngineFailure(t *testing.T) {
	t.Parallel()

	engine := &stubEngine{err: errors.New("definitions store down")}
	rec := postTick(t, newTickServer(t, engine), "cron-secret")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
