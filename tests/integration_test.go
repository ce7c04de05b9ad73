package tests

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poslane/poslane/internal/adapter/api"
	"github.com/poslane/poslane/internal/adapter/storage"
	"github.com/poslane/poslane/internal/core/domain"
	"github.com/poslane/poslane/internal/core/service"
)

// fakePOSAPI stands in for the remote product/employee/transaction API.
type fakePOSAPI struct {
	mu           sync.Mutex
	products     map[string]domain.Product
	employees    map[string]string
	failSubmit   bool
	gotEmpHeader []string
	gotPayloads  [][]map[string]any
}

func (f *fakePOSAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /products/code/{code}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		product, ok := f.products[r.PathValue("code")]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(product)
	})
	mux.HandleFunc("GET /employees/{code}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		name, ok := f.employees[r.PathValue("code")]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"emp_cd": r.PathValue("code"), "name": name})
	})
	mux.HandleFunc("POST /transactions/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failSubmit {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		var payload []map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		f.gotEmpHeader = append(f.gotEmpHeader, r.Header.Get("emp-cd"))
		f.gotPayloads = append(f.gotPayloads, payload)
		w.WriteHeader(http.StatusCreated)
	})
	return mux
}

type testEnv struct {
	api      *fakePOSAPI
	store    *storage.SQLiteAdapter
	session  *service.SessionService
	checkout *service.CheckoutService
}

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fake := &fakePOSAPI{
		products: map[string]domain.Product{
			"4901234567894": {ID: 1, Code: "4901234567894", Name: "Green Tea", Price: 1000},
			"4901111111111": {ID: 2, Code: "4901111111111", Name: "Rice Ball", Price: 333},
		},
		employees: map[string]string{"EMP001": "Sato"},
	}
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	log := discardLogger()

	store, err := storage.OpenSQLiteAdapter(filepath.Join(t.TempDir(), "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	client := api.NewClient(server.URL, 0, log)
	session := service.NewSessionService(store, client, log)
	require.NoError(t, session.Load(context.Background()))
	checkout := service.NewCheckoutService(client, client, session, log).
		WithReceiptJournal(store)

	return &testEnv{api: fake, store: store, session: session, checkout: checkout}
}

func TestIntegration_FullCheckoutFlow(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.session.Login(ctx, "EMP001"))

	_, err := env.checkout.Lookup(ctx, "4901234567894")
	require.NoError(t, err)
	env.checkout.AddToCart()
	_, err = env.checkout.Lookup(ctx, "4901111111111")
	require.NoError(t, err)
	env.checkout.StageQuantity(3)
	env.checkout.AddToCart()

	assert.Equal(t, int64(1999), env.checkout.Total())
	assert.Equal(t, int64(199), env.checkout.Tax())
	assert.Equal(t, int64(2198), env.checkout.GrandTotal())

	total, err := env.checkout.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1999), total)

	require.Len(t, env.api.gotEmpHeader, 1)
	assert.Equal(t, "EMP001", env.api.gotEmpHeader[0])
	payload := env.api.gotPayloads[0]
	require.Len(t, payload, 2)
	assert.Equal(t, "4901234567894", payload[0]["code"])
	assert.Equal(t, float64(1000), payload[0]["price"])
	assert.Equal(t, "4901111111111", payload[1]["code"])
	assert.Equal(t, float64(3), payload[1]["quantity"])

	// Completion acknowledgment resets cart and session together.
	require.NoError(t, env.checkout.AcknowledgeCompletion(ctx))
	assert.Empty(t, env.checkout.Items())
	assert.False(t, env.session.IsLoggedIn())

	stored, err := env.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Session{}, stored)

	receipts, err := env.store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "EMP001", receipts[0].EmployeeCode)
	assert.Equal(t, int64(1999), receipts[0].Total)
}

func TestIntegration_GuestSubmissionUsesGuestIdentity(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.checkout.Lookup(ctx, "4901234567894")
	require.NoError(t, err)
	env.checkout.AddToCart()

	_, err = env.checkout.Submit(ctx)
	require.NoError(t, err)

	require.Len(t, env.api.gotEmpHeader, 1)
	assert.Equal(t, service.GuestEmployeeCode, env.api.gotEmpHeader[0])
}

func TestIntegration_SubmissionFailureAllowsRetry(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.checkout.Lookup(ctx, "4901234567894")
	require.NoError(t, err)
	env.checkout.AddToCart()

	env.api.mu.Lock()
	env.api.failSubmit = true
	env.api.mu.Unlock()

	_, err = env.checkout.Submit(ctx)
	assert.ErrorIs(t, err, service.ErrSubmissionFailed)
	assert.Len(t, env.checkout.Items(), 1)

	env.api.mu.Lock()
	env.api.failSubmit = false
	env.api.mu.Unlock()

	total, err := env.checkout.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), total)
}

func TestIntegration_NotFoundLookupLeavesCartAlone(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.checkout.Lookup(ctx, "4901234567894")
	require.NoError(t, err)
	env.checkout.AddToCart()

	_, err = env.checkout.Lookup(ctx, "0000000000000")
	assert.ErrorIs(t, err, service.ErrProductNotFound)
	assert.Len(t, env.checkout.Items(), 1)
	assert.Nil(t, env.checkout.StagedProduct())
}

func TestIntegration_SessionSurvivesRestart(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.session.Login(ctx, "EMP001"))

	// A fresh service over the same store sees the same session.
	restarted := service.NewSessionService(env.store, nil, discardLogger())
	require.NoError(t, restarted.Load(ctx))
	assert.True(t, restarted.IsLoggedIn())
	assert.Equal(t, "EMP001", restarted.EmployeeCode())
}
