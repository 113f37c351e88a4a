package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/eventhub/internal/logging"
	"github.com/dmitrijs2005/eventhub/internal/server/config"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
)

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.HTTPAddr = "127.0.0.1:0"
	c.GRPCAddr = "127.0.0.1:0"
	c.HealthCheckInterval = time.Hour
	return c
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	c := testConfig()
	s, err := OpenStore(ctx, c)
	require.NoError(t, err)
	assert.IsType(t, &repomanager.MemoryStore{}, s)

	c.StorageDriver = config.DriverSQLite
	c.DatabaseDSN = filepath.Join(t.TempDir(), "nested", "eventhub.db")
	s, err = OpenStore(ctx, c)
	require.NoError(t, err)
	assert.IsType(t, &repomanager.SQLStore{}, s)
	assert.NoError(t, s.Ping(ctx))
	assert.NoError(t, s.Close())

	c.StorageDriver = "mongo"
	_, err = OpenStore(ctx, c)
	assert.Error(t, err)
}

func TestNewApp_ServesSeededCatalog(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, testConfig(), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { app.close(ctx) })

	_, err = app.seeder.Run(ctx, seedOptions(app))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, "[]", w.Body.String())
}

func TestNewApp_SignupSendsCodeThroughBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(ctx, testConfig(), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { app.close(context.Background()) })
	require.NoError(t, app.recorder.Start(ctx, app.bus.Subscriber()))

	body := `{"full_name":"Maria Lopez","student_id":"S100","email":"maria@uni.mx",` +
		`"career":"Physics","semester":2,"phone":"5512345678"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"dev_sms_code"`)

	require.Eventually(t, func() bool {
		for _, n := range app.recorder.Recent() {
			if n.Kind == models.NotifySignupCode && n.Phone == "5512345678" {
				return n.Code == ""
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(), logging.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("app exited too early: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}
}

func TestRun_CancelledBeforeSeedIsCleanStop(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(), logging.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, app.Run(ctx))
}

func TestRun_CancelledWhileSeeding(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(), logging.Nop())
	require.NoError(t, err)

	// bcrypt makes each demo account take a few milliseconds, so a short
	// deadline lands inside the seed step.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop after the deadline")
	}
}

func TestRun_ReturnsServerError(t *testing.T) {
	c := testConfig()
	c.HTTPAddr = "127.0.0.1:99999"

	app, err := NewApp(context.Background(), c, logging.Nop())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not fail on a bad address")
	}
}
