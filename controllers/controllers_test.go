package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"credanalyzer/config"
	"credanalyzer/controllers"
	dbpkg "credanalyzer/db"
	"credanalyzer/ledger"
	"credanalyzer/models"
	"credanalyzer/payments"
	"credanalyzer/router"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db       *gorm.DB
	engine   *gin.Engine
	provider *payments.MockProvider
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "api_test.db")
	db, err := gorm.Open("sqlite3", path)
	require.NoError(t, err)
	db.DB().SetMaxOpenConns(1)
	db.LogMode(false)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Plan{},
		&models.Subscription{},
		&models.Purchase{},
		&models.Report{},
		&models.ReportEvent{},
		&models.PaymentCard{},
		&models.PlanChange{},
	).Error)
	require.NoError(t, dbpkg.SeedPlans(db))
	t.Cleanup(func() { db.Close() })

	var conf config.Configuration
	conf.ApiPort = "0"
	conf.Security.JwtSecret = "test-secret"
	conf.Security.TokenTTLHours = 1
	conf.Ledger.DedupeWindowMinutes = 5
	conf.Ledger.CacheTTLSeconds = 5

	provider := payments.NewMockProvider()
	pixGateway := payments.NewPixGateway("chave-pix-teste")
	ledgerSvc := ledger.New(db, ledger.Options{
		DedupeWindow: 5 * time.Minute,
		CacheTTL:     5 * time.Second,
	})
	controllers.Configure(conf, ledgerSvc, provider, pixGateway)

	engine := gin.New()
	engine.Use(dbpkg.SetDBtoContext(db))
	router.Initialize(engine, conf)

	return &testEnv{db: db, engine: engine, provider: provider}
}

func (env *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

func (env *testEnv) signupAndLogin(t *testing.T, email string) string {
	t.Helper()
	w := env.request(t, http.MethodPost, "/api/users", "", gin.H{
		"name":     "Maria Teste",
		"email":    email,
		"password": "senha123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.request(t, http.MethodPost, "/api/login", "", gin.H{
		"email":    email,
		"password": "senha123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestSignupCreatesZeroCreditRecord(t *testing.T) {
	env := setupEnv(t)
	token := env.signupAndLogin(t, "maria@example.com")

	w := env.request(t, http.MethodGet, "/api/subscription?refresh=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	sub := body["subscription"].(map[string]interface{})
	assert.Equal(t, false, sub["has_plan"])
	assert.Equal(t, float64(0), sub["credits_remaining"])
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := setupEnv(t)
	env.signupAndLogin(t, "maria@example.com")

	w := env.request(t, http.MethodPost, "/api/login", "", gin.H{
		"email":    "maria@example.com",
		"password": "errada123",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredOnProtectedRoutes(t *testing.T) {
	env := setupEnv(t)

	w := env.request(t, http.MethodGet, "/api/subscription", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodGet, "/api/subscription", "token-invalido", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCheckoutGrantsCredits(t *testing.T) {
	env := setupEnv(t)
	token := env.signupAndLogin(t, "maria@example.com")

	w := env.request(t, http.MethodPost, "/api/checkout", token, gin.H{
		"plan_slug":         "basic",
		"payment_method_id": "pm_test",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeJSON(t, w)
	sub := body["subscription"].(map[string]interface{})
	assert.Equal(t, float64(20), sub["credits_remaining"])
	assert.Equal(t, "Plano Básico", sub["plan_name"])
	assert.Equal(t, 1, env.provider.ChargeCount())
}

func TestCheckoutRetrySamePurchaseIDChargesOnce(t *testing.T) {
	env := setupEnv(t)
	token := env.signupAndLogin(t, "maria@example.com")

	payload := gin.H{
		"plan_slug":         "basic",
		"payment_method_id": "pm_test",
		"purchase_id":       "pur_retry",
	}
	w := env.request(t, http.MethodPost, "/api/checkout", token, payload)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodPost, "/api/checkout", token, payload)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, true, body["duplicate"])
	sub := body["subscription"].(map[string]interface{})
	assert.Equal(t, float64(20), sub["credits_remaining"])
	assert.Equal(t, 1, env.provider.ChargeCount())
}

func TestCheckoutDeclinedWritesNothing(t *testing.T) {
	env := setupEnv(t)
	token := env.signupAndLogin(t, "maria@example.com")
	env.provider.DeclineAll = true

	w := env.request(t, http.MethodPost, "/api/checkout", token, gin.H{
		"plan_slug":         "basic",
		"payment_method_id": "pm_test",
	})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	var count int64
	require.NoError(t, env.db.Model(&models.Purchase{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	w = env.request(t, http.MethodGet, "/api/subscription?refresh=1", token, nil)
	body := decodeJSON(t, w)
	sub := body["subscription"].(map[string]interface{})
	assert.Equal(t, float64(0), sub["credits_remaining"])
}

func TestCheckoutPixPendingThenConfirm(t *testing.T) {
	env := setupEnv(t)
	token := env.signupAndLogin(t, "maria@example.com")

	w := env.request(t, http.MethodPost, "/api/checkout/pix", token, gin.H{
		"plan_slug": "standard",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeJSON(t, w)
	purchaseID := body["purchase_id"].(string)
	require.NotEmpty(t, purchaseID)
	require.NotEmpty(t, body["pix_code"])

	// Pendente: nenhum crédito ainda.
	w = env.request(t, http.MethodGet, "/api/subscription?refresh=1", token, nil)
	sub := decodeJSON(t, w)["subscription"].(map[string]interface{})
	assert.Equal(t, float64(0), sub["credits_remaining"])

	// Confirmação aplica a compra.
	w = env.request(t, http.MethodPost, "/api/checkout/pix/"+purchaseID+"/confirm", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sub = decodeJSON(t, w)["subscription"].(map[string]interface{})
	assert.Equal(t, float64(40), sub["credits_remaining"])

	// Confirmação repetida é replay.
	w = env.request(t, http.MethodPost, "/api/checkout/pix/"+purchaseID+"/confirm", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeJSON(t, w)
	assert.Equal(t, true, body["duplicate"])

	w = env.request(t, http.MethodGet, "/api/subscription?refresh=1", token, nil)
	sub = decodeJSON(t, w)["subscription"].(map[string]interface{})
	assert.Equal(t, float64(40), sub["credits_remaining"])
}

func TestCreateReportConsumesCredit(t *testing.T) {
	env := setupEnv(t)
	token := env.signupAndLogin(t, "maria@example.com")

	w := env.request(t, http.MethodPost, "/api/checkout", token, gin.H{
		"plan_slug":         "basic",
		"payment_method_id": "pm_test",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodPost, "/api/reports", token, gin.H{
		"report_identifier": "rep_1",
		"segment":           "varejo",
		"objective":         "capital de giro",
		"credit_amount":     "R$ 100.000",
		"documents": []gin.H{
			{"name": "extrato.pdf", "type": "extrato", "size": 1024},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeJSON(t, w)
	assert.Equal(t, float64(19), body["credits_remaining"])
	report := body["report"].(map[string]interface{})
	assert.Equal(t, "pending", report["status"])

	// Retry com o mesmo identificador devolve o mesmo relatório.
	w = env.request(t, http.MethodPost, "/api/reports", token, gin.H{
		"report_identifier": "rep_1",
		"segment":           "varejo",
		"objective":         "capital de giro",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeJSON(t, w)
	assert.Equal(t, true, body["duplicate"])
	assert.Equal(t, float64(19), body["credits_remaining"])

	var count int64
	require.NoError(t, env.db.Model(&models.Report{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateReportWithoutCredits(t *testing.T) {
	env := setupEnv(t)
	token := env.signupAndLogin(t, "maria@example.com")

	w := env.request(t, http.MethodPost, "/api/reports", token, gin.H{
		"segment":   "varejo",
		"objective": "capital de giro",
	})
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, true, body["needs_upgrade"])

	var count int64
	require.NoError(t, env.db.Model(&models.Report{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestAutoRenewPixFlow(t *testing.T) {
	env := setupEnv(t)
	token := env.signupAndLogin(t, "maria@example.com")

	// Compra via PIX.
	w := env.request(t, http.MethodPost, "/api/checkout/pix", token, gin.H{"plan_slug": "basic"})
	require.Equal(t, http.StatusOK, w.Code)
	purchaseID := decodeJSON(t, w)["purchase_id"].(string)
	w = env.request(t, http.MethodPost, "/api/checkout/pix/"+purchaseID+"/confirm", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Ligar auto-renew sem cartão: 409 com o kind específico.
	w = env.request(t, http.MethodPut, "/api/subscription/auto-renew", token, gin.H{"enabled": true})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	body := decodeJSON(t, w)
	assert.Equal(t, "renewal_requires_instrument", body["kind"])

	// Salva um cartão e tenta de novo.
	w = env.request(t, http.MethodPost, "/api/cards", token, gin.H{"payment_method_id": "pm_novo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.request(t, http.MethodPut, "/api/subscription/auto-renew", token, gin.H{"enabled": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUpgradeAddsPlanChangeHistory(t *testing.T) {
	env := setupEnv(t)
	token := env.signupAndLogin(t, "maria@example.com")

	w := env.request(t, http.MethodPost, "/api/checkout", token, gin.H{
		"plan_slug":         "basic",
		"payment_method_id": "pm_test",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodPost, "/api/checkout", token, gin.H{
		"plan_slug":         "premium",
		"payment_method_id": "pm_test",
	})
	require.Equal(t, http.StatusOK, w.Code)
	sub := decodeJSON(t, w)["subscription"].(map[string]interface{})
	assert.Equal(t, float64(90), sub["credits_remaining"])
	assert.Equal(t, "Plano Básico", sub["previous_plan_name"])

	w = env.request(t, http.MethodGet, "/api/plan-changes", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var changes []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &changes))
	require.Len(t, changes, 1)
	assert.Equal(t, "Plano Básico", changes[0]["previous_plan"])
	assert.Equal(t, "Plano Premium", changes[0]["new_plan"])
}

func TestCancelKeepsCredits(t *testing.T) {
	env := setupEnv(t)
	token := env.signupAndLogin(t, "maria@example.com")

	w := env.request(t, http.MethodPost, "/api/checkout", token, gin.H{
		"plan_slug":         "basic",
		"payment_method_id": "pm_test",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodPost, "/api/subscription/cancel", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/api/subscription?refresh=1", token, nil)
	sub := decodeJSON(t, w)["subscription"].(map[string]interface{})
	assert.Equal(t, false, sub["has_plan"])
	assert.Equal(t, float64(20), sub["credits_remaining"])
}

func TestPlansPublicListing(t *testing.T) {
	env := setupEnv(t)

	w := env.request(t, http.MethodGet, "/api/plans", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var plans []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plans))
	require.Len(t, plans, 3)
	assert.Equal(t, "basic", plans[0]["slug"])
	assert.Equal(t, float64(3500), plans[0]["price_cents"])
}

func TestPaymentsHistory(t *testing.T) {
	env := setupEnv(t)
	token := env.signupAndLogin(t, "maria@example.com")

	w := env.request(t, http.MethodPost, "/api/checkout", token, gin.H{
		"plan_slug":         "basic",
		"payment_method_id": "pm_test",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/api/payments", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var purchases []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &purchases))
	require.Len(t, purchases, 1)
	assert.Equal(t, "succeeded", purchases[0]["status"])
	assert.Equal(t, float64(20), purchases[0]["credits_added"])
}
