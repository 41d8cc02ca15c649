package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"ibooks/internal/config"
	"ibooks/internal/logger"
	"ibooks/internal/metrics"
	"ibooks/internal/testutil"
)

// testApp holds the full application stack for end-to-end tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                "test",
		CORSOrigins:        []string{"http://localhost:5173"},
		JWTSecret:          "router-test-secret",
		JWTExpirationDur:   time.Hour,
		AuthCookieName:     "ibooks_auth",
		AuthCookieSameSite: "lax",
	}
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	return &testApp{DB: db, Router: New(Deps{Config: testConfig(), DB: db, Metrics: metrics.New()})}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// mustRequest fails the test unless the response carries the wanted status.
func (app *testApp) mustRequest(t *testing.T, want int, method, path, body, token string) map[string]interface{} {
	t.Helper()
	rec := app.request(method, path, body, token)
	if rec.Code != want {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, want, rec.Code, rec.Body.String())
	}
	if strings.HasPrefix(rec.Body.String(), "[") {
		return map[string]interface{}{"items": parseJSONArray(t, rec)}
	}
	return parseJSON(t, rec)
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func parseJSONArray(t *testing.T, rec *httptest.ResponseRecorder) []interface{} {
	t.Helper()
	var result []interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON array: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := parseJSON(t, rec)["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error body, got %s", rec.Body.String())
	}
	return errObj["code"].(string)
}

// registerAndLogin registers a user and returns its access token.
func (app *testApp) registerAndLogin(t *testing.T, username string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"password123"}`, username)
	app.mustRequest(t, http.StatusCreated, "POST", "/auth/register", body, "")
	result := app.mustRequest(t, http.StatusOK, "POST", "/auth/login", body, "")
	return result["access_token"].(string)
}

// defaultExpenseCategory returns the seeded first-level expense category.
func (app *testApp) defaultExpenseCategory(t *testing.T, token string) float64 {
	t.Helper()
	roots := app.mustRequest(t, http.StatusOK, "GET", "/config/categories/tree?type=expense", "", token)["items"].([]interface{})
	if len(roots) != 1 {
		t.Fatalf("expected one expense root, got %d", len(roots))
	}
	children := roots[0].(map[string]interface{})["children"].([]interface{})
	if len(children) == 0 {
		t.Fatal("expected a seeded expense child")
	}
	return children[0].(map[string]interface{})["id"].(float64)
}

func (app *testApp) createAccount(t *testing.T, token, kind string, balance int64) float64 {
	t.Helper()
	body := fmt.Sprintf(`{"bankName":"Bank","alias":"%s-%d","kind":%q,"balanceCents":%d}`, kind, balance, kind, balance)
	if kind == "credit" {
		body = fmt.Sprintf(`{"bankName":"Bank","alias":"card","kind":"credit","balanceCents":%d,"billingDay":5,"repaymentDay":25}`, balance)
	}
	return app.mustRequest(t, http.StatusCreated, "POST", "/config/bank-accounts", body, token)["id"].(float64)
}

func (app *testApp) balance(t *testing.T, token string, accountID float64) float64 {
	t.Helper()
	path := fmt.Sprintf("/config/bank-accounts/%.0f", accountID)
	return app.mustRequest(t, http.StatusOK, "GET", path, "", token)["balanceCents"].(float64)
}

func TestHealthAndMetrics(t *testing.T) {
	app := setupApp(t)

	app.mustRequest(t, http.StatusOK, "GET", "/health", "", "")

	rec := app.request("GET", "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ibooks_http_requests_total") {
		t.Error("expected http request counter in /metrics output")
	}
}

func TestCORSPreflight(t *testing.T) {
	app := setupApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/ledger/transactions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("unexpected allow-origin %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/ledger/transactions", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin for unknown origin, got %q", got)
	}
}

func TestCORSWildcardOmitsCredentials(t *testing.T) {
	router := gin.New()
	router.Use(cors([]string{"*", "http://localhost:5173"}))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name            string
		origin          string
		wantOrigin      string
		wantCredentials string
	}{
		{"listed_origin", "http://localhost:5173", "http://localhost:5173", "true"},
		{"any_origin", "http://evil.example", "*", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow-origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCredentials {
				t.Errorf("allow-credentials = %q, want %q", got, tt.wantCredentials)
			}
		})
	}
}

func TestAuthFlow(t *testing.T) {
	app := setupApp(t)

	t.Run("first user becomes admin", func(t *testing.T) {
		admin := app.mustRequest(t, http.StatusCreated, "POST", "/auth/register", `{"username":"root","password":"pw"}`, "")
		if admin["role"] != "admin" {
			t.Errorf("expected admin, got %v", admin["role"])
		}
		second := app.mustRequest(t, http.StatusCreated, "POST", "/auth/register", `{"username":"bob","password":"pw"}`, "")
		if second["role"] != "user" {
			t.Errorf("expected user, got %v", second["role"])
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		rec := app.request("POST", "/auth/register", `{"username":"bob","password":"pw"}`, "")
		if rec.Code != http.StatusConflict || errorCode(t, rec) != "USERNAME_TAKEN" {
			t.Fatalf("expected USERNAME_TAKEN, got %d %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := app.request("POST", "/auth/login", `{"username":"bob","password":"nope"}`, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("cookie session reaches me", func(t *testing.T) {
		rec := app.request("POST", "/auth/login", `{"username":"bob","password":"pw"}`, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("login failed: %d", rec.Code)
		}
		cookies := rec.Result().Cookies()
		if len(cookies) == 0 {
			t.Fatal("expected auth cookie")
		}

		req := httptest.NewRequest("GET", "/auth/me", nil)
		req.AddCookie(cookies[0])
		me := httptest.NewRecorder()
		app.Router.ServeHTTP(me, req)
		if me.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", me.Code, me.Body.String())
		}
		if parseJSON(t, me)["username"] != "bob" {
			t.Error("expected bob")
		}
	})

	t.Run("protected route without token", func(t *testing.T) {
		rec := app.request("GET", "/ledger/transactions", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestLedgerFlow_IncomeExpenseBalance(t *testing.T) {
	app := setupApp(t)
	token := app.registerAndLogin(t, "alice")
	categoryID := app.defaultExpenseCategory(t, token)
	accountID := app.createAccount(t, token, "debit", 10000)

	// Expense 3000 from the debit account
	expense := app.mustRequest(t, http.StatusCreated, "POST", "/ledger/transactions",
		fmt.Sprintf(`{"type":"expense","amountCents":3000,"occurredAt":"2024-03-01T12:00:00Z","categoryId":%.0f,"fundingSource":"bank","bankAccountId":%.0f}`,
			categoryID, accountID), token)
	if got := app.balance(t, token, accountID); got != 7000 {
		t.Fatalf("expected 7000 after expense, got %.0f", got)
	}

	// Overdraft is rejected and leaves the balance alone
	rec := app.request("POST", "/ledger/transactions",
		fmt.Sprintf(`{"type":"expense","amountCents":8000,"occurredAt":"2024-03-02","categoryId":%.0f,"fundingSource":"bank","bankAccountId":%.0f}`,
			categoryID, accountID), token)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "INSUFFICIENT_BALANCE" {
		t.Fatalf("expected INSUFFICIENT_BALANCE, got %d %s", rec.Code, rec.Body.String())
	}
	if got := app.balance(t, token, accountID); got != 7000 {
		t.Fatalf("expected 7000 after rejected expense, got %.0f", got)
	}

	// Cash expense does not touch any account
	app.mustRequest(t, http.StatusCreated, "POST", "/ledger/transactions",
		fmt.Sprintf(`{"type":"expense","amountCents":500,"occurredAt":"2024-03-03","categoryId":%.0f,"fundingSource":"cash"}`, categoryID), token)
	if got := app.balance(t, token, accountID); got != 7000 {
		t.Fatalf("expected 7000 after cash expense, got %.0f", got)
	}

	// Listing sums income and expense over the filter
	list := app.mustRequest(t, http.StatusOK, "GET", "/ledger/transactions?type=expense", "", token)
	if list["total"].(float64) != 2 || list["expenseCents"].(float64) != 3500 {
		t.Errorf("unexpected list summary: total=%v expense=%v", list["total"], list["expenseCents"])
	}

	// Deleting the bank expense restores the balance
	app.mustRequest(t, http.StatusOK, "DELETE", fmt.Sprintf("/ledger/transactions/%.0f", expense["id"].(float64)), "", token)
	if got := app.balance(t, token, accountID); got != 10000 {
		t.Fatalf("expected 10000 after delete, got %.0f", got)
	}
}

func TestLedgerFlow_CreditAccountGoesNegative(t *testing.T) {
	app := setupApp(t)
	token := app.registerAndLogin(t, "carol")
	categoryID := app.defaultExpenseCategory(t, token)
	cardID := app.createAccount(t, token, "credit", 0)

	app.mustRequest(t, http.StatusCreated, "POST", "/ledger/transactions",
		fmt.Sprintf(`{"type":"expense","amountCents":2500,"occurredAt":"2024-04-01","categoryId":%.0f,"fundingSource":"bank","bankAccountId":%.0f}`,
			categoryID, cardID), token)

	if got := app.balance(t, token, cardID); got != -2500 {
		t.Fatalf("expected -2500, got %.0f", got)
	}
}

func TestLedgerFlow_Transfer(t *testing.T) {
	app := setupApp(t)
	token := app.registerAndLogin(t, "dave")
	fromID := app.createAccount(t, token, "debit", 20000)
	toID := app.createAccount(t, token, "debit", 5000)

	rec := app.request("POST", "/ledger/transfers",
		fmt.Sprintf(`{"fromBankAccountId":%.0f,"toBankAccountId":%.0f,"amountCents":1000,"occurredAt":"2024-05-01"}`, fromID, fromID), token)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "SAME_ACCOUNT_TRANSFER" {
		t.Fatalf("expected SAME_ACCOUNT_TRANSFER, got %d %s", rec.Code, rec.Body.String())
	}

	transfer := app.mustRequest(t, http.StatusCreated, "POST", "/ledger/transfers",
		fmt.Sprintf(`{"fromBankAccountId":%.0f,"toBankAccountId":%.0f,"amountCents":7500,"occurredAt":"2024-05-01"}`, fromID, toID), token)
	if transfer["type"] != "transfer" {
		t.Errorf("expected transfer, got %v", transfer["type"])
	}
	if app.balance(t, token, fromID) != 12500 || app.balance(t, token, toID) != 12500 {
		t.Fatal("unexpected balances after transfer")
	}

	// Transfers are not editable
	rec = app.request("PATCH", fmt.Sprintf("/ledger/transactions/%.0f", transfer["id"].(float64)), `{"note":"x"}`, token)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "TRANSACTION_NOT_EDITABLE" {
		t.Fatalf("expected TRANSACTION_NOT_EDITABLE, got %d %s", rec.Code, rec.Body.String())
	}

	// Listing by either account finds the transfer
	list := app.mustRequest(t, http.StatusOK, "GET", fmt.Sprintf("/ledger/transactions?bankAccountId=%.0f", toID), "", token)
	if list["total"].(float64) != 1 {
		t.Errorf("expected transfer listed under destination account, got %v", list["total"])
	}

	app.mustRequest(t, http.StatusOK, "DELETE", fmt.Sprintf("/ledger/transactions/%.0f", transfer["id"].(float64)), "", token)
	if app.balance(t, token, fromID) != 20000 || app.balance(t, token, toID) != 5000 {
		t.Fatal("unexpected balances after deleting transfer")
	}
}

func TestLedgerFlow_Refunds(t *testing.T) {
	app := setupApp(t)
	token := app.registerAndLogin(t, "erin")
	categoryID := app.defaultExpenseCategory(t, token)
	accountID := app.createAccount(t, token, "debit", 10000)

	expense := app.mustRequest(t, http.StatusCreated, "POST", "/ledger/transactions",
		fmt.Sprintf(`{"type":"expense","amountCents":4000,"occurredAt":"2024-06-01","categoryId":%.0f,"fundingSource":"bank","bankAccountId":%.0f}`,
			categoryID, accountID), token)
	expenseID := expense["id"].(float64)
	refundPath := fmt.Sprintf("/ledger/transactions/%.0f/refund", expenseID)

	refund := app.mustRequest(t, http.StatusCreated, "POST", refundPath, `{"mode":"partial","amountCents":1500}`, token)
	if refund["refundOfTransactionId"].(float64) != expenseID {
		t.Errorf("refund not linked to expense: %v", refund)
	}
	if got := app.balance(t, token, accountID); got != 7500 {
		t.Fatalf("expected 7500 after partial refund, got %.0f", got)
	}

	rec := app.request("POST", refundPath, `{"mode":"partial","amountCents":3000}`, token)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "REFUND_EXCEEDS_REMAINING" {
		t.Fatalf("expected REFUND_EXCEEDS_REMAINING, got %d %s", rec.Code, rec.Body.String())
	}

	app.mustRequest(t, http.StatusCreated, "POST", refundPath, `{"mode":"full"}`, token)
	if got := app.balance(t, token, accountID); got != 10000 {
		t.Fatalf("expected 10000 after full refund, got %.0f", got)
	}

	rec = app.request("POST", refundPath, `{"mode":"full"}`, token)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "FULLY_REFUNDED" {
		t.Fatalf("expected FULLY_REFUNDED, got %d %s", rec.Code, rec.Body.String())
	}

	got := app.mustRequest(t, http.StatusOK, "GET", fmt.Sprintf("/ledger/transactions/%.0f", expenseID), "", token)
	if got["refundedCents"].(float64) != 4000 {
		t.Errorf("expected refundedCents 4000, got %v", got["refundedCents"])
	}

	// Refunds nest under their expense in the default listing
	list := app.mustRequest(t, http.StatusOK, "GET", "/ledger/transactions", "", token)
	if len(list["items"].([]interface{})) != 1 || len(list["refundItems"].([]interface{})) != 2 {
		t.Errorf("unexpected listing: %d items, %d refunds",
			len(list["items"].([]interface{})), len(list["refundItems"].([]interface{})))
	}

	rec = app.request("DELETE", fmt.Sprintf("/ledger/transactions/%.0f", expenseID), "", token)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "TRANSACTION_HAS_REFUNDS" {
		t.Fatalf("expected TRANSACTION_HAS_REFUNDS, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCategoryFlow_TagsAndCycles(t *testing.T) {
	app := setupApp(t)
	token := app.registerAndLogin(t, "frank")
	childID := app.defaultExpenseCategory(t, token)

	roots := app.mustRequest(t, http.StatusOK, "GET", "/config/categories/tree?type=expense", "", token)["items"].([]interface{})
	rootID := roots[0].(map[string]interface{})["id"].(float64)

	// Moving a root under its own child is a cycle
	rec := app.request("PATCH", fmt.Sprintf("/config/categories/%.0f/move", rootID),
		fmt.Sprintf(`{"parentId":%.0f,"index":0}`, childID), token)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "CATEGORY_CYCLE" {
		t.Fatalf("expected CATEGORY_CYCLE, got %d %s", rec.Code, rec.Body.String())
	}

	// Tags bind to first-level expense categories only
	rec = app.request("POST", fmt.Sprintf("/config/categories/%.0f/tags", rootID), `{"name":"team"}`, token)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "TAG_NOT_ALLOWED" {
		t.Fatalf("expected TAG_NOT_ALLOWED, got %d %s", rec.Code, rec.Body.String())
	}
	tag := app.mustRequest(t, http.StatusCreated, "POST", fmt.Sprintf("/config/categories/%.0f/tags", childID), `{"name":"team"}`, token)
	tagID := tag["id"].(float64)

	rec = app.request("POST", fmt.Sprintf("/config/categories/%.0f/tags", childID), `{"name":"team"}`, token)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "DUPLICATE_TAG" {
		t.Fatalf("expected DUPLICATE_TAG, got %d %s", rec.Code, rec.Body.String())
	}

	// A second first-level category cannot borrow the tag
	other := app.mustRequest(t, http.StatusCreated, "POST", "/config/categories",
		fmt.Sprintf(`{"type":"expense","name":"Travel","parentId":%.0f}`, rootID), token)
	rec = app.request("POST", "/ledger/transactions",
		fmt.Sprintf(`{"type":"expense","amountCents":100,"occurredAt":"2024-07-01","categoryId":%.0f,"fundingSource":"cash","tagIds":[%.0f]}`,
			other["id"].(float64), tagID), token)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "TAG_CATEGORY_MISMATCH" {
		t.Fatalf("expected TAG_CATEGORY_MISMATCH, got %d %s", rec.Code, rec.Body.String())
	}

	tx := app.mustRequest(t, http.StatusCreated, "POST", "/ledger/transactions",
		fmt.Sprintf(`{"type":"expense","amountCents":100,"occurredAt":"2024-07-01","categoryId":%.0f,"fundingSource":"cash","tagIds":[%.0f],"note":"dinner"}`,
			childID, tagID), token)
	if names := tx["tagNames"].([]interface{}); len(names) != 1 || names[0] != "team" {
		t.Errorf("unexpected tag names: %v", names)
	}

	// Keyword search matches tag names
	list := app.mustRequest(t, http.StatusOK, "GET", "/ledger/transactions?keyword=TEAM", "", token)
	if list["total"].(float64) != 1 {
		t.Errorf("expected keyword match on tag name, got %v", list["total"])
	}

	// A referenced tag is only disabled
	del := app.mustRequest(t, http.StatusOK, "DELETE", fmt.Sprintf("/config/categories/%.0f/tags/%.0f", childID, tagID), "", token)
	if del["mode"] != "disabled" {
		t.Errorf("expected disabled, got %v", del["mode"])
	}
}

func TestAdminFlow_UsersAndAuditLogs(t *testing.T) {
	app := setupApp(t)
	adminToken := app.registerAndLogin(t, "root")
	userToken := app.registerAndLogin(t, "bob")
	categoryID := app.defaultExpenseCategory(t, userToken)

	app.mustRequest(t, http.StatusCreated, "POST", "/ledger/transactions",
		fmt.Sprintf(`{"type":"expense","amountCents":900,"occurredAt":"2024-08-01","categoryId":%.0f,"fundingSource":"cash"}`, categoryID), userToken)

	t.Run("non-admin is forbidden", func(t *testing.T) {
		for _, path := range []string{"/admin/transaction-audit-logs", "/config/users"} {
			rec := app.request("GET", path, "", userToken)
			if rec.Code != http.StatusForbidden {
				t.Errorf("%s: expected 403, got %d", path, rec.Code)
			}
		}
	})

	t.Run("admin reads audit logs", func(t *testing.T) {
		logs := app.mustRequest(t, http.StatusOK, "GET", "/admin/transaction-audit-logs?action=create&txType=expense", "", adminToken)
		items := logs["items"].([]interface{})
		if len(items) != 1 {
			t.Fatalf("expected 1 audit entry, got %d", len(items))
		}
		entry := items[0].(map[string]interface{})
		if entry["before"] != nil {
			t.Errorf("expected nil before on create, got %v", entry["before"])
		}
		after := entry["after"].(map[string]interface{})
		if after["amountCents"].(float64) != 900 {
			t.Errorf("unexpected snapshot: %v", after)
		}
	})

	t.Run("last admin cannot demote itself", func(t *testing.T) {
		users := app.mustRequest(t, http.StatusOK, "GET", "/config/users", "", adminToken)["items"].([]interface{})
		var adminID float64
		for _, u := range users {
			if m := u.(map[string]interface{}); m["username"] == "root" {
				adminID = m["id"].(float64)
			}
		}
		rec := app.request("PATCH", fmt.Sprintf("/config/users/%.0f", adminID), `{"role":"user"}`, adminToken)
		if rec.Code < 400 {
			t.Fatalf("expected demotion to fail, got %d", rec.Code)
		}
	})

	t.Run("disabled user loses access", func(t *testing.T) {
		users := app.mustRequest(t, http.StatusOK, "GET", "/config/users", "", adminToken)["items"].([]interface{})
		var bobID float64
		for _, u := range users {
			if m := u.(map[string]interface{}); m["username"] == "bob" {
				bobID = m["id"].(float64)
			}
		}
		app.mustRequest(t, http.StatusOK, "PATCH", fmt.Sprintf("/config/users/%.0f", bobID), `{"isActive":false}`, adminToken)

		rec := app.request("GET", "/auth/me", "", userToken)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestStatsFlow(t *testing.T) {
	app := setupApp(t)
	token := app.registerAndLogin(t, "gina")
	categoryID := app.defaultExpenseCategory(t, token)
	accountID := app.createAccount(t, token, "debit", 10000)

	expense := app.mustRequest(t, http.StatusCreated, "POST", "/ledger/transactions",
		fmt.Sprintf(`{"type":"expense","amountCents":3000,"occurredAt":"2024-02-10","categoryId":%.0f,"fundingSource":"bank","bankAccountId":%.0f}`,
			categoryID, accountID), token)
	app.mustRequest(t, http.StatusCreated, "POST", fmt.Sprintf("/ledger/transactions/%.0f/refund", expense["id"].(float64)),
		`{"mode":"partial","amountCents":1000,"occurredAt":"2024-03-05"}`, token)

	month := app.mustRequest(t, http.StatusOK, "GET", "/stats/month-category?month=2024-02&type=expense", "", token)
	if month["totalCents"].(float64) != 2000 {
		t.Errorf("expected net 2000 in February, got %v", month["totalCents"])
	}

	series := app.mustRequest(t, http.StatusOK, "GET", "/stats/monthly-range?startMonth=2024-01&endMonth=2024-03", "", token)["series"].([]interface{})
	if len(series) != 3 {
		t.Fatalf("expected 3 months, got %d", len(series))
	}

	rec := app.request("GET", "/stats/year-category?year=1800&type=expense", "", token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range year, got %d", rec.Code)
	}
}
