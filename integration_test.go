package main

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"account-service/internal/auth"
	"account-service/internal/config"
	"account-service/internal/server"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const integrationJWTSecret = "integration-test-secret"

type IntegrationTestSuite struct {
	suite.Suite
	postgresContainer *postgres.PostgresContainer
	customerStub      *httptest.Server
	kycStub           *httptest.Server
	serverInstance    *server.Server
	baseURL           string
	client            *http.Client
	dbConnStr         string

	// Mutable stub state, adjusted per step.
	knownCustomers    map[int64]bool
	verifiedCustomers map[int64]bool
}

func (suite *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("bank_accounts"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		suite.T().Fatalf("Failed to start postgres container: %s", err)
	}
	suite.postgresContainer = postgresContainer

	suite.dbConnStr, err = postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		suite.T().Fatalf("Failed to build connection string: %s", err)
	}

	if err := suite.runMigrations(); err != nil {
		suite.T().Fatalf("Failed to run migrations: %s", err)
	}

	suite.knownCustomers = map[int64]bool{42: true, 77: true, 7: true}
	suite.verifiedCustomers = map[int64]bool{7: true}
	suite.startSiblingStubs()

	if err := suite.startApplicationServer(); err != nil {
		suite.T().Fatalf("Failed to start application server: %s", err)
	}

	suite.client = &http.Client{
		Timeout: 30 * time.Second,
	}
}

func (suite *IntegrationTestSuite) runMigrations() error {
	db, err := sql.Open("postgres", suite.dbConnStr)
	if err != nil {
		return err
	}
	defer db.Close()

	migrationFiles, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	sort.Slice(migrationFiles, func(i, j int) bool {
		return migrationFiles[i].Name() < migrationFiles[j].Name()
	})

	for _, file := range migrationFiles {
		if strings.HasSuffix(file.Name(), ".sql") {
			migrationSQL, err := migrationsFS.ReadFile(filepath.Join("migrations", file.Name()))
			if err != nil {
				return fmt.Errorf("failed to read migration file %s: %w", file.Name(), err)
			}
			if _, err := db.Exec(string(migrationSQL)); err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", file.Name(), err)
			}
		}
	}
	return nil
}

// startSiblingStubs stands in for the customer and KYC services.
func (suite *IntegrationTestSuite) startSiblingStubs() {
	suite.customerStub = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var customerID int64
		if _, err := fmt.Sscanf(r.URL.Path, "/api/customers/%d/exists", &customerID); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]bool{"exists": suite.knownCustomers[customerID]})
	}))

	suite.kycStub = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var customerID int64
		if _, err := fmt.Sscanf(r.URL.Path, "/api/kyc/customer/%d/status", &customerID); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status := "PENDING"
		if suite.verifiedCustomers[customerID] {
			status = "VERIFIED"
		}
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}))
}

func (suite *IntegrationTestSuite) startApplicationServer() error {
	cfg := &config.Config{
		ServerPort:          "0", // Let OS choose a free port
		DatabaseURL:         suite.dbConnStr,
		JWTSecret:           integrationJWTSecret,
		CustomerServiceURL:  suite.customerStub.URL,
		KycServiceURL:       suite.kycStub.URL,
		ClientTimeoutSecs:   10,
		AccountNumberPrefix: "BANK1",
		SeedBalanceCurrent:  "0.00",
		SeedBalanceSavings:  "0.00",
	}

	serverInstance, port, err := server.StartServer(cfg)
	if err != nil {
		return err
	}

	suite.serverInstance = serverInstance
	suite.baseURL = "http://localhost:" + port

	return suite.waitForServerReady()
}

func (suite *IntegrationTestSuite) waitForServerReady() error {
	timeout := 30 * time.Second
	start := time.Now()

	for time.Since(start) < timeout {
		resp, err := http.Get(suite.baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

func (suite *IntegrationTestSuite) TearDownSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if suite.serverInstance != nil {
		suite.serverInstance.Stop(ctx)
	}
	if suite.customerStub != nil {
		suite.customerStub.Close()
	}
	if suite.kycStub != nil {
		suite.kycStub.Close()
	}
	if suite.postgresContainer != nil {
		suite.postgresContainer.Terminate(ctx)
	}
}

func (suite *IntegrationTestSuite) mintToken(userID int64, role, username string) string {
	claims := auth.Claims{
		Role:     role,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(integrationJWTSecret))
	if err != nil {
		suite.T().Fatalf("Failed to sign token: %s", err)
	}
	return signed
}

// doRequest issues one authenticated call and returns status plus raw body.
func (suite *IntegrationTestSuite) doRequest(method, path, token, body string) (int, string, error) {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, suite.baseURL+path, reader)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := suite.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	respBody, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp.StatusCode, string(respBody), nil
}

func (suite *IntegrationTestSuite) parseData(body string) map[string]interface{} {
	var response map[string]interface{}
	if err := json.Unmarshal([]byte(body), &response); err != nil {
		suite.T().Fatalf("Failed to parse response: %s", body)
	}
	data, _ := response["data"].(map[string]interface{})
	return data
}

func (suite *IntegrationTestSuite) parseErrorCode(body string) string {
	var response struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &response); err != nil {
		suite.T().Fatalf("Failed to parse error response: %s", body)
	}
	return response.Error.Code
}

// ------------------------------------------------------------------
// Steps below are helpers (non-test methods). They run in the order
// invoked by TestFlow for deterministic sequencing.
// ------------------------------------------------------------------

func (suite *IntegrationTestSuite) stepHealthCheck() {
	resp, err := suite.client.Get(suite.baseURL + "/health")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	var healthResp map[string]interface{}
	err = json.Unmarshal(body, &healthResp)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "healthy", healthResp["status"])
}

func (suite *IntegrationTestSuite) stepAuthRequired() {
	status, _, err := suite.doRequest("GET", "/api/accounts/my-accounts", "", "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnauthorized, status)

	badToken := suite.mintToken(42, "CUSTOMER", "jane") + "tampered"
	status, _, err = suite.doRequest("GET", "/api/accounts/my-accounts", badToken, "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusUnauthorized, status)
}

// accountID of customer 42's current account, captured for later steps.
var customerAccountID string

func (suite *IntegrationTestSuite) stepCreateAccount() {
	token := suite.mintToken(42, "CUSTOMER", "jane")

	// Below the type minimum is rejected for customers.
	status, body, err := suite.doRequest("POST", "/api/accounts/create", token,
		`{"account_type": "CURRENT", "initial_balance": "4999.99"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, status)
	assert.Equal(suite.T(), "INVALID_BALANCE", suite.parseErrorCode(body))

	status, body, err = suite.doRequest("POST", "/api/accounts/create", token,
		`{"account_type": "CURRENT", "initial_balance": "5000.00"}`)
	assert.NoError(suite.T(), err)
	suite.T().Logf("Create Account Response: %s", body)
	assert.Equal(suite.T(), http.StatusCreated, status)

	data := suite.parseData(body)
	customerAccountID = data["account_id"].(string)
	assert.Equal(suite.T(), float64(42), data["customer_id"])
	assert.Equal(suite.T(), "ACTIVE", data["account_status"])
	assert.Equal(suite.T(), "5000.00", data["balance"])
	assert.Regexp(suite.T(), `^BANK1CUR\d{3}$`, data["account_number"])
}

func (suite *IntegrationTestSuite) stepDuplicateAccountRejected() {
	token := suite.mintToken(42, "CUSTOMER", "jane")

	status, body, err := suite.doRequest("POST", "/api/accounts/create", token,
		`{"account_type": "CURRENT", "initial_balance": "5000.00"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusConflict, status)
	assert.Equal(suite.T(), "DUPLICATE_ACCOUNT", suite.parseErrorCode(body))
}

func (suite *IntegrationTestSuite) stepUnknownCustomerRejected() {
	token := suite.mintToken(1, "ADMIN", "root")

	status, body, err := suite.doRequest("POST", "/api/accounts/create", token,
		`{"customer_id": 555, "account_type": "CURRENT", "initial_balance": "0.00"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusNotFound, status)
	assert.Equal(suite.T(), "CUSTOMER_NOT_FOUND", suite.parseErrorCode(body))
}

func (suite *IntegrationTestSuite) stepReadAccounts() {
	token := suite.mintToken(42, "CUSTOMER", "jane")

	status, body, err := suite.doRequest("GET", "/api/accounts/my-accounts", token, "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)

	var listResp struct {
		Data struct {
			TotalAccounts int `json:"total_accounts"`
		} `json:"data"`
	}
	assert.NoError(suite.T(), json.Unmarshal([]byte(body), &listResp))
	assert.Equal(suite.T(), 1, listResp.Data.TotalAccounts)

	status, _, err = suite.doRequest("GET", "/api/accounts/my-accounts/current", token, "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)

	status, _, err = suite.doRequest("GET", "/api/accounts/details/"+customerAccountID, token, "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)

	// Another customer cannot read it.
	otherToken := suite.mintToken(77, "CUSTOMER", "eve")
	status, body, err = suite.doRequest("GET", "/api/accounts/details/"+customerAccountID, otherToken, "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusForbidden, status)
	assert.Equal(suite.T(), "UNAUTHORIZED", suite.parseErrorCode(body))
}

func (suite *IntegrationTestSuite) stepStatusTransitions() {
	customerToken := suite.mintToken(42, "CUSTOMER", "jane")
	adminToken := suite.mintToken(1, "ADMIN", "root")

	// Customers may deactivate and reactivate their own account.
	status, body, err := suite.doRequest("PUT", "/api/accounts/"+customerAccountID+"/status", customerToken,
		`{"account_status": "INACTIVE", "reason": "traveling"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)
	assert.Equal(suite.T(), "INACTIVE", suite.parseData(body)["account_status"])

	status, _, err = suite.doRequest("PUT", "/api/accounts/"+customerAccountID+"/status", customerToken,
		`{"account_status": "ACTIVE"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)

	// Customers may not freeze.
	status, body, err = suite.doRequest("PUT", "/api/accounts/"+customerAccountID+"/status", customerToken,
		`{"account_status": "FROZEN"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusForbidden, status)
	assert.Equal(suite.T(), "UNAUTHORIZED_STATUS_CHANGE", suite.parseErrorCode(body))

	// Admins may, and must release it the same way.
	status, _, err = suite.doRequest("PUT", "/api/accounts/admin/"+customerAccountID+"/status", adminToken,
		`{"account_status": "FROZEN", "reason": "fraud review"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)

	// FROZEN -> SUSPENDED has no edge.
	status, body, err = suite.doRequest("PUT", "/api/accounts/admin/"+customerAccountID+"/status", adminToken,
		`{"account_status": "SUSPENDED"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, status)
	assert.Equal(suite.T(), "INVALID_STATUS_TRANSITION", suite.parseErrorCode(body))

	status, _, err = suite.doRequest("PUT", "/api/accounts/admin/"+customerAccountID+"/status", adminToken,
		`{"account_status": "ACTIVE", "reason": "review cleared"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)
}

func (suite *IntegrationTestSuite) stepBalanceOverride() {
	customerToken := suite.mintToken(42, "CUSTOMER", "jane")
	adminToken := suite.mintToken(1, "ADMIN", "root")

	// Customers cannot touch balances.
	status, _, err := suite.doRequest("PUT", "/api/accounts/admin/"+customerAccountID+"/balance", customerToken,
		`{"balance": "1.00", "reason": "please"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusForbidden, status)

	// A reason is mandatory.
	status, body, err := suite.doRequest("PUT", "/api/accounts/admin/"+customerAccountID+"/balance", adminToken,
		`{"balance": "100.00"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, status)
	assert.Equal(suite.T(), "VALIDATION_FAILED", suite.parseErrorCode(body))

	status, body, err = suite.doRequest("PUT", "/api/accounts/admin/"+customerAccountID+"/balance", adminToken,
		`{"balance": "100.00", "reason": "chargeback settlement"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)
	assert.Equal(suite.T(), "100.00", suite.parseData(body)["balance"])
}

func (suite *IntegrationTestSuite) stepCloseAndDelete() {
	adminToken := suite.mintToken(1, "ADMIN", "root")

	// Closing with a balance is rejected.
	status, body, err := suite.doRequest("PUT", "/api/accounts/admin/"+customerAccountID+"/status", adminToken,
		`{"account_status": "CLOSED", "reason": "customer request"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, status)
	assert.Equal(suite.T(), "INVALID_ACCOUNT_OPERATION", suite.parseErrorCode(body))

	// Deleting a non-closed account is rejected too.
	status, _, err = suite.doRequest("DELETE", "/api/accounts/admin/"+customerAccountID, adminToken, "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, status)

	// Zero out, close, reopen attempt, delete.
	status, _, err = suite.doRequest("PUT", "/api/accounts/admin/"+customerAccountID+"/balance", adminToken,
		`{"balance": "0.00", "reason": "closure prep"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)

	status, _, err = suite.doRequest("PUT", "/api/accounts/admin/"+customerAccountID+"/status", adminToken,
		`{"account_status": "CLOSED", "reason": "customer request"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)

	// CLOSED is terminal.
	status, body, err = suite.doRequest("PUT", "/api/accounts/admin/"+customerAccountID+"/status", adminToken,
		`{"account_status": "ACTIVE"}`)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, status)
	assert.Equal(suite.T(), "INVALID_STATUS_TRANSITION", suite.parseErrorCode(body))

	status, _, err = suite.doRequest("DELETE", "/api/accounts/admin/"+customerAccountID, adminToken, "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusNoContent, status)

	status, _, err = suite.doRequest("GET", "/api/accounts/admin/customer/42", adminToken, "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)
}

func (suite *IntegrationTestSuite) stepProvisioning() {
	adminToken := suite.mintToken(1, "ADMIN", "root")

	// Customer 77 exists but is not KYC verified.
	status, body, err := suite.doRequest("POST", "/api/accounts/admin/create-for-customer/77", adminToken, "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusBadRequest, status)
	assert.Equal(suite.T(), "INVALID_ACCOUNT_OPERATION", suite.parseErrorCode(body))

	// Customer 7 is verified; both types come up at the seed balance.
	status, body, err = suite.doRequest("POST", "/api/accounts/admin/create-for-customer/7", adminToken, "")
	assert.NoError(suite.T(), err)
	suite.T().Logf("Provision Response: %s", body)
	assert.Equal(suite.T(), http.StatusCreated, status)

	var listResp struct {
		Data struct {
			TotalAccounts int `json:"total_accounts"`
			Accounts      []struct {
				AccountType string `json:"account_type"`
				Balance     string `json:"balance"`
			} `json:"accounts"`
		} `json:"data"`
	}
	assert.NoError(suite.T(), json.Unmarshal([]byte(body), &listResp))
	assert.Equal(suite.T(), 2, listResp.Data.TotalAccounts)
	for _, a := range listResp.Data.Accounts {
		assert.Equal(suite.T(), "0.00", a.Balance)
	}

	// A repeated trigger changes nothing.
	status, body, err = suite.doRequest("POST", "/api/accounts/admin/create-for-customer/7", adminToken, "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusCreated, status)
	assert.NoError(suite.T(), json.Unmarshal([]byte(body), &listResp))
	assert.Equal(suite.T(), 2, listResp.Data.TotalAccounts)
}

func (suite *IntegrationTestSuite) stepAdminOversight() {
	adminToken := suite.mintToken(1, "ADMIN", "root")
	customerToken := suite.mintToken(7, "CUSTOMER", "bob")

	status, _, err := suite.doRequest("GET", "/api/accounts/admin/all", adminToken, "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)

	status, body, err := suite.doRequest("GET", "/api/accounts/admin/stats", adminToken, "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusOK, status)
	data := suite.parseData(body)
	assert.Equal(suite.T(), float64(2), data["total_accounts"])

	status, _, err = suite.doRequest("GET", "/api/accounts/admin/all", customerToken, "")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), http.StatusForbidden, status)
}

func (suite *IntegrationTestSuite) TestFlow() {
	suite.stepHealthCheck()
	suite.stepAuthRequired()
	suite.stepCreateAccount()
	suite.stepDuplicateAccountRejected()
	suite.stepUnknownCustomerRejected()
	suite.stepReadAccounts()
	suite.stepStatusTransitions()
	suite.stepBalanceOverride()
	suite.stepCloseAndDelete()
	suite.stepProvisioning()
	suite.stepAdminOversight()
}

func TestIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}
	suite.Run(t, new(IntegrationTestSuite))
}
