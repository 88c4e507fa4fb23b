package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nmalenkov/storefront/internal/db"
	"github.com/nmalenkov/storefront/internal/events"
	"github.com/nmalenkov/storefront/internal/models"
	"github.com/nmalenkov/storefront/internal/payment"
	"github.com/nmalenkov/storefront/internal/repo"
	"github.com/nmalenkov/storefront/internal/service"
	"github.com/nmalenkov/storefront/internal/transport"
	pkg_hash "github.com/nmalenkov/storefront/pkg/hash"
)

const (
	testJWTSecret     = "test-jwt-secret"
	testRefreshSecret = "test-refresh-secret"
	testServerKey     = "test-server-key"
)

type testEnv struct {
	T  *testing.T
	E  *echo.Echo
	DB *gorm.DB

	Repo     *repo.GormRepo
	AuthSvc  *service.AuthService
	OrderSvc *service.OrderService

	Auth     *AuthHTTP
	Products *ProductHTTP
	Orders   *OrderHTTP
	Payments *PaymentHTTP
	Admin    *AdminHTTP
	Debug    *DebugHTTP
}

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	return gdb
}

// fakeGateway stands in for the hosted-checkout API; it accepts every
// charge and hands back a static token.
func fakeGateway(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transactions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"token":        "tok_test",
			"redirect_url": "https://pay.example/redirect/tok_test",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := initTestDB(t)
	repository := repo.NewGormRepo(gdb)
	producer := events.NewProducer(nil)
	gw := fakeGateway(t)

	authSvc := &service.AuthService{
		Repo:          repository,
		JWTSecret:     []byte(testJWTSecret),
		RefreshSecret: []byte(testRefreshSecret),
		Producer:      producer,
	}
	catalogSvc := &service.CatalogService{Repo: repository, Producer: producer}
	orderSvc := &service.OrderService{
		Repo:     repository,
		Gateway:  payment.NewClient(gw.URL, testServerKey),
		Producer: producer,
	}

	e := echo.New()
	e.Validator = transport.NewValidator()

	return &testEnv{
		T:  t,
		E:  e,
		DB: gdb,

		Repo:     repository,
		AuthSvc:  authSvc,
		OrderSvc: orderSvc,

		Auth:     &AuthHTTP{Svc: authSvc},
		Products: &ProductHTTP{Svc: catalogSvc},
		Orders:   &OrderHTTP{Svc: orderSvc},
		Payments: &PaymentHTTP{Svc: orderSvc, ServerKey: testServerKey},
		Admin:    &AdminHTTP{Repo: repository, Catalog: catalogSvc, Orders: orderSvc},
		Debug:    &DebugHTTP{Catalog: catalogSvc},
	}
}

func (env *testEnv) doJSONRequest(method, path string, body any, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

// serve runs the handler the way echo does in production: an error
// return goes through the HTTP error handler before the recorder is
// inspected.
func (env *testEnv) serve(c echo.Context, rec *httptest.ResponseRecorder, h echo.HandlerFunc) *httptest.ResponseRecorder {
	if err := h(c); err != nil {
		env.E.HTTPErrorHandler(err, c)
	}
	return rec
}

func createUser(t *testing.T, env *testEnv, email, password, role string) *models.User {
	t.Helper()

	pwHash, err := pkg_hash.HashPassword(password)
	require.NoError(t, err)

	user := models.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: pwHash,
		Role:         role,
	}
	require.NoError(t, env.DB.Create(&user).Error)
	return &user
}

func login(t *testing.T, env *testEnv, email, password string) (accessToken, refreshToken string) {
	t.Helper()

	body := map[string]string{"email": email, "password": password}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/login", body)
	env.serve(c, rec, env.Auth.Login)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	return resp.AccessToken, resp.RefreshToken
}

func asUser(c echo.Context, userID uint, role string) {
	c.Set("user_id", fmt.Sprint(userID))
	c.Set("role", role)
}
