package httpserver

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wgdash/wg-dashboard/internal/hash"
	"github.com/wgdash/wg-dashboard/internal/models"
	"github.com/wgdash/wg-dashboard/internal/repo"
	"github.com/wgdash/wg-dashboard/internal/service"
	"github.com/wgdash/wg-dashboard/internal/tokens"
)

type testServer struct {
	e  *echo.Echo
	db *gorm.DB
	rp *repo.GormRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Peer{}, &models.RefreshToken{}))

	rp := repo.New(db)
	issuer := &tokens.Issuer{Secret: []byte("test-jwt-secret"), AccessTTL: 15 * time.Minute}

	authSvc := &service.AuthService{Repo: rp, Issuer: issuer, RefreshTTL: 48 * time.Hour}
	userSvc := &service.UserService{Repo: rp}
	peerSvc := &service.PeerService{Repo: rp, Quota: 5, AdminQuotaExempt: true}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{Svc: authSvc},
		UserHandler: &UserHTTP{Svc: userSvc},
		PeerHandler: &PeerHTTP{Svc: peerSvc},
		Issuer:      issuer,
	})

	return &testServer{e: e, db: db, rp: rp}
}

type reqOpts struct {
	bearer  string
	cookies []*http.Cookie
}

func (ts *testServer) do(t *testing.T, method, path string, body any, opts reqOpts) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if opts.bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+opts.bearer)
	}
	for _, c := range opts.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func uniqueUsername() string {
	return "u_" + uuid.NewString()
}

func testPublicKey(t *testing.T) string {
	t.Helper()

	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

type account struct {
	id       uint
	username string
	password string
	token    string
	refresh  *http.Cookie
}

// signupAndLogin drives the real endpoints the way a client would.
func (ts *testServer) signupAndLogin(t *testing.T) *account {
	t.Helper()

	acc := &account{username: uniqueUsername(), password: "Secret123"}

	rec := ts.do(t, http.MethodPost, "/api/auth/signup",
		map[string]string{"username": acc.username, "password": acc.password, "name": "Test User"}, reqOpts{})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	acc.id = created.ID

	ts.login(t, acc)
	return acc
}

func (ts *testServer) login(t *testing.T, acc *account) {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"username": acc.username, "password": acc.password}, reqOpts{})
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &acc.token))
	acc.refresh = refreshCookieFrom(t, rec)
}

// seedAdmin creates an admin directly in the store, then logs in through
// the API.
func (ts *testServer) seedAdmin(t *testing.T) *account {
	t.Helper()

	acc := &account{username: uniqueUsername(), password: "AdminSecret123"}
	pwHash, err := hash.HashPassword(acc.password)
	require.NoError(t, err)

	admin := &models.User{
		Username:     acc.username,
		PasswordHash: pwHash,
		Name:         "Admin",
		Role:         models.RoleAdmin,
	}
	require.NoError(t, ts.db.Create(admin).Error)
	acc.id = admin.ID

	ts.login(t, acc)
	return acc
}

func refreshCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("response carries no %s cookie", refreshCookieName)
	return nil
}
