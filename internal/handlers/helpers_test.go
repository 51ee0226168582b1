package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/expensify/internal/filestore"
	"github.com/nkiryanov/expensify/internal/logger"
	"github.com/nkiryanov/expensify/internal/repository/postgres"
	"github.com/nkiryanov/expensify/internal/service/auth"
	"github.com/nkiryanov/expensify/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/expensify/internal/service/expense"
	"github.com/nkiryanov/expensify/internal/service/user"
	"github.com/nkiryanov/expensify/internal/testutil"
)

// Running app over TLS, cookies are Secure so the client jar sends them only over https
type testApp struct {
	t      *testing.T
	url    string
	client *http.Client
	files  *filestore.Local
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Error      *struct {
		Type    string            `json:"type"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

type reply struct {
	code    int
	cookies []*http.Cookie
	env     envelope
	raw     string
}

// Decode data part of the envelope
func (r reply) data(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.env.Data, v), "data has to decode. Body: %s", r.raw)
}

func (r reply) cookie(name string) *http.Cookie {
	for _, c := range r.cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func withApp(pool *pgxpool.Pool, t *testing.T, cfg RouterConfig, fn func(app *testApp)) {
	testutil.WithTx(pool, t, func(tx pgx.Tx) {
		hasher := auth.BcryptHasher{Cost: bcrypt.MinCost}

		tokenManager, err := tokenmanager.New(tokenmanager.Config{
			AccessSecret:  "test-access-secret",
			RefreshSecret: "test-refresh-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    24 * time.Hour,
		})
		require.NoError(t, err, "token manager should be created without errors")

		files, err := filestore.NewLocal(filepath.Join(t.TempDir(), "uploads"), "")
		require.NoError(t, err)

		storage := postgres.NewStorage(tx)
		users := user.NewService(hasher, storage, files, logger.NewNoOpLogger())

		authService, err := auth.NewService(auth.Config{Hasher: hasher}, tokenManager, storage, users)
		require.NoError(t, err, "auth service starting error")

		cfg.UploadDir = files.Dir()
		srv := httptest.NewTLSServer(NewRouter(cfg, authService, users, expense.NewService(storage), logger.NewNoOpLogger()))
		defer srv.Close()

		client := srv.Client()
		client.Jar, err = cookiejar.New(nil)
		require.NoError(t, err)

		fn(&testApp{t: t, url: srv.URL, client: client, files: files})
	})
}

func (a *testApp) do(req *http.Request) reply {
	a.t.Helper()

	resp, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close() // nolint:errcheck
	body, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)

	r := reply{code: resp.StatusCode, cookies: resp.Cookies(), raw: string(body)}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(body, &r.env), "body has to be envelope: %s", body)
	}
	return r
}

// Send JSON request, bearer is used as access token if not empty
func (a *testApp) json(method string, path string, body string, bearer string) reply {
	a.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.url+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return a.do(req)
}

// Send multipart form, file is added as avatar if avatar is not empty
func (a *testApp) multipart(method string, path string, fields map[string]string, avatar string) reply {
	a.t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	if avatar != "" {
		fw, err := mw.CreateFormFile("avatar", avatar)
		require.NoError(a.t, err)
		_, err = fw.Write([]byte("not really an image"))
		require.NoError(a.t, err)
	}
	require.NoError(a.t, mw.Close())

	req, err := http.NewRequest(method, a.url+path, buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req)
}

func (a *testApp) register(userName string, email string, password string) reply {
	a.t.Helper()
	return a.multipart(http.MethodPost, "/api/v1/users/register", map[string]string{
		"fullName": "A B",
		"userName": userName,
		"email":    email,
		"password": password,
	}, "avatar.png")
}

type loginData struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// Register and login, the cookies stay in the client jar
func (a *testApp) signup(userName string) loginData {
	a.t.Helper()

	r := a.register(userName, userName+"@example.com", "secret1")
	require.Equal(a.t, http.StatusCreated, r.code, r.raw)

	r = a.json(http.MethodPost, "/api/v1/users/login", `{"userName": "`+userName+`", "password": "secret1"}`, "")
	require.Equal(a.t, http.StatusOK, r.code, r.raw)

	var data loginData
	r.data(a.t, &data)
	return data
}

// Drop all cookies, requests go as from a fresh client
func (a *testApp) forget() {
	a.t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(a.t, err)
	a.client.Jar = jar
}
