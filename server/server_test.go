package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-session/session/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/generates"
	"github.com/legit-games/oauth2-core/manage"
	"github.com/legit-games/oauth2-core/models"
	"github.com/legit-games/oauth2-core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	clientID     = "c1"
	clientSecret = "s1"
	redirectURI  = "http://localhost:3000/callback"
	aliceID      = "u-alice"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	srv     *Server
	manager *manage.Manager
	ts      *httptest.Server
	e       *httpexpect.Expect
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	manager := manage.NewDefaultManager()
	manager.MustTokenStorage(store.NewMemoryTokenStore())

	clients := store.NewClientStore()
	require.NoError(t, clients.Set(clientID, &models.Client{
		ID:           clientID,
		Secret:       clientSecret,
		GrantTypes:   []oauth2.GrantType{oauth2.AuthorizationCode, oauth2.Refreshing, oauth2.PasswordCredentials, oauth2.ClientCredentials},
		RedirectURIs: []string{redirectURI},
	}))
	manager.MapClientStorage(clients)

	users := store.NewUserStore()
	hash, err := store.HashPassword("pw1")
	require.NoError(t, err)
	require.NoError(t, users.Set(&models.User{
		ID:           aliceID,
		Username:     "alice",
		PasswordHash: hash,
		Email:        "alice@example.com",
		FirstName:    "Alice",
		LastName:     "Liddell",
	}))
	manager.MapUserStorage(users)

	signer, err := generates.NewHMACSigner("test", []byte("00000000"), jwt.SigningMethodHS512)
	require.NoError(t, err)
	manager.MapAccessGenerate(generates.NewJWTAccessGenerate(signer))

	cfg := NewConfig()
	cfg.AllowBearerTokensInQuery = true
	srv := NewServer(cfg, manager)
	srv.SetSessionLogin(NewSessionLogin(manager, nil, session.SetCookieName("oauth2_test")))

	ts := httptest.NewServer(NewGinEngine(srv))
	t.Cleanup(ts.Close)

	return &testEnv{srv: srv, manager: manager, ts: ts, e: newExpect(t, ts.URL)}
}

// newExpect keeps cookies and never follows redirects.
func newExpect(t *testing.T, baseURL string) *httpexpect.Expect {
	return httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  baseURL,
		Reporter: httpexpect.NewAssertReporter(t),
		Client: &http.Client{
			Jar: httpexpect.NewCookieJar(),
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	})
}

func (env *testEnv) asAlice() {
	env.srv.SetIdentityResolver(IdentityResolverFunc(func(w http.ResponseWriter, r *http.Request) (string, error) {
		return aliceID, nil
	}))
}

func location(t *testing.T, resp *httpexpect.Response) *url.URL {
	t.Helper()
	u, err := url.Parse(resp.Header("Location").Raw())
	require.NoError(t, err)
	return u
}

func (env *testEnv) authorize(t *testing.T, state string) string {
	t.Helper()
	resp := env.e.GET("/authorize").
		WithQuery("response_type", "code").
		WithQuery("client_id", clientID).
		WithQuery("redirect_uri", redirectURI).
		WithQuery("scope", "read").
		WithQuery("state", state).
		Expect().
		Status(http.StatusFound)

	u := location(t, resp)
	assert.Equal(t, "http://localhost:3000/callback", u.Scheme+"://"+u.Host+u.Path)
	assert.Equal(t, state, u.Query().Get("state"))
	code := u.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func (env *testEnv) passwordTokens(t *testing.T) *httpexpect.Object {
	t.Helper()
	return env.e.POST("/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "password").
		WithFormField("username", "alice").
		WithFormField("password", "pw1").
		Expect().
		Status(http.StatusOK).
		JSON().Object()
}

func TestAuthorizeCodeExchange(t *testing.T) {
	env := newTestEnv(t)
	env.asAlice()

	code := env.authorize(t, "xyz")

	exchange := func() *httpexpect.Response {
		return env.e.POST("/token").
			WithFormField("grant_type", "authorization_code").
			WithFormField("code", code).
			WithFormField("client_id", clientID).
			WithFormField("client_secret", clientSecret).
			WithFormField("redirect_uri", redirectURI).
			Expect()
	}

	resp := exchange().Status(http.StatusOK)
	resp.Header("Cache-Control").IsEqual("no-store")
	obj := resp.JSON().Object()
	obj.Value("token_type").String().IsEqual("bearer")
	obj.Value("expires_in").Number().IsEqual(3600)
	obj.Value("scope").String().IsEqual("read")
	obj.ContainsKey("refresh_token")

	access := obj.Value("access_token").String().Raw()
	env.e.GET("/me").
		WithHeader("Authorization", "Bearer "+access).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("id").String().IsEqual(aliceID)

	exchange().Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").String().IsEqual("invalid_grant")
}

func TestAuthorizeCodeRedirectMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.asAlice()

	code := env.authorize(t, "s")

	env.e.POST("/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "authorization_code").
		WithFormField("code", code).
		WithFormField("redirect_uri", "http://localhost:3000/other").
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").String().IsEqual("invalid_grant")

	// the failed attempt did not consume the code
	env.e.POST("/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "authorization_code").
		WithFormField("code", code).
		WithFormField("redirect_uri", redirectURI).
		Expect().
		Status(http.StatusOK)
}

func TestAuthorizeErrors(t *testing.T) {
	env := newTestEnv(t)
	env.asAlice()

	// unknown client: rendered, never redirected
	resp := env.e.GET("/authorize").
		WithQuery("response_type", "code").
		WithQuery("client_id", "nobody").
		WithQuery("redirect_uri", redirectURI).
		Expect().
		Status(http.StatusUnauthorized)
	resp.Header("Location").IsEmpty()
	resp.Body().Contains("invalid_client")

	// unregistered redirect uri: rendered, never redirected
	resp = env.e.GET("/authorize").
		WithQuery("response_type", "code").
		WithQuery("client_id", clientID).
		WithQuery("redirect_uri", "https://evil.example.com/cb").
		Expect()
	resp.Header("Location").IsEmpty()
	assert.NotEqual(t, http.StatusFound, resp.Raw().StatusCode)

	// missing client id
	env.e.GET("/authorize").
		WithQuery("response_type", "code").
		Expect().
		Status(http.StatusBadRequest).
		Body().Contains("invalid_request")

	// once the redirect uri is trusted, errors go back to the client
	resp = env.e.GET("/authorize").
		WithQuery("response_type", "token").
		WithQuery("client_id", clientID).
		WithQuery("redirect_uri", redirectURI).
		WithQuery("state", "st").
		Expect().
		Status(http.StatusFound)
	u := location(t, resp)
	assert.Equal(t, "unsupported_response_type", u.Query().Get("error"))
	assert.NotEmpty(t, u.Query().Get("error_description"))
	assert.Equal(t, "st", u.Query().Get("state"))
	assert.Empty(t, u.Query().Get("code"))
}

func TestAuthorizeDenied(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SetIdentityResolver(IdentityResolverFunc(func(w http.ResponseWriter, r *http.Request) (string, error) {
		return "", nil
	}))
	env.srv.SetLoginRedirectHandler(nil)

	resp := env.e.GET("/authorize").
		WithQuery("response_type", "code").
		WithQuery("client_id", clientID).
		WithQuery("state", "s1").
		Expect().
		Status(http.StatusFound)
	u := location(t, resp)
	assert.Equal(t, "access_denied", u.Query().Get("error"))
	assert.Equal(t, "s1", u.Query().Get("state"))
}

func TestRefreshRotation(t *testing.T) {
	env := newTestEnv(t)

	rt1 := env.passwordTokens(t).Value("refresh_token").String().Raw()

	refresh := func(rt string) *httpexpect.Response {
		return env.e.POST("/token").
			WithFormField("grant_type", "refresh_token").
			WithFormField("refresh_token", rt).
			WithFormField("client_id", clientID).
			WithFormField("client_secret", clientSecret).
			Expect()
	}

	obj := refresh(rt1).Status(http.StatusOK).JSON().Object()
	obj.ContainsKey("access_token")
	rt2 := obj.Value("refresh_token").String().Raw()
	assert.NotEqual(t, rt1, rt2)

	refresh(rt1).Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").String().IsEqual("invalid_grant")

	refresh(rt2).Status(http.StatusOK)
}

func TestRefreshScopeWidening(t *testing.T) {
	env := newTestEnv(t)
	env.asAlice()
	code := env.authorize(t, "s")

	rt := env.e.POST("/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "authorization_code").
		WithFormField("code", code).
		WithFormField("redirect_uri", redirectURI).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("refresh_token").String().Raw()

	env.e.POST("/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "refresh_token").
		WithFormField("refresh_token", rt).
		WithFormField("scope", "read admin").
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").String().IsEqual("invalid_scope")
}

func TestTokenRequestErrors(t *testing.T) {
	env := newTestEnv(t)

	env.e.POST("/token").
		WithBasicAuth(clientID, clientSecret).
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").String().IsEqual("invalid_request")

	env.e.POST("/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "implicit").
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").String().IsEqual("unsupported_grant_type")

	resp := env.e.POST("/token").
		WithBasicAuth(clientID, "wrong").
		WithFormField("grant_type", "client_credentials").
		Expect().
		Status(http.StatusUnauthorized)
	resp.Header("WWW-Authenticate").Contains("Basic")
	resp.JSON().Object().Value("error").String().IsEqual("invalid_client")

	env.e.POST("/token").
		WithFormField("grant_type", "client_credentials").
		WithFormField("client_id", clientID).
		Expect().
		Status(http.StatusUnauthorized).
		JSON().Object().
		Value("error").String().IsEqual("invalid_client")

	env.e.POST("/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "password").
		WithFormField("username", "alice").
		WithFormField("password", "nope").
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").String().IsEqual("invalid_grant")

	env.e.GET("/token").
		Expect().
		Status(http.StatusMethodNotAllowed)
}

func TestClientCredentials(t *testing.T) {
	env := newTestEnv(t)

	obj := env.e.POST("/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "client_credentials").
		WithFormField("scope", "svc").
		Expect().
		Status(http.StatusOK).
		JSON().Object()
	obj.NotContainsKey("refresh_token")

	// no resource owner behind the token
	env.e.GET("/me").
		WithHeader("Authorization", "Bearer "+obj.Value("access_token").String().Raw()).
		Expect().
		Status(http.StatusUnauthorized)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	access := env.passwordTokens(t).Value("access_token").String().Raw()

	obj := env.e.GET("/me").
		WithHeader("Authorization", "Bearer "+access).
		Expect().
		Status(http.StatusOK).
		JSON().Object()
	obj.Value("id").String().IsEqual(aliceID)
	obj.Value("email").String().IsEqual("alice@example.com")
	obj.Value("firstName").String().IsEqual("Alice")
	obj.Value("lastName").String().IsEqual("Liddell")

	env.e.GET("/me").
		WithQuery("access_token", access).
		Expect().
		Status(http.StatusOK)

	env.srv.SetAllowBearerTokensInQuery(false)
	env.e.GET("/me").
		WithQuery("access_token", access).
		Expect().
		Status(http.StatusUnauthorized)
}

func TestMeInvalidToken(t *testing.T) {
	env := newTestEnv(t)

	for _, header := range []string{"Bearer garbage", "Bearer ", "Basic YTpi", ""} {
		req := env.e.GET("/me")
		if header != "" {
			req = req.WithHeader("Authorization", header)
		}
		resp := req.Expect().Status(http.StatusUnauthorized)
		resp.Header("WWW-Authenticate").Contains("Bearer")
		resp.JSON().Object().Value("error").String().IsEqual("invalid_token")
	}
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.e.GET("/authorize").
		WithQuery("response_type", "code").
		WithQuery("client_id", clientID).
		WithQuery("redirect_uri", redirectURI).
		WithQuery("state", "abc").
		Expect().
		Status(http.StatusFound)
	login := location(t, resp)
	require.Equal(t, "/login", login.Path)
	returnTo := login.Query().Get("returnTo")
	require.True(t, strings.HasPrefix(returnTo, "/authorize?"), returnTo)

	env.e.GET("/login").
		WithQuery("returnTo", returnTo).
		Expect().
		Status(http.StatusOK).
		Body().Contains(`name="returnTo"`)

	env.e.POST("/login").
		WithFormField("username", "alice").
		WithFormField("password", "wrong").
		WithFormField("returnTo", returnTo).
		Expect().
		Status(http.StatusUnauthorized).
		Body().Contains("Invalid credentials")

	resp = env.e.POST("/login").
		WithFormField("username", "alice").
		WithFormField("password", "pw1").
		WithFormField("returnTo", returnTo).
		Expect().
		Status(http.StatusFound)
	resp.Header("Location").IsEqual(returnTo)

	// the original request resumes with the session identity
	resp = env.e.GET(returnTo).
		Expect().
		Status(http.StatusFound)
	u := location(t, resp)
	assert.Equal(t, "abc", u.Query().Get("state"))
	assert.NotEmpty(t, u.Query().Get("code"))
}

func TestLoginRejectsForeignReturnTo(t *testing.T) {
	env := newTestEnv(t)

	env.e.POST("/login").
		WithFormField("username", "alice").
		WithFormField("password", "pw1").
		WithFormField("returnTo", "https://evil.example.com/").
		Expect().
		Status(http.StatusOK).
		Body().Contains("Signed in as alice")
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	env.e.GET("/logout").
		Expect().
		Status(http.StatusFound).
		Header("Location").IsEqual("/login")

	env.e.POST("/login").
		WithFormField("username", "alice").
		WithFormField("password", "pw1").
		Expect().
		Status(http.StatusOK)

	tokens := env.passwordTokens(t)
	rt := tokens.Value("refresh_token").String().Raw()
	access := tokens.Value("access_token").String().Raw()

	env.e.GET("/logout").
		Expect().
		Status(http.StatusFound).
		Header("Location").IsEqual("/login")

	env.e.POST("/token").
		WithBasicAuth(clientID, clientSecret).
		WithFormField("grant_type", "refresh_token").
		WithFormField("refresh_token", rt).
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		Value("error").String().IsEqual("invalid_grant")

	// access tokens live until they expire
	env.e.GET("/me").
		WithHeader("Authorization", "Bearer "+access).
		Expect().
		Status(http.StatusOK)

	// the session is gone
	resp := env.e.GET("/authorize").
		WithQuery("response_type", "code").
		WithQuery("client_id", clientID).
		Expect().
		Status(http.StatusFound)
	assert.Equal(t, "/login", location(t, resp).Path)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	env.e.GET("/healthz").
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("status").String().IsEqual("ok")
}

func TestGetRedirectURIKeepsRegisteredQuery(t *testing.T) {
	s := &Server{}
	req := &AuthorizeRequest{RedirectURI: "http://localhost:3000/cb?z=1&a=b%20c", State: "st"}

	uri, err := s.GetRedirectURI(req, map[string]interface{}{"code": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/cb?z=1&a=b%20c&code=abc&state=st", uri)

	req.RedirectURI = redirectURI
	uri, err = s.GetRedirectURI(req, map[string]interface{}{"error": "access_denied"})
	require.NoError(t, err)
	assert.Equal(t, redirectURI+"?error=access_denied&state=st", uri)
}

func TestSafeReturnTo(t *testing.T) {
	cases := map[string]string{
		"/authorize?client_id=c1":  "/authorize?client_id=c1",
		"":                         "",
		"https://evil.example.com": "",
		"//evil.example.com/x":     "",
		"/\\evil.example.com":      "",
		"relative/path":            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeReturnTo(in), in)
	}
}

func TestClientInfoHandlers(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader("client_id=a&client_secret=b"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	id, secret, err := ClientBasicOrFormHandler(r)
	require.NoError(t, err)
	assert.Equal(t, "a", id)
	assert.Equal(t, "b", secret)

	r = httptest.NewRequest(http.MethodPost, "/token", nil)
	r.SetBasicAuth("my%20client", "s%3Acret")
	id, secret, err = ClientBasicOrFormHandler(r)
	require.NoError(t, err)
	assert.Equal(t, "my client", id)
	assert.Equal(t, "s:cret", secret)

	r = httptest.NewRequest(http.MethodPost, "/token", nil)
	_, _, err = ClientBasicOrFormHandler(r)
	assert.Error(t, err)
}

func TestAccessTokenResolveHandlers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/me?access_token=q", nil)
	_, ok := AccessTokenDefaultResolveHandler(r)
	assert.False(t, ok)
	tok, ok := AccessTokenQueryResolveHandler(r)
	assert.True(t, ok)
	assert.Equal(t, "q", tok)

	r.Header.Set("Authorization", "bearer h")
	tok, ok = AccessTokenQueryResolveHandler(r)
	assert.True(t, ok)
	assert.Equal(t, "h", tok)
}
