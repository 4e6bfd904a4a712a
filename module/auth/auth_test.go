package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nitro-repo/nitro-repo/module/repository/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	users     map[int64]*User
	passwords map[string]string
	tokens    map[string]int64
}

func newFakeUsers() *fakeUsers {
	alice := &User{ID: 1, Username: "alice", Email: "alice@example.com"}
	return &fakeUsers{
		users:     map[int64]*User{1: alice},
		passwords: map[string]string{"alice": "secret"},
		tokens:    map[string]int64{"tok-1": 1},
	}
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (*User, error) {
	return f.users[id], nil
}

func (f *fakeUsers) GetUserByToken(_ context.Context, token string) (*User, *AuthToken, error) {
	id, ok := f.tokens[token]
	if !ok {
		return nil, nil, nil
	}
	return f.users[id], &AuthToken{ID: 10, UserID: id}, nil
}

func (f *fakeUsers) VerifyLogin(_ context.Context, username, password string) (*User, error) {
	if expected, ok := f.passwords[username]; ok && expected == password {
		for _, u := range f.users {
			if u.Username == username {
				return u, nil
			}
		}
	}
	return nil, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestResolver() (*Resolver, *MemorySessionManager, *testClock) {
	clock := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	sessions := NewMemorySessionManager(time.Hour)
	sessions.now = clock.Now
	return &Resolver{Sessions: sessions, Users: newFakeUsers(), Now: clock.Now}, sessions, clock
}

func basic(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

func TestSessionRotation(t *testing.T) {
	resolver, sessions, clock := newTestResolver()
	ctx := context.Background()

	session, err := sessions.CreateSession(ctx)
	require.NoError(t, err)
	require.NoError(t, sessions.SetUser(ctx, session.Token, 1))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: session.Token})

	a, issued, err := resolver.Resolve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, SessionAuth, a.Kind)
	assert.Nil(t, issued)
	assert.Equal(t, session.Expiration, a.Session.Expiration)

	clock.Advance(time.Hour)
	a, issued, err = resolver.Resolve(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, issued)
	assert.Equal(t, session.Token, issued.Token)
	assert.Equal(t, int64(1), issued.UserID)
	assert.True(t, issued.Expiration.After(clock.Now()))
	assert.NotEqual(t, session.Expiration, issued.Expiration)
	assert.Equal(t, issued, a.Session)

	user, err := a.ResolveUser(ctx, resolver.Users)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestConcurrentRotationPublishesOneGeneration(t *testing.T) {
	_, sessions, clock := newTestResolver()
	ctx := context.Background()
	session, err := sessions.CreateSession(ctx)
	require.NoError(t, err)
	clock.Advance(2 * time.Hour)

	var wg sync.WaitGroup
	results := make([]*Session, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = sessions.RecreateSession(ctx, session.Token)
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestResolverStates(t *testing.T) {
	resolver, sessions, _ := newTestResolver()
	ctx := context.Background()

	tests := []struct {
		name      string
		cookie    string
		origin    string
		header    string
		kind      Kind
		newCookie bool
		wantErr   bool
	}{
		{name: "nothing", kind: NoIdentification},
		{name: "origin only", origin: "http://ui", kind: SessionAuth, newCookie: true},
		{name: "unknown cookie", cookie: "stale", kind: NoIdentification},
		{name: "unknown cookie with origin", cookie: "stale", origin: "http://ui", kind: SessionAuth, newCookie: true},
		{name: "bearer", header: "Bearer tok-1", kind: TokenAuth},
		{name: "unknown bearer", header: "Bearer nope", kind: NoIdentification},
		{name: "basic login", header: basic("alice", "secret"), kind: BasicAuth},
		{name: "basic wrong password", header: basic("alice", "wrong"), kind: NoIdentification},
		{name: "basic token alias", header: basic("token", "tok-1"), kind: TokenAuth},
		{name: "basic without colon", header: "Basic " + base64.StdEncoding.EncodeToString([]byte("alice")), kind: NoIdentification},
		{name: "basic bad base64", header: "Basic %%%", wantErr: true},
		{name: "malformed header", header: "Bearer", kind: NoIdentification},
		{name: "too many parts", header: "Bearer a b", kind: NoIdentification},
		{name: "unknown scheme", header: "Digest abc", kind: UnknownScheme},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			a, issued, err := resolver.Resolve(ctx, req)
			if tt.wantErr {
				var badRequest *api.BadRequestError
				assert.ErrorAs(t, err, &badRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, a.Kind)
			assert.Equal(t, tt.newCookie, issued != nil)
			if tt.kind == UnknownScheme {
				assert.Equal(t, "Digest", a.Scheme)
				assert.Equal(t, "abc", a.Value)
			}
		})
	}
	assert.Equal(t, 2, sessions.Count())
}

func TestMiddleware(t *testing.T) {
	resolver, _, clock := newTestResolver()
	var seen Authentication
	handler := Middleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Origin", "http://ui")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, SessionAuth, seen.Kind)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, "/", cookies[0].Path)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.False(t, cookies[0].Secure)
	assert.Equal(t, clock.Now().Add(time.Hour).Unix(), cookies[0].Expires.Unix())

	// A valid session is not re-issued.
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: cookies[0].Value})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Result().Cookies())
	assert.Equal(t, cookies[0].Value, seen.Session.Token)

	// Pre-flights skip resolution entirely.
	seen = Authentication{Kind: BasicAuth}
	req = httptest.NewRequest(http.MethodOptions, "/api/me", nil)
	req.Header.Set("Authorization", "Basic %%%")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, NoIdentification, seen.Kind)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Basic %%%")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionCleanup(t *testing.T) {
	_, sessions, clock := newTestResolver()
	ctx := context.Background()
	old, err := sessions.CreateSession(ctx)
	require.NoError(t, err)
	clock.Advance(3 * time.Hour)
	fresh, err := sessions.CreateSession(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, sessions.Cleanup(time.Hour))
	got, err := sessions.RetrieveSession(ctx, old.Token)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = sessions.RetrieveSession(ctx, fresh.Token)
	require.NoError(t, err)
	assert.NotNil(t, got)

	assert.ErrorIs(t, sessions.SetUser(ctx, "missing", 1), ErrSessionNotFound)
}

func TestHashToken(t *testing.T) {
	assert.Len(t, HashToken("abc"), 64)
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
}
