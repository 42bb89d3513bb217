package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/yourusername/marketplace-api/internal/domain/entity"
	apperrors "github.com/yourusername/marketplace-api/internal/pkg/errors"
	"github.com/yourusername/marketplace-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSubject = "6f1d2a0e-1c7b-4d0e-9f55-2b7e4c1a9d01"

type mockResolver struct{ mock.Mock }

func (m *mockResolver) CurrentSubject(ctx context.Context, token string) *service.Identity {
	v := m.Called(ctx, token).Get(0)
	if v == nil {
		return nil
	}
	return v.(*service.Identity)
}

type mockGrants struct{ mock.Mock }

func (m *mockGrants) GrantFor(ctx context.Context, subject string) (*entity.AdminGrant, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AdminGrant), args.Error(1)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		body := gin.H{"anonymous": true}
		if identity := IdentityFrom(c); identity != nil {
			body = gin.H{"subject": identity.Subject}
		}
		c.JSON(http.StatusOK, body)
	})
	r.GET("/t", handlers...)
	return r
}

func doGet(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Authorization", tt.header)

		got, ok := BearerToken(c)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}

func TestRequireAuth(t *testing.T) {
	resolver := new(mockResolver)
	resolver.On("CurrentSubject", mock.Anything, "good").Return(&service.Identity{Subject: testSubject})
	resolver.On("CurrentSubject", mock.Anything, "bad").Return(nil)
	r := newRouter(NewAuthMiddleware(resolver, nil).RequireAuth())

	assert.Equal(t, http.StatusUnauthorized, doGet(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "Bearer bad").Code)

	w := doGet(r, "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testSubject)
}

func TestOptionalAuth(t *testing.T) {
	resolver := new(mockResolver)
	resolver.On("CurrentSubject", mock.Anything, "bad").Return(nil)
	resolver.On("CurrentSubject", mock.Anything, "good").Return(&service.Identity{Subject: testSubject})
	r := newRouter(NewAuthMiddleware(resolver, nil).OptionalAuth())

	w := doGet(r, "Bearer bad")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "anonymous")

	w = doGet(r, "Bearer good")
	assert.Contains(t, w.Body.String(), testSubject)
}

func TestAdminOnly(t *testing.T) {
	tests := []struct {
		name       string
		grant      *entity.AdminGrant
		err        error
		roles      []string
		wantStatus int
	}{
		{name: "no grant", err: apperrors.ErrNotFound, wantStatus: http.StatusForbidden},
		{name: "registry down", err: errors.New("timeout"), wantStatus: http.StatusForbidden},
		{name: "any role", grant: &entity.AdminGrant{Role: entity.RoleModerator}, wantStatus: http.StatusOK},
		{name: "role not allowed", grant: &entity.AdminGrant{Role: entity.RoleModerator},
			roles: []string{entity.RoleAdmin, entity.RoleSuperAdmin}, wantStatus: http.StatusForbidden},
		{name: "role allowed", grant: &entity.AdminGrant{Role: entity.RoleSuperAdmin},
			roles: []string{entity.RoleAdmin, entity.RoleSuperAdmin}, wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := new(mockResolver)
			resolver.On("CurrentSubject", mock.Anything, "tok").Return(&service.Identity{Subject: testSubject})
			grants := new(mockGrants)
			if tt.grant != nil {
				grants.On("GrantFor", mock.Anything, testSubject).Return(tt.grant, nil)
			} else {
				grants.On("GrantFor", mock.Anything, testSubject).Return(nil, tt.err)
			}
			m := NewAuthMiddleware(resolver, grants)
			r := newRouter(m.RequireAuth(), m.AdminOnly(tt.roles...))

			assert.Equal(t, tt.wantStatus, doGet(r, "Bearer tok").Code)
		})
	}
}

func TestAdminOnly_WithoutIdentity(t *testing.T) {
	r := newRouter(NewAuthMiddleware(new(mockResolver), new(mockGrants)).AdminOnly())
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "").Code)
}

func TestExtractUUIDParam(t *testing.T) {
	r := gin.New()
	r.GET("/i/:id", ExtractUUIDParam("id", ContextGrantID), func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextGrantID)) })

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	assert.Equal(t, testSubject, get("/i/"+strings.ToUpper(testSubject)).Body.String())
	assert.Equal(t, http.StatusBadRequest, get("/i/nope").Code)
	assert.Equal(t, http.StatusBadRequest, get("/i/7").Code)
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(), Metrics())
	r.GET("/t", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	r.ServeHTTP(w, req)
	assert.Equal(t, "fixed-id", w.Header().Get(RequestIDHeader))
}

func TestRequestLogger_RecordsSubject(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	resolver := new(mockResolver)
	resolver.On("CurrentSubject", mock.Anything, "good").Return(&service.Identity{Subject: testSubject})
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/t", NewAuthMiddleware(resolver, nil).OptionalAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/t", nil))
	assert.NotContains(t, buf.String(), `"subject"`)

	buf.Reset()
	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("Authorization", "Bearer good")
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Contains(t, buf.String(), `"subject":"`+testSubject+`"`)
}
