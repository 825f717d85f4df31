package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/coursegen/coursegen-backend/internal/pkg/ctxutil"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

const testSecret = "test-secret"

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": subject})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func authProbe(t *testing.T) (*gin.Engine, *uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var seen uuid.UUID
	r := gin.New()
	r.Use(NewAuthMiddleware(testLogger(t), testSecret).RequireAuth())
	r.GET("/probe", func(c *gin.Context) {
		if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
			seen = rd.UserID
		}
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func TestRequireAuth(t *testing.T) {
	userID := uuid.New()

	t.Run("missing token", func(t *testing.T) {
		r, _ := authProbe(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status: got=%d want=401", w.Code)
		}
	})

	t.Run("valid bearer token", func(t *testing.T) {
		r, seen := authProbe(t)
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID.String()))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status: got=%d want=200 body=%s", w.Code, w.Body.String())
		}
		if *seen != userID {
			t.Fatalf("request data user: got=%s want=%s", *seen, userID)
		}
	})

	t.Run("query parameter fallback", func(t *testing.T) {
		r, seen := authProbe(t)
		req := httptest.NewRequest(http.MethodGet, "/probe?token="+signToken(t, testSecret, userID.String()), nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status: got=%d want=200", w.Code)
		}
		if *seen != userID {
			t.Fatalf("request data user: got=%s", *seen)
		}
	})

	t.Run("wrong signature", func(t *testing.T) {
		r, _ := authProbe(t)
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", userID.String()))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status: got=%d want=401", w.Code)
		}
	})

	t.Run("subject is not a uuid", func(t *testing.T) {
		r, _ := authProbe(t)
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "admin"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status: got=%d want=401", w.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		r, _ := authProbe(t)
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status: got=%d want=401", w.Code)
		}
	})
}
