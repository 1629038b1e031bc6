package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disciplineos/disciplineos/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func authTestRouter() *gin.Engine {
	r := gin.New()
	r.GET("/protected", AuthRequired(), func(ctx *gin.Context) {
		id, _ := UserID(ctx)
		ctx.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	return r
}

func TestAuthRequiredMissingHeader(t *testing.T) {
	r := authTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredMalformedHeader(t *testing.T) {
	r := authTestRouter()

	for _, header := range []string{"Token abc", "Bearer", "Bearer  "} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestAuthRequiredInvalidToken(t *testing.T) {
	r := authTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequiredValidToken(t *testing.T) {
	r := authTestRouter()

	token, err := utils.GenerateToken("user-1", "max", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestAuthRequiredRevokedToken(t *testing.T) {
	r := authTestRouter()

	token, err := utils.GenerateToken("user-2", "max", time.Hour)
	require.NoError(t, err)
	utils.BlacklistToken(token, time.Now().Add(time.Hour))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func singleFlightRouter() *gin.Engine {
	r := gin.New()
	r.POST("/act", AuthRequired(), SingleFlight(), func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestSingleFlightThrottlesRapidRequests(t *testing.T) {
	token, err := utils.GenerateToken("sf-user", "max", time.Hour)
	require.NoError(t, err)
	r := singleFlightRouter()

	first := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/act", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	// an immediate second request is inside the minimum interval
	second := httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/act", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestSingleFlightIsPerUser(t *testing.T) {
	tokenA, err := utils.GenerateToken("sf-user-a", "a", time.Hour)
	require.NoError(t, err)
	tokenB, err := utils.GenerateToken("sf-user-b", "b", time.Hour)
	require.NoError(t, err)
	r := singleFlightRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/act", nil)
	req.Header.Set("Authorization", "Bearer "+tokenA)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// another user is not affected by the first user's interval
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/act", nil)
	req.Header.Set("Authorization", "Bearer "+tokenB)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
