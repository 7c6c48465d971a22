package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "your-secret-key-for-tests"

func TestGenerateToken(t *testing.T) {
	m := NewManager(secret, "eng.com", time.Hour)

	token, err := m.GenerateToken("user1")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	assert.NoError(t, err)
	assert.True(t, parsedToken.Valid)

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.Equal(t, "user1", claims["user_id"])

	_, err = m.GenerateToken("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	m := NewManager(secret, "eng.com", time.Hour)

	token, err := m.GenerateToken("user1")
	require.NoError(t, err)

	userID, err := m.Validate(token)
	assert.NoError(t, err)
	assert.Equal(t, "user1", userID)
}

func TestValidate_Invalid(t *testing.T) {
	m := NewManager(secret, "eng.com", time.Hour)

	_, err := m.Validate("")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Validate("invalid-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongKey, _ := NewManager("wrong-key-wrong-key", "eng.com", time.Hour).GenerateToken("user1")
	_, err = m.Validate(wrongKey)
	assert.ErrorIs(t, err, ErrInvalidToken, "Подпись чужим ключом")

	otherIssuer, _ := NewManager(secret, "someone-else", time.Hour).GenerateToken("user1")
	_, err = m.Validate(otherIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _ := NewManager(secret, "eng.com", -time.Minute).GenerateToken("user1")
	_, err = m.Validate(expired)
	assert.ErrorIs(t, err, ErrInvalidToken, "Истекший токен")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "user1",
		"iss":     "eng.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Validate(noneToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg=none не принимается")
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(secret, "eng.com", time.Hour)

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, ViewerID(c.Request.Context()))
	})

	token, err := m.GenerateToken("user1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{name: "anonymous", header: "", code: http.StatusOK, body: ""},
		{name: "valid", header: "Bearer " + token, code: http.StatusOK, body: "user1"},
		{name: "bad format", header: "Token " + token, code: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", code: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.code, rr.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, tt.body, rr.Body.String())
			}
		})
	}
}
