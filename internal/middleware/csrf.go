package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CSRFTokenKey    = "csrf_token"
	CSRFCookieKey   = "_csrf"
	CSRFHeaderKey   = "X-CSRF-Token"
	CSRFFormKey     = "_csrf"
	CSRFTokenLength = 32
)

// CSRF implements the double-submit cookie check for panel forms. The
// token travels in a cookie and must be echoed back in the form or in
// the X-CSRF-Token header on every unsafe request.
func CSRF(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(CSRFCookieKey)
		if err != nil || len(token) != CSRFTokenLength*2 {
			token = generateCSRFToken()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CSRFCookieKey, token, 86400, "/", "", secure, true)
		}

		c.Set(CSRFTokenKey, token)

		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		requestToken := c.PostForm(CSRFFormKey)
		if requestToken == "" {
			requestToken = c.GetHeader(CSRFHeaderKey)
		}

		if !validateCSRFToken(token, requestToken) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid CSRF token"})
			return
		}

		c.Next()
	}
}

func GetCSRFToken(c *gin.Context) string {
	if token, exists := c.Get(CSRFTokenKey); exists {
		return token.(string)
	}
	return ""
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func generateCSRFToken() string {
	bytes := make([]byte, CSRFTokenLength)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func validateCSRFToken(expected, actual string) bool {
	if len(expected) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}
