package auth

import (
	"net/http"

	"github.com/SlpAus/scrum-poker-backend/pkg/token"
	"github.com/gin-gonic/gin"
)

const (
	CookieName   = "poker-identity"
	CookieMaxAge = 24 * 60 * 60
	EmailKey     = "authEmail"
	UIDKey       = "authUID"
)

// SetIdentityCookie 在登录成功后签发带HMAC签名的身份Cookie。
func SetIdentityCookie(c *gin.Context, identity Identity) error {
	value, err := token.SignIdentity(token.IdentityClaims{
		UID:   identity.UID,
		Email: identity.Email,
	})
	if err != nil {
		return err
	}
	c.SetCookie(CookieName, value, CookieMaxAge, "/", "", false, true)
	return nil
}

// ClearIdentityCookie 在登出时删除身份Cookie。
func ClearIdentityCookie(c *gin.Context) {
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
}

// RequireIdentityMiddleware 校验身份Cookie的签名，
// 并把已验证的邮箱和UID放入Gin上下文，供后续Handler使用。
func RequireIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, err := c.Cookie(CookieName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "尚未登录"})
			return
		}
		claims, err := token.ParseIdentity(value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "登录凭证无效，请重新登录"})
			return
		}
		c.Set(EmailKey, claims.Email)
		c.Set(UIDKey, claims.UID)
		c.Next()
	}
}
