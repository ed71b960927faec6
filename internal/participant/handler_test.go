package participant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SlpAus/scrum-poker-backend/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedTestContext(email, uid string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/session", nil)
	c.Set(auth.EmailKey, email)
	c.Set(auth.UIDKey, uid)
	return c, w
}

func TestRequireConnectionMatchesBothClaims(t *testing.T) {
	setupTestModule(t)
	identity := auth.Identity{UID: "uid-alice", Email: "alice@example.com", DisplayName: "Alice"}
	require.NoError(t, ConnectIdentity(context.Background(), identity))
	defer Disconnect()

	// 邮箱和UID都与当前参与者一致才放行
	c, _ := authedTestContext("alice@example.com", "uid-alice")
	coordinator, ok := requireConnection(c)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", coordinator.Identity().Email)

	// 旧凭证里的UID与当前连接不符时拒绝
	c, w := authedTestContext("alice@example.com", "uid-stale")
	_, ok = requireConnection(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 邮箱不符同样拒绝
	c, w = authedTestContext("bob@example.com", "uid-alice")
	_, ok = requireConnection(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireConnectionWithoutLogin(t *testing.T) {
	setupTestModule(t)

	c, w := authedTestContext("alice@example.com", "uid-alice")
	_, ok := requireConnection(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
