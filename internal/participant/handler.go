package participant

import (
	"errors"
	"io"
	"net/http"

	"github.com/SlpAus/scrum-poker-backend/internal/auth"
	"github.com/SlpAus/scrum-poker-backend/internal/session"
	"github.com/gin-gonic/gin"
)

// Login 接收上游身份提供方交付的身份结构并建立连接。
// 域名校验失败按AuthRejected处理：强制登出并向用户返回明确错误。
func Login(c *gin.Context) {
	var identity auth.Identity
	if err := c.ShouldBindJSON(&identity); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	if err := auth.SignIn(identity); err != nil {
		if errors.Is(err, auth.ErrDomainNotAllowed) {
			auth.ClearIdentityCookie(c)
			c.JSON(http.StatusForbidden, gin.H{"error": "只允许使用企业邮箱登录"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "登录失败: " + err.Error()})
		return
	}

	if err := auth.SetIdentityCookie(c, identity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "登录失败: " + err.Error()})
		return
	}

	if err := ConnectIdentity(c.Request.Context(), identity); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "无法连接到共享会话: " + err.Error()})
		return
	}

	coordinator := currentCoordinator()
	if coordinator == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "连接已被并发登出中断"})
		return
	}
	c.JSON(http.StatusOK, coordinator.View())
}

// Logout 显式登出：清除Cookie和本地身份缓存，断开连接。
func Logout(c *gin.Context) {
	auth.ClearIdentityCookie(c)
	if err := auth.ClearCachedIdentity(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "登出失败: " + err.Error()})
		return
	}
	Disconnect()
	c.JSON(http.StatusOK, gin.H{"message": "已登出"})
}

// GetView 返回当前的本地视图快照。
func GetView(c *gin.Context) {
	coordinator, ok := requireConnection(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, coordinator.View())
}

// StreamView 通过SSE向本参与者的界面推送视图更新。
// 连接断开时观察者被注销；订阅本身不受影响。
func StreamView(c *gin.Context) {
	coordinator, ok := requireConnection(c)
	if !ok {
		return
	}

	views, cancel := coordinator.Watch()
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case view, chOk := <-views:
			if !chOk {
				return false
			}
			c.SSEvent("view", view)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// CastVote 为本参与者出一张牌。
// 会话已公开或不存在时按约定静默忽略（与界面禁用按钮的行为一致）；
// 点数不在配置表内则是客户端缺陷，返回400。
func CastVote(c *gin.Context) {
	coordinator, ok := requireConnection(c)
	if !ok {
		return
	}

	var body struct {
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return
	}

	err := coordinator.CastVote(c.Request.Context(), body.Value)
	switch {
	case errors.Is(err, session.ErrInvalidVote):
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的点数"})
	case errors.Is(err, session.ErrSessionRevealed), errors.Is(err, session.ErrNoActiveSession):
		// 约定层的静默no-op：出牌视图不会变化
		c.JSON(http.StatusOK, gin.H{"message": "当前不接受出牌"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "已出牌"})
	}
}

// StartSession 开始一轮新会话（管理员）。
func StartSession(c *gin.Context) {
	coordinator, ok := requireConnection(c)
	if !ok {
		return
	}
	if err := coordinator.StartSession(c.Request.Context()); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "只有管理员可以开始新会话"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "新会话已开始"})
}

// Reveal 公开当前会话的出牌（管理员）。
func Reveal(c *gin.Context) {
	coordinator, ok := requireConnection(c)
	if !ok {
		return
	}
	err := coordinator.Reveal(c.Request.Context())
	switch {
	case errors.Is(err, session.ErrNotAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": "只有管理员可以公开出牌"})
	case errors.Is(err, session.ErrNoVotes):
		c.JSON(http.StatusConflict, gin.H{"error": "还没有人出牌，不能公开"})
	case errors.Is(err, session.ErrNoActiveSession):
		c.JSON(http.StatusConflict, gin.H{"error": "当前没有进行中的会话"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "出牌已公开"})
	}
}

// Reset 重置当前会话（管理员）。
func Reset(c *gin.Context) {
	coordinator, ok := requireConnection(c)
	if !ok {
		return
	}
	err := coordinator.Reset(c.Request.Context())
	switch {
	case errors.Is(err, session.ErrNotAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": "只有管理员可以重置会话"})
	case errors.Is(err, session.ErrNoActiveSession):
		c.JSON(http.StatusConflict, gin.H{"error": "当前没有进行中的会话"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "会话已重置"})
	}
}

// requireConnection 校验请求者就是本进程的参与者且连接已建立。
func requireConnection(c *gin.Context) (*Coordinator, bool) {
	coordinator := currentCoordinator()
	if coordinator == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "尚未登录"})
		return nil, false
	}
	if c.GetString(auth.EmailKey) != coordinator.Identity().Email || c.GetString(auth.UIDKey) != coordinator.Identity().UID {
		c.JSON(http.StatusForbidden, gin.H{"error": "登录凭证与当前参与者不符"})
		return nil, false
	}
	return coordinator, true
}
