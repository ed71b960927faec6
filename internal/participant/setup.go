package participant

import (
	"context"
	"fmt"
	"sync"

	"github.com/SlpAus/scrum-poker-backend/internal/auth"
	"github.com/SlpAus/scrum-poker-backend/internal/platform/config"
	"github.com/SlpAus/scrum-poker-backend/internal/presence"
	"github.com/SlpAus/scrum-poker-backend/internal/session"
	"github.com/SlpAus/scrum-poker-backend/internal/store"
)

// module 持有participant模块的全局依赖。
// 每个进程代表一个参与者，因此最多存在一个活跃的Coordinator。
type module struct {
	registry *presence.Registry
	machine  *session.Machine

	// connectMu 串行化连接的建立与替换，防止并发登录互相覆盖
	connectMu sync.Mutex

	mu      sync.Mutex
	current *Coordinator
}

var globalModule = &module{}

// Setup 初始化participant模块：构建在场名册和会话状态机。
// 必须在配置与共享存储就绪后调用一次。
func Setup(s store.Store) {
	globalModule.registry = presence.NewRegistry(s)
	globalModule.machine = session.NewMachine(s, config.Cfg.Poker.Points, config.Cfg.Auth.AdminEmails)
	fmt.Println("Participant模块初始化完成。")
}

// ConnectIdentity 以给定身份连接到共享会话。
// 已存在的连接（包括同一身份重新登录）会先被完整断开，再建立新连接：
// 旧连接的在场撤销必须发生在新连接的在场登记之前，
// 否则重新登录的参与者会被旧连接的清理从名册中误删。
func ConnectIdentity(ctx context.Context, identity auth.Identity) error {
	globalModule.connectMu.Lock()
	defer globalModule.connectMu.Unlock()

	globalModule.mu.Lock()
	previous := globalModule.current
	globalModule.current = nil
	globalModule.mu.Unlock()
	if previous != nil {
		previous.Close()
	}

	isAdmin := auth.IsAdmin(identity.Email, config.Cfg.Auth.AdminEmails)
	coordinator, err := Connect(ctx, identity, globalModule.registry, globalModule.machine, isAdmin, config.Cfg.Poker.Points)
	if err != nil {
		return err
	}

	globalModule.mu.Lock()
	globalModule.current = coordinator
	globalModule.mu.Unlock()
	return nil
}

// Disconnect 断开当前连接（若存在）。清理由Coordinator保证恰好一次。
func Disconnect() {
	globalModule.mu.Lock()
	current := globalModule.current
	globalModule.current = nil
	globalModule.mu.Unlock()

	if current != nil {
		current.Close()
	}
}

// currentCoordinator 返回当前的活跃连接，没有登录时为nil。
func currentCoordinator() *Coordinator {
	globalModule.mu.Lock()
	defer globalModule.mu.Unlock()
	return globalModule.current
}

// RestoreCachedIdentity 在启动时尝试用本地缓存的身份直接连接，
// 避免用户看到"未登录"的闪烁。缓存为空或已失效时静默跳过。
func RestoreCachedIdentity(ctx context.Context) {
	cached, err := auth.LoadCachedIdentity()
	if err != nil {
		fmt.Printf("读取本地身份缓存失败: %v\n", err)
		return
	}
	if cached == nil {
		return
	}
	if err := auth.ValidateDomain(*cached, config.Cfg.Auth.AllowedDomain); err != nil {
		// 配置变更后缓存的身份可能不再合法，按强制登出处理
		fmt.Printf("缓存身份 %s 已不被允许，清除本地缓存。\n", cached.Email)
		if clearErr := auth.ClearCachedIdentity(); clearErr != nil {
			fmt.Printf("清除本地身份缓存失败: %v\n", clearErr)
		}
		return
	}
	if err := ConnectIdentity(ctx, *cached); err != nil {
		fmt.Printf("用缓存身份恢复连接失败: %v\n", err)
		return
	}
	fmt.Printf("已用缓存身份 %s 恢复连接。\n", cached.Email)
}
