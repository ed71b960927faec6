package participant

import (
	"context"
	"fmt"
	"sync"

	"github.com/SlpAus/scrum-poker-backend/internal/auth"
	"github.com/SlpAus/scrum-poker-backend/internal/presence"
	"github.com/SlpAus/scrum-poker-backend/internal/session"
)

// Coordinator 是同步粘合层：它代表一个已登录的参与者，
// 登记在场、订阅名册与会话两路推送、把它们调和为一份本地视图，
// 并保证无论哪条退出路径（登出、替换登录、进程停机）先触发，
// 清理动作都恰好执行一次。
type Coordinator struct {
	identity auth.Identity
	isAdmin  bool
	points   []string

	registry *presence.Registry
	machine  *session.Machine

	presSub *presence.Subscription
	sessSub *session.Subscription

	mu           sync.RWMutex
	view         View
	lastRecords  []presence.Record
	lastSessions []session.Session
	watchers     map[chan View]bool

	closeOnce  sync.Once
	connCancel context.CancelFunc
	done       chan struct{}
}

// Connect 建立参与者与共享会话的完整连接：
// 在场登记、两路订阅、调和循环。任何一步失败都会回滚之前的步骤。
func Connect(ctx context.Context, identity auth.Identity, registry *presence.Registry, machine *session.Machine, isAdmin bool, points []string) (*Coordinator, error) {
	record := presence.Record{
		Identity:    identity.Email,
		DisplayName: identity.DisplayName,
		PhotoURL:    identity.PhotoURL,
	}
	if err := registry.Join(ctx, record); err != nil {
		return nil, fmt.Errorf("在场登记失败: %w", err)
	}

	// 订阅的生命周期由Close管理，不随调用方的ctx（比如一次登录请求）结束。
	connCtx, connCancel := context.WithCancel(context.Background())

	presSub, err := registry.Subscribe(connCtx)
	if err != nil {
		connCancel()
		if leaveErr := registry.Leave(ctx, identity.Email); leaveErr != nil {
			fmt.Printf("订阅失败后撤销在场登记失败: %v\n", leaveErr)
		}
		return nil, fmt.Errorf("订阅在场名册失败: %w", err)
	}

	sessSub, err := machine.Subscribe(connCtx)
	if err != nil {
		connCancel()
		presSub.Close()
		if leaveErr := registry.Leave(ctx, identity.Email); leaveErr != nil {
			fmt.Printf("订阅失败后撤销在场登记失败: %v\n", leaveErr)
		}
		return nil, fmt.Errorf("订阅会话集合失败: %w", err)
	}

	c := &Coordinator{
		identity:   identity,
		isAdmin:    isAdmin,
		points:     points,
		registry:   registry,
		machine:    machine,
		presSub:    presSub,
		sessSub:    sessSub,
		watchers:   make(map[chan View]bool),
		connCancel: connCancel,
		done:       make(chan struct{}),
	}
	c.view = buildView(identity.Email, identity.DisplayName, isAdmin, points, nil, nil)

	go c.reconcile()
	fmt.Printf("参与者 %s 已连接到共享会话。\n", identity.Email)
	return c, nil
}

// reconcile 是粘合层的事件循环：任一路推送到达就重建视图。
// 任一订阅的channel关闭（连接丢失或主动Close）都结束循环，
// 已推导出的最后一份视图保持原样，绝不清空。
func (c *Coordinator) reconcile() {
	for {
		select {
		case records, ok := <-c.presSub.Records():
			if !ok {
				return
			}
			c.applyUpdate(records, nil, true, false)
		case sessions, ok := <-c.sessSub.Sessions():
			if !ok {
				return
			}
			c.applyUpdate(nil, sessions, false, true)
		case <-c.done:
			return
		}
	}
}

// applyUpdate 合入一路新快照，重建视图并通知所有观察者。
func (c *Coordinator) applyUpdate(records []presence.Record, sessions []session.Session, hasRecords, hasSessions bool) {
	c.mu.Lock()
	if hasRecords {
		c.lastRecords = records
	}
	if hasSessions {
		c.lastSessions = sessions
	}
	c.view = buildView(c.identity.Email, c.identity.DisplayName, c.isAdmin, c.points, c.lastRecords, c.lastSessions)
	view := c.view
	for watcher := range c.watchers {
		// 观察者channel带缓冲，最新覆盖最旧
		select {
		case watcher <- view:
		default:
			select {
			case <-watcher:
			default:
			}
			watcher <- view
		}
	}
	c.mu.Unlock()
}

// View 返回当前的本地视图快照。
func (c *Coordinator) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Identity 返回本参与者的身份。
func (c *Coordinator) Identity() auth.Identity {
	return c.identity
}

// Watch 注册一个视图观察者channel（供SSE推流使用），
// 并立即送入当前视图。取消函数可安全地多次调用。
func (c *Coordinator) Watch() (<-chan View, func()) {
	ch := make(chan View, 1)
	c.mu.Lock()
	c.watchers[ch] = true
	ch <- c.view
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.watchers, ch)
			c.mu.Unlock()
		})
	}
	return ch, cancel
}

// CastVote 为本参与者出一张牌。提交是"发出即不管"的：
// 本地视图只在随后的订阅推送回显已提交的值时才更新。
// 约定层的拒绝（会话已公开、点数非法）返回错误；
// 存储写入失败按基线策略记录日志后丢弃，不向上传播。
func (c *Coordinator) CastVote(ctx context.Context, value string) error {
	active := session.ActiveSession(c.currentSessions())
	err := c.machine.CastVote(ctx, active, c.identity.Email, value)
	if err == nil {
		return nil
	}
	switch err {
	case session.ErrNoActiveSession, session.ErrSessionRevealed, session.ErrInvalidVote:
		return err
	default:
		// WriteFailed: 记录后丢弃，界面保持安静
		fmt.Printf("出牌写入失败 (%s): %v\n", c.identity.Email, err)
		return nil
	}
}

// StartSession 开始一轮新会话（管理员操作）。
func (c *Coordinator) StartSession(ctx context.Context) error {
	_, err := c.machine.Start(ctx, c.identity.Email)
	if err == session.ErrNotAdmin {
		return err
	}
	if err != nil {
		fmt.Printf("开始新会话写入失败 (%s): %v\n", c.identity.Email, err)
	}
	return nil
}

// Reveal 公开当前会话的所有出牌（管理员操作）。
func (c *Coordinator) Reveal(ctx context.Context) error {
	active := session.ActiveSession(c.currentSessions())
	err := c.machine.Reveal(ctx, active, c.identity.Email)
	switch err {
	case nil:
		return nil
	case session.ErrNotAdmin, session.ErrNoActiveSession, session.ErrNoVotes:
		return err
	default:
		fmt.Printf("公开会话写入失败 (%s): %v\n", c.identity.Email, err)
		return nil
	}
}

// Reset 清空当前会话并回到收集状态（管理员操作）。
func (c *Coordinator) Reset(ctx context.Context) error {
	active := session.ActiveSession(c.currentSessions())
	err := c.machine.Reset(ctx, active, c.identity.Email)
	switch err {
	case nil:
		return nil
	case session.ErrNotAdmin, session.ErrNoActiveSession:
		return err
	default:
		fmt.Printf("重置会话写入失败 (%s): %v\n", c.identity.Email, err)
		return nil
	}
}

func (c *Coordinator) currentSessions() []session.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSessions
}

// Close 断开参与者与共享会话的连接：取消两路订阅并撤销在场登记。
// 多条退出路径（显式登出、替换登录、进程停机）可能重叠触发，
// sync.Once保证清理恰好执行一次。
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.connCancel()
		c.presSub.Close()
		c.sessSub.Close()
		// 在场撤销是尽力而为的：失败时只记录，记录会残留在名册中
		if err := c.registry.Leave(context.Background(), c.identity.Email); err != nil {
			fmt.Printf("撤销在场登记失败 (%s): %v\n", c.identity.Email, err)
		}
		fmt.Printf("参与者 %s 已断开连接。\n", c.identity.Email)
	})
}
