package session

import (
	"context"
	"sort"
	"time"

	"github.com/SlpAus/scrum-poker-backend/internal/auth"
	"github.com/SlpAus/scrum-poker-backend/internal/store"
)

// Machine 是投票会话状态机的唯一访问入口。
// 所有对共享存储sessions集合的读写都必须经过它。
// 状态机没有任何锁：并发正确性完全依赖字段级局部更新
// （不同参与者的出牌互不覆盖）和基于创建时间的活跃会话收敛。
type Machine struct {
	store       store.Store
	points      []string
	adminEmails []string
}

// NewMachine 创建一个会话状态机。
// points是配置的点数表，adminEmails是拥有管理能力的邮箱集合，
// 两者在状态机的生命周期内只读。
func NewMachine(s store.Store, points []string, adminEmails []string) *Machine {
	return &Machine{store: s, points: points, adminEmails: adminEmails}
}

// isAllowedPoint 判断一个出牌值是否在点数表内（封闭枚举，含哨兵"?"）。
func (m *Machine) isAllowedPoint(value string) bool {
	for _, p := range m.points {
		if p == value {
			return true
		}
	}
	return false
}

// Start 开始一轮全新的投票会话。需要管理能力。
// 旧会话记录不受影响：它们保留在存储中，只是在活跃会话的
// 新近度排序中被新记录压过。两个管理员并发Start时两条记录都会
// 创建成功，所有客户端随后收敛到created_at更大的那条。
func (m *Machine) Start(ctx context.Context, initiator string) (string, error) {
	if !auth.IsAdmin(initiator, m.adminEmails) {
		return "", ErrNotAdmin
	}
	return m.store.Create(ctx, Collection, map[string]string{
		FieldCreatedAt: time.Now().Format(time.RFC3339Nano),
		FieldCreatedBy: initiator,
		FieldRevealed:  revealedFalse,
	})
}

// CastVote 为参与者记录一次出牌。
// 会话公开后按约定拒绝（存储本身并不强制这一点）；
// 公开前参与者可以任意次改牌，同一人的并发写以最后一次提交为准。
func (m *Machine) CastVote(ctx context.Context, active *Session, identity, value string) error {
	if active == nil {
		return ErrNoActiveSession
	}
	if active.Revealed {
		return ErrSessionRevealed
	}
	if !m.isAllowedPoint(value) {
		return ErrInvalidVote
	}
	return m.store.Update(ctx, Collection, active.ID, map[string]string{
		voteField(identity): value,
	})
}

// Reveal 公开会话内的所有出牌。需要管理能力且至少已有一张牌。
// 公开是单向的：没有任何操作能把已公开的会话重新隐藏。
func (m *Machine) Reveal(ctx context.Context, active *Session, initiator string) error {
	if !auth.IsAdmin(initiator, m.adminEmails) {
		return ErrNotAdmin
	}
	if active == nil {
		return ErrNoActiveSession
	}
	if len(active.Votes) == 0 {
		return ErrNoVotes
	}
	return m.store.Update(ctx, Collection, active.ID, map[string]string{
		FieldRevealed: revealedTrue,
	})
}

// Reset 清空当前会话的所有出牌并回到收集状态。需要管理能力。
// 它作用于同一条会话记录：清空出牌字段和revealed=false
// 在同一次局部更新中原子生效。
func (m *Machine) Reset(ctx context.Context, active *Session, initiator string) error {
	if !auth.IsAdmin(initiator, m.adminEmails) {
		return ErrNotAdmin
	}
	if active == nil {
		return ErrNoActiveSession
	}
	remove := make([]string, 0, len(active.Votes))
	for identity := range active.Votes {
		remove = append(remove, voteField(identity))
	}
	return m.store.Update(ctx, Collection, active.ID, map[string]string{
		FieldRevealed: revealedFalse,
	}, remove...)
}

// Subscription 是会话集合的订阅句柄，
// 推送按新近度降序排列的全量会话快照，直到被显式关闭。
type Subscription struct {
	sessions chan []Session
	inner    *store.Subscription
}

// Sessions 返回快照channel，第一个元素总是最新创建的会话。
func (s *Subscription) Sessions() <-chan []Session {
	return s.sessions
}

// Close 取消订阅，可安全地多次调用。
func (s *Subscription) Close() {
	s.inner.Close()
}

// Subscribe 订阅会话集合。消费方用ActiveSession从每份快照中
// 选出唯一的活跃会话。
func (m *Machine) Subscribe(ctx context.Context) (*Subscription, error) {
	inner, err := m.store.Subscribe(ctx, Collection)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		sessions: make(chan []Session, 1),
		inner:    inner,
	}
	go func() {
		defer close(sub.sessions)
		for snapshot := range inner.Snapshots() {
			sessions := decodeSnapshot(snapshot)
			// 最新覆盖最旧：消费慢时丢弃积压的中间快照
			select {
			case sub.sessions <- sessions:
			default:
				select {
				case <-sub.sessions:
				default:
				}
				sub.sessions <- sessions
			}
		}
	}()
	return sub, nil
}

// decodeSnapshot 把文档快照还原为按新近度降序的会话列表。
func decodeSnapshot(docs []store.Document) []Session {
	sessions := make([]Session, 0, len(docs))
	for _, doc := range docs {
		sessions = append(sessions, sessionFromDocument(doc))
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].newerThan(sessions[j])
	})
	return sessions
}

// ActiveSession 从一份快照中选出活跃会话：created_at最大的那条。
// 快照为空时返回nil，表示NoActiveSession状态。
func ActiveSession(sessions []Session) *Session {
	if len(sessions) == 0 {
		return nil
	}
	active := sessions[0]
	return &active
}
