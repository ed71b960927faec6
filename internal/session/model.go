package session

import (
	"errors"
	"strings"
	"time"

	"github.com/SlpAus/scrum-poker-backend/internal/store"
)

// Collection 是投票会话在共享存储中的集合名
const Collection = "sessions"

// 会话文档的字段名。每张已出的牌占据一个独立的 v:<identity> 字段，
// 这样两个参与者并发出牌时各自只写自己的字段，互不覆盖。
const (
	FieldCreatedAt = "created_at"
	FieldCreatedBy = "created_by"
	FieldRevealed  = "revealed"
	votePrefix     = "v:"
)

const (
	revealedTrue  = "1"
	revealedFalse = "0"
)

// 会话操作的错误枚举
var (
	// ErrNoActiveSession 表示当前没有任何可操作的会话
	ErrNoActiveSession = errors.New("当前没有进行中的投票会话")
	// ErrSessionRevealed 表示会话已公开，按约定不再接受出牌
	ErrSessionRevealed = errors.New("会话已公开，不能再出牌")
	// ErrInvalidVote 表示出的牌不在配置的点数表内
	ErrInvalidVote = errors.New("无效的点数")
	// ErrNotAdmin 表示发起者不具备管理能力
	ErrNotAdmin = errors.New("只有管理员可以执行此操作")
	// ErrNoVotes 表示会话内还没有任何出牌，不能公开
	ErrNoVotes = errors.New("还没有人出牌，不能公开")
)

// Session 是一轮投票会话的本地快照。
type Session struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	CreatedBy string `json:"createdBy"`
	// Votes 按参与者identity索引；缺键表示"还没出牌"
	Votes    map[string]string `json:"votes"`
	Revealed bool              `json:"revealed"`
}

// voteField 返回某个参与者的出牌在会话文档中的字段名。
func voteField(identity string) string {
	return votePrefix + identity
}

// sessionFromDocument 把共享存储中的文档还原为会话快照。
func sessionFromDocument(doc store.Document) Session {
	s := Session{
		ID:        doc.ID,
		CreatedAt: doc.Field(FieldCreatedAt),
		CreatedBy: doc.Field(FieldCreatedBy),
		Revealed:  doc.Field(FieldRevealed) == revealedTrue,
		Votes:     make(map[string]string),
	}
	for name, value := range doc.Fields {
		if identity, ok := strings.CutPrefix(name, votePrefix); ok {
			s.Votes[identity] = value
		}
	}
	return s
}

// createdAtTime 解析创建时间；无法解析的记录被视为最旧。
func (s Session) createdAtTime() time.Time {
	t, err := time.Parse(time.RFC3339Nano, s.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// newerThan 判断s是否应当在活跃会话选择中胜过other。
// 先比创建时间，时间完全相同时按文档ID决出，
// 保证所有客户端对"哪个会话是活跃的"收敛到同一个答案。
func (s Session) newerThan(other Session) bool {
	st, ot := s.createdAtTime(), other.createdAtTime()
	if !st.Equal(ot) {
		return st.After(ot)
	}
	return s.ID > other.ID
}
