package presence

import (
	"time"

	"github.com/SlpAus/scrum-poker-backend/internal/store"
)

// Collection 是在场名册在共享存储中的集合名
const Collection = "presence"

// 在场文档的字段名
const (
	FieldEmail       = "email"
	FieldDisplayName = "display_name"
	FieldPhotoURL    = "photo_url"
	FieldLastSeen    = "last_seen"
)

// Record 描述一个当前连接到会话的参与者。
// Identity（邮箱）同时也是文档ID，是去重的唯一键。
type Record struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	// LastSeen 在每次（重新）连接时刷新，RFC3339格式
	LastSeen string `json:"lastSeen"`
}

// recordFromDocument 把共享存储中的文档还原为在场记录。
func recordFromDocument(doc store.Document) Record {
	return Record{
		Identity:    doc.Field(FieldEmail),
		DisplayName: doc.Field(FieldDisplayName),
		PhotoURL:    doc.Field(FieldPhotoURL),
		LastSeen:    doc.Field(FieldLastSeen),
	}
}

// fields 把在场记录编码为文档字段，LastSeen取当前时刻。
func (r Record) fields() map[string]string {
	return map[string]string{
		FieldEmail:       r.Identity,
		FieldDisplayName: r.DisplayName,
		FieldPhotoURL:    r.PhotoURL,
		FieldLastSeen:    time.Now().Format(time.RFC3339),
	}
}
