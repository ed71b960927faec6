package presence

import (
	"context"
	"fmt"
	"sort"

	"github.com/SlpAus/scrum-poker-backend/internal/store"
)

// Registry 是在场名册的唯一访问入口。
// 所有对共享存储presence集合的读写都必须经过它，
// 合并与排序策略集中在这里，不散落到界面相关代码中。
type Registry struct {
	store store.Store
}

// NewRegistry 创建一个基于给定共享存储的在场名册。
func NewRegistry(s store.Store) *Registry {
	return &Registry{store: s}
}

// Join 把参与者登记到在场名册。
// 以identity为文档ID做字段级合并写入，因此重复Join是幂等的：
// 不会产生第二条记录，display信息和LastSeen以最后一次为准。
func (r *Registry) Join(ctx context.Context, record Record) error {
	if record.Identity == "" {
		return fmt.Errorf("在场登记失败: identity不能为空")
	}
	return r.store.Update(ctx, Collection, record.Identity, record.fields())
}

// Leave 把参与者从在场名册中删除。
// 这只是尽力而为的清理请求：进程被杀或网络分区时它不会被执行，
// 残留的记录会一直可见。这是设计接受的限制，没有TTL兜底。
func (r *Registry) Leave(ctx context.Context, identity string) error {
	return r.store.Delete(ctx, Collection, identity)
}

// Subscription 是在场名册的订阅句柄，
// 推送按显示名排序的全量在场记录，直到被显式关闭。
type Subscription struct {
	records chan []Record
	inner   *store.Subscription
}

// Records 返回快照channel。名册任何变动都会推送一份新的完整快照。
func (s *Subscription) Records() <-chan []Record {
	return s.records
}

// Close 取消订阅，可安全地多次调用。
func (s *Subscription) Close() {
	s.inner.Close()
}

// Subscribe 订阅在场名册。订阅建立后立刻推送一次当前名册，
// 之后任何客户端的登记或离开都会触发推送。
func (r *Registry) Subscribe(ctx context.Context) (*Subscription, error) {
	inner, err := r.store.Subscribe(ctx, Collection)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		records: make(chan []Record, 1),
		inner:   inner,
	}
	go func() {
		defer close(sub.records)
		for snapshot := range inner.Snapshots() {
			records := decodeSnapshot(snapshot)
			// 最新覆盖最旧：消费慢时丢弃积压的中间快照
			select {
			case sub.records <- records:
			default:
				select {
				case <-sub.records:
				default:
				}
				sub.records <- records
			}
		}
	}()
	return sub, nil
}

// decodeSnapshot 把文档快照还原为按显示名排序的在场记录列表。
func decodeSnapshot(docs []store.Document) []Record {
	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, recordFromDocument(doc))
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].DisplayName != records[j].DisplayName {
			return records[i].DisplayName < records[j].DisplayName
		}
		return records[i].Identity < records[j].Identity
	})
	return records
}
