// Package store 定义了共享响应式文档存储的窄契约。
// 所有会话协调都只通过这个契约进行：文档级的字段合并写入，
// 加上集合级的快照推送订阅。上层模块绝不直接触碰Redis客户端。
package store

import (
	"context"
	"sync"
)

// Document 是共享存储中一个文档在某一时刻的完整快照。
type Document struct {
	ID     string
	Fields map[string]string
}

// Field 读取一个字段值，缺失时返回空字符串。
func (d Document) Field(name string) string {
	return d.Fields[name]
}

// Store 是共享文档存储的契约。
// Update 必须是字段级的局部合并，而不是整个文档的覆盖写；
// 这是两个参与者并发写入同一文档不同字段时互不丢失的前提。
type Store interface {
	// Create 在集合中新建一个文档，返回存储生成的文档ID。
	Create(ctx context.Context, collection string, fields map[string]string) (string, error)
	// Update 对指定文档做原子的字段级局部更新：
	// set中的字段被合并写入，remove中的字段被删除，两者在同一次提交中生效；
	// 未提及的字段保持原值。文档不存在时等效于创建。
	Update(ctx context.Context, collection, id string, set map[string]string, remove ...string) error
	// Delete 删除整个文档。
	Delete(ctx context.Context, collection, id string) error
	// Subscribe 订阅一个集合：订阅建立后立刻推送一次当前快照，
	// 此后集合内任何文档变化都推送最新的完整快照，直到句柄被关闭。
	Subscribe(ctx context.Context, collection string) (*Subscription, error)
}

// Subscription 是一个可取消的订阅句柄。
// 关闭句柄只停止后续推送，绝不会回滚任何已提交的写入。
type Subscription struct {
	snapshots chan []Document
	cancel    func()
	closeOnce sync.Once
}

// newSubscription 构造一个订阅句柄。cancel由具体实现提供，
// 负责让推送Goroutine退出；快照channel由推送方在退出时关闭。
func newSubscription(cancel func()) *Subscription {
	return &Subscription{
		snapshots: make(chan []Document, 1),
		cancel:    cancel,
	}
}

// Snapshots 返回快照channel。消费慢时中间快照会被丢弃，
// 但保证最终总能收到最新的一份（每个订阅内单调推进）。
func (s *Subscription) Snapshots() <-chan []Document {
	return s.snapshots
}

// Close 取消订阅。可以被并发地多次调用，只有第一次生效。
func (s *Subscription) Close() {
	s.closeOnce.Do(s.cancel)
}

// emit 以"最新覆盖最旧"的方式向快照channel推送。
func (s *Subscription) emit(snapshot []Document) {
	for {
		select {
		case s.snapshots <- snapshot:
			return
		default:
			// channel已满：丢弃积压的旧快照，重试写入新快照
			select {
			case <-s.snapshots:
			default:
			}
		}
	}
}
