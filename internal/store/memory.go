package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore 是Store契约的进程内实现。
// 它与Redis实现遵循完全相同的语义（字段级合并、全量快照推送），
// 供测试在没有Redis的环境下驱动整套同步逻辑。
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]map[string]string
	subscribers map[string]map[*Subscription]bool
}

// NewMemoryStore 创建一个空的进程内文档存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]string),
		subscribers: make(map[string]map[*Subscription]bool),
	}
}

func (s *MemoryStore) Create(ctx context.Context, collection string, fields map[string]string) (string, error) {
	id := uuid.NewString()
	if err := s.Update(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Update(_ context.Context, collection, id string, set map[string]string, remove ...string) error {
	s.mu.Lock()
	docs := s.collections[collection]
	if docs == nil {
		docs = make(map[string]map[string]string)
		s.collections[collection] = docs
	}
	doc := docs[id]
	if doc == nil {
		doc = make(map[string]string)
		docs[id] = doc
	}
	// 字段级合并：未提及的字段保持原值
	for k, v := range set {
		doc[k] = v
	}
	for _, f := range remove {
		delete(doc, f)
	}
	s.mu.Unlock()

	s.broadcast(collection)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	delete(s.collections[collection], id)
	s.mu.Unlock()

	s.broadcast(collection)
	return nil
}

func (s *MemoryStore) Subscribe(_ context.Context, collection string) (*Subscription, error) {
	s.mu.Lock()
	subs := s.subscribers[collection]
	if subs == nil {
		subs = make(map[*Subscription]bool)
		s.subscribers[collection] = subs
	}

	var sub *Subscription
	sub = newSubscription(func() {
		s.mu.Lock()
		if subs[sub] {
			delete(subs, sub)
			close(sub.snapshots)
		}
		s.mu.Unlock()
	})
	subs[sub] = true

	sub.emit(s.snapshotLocked(collection))
	s.mu.Unlock()

	return sub, nil
}

// broadcast 把集合的最新全量快照推送给所有订阅者。
// emit不会阻塞（最新覆盖最旧），因此可以安全地在锁内完成，
// 同时避免与Close()并发时向已关闭的channel写入。
func (s *MemoryStore) broadcast(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshotLocked(collection)
	for sub := range s.subscribers[collection] {
		sub.emit(snapshot)
	}
}

func (s *MemoryStore) snapshotLocked(collection string) []Document {
	docs := make([]Document, 0, len(s.collections[collection]))
	for id, fields := range s.collections[collection] {
		copied := make(map[string]string, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		docs = append(docs, Document{ID: id, Fields: copied})
	}
	return docs
}
