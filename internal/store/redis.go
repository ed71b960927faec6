package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisStore 基于Redis实现Store契约：
// 每个文档是一个Hash（HSET天然就是字段级合并），
// 每个集合维护一个成员Set作为索引，变更通过Pub/Sub扇出。
type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore 创建一个以Redis为后端的共享文档存储。
func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func docKey(collection, id string) string {
	return collection + ":" + id
}

func indexKey(collection string) string {
	return collection + ":index"
}

func changesChannel(collection string) string {
	return collection + ":changes"
}

// Create 新建文档：生成ID，写入字段，登记索引，广播变更。
func (s *redisStore) Create(ctx context.Context, collection string, fields map[string]string) (string, error) {
	id := uuid.NewString()
	if err := s.Update(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

// Update 在一个事务管道中完成字段合并写入与字段删除，
// 然后广播变更。文档不存在时等效于创建。
func (s *redisStore) Update(ctx context.Context, collection, id string, set map[string]string, remove ...string) error {
	pipe := s.rdb.TxPipeline()
	if len(set) > 0 {
		args := make([]interface{}, 0, len(set)*2)
		for k, v := range set {
			args = append(args, k, v)
		}
		pipe.HSet(ctx, docKey(collection, id), args...)
	}
	if len(remove) > 0 {
		pipe.HDel(ctx, docKey(collection, id), remove...)
	}
	pipe.SAdd(ctx, indexKey(collection), id)
	pipe.Publish(ctx, changesChannel(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("共享存储写入失败 (%s/%s): %w", collection, id, err)
	}
	return nil
}

// Delete 删除整个文档并把它从集合索引中移除。
func (s *redisStore) Delete(ctx context.Context, collection, id string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, docKey(collection, id))
	pipe.SRem(ctx, indexKey(collection), id)
	pipe.Publish(ctx, changesChannel(collection), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("共享存储文档删除失败 (%s/%s): %w", collection, id, err)
	}
	return nil
}

// Subscribe 订阅集合变更。建立后立刻推送一次当前快照，
// 此后每收到一条变更通知就重新读取整个集合并推送。
func (s *redisStore) Subscribe(ctx context.Context, collection string) (*Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, changesChannel(collection))
	// 确认订阅已经生效，避免漏掉紧随其后的变更
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("无法订阅集合 %s: %w", collection, err)
	}

	sub := newSubscription(func() {
		_ = pubsub.Close()
	})

	go s.pump(ctx, collection, pubsub, sub)
	return sub, nil
}

// pump 是每个订阅独占的推送Goroutine。
// 连接异常时只记录日志并停止推送，消费方保留最后一次已知快照。
func (s *redisStore) pump(ctx context.Context, collection string, pubsub *redis.PubSub, sub *Subscription) {
	defer close(sub.snapshots)

	snapshot, err := s.readAll(ctx, collection)
	if err != nil {
		fmt.Printf("订阅警告: 读取集合 %s 初始快照失败: %v\n", collection, err)
	} else {
		sub.emit(snapshot)
	}

	ch := pubsub.Channel()
	for range ch {
		snapshot, err := s.readAll(ctx, collection)
		if err != nil {
			// 单次读取失败只丢弃本次推送，订阅继续存活
			fmt.Printf("订阅警告: 读取集合 %s 快照失败: %v\n", collection, err)
			continue
		}
		sub.emit(snapshot)
	}
	// Channel关闭：要么是句柄被Close，要么是连接丢失。
	// 两种情况都不清空已交付的快照。
}

// readAll 读取集合内所有文档的当前状态。
func (s *redisStore) readAll(ctx context.Context, collection string) ([]Document, error) {
	ids, err := s.rdb.SMembers(ctx, indexKey(collection)).Result()
	if err != nil {
		return nil, err
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, docKey(collection, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(ids))
	for i, id := range ids {
		fields, err := cmds[i].Result()
		if err != nil || len(fields) == 0 {
			// 文档刚被删除但索引还在：跳过即可，索引由Delete维护
			continue
		}
		docs = append(docs, Document{ID: id, Fields: fields})
	}
	return docs, nil
}
