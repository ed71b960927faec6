package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readSnapshot(t *testing.T, sub *Subscription) []Document {
	t.Helper()
	select {
	case snapshot := <-sub.Snapshots():
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("等待快照超时")
		return nil
	}
}

func TestUpdateMergesFieldsInsteadOfOverwriting(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Create(ctx, "sessions", map[string]string{"revealed": "0"})
	require.NoError(t, err)

	// 两个参与者各自只写自己的字段：互不覆盖
	require.NoError(t, s.Update(ctx, "sessions", id, map[string]string{"v:a": "3"}))
	require.NoError(t, s.Update(ctx, "sessions", id, map[string]string{"v:b": "5"}))

	sub, err := s.Subscribe(ctx, "sessions")
	require.NoError(t, err)
	defer sub.Close()

	docs := readSnapshot(t, sub)
	require.Len(t, docs, 1)
	assert.Equal(t, "3", docs[0].Field("v:a"))
	assert.Equal(t, "5", docs[0].Field("v:b"))
	assert.Equal(t, "0", docs[0].Field("revealed"))
}

func TestUpdateSetsAndRemovesAtomically(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Create(ctx, "sessions", map[string]string{"revealed": "1", "v:a": "3"})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "sessions", id, map[string]string{"revealed": "0"}, "v:a"))

	sub, err := s.Subscribe(ctx, "sessions")
	require.NoError(t, err)
	defer sub.Close()

	docs := readSnapshot(t, sub)
	require.Len(t, docs, 1)
	assert.Equal(t, "0", docs[0].Field("revealed"))
	assert.Empty(t, docs[0].Field("v:a"))
}

func TestDeleteRemovesDocument(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Create(ctx, "presence", map[string]string{"email": "a@example.com"})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "presence", id))

	sub, err := s.Subscribe(ctx, "presence")
	require.NoError(t, err)
	defer sub.Close()

	assert.Empty(t, readSnapshot(t, sub))
}

func TestSubscribeDeliversInitialSnapshotThenChanges(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Create(ctx, "presence", map[string]string{"email": "a@example.com"})
	require.NoError(t, err)

	sub, err := s.Subscribe(ctx, "presence")
	require.NoError(t, err)
	defer sub.Close()

	initial := readSnapshot(t, sub)
	require.Len(t, initial, 1)

	_, err = s.Create(ctx, "presence", map[string]string{"email": "b@example.com"})
	require.NoError(t, err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snapshot := <-sub.Snapshots():
			if len(snapshot) == 2 {
				return
			}
		case <-deadline:
			t.Fatal("变更后未收到新快照")
		}
	}
}

func TestSlowConsumerAlwaysSeesLatestSnapshot(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, "sessions")
	require.NoError(t, err)
	defer sub.Close()

	id, err := s.Create(ctx, "sessions", map[string]string{"revealed": "0"})
	require.NoError(t, err)

	// 消费方不读，连续多次写入：中间快照可以丢，最新的必须能读到
	for _, v := range []string{"1", "2", "3", "5"} {
		require.NoError(t, s.Update(ctx, "sessions", id, map[string]string{"v:a": v}))
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snapshot := <-sub.Snapshots():
			if len(snapshot) == 1 && snapshot[0].Field("v:a") == "5" {
				return
			}
		case <-deadline:
			t.Fatal("未能收到最新快照")
		}
	}
}

func TestCloseStopsDeliveryWithoutUndoingWrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, "sessions")
	require.NoError(t, err)
	readSnapshot(t, sub)

	sub.Close()
	sub.Close() // 幂等

	// 取消订阅绝不回滚已提交的写入
	id, err := s.Create(ctx, "sessions", map[string]string{"revealed": "0"})
	require.NoError(t, err)

	verify, err := s.Subscribe(ctx, "sessions")
	require.NoError(t, err)
	defer verify.Close()

	docs := readSnapshot(t, verify)
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0].ID)
}
