package presence

import (
	"context"
	"testing"
	"time"

	"github.com/SlpAus/scrum-poker-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// currentRecords 新建一个订阅读取当前名册快照。
func currentRecords(t *testing.T, r *Registry) []Record {
	t.Helper()
	sub, err := r.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Close()

	select {
	case records := <-sub.Records():
		return records
	case <-time.After(2 * time.Second):
		t.Fatal("等待名册快照超时")
		return nil
	}
}

func TestJoinIsIdempotentByIdentity(t *testing.T) {
	r := NewRegistry(store.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, r.Join(ctx, Record{Identity: "a@example.com", DisplayName: "Alice"}))
	// 同一identity重复登记不会产生第二条记录，显示名以最后一次为准
	require.NoError(t, r.Join(ctx, Record{Identity: "a@example.com", DisplayName: "Alice Chen"}))

	records := currentRecords(t, r)
	require.Len(t, records, 1)
	assert.Equal(t, "a@example.com", records[0].Identity)
	assert.Equal(t, "Alice Chen", records[0].DisplayName)
	assert.NotEmpty(t, records[0].LastSeen)
}

func TestJoinRejectsEmptyIdentity(t *testing.T) {
	r := NewRegistry(store.NewMemoryStore())
	assert.Error(t, r.Join(context.Background(), Record{DisplayName: "nobody"}))
}

func TestRecordsOrderedByDisplayName(t *testing.T) {
	r := NewRegistry(store.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, r.Join(ctx, Record{Identity: "c@example.com", DisplayName: "Carol"}))
	require.NoError(t, r.Join(ctx, Record{Identity: "a@example.com", DisplayName: "Alice"}))
	require.NoError(t, r.Join(ctx, Record{Identity: "b@example.com", DisplayName: "Bob"}))

	records := currentRecords(t, r)
	require.Len(t, records, 3)
	assert.Equal(t, "Alice", records[0].DisplayName)
	assert.Equal(t, "Bob", records[1].DisplayName)
	assert.Equal(t, "Carol", records[2].DisplayName)
}

func TestLeaveRemovesRecord(t *testing.T) {
	r := NewRegistry(store.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, r.Join(ctx, Record{Identity: "a@example.com", DisplayName: "Alice"}))
	require.NoError(t, r.Leave(ctx, "a@example.com"))

	assert.Empty(t, currentRecords(t, r))
}

func TestSubscriptionPushesOnEveryMutation(t *testing.T) {
	r := NewRegistry(store.NewMemoryStore())
	ctx := context.Background()

	sub, err := r.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	// 初始快照：空名册
	select {
	case records := <-sub.Records():
		assert.Empty(t, records)
	case <-time.After(2 * time.Second):
		t.Fatal("等待初始快照超时")
	}

	require.NoError(t, r.Join(ctx, Record{Identity: "a@example.com", DisplayName: "Alice"}))

	// 登记后应推送包含新记录的快照
	deadline := time.After(2 * time.Second)
	for {
		select {
		case records := <-sub.Records():
			if len(records) == 1 && records[0].Identity == "a@example.com" {
				return
			}
		case <-deadline:
			t.Fatal("登记后未收到包含新记录的快照")
		}
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	r := NewRegistry(store.NewMemoryStore())

	sub, err := r.Subscribe(context.Background())
	require.NoError(t, err)

	// 多条退出路径重叠时Close会被调用多次，必须安全
	sub.Close()
	sub.Close()
}
