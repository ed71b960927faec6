package participant

import (
	"testing"
	"time"

	"github.com/SlpAus/scrum-poker-backend/internal/presence"
	"github.com/SlpAus/scrum-poker-backend/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var viewPoints = []string{"0", "1", "3", "5", "8", "?"}

func makeRecords() []presence.Record {
	return []presence.Record{
		{Identity: "alice@example.com", DisplayName: "Alice"},
		{Identity: "bob@example.com", DisplayName: "Bob"},
	}
}

func makeSessions(revealed bool, votes map[string]string) []session.Session {
	return []session.Session{{
		ID:        "s1",
		CreatedAt: time.Now().Format(time.RFC3339Nano),
		Votes:     votes,
		Revealed:  revealed,
	}}
}

func TestViewHidesOthersVotesBeforeReveal(t *testing.T) {
	votes := map[string]string{"alice@example.com": "5", "bob@example.com": "8"}
	view := buildView("alice@example.com", "Alice", false, viewPoints, makeRecords(), makeSessions(false, votes))

	// 本人能看到自己的待定出牌
	assert.Equal(t, "5", view.MyVote)
	assert.False(t, view.Revealed)
	// 公开前平均分不展示
	assert.Equal(t, 0.0, view.Average)

	require.Len(t, view.Participants, 2)
	for _, p := range view.Participants {
		// 其他人只能看到出没出，看不到值
		assert.True(t, p.HasVoted)
		assert.Empty(t, p.Vote)
	}
}

func TestViewShowsAllVotesAfterReveal(t *testing.T) {
	votes := map[string]string{"alice@example.com": "3", "bob@example.com": "?"}
	view := buildView("alice@example.com", "Alice", false, viewPoints, makeRecords(), makeSessions(true, votes))

	assert.True(t, view.Revealed)
	// "?"不参与平均分
	assert.Equal(t, 3.0, view.Average)

	byIdentity := make(map[string]ParticipantStatus)
	for _, p := range view.Participants {
		byIdentity[p.Identity] = p
	}
	assert.Equal(t, "3", byIdentity["alice@example.com"].Vote)
	assert.Equal(t, "?", byIdentity["bob@example.com"].Vote)
}

func TestViewWithoutActiveSession(t *testing.T) {
	view := buildView("alice@example.com", "Alice", true, viewPoints, makeRecords(), nil)

	assert.False(t, view.HasSession)
	assert.True(t, view.IsAdmin)
	assert.Len(t, view.Participants, 2)
	assert.False(t, view.HasVoted("alice@example.com"))
}

func TestViewTracksWhoHasVoted(t *testing.T) {
	votes := map[string]string{"alice@example.com": "5"}
	view := buildView("bob@example.com", "Bob", false, viewPoints, makeRecords(), makeSessions(false, votes))

	assert.True(t, view.HasVoted("alice@example.com"))
	assert.False(t, view.HasVoted("bob@example.com"))
	assert.Empty(t, view.MyVote)
}

func TestViewKeepsVoteOfDepartedParticipant(t *testing.T) {
	// 出牌者离开名册后，其出牌仍留在会话记录中并计入平均分
	votes := map[string]string{"gone@example.com": "8", "alice@example.com": "3"}
	records := []presence.Record{{Identity: "alice@example.com", DisplayName: "Alice"}}
	view := buildView("alice@example.com", "Alice", false, viewPoints, records, makeSessions(true, votes))

	assert.Equal(t, 5.5, view.Average)
	assert.Len(t, view.Participants, 1)
}
