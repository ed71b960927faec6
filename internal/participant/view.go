package participant

import (
	"github.com/SlpAus/scrum-poker-backend/internal/presence"
	"github.com/SlpAus/scrum-poker-backend/internal/session"
)

// ParticipantStatus 是名册中一个参与者在当前视图下的状态。
// Vote 只在会话公开后才填充；公开前其他人只能看到"已出牌"。
type ParticipantStatus struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	HasVoted    bool   `json:"hasVoted"`
	Vote        string `json:"vote,omitempty"`
}

// View 是本参与者从最新快照推导出的完整本地视图。
// 它只在订阅推送到达时重建，从不主动轮询。
type View struct {
	Identity     string              `json:"identity"`
	DisplayName  string              `json:"displayName"`
	IsAdmin      bool                `json:"isAdmin"`
	Points       []string            `json:"points"`
	HasSession   bool                `json:"hasSession"`
	SessionID    string              `json:"sessionId,omitempty"`
	Revealed     bool                `json:"revealed"`
	MyVote       string              `json:"myVote,omitempty"`
	Average      float64             `json:"average"`
	Participants []ParticipantStatus `json:"participants"`
}

// buildView 把两路订阅的最新快照合并为一份视图。
// 出牌的可见性规则在这里集中实现：
//   - 公开前：本人能看到自己的待定出牌，其他人只能看到出没出；
//   - 公开后：所有出牌对所有人可见，并给出数值平均分。
func buildView(me, displayName string, isAdmin bool, points []string, records []presence.Record, sessions []session.Session) View {
	view := View{
		Identity:     me,
		DisplayName:  displayName,
		IsAdmin:      isAdmin,
		Points:       points,
		Participants: make([]ParticipantStatus, 0, len(records)),
	}

	active := session.ActiveSession(sessions)
	if active != nil {
		view.HasSession = true
		view.SessionID = active.ID
		view.Revealed = active.Revealed
		view.MyVote = active.Votes[me]
		if active.Revealed {
			view.Average = session.Average(active.Votes)
		}
	}

	for _, record := range records {
		status := ParticipantStatus{
			Identity:    record.Identity,
			DisplayName: record.DisplayName,
			PhotoURL:    record.PhotoURL,
		}
		if active != nil {
			vote, voted := active.Votes[record.Identity]
			status.HasVoted = voted
			if voted && active.Revealed {
				status.Vote = vote
			}
		}
		view.Participants = append(view.Participants, status)
	}
	return view
}

// HasVoted 判断某个参与者在当前视图中是否已经出牌。
func (v View) HasVoted(identity string) bool {
	for _, p := range v.Participants {
		if p.Identity == identity {
			return p.HasVoted
		}
	}
	return false
}
