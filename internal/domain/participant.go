package domain

import (
	"bytes"
	"encoding/json"
)

// Participant 是房间成员的连接态。sid 是当前连接的瞬态 id，
// 重连时被换掉；其余字段跨重连保留在房间里。
type Participant struct {
	ConnID      string `json:"sid"`
	Team        bool   `json:"team"` // true = 一队，false = 二队
	Ready       bool   `json:"ready"`
	CameraReady bool   `json:"camera_ready"`
	PhotoURL    string `json:"photo_url"`
}

// ParticipantList 是按加入顺序排列的 userID -> Participant 映射。
// 顺序是对外语义的一部分：主持人顶替时取"最早加入的成员"，
// 序列化也按加入顺序输出。
type ParticipantList struct {
	order []string
	byID  map[string]*Participant
}

// NewParticipantList 创建空列表。
func NewParticipantList() *ParticipantList {
	return &ParticipantList{byID: make(map[string]*Participant)}
}

// Add 追加或覆盖成员。已存在时保持原有位置。
func (l *ParticipantList) Add(userID string, p *Participant) {
	if _, ok := l.byID[userID]; !ok {
		l.order = append(l.order, userID)
	}
	l.byID[userID] = p
}

// Get 返回成员，不存在时为 nil。
func (l *ParticipantList) Get(userID string) *Participant {
	return l.byID[userID]
}

// Has 判断成员是否存在。
func (l *ParticipantList) Has(userID string) bool {
	_, ok := l.byID[userID]
	return ok
}

// Remove 移除成员并返回其条目，不存在时返回 nil。
func (l *ParticipantList) Remove(userID string) *Participant {
	p, ok := l.byID[userID]
	if !ok {
		return nil
	}
	delete(l.byID, userID)
	for i, id := range l.order {
		if id == userID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return p
}

// Len 返回成员数。
func (l *ParticipantList) Len() int {
	return len(l.order)
}

// First 返回最早加入的成员 id，空列表时返回空串。
func (l *ParticipantList) First() string {
	if len(l.order) == 0 {
		return ""
	}
	return l.order[0]
}

// IDs 按加入顺序返回全部成员 id 的副本。
func (l *ParticipantList) IDs() []string {
	ids := make([]string, len(l.order))
	copy(ids, l.order)
	return ids
}

// Each 按加入顺序遍历成员。
func (l *ParticipantList) Each(fn func(userID string, p *Participant)) {
	for _, id := range l.order {
		fn(id, l.byID[id])
	}
}

// CountTeam 统计指定队伍的人数。
func (l *ParticipantList) CountTeam(team bool) int {
	n := 0
	for _, p := range l.byID {
		if p.Team == team {
			n++
		}
	}
	return n
}

// MarshalJSON 按加入顺序输出 userID -> Participant 的 JSON 对象。
func (l *ParticipantList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range l.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(l.byID[id])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 从 JSON 对象恢复列表。Go 的 map 解码不保序，
// 这里只用于测试夹具，顺序按键解码顺序近似恢复。
func (l *ParticipantList) UnmarshalJSON(data []byte) error {
	raw := make(map[string]*Participant)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.order = l.order[:0]
	l.byID = make(map[string]*Participant, len(raw))
	for id, p := range raw {
		l.order = append(l.order, id)
		l.byID[id] = p
	}
	return nil
}
