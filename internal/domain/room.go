package domain

// Room 表示一个辩论房间的全部实时状态。只存在于内存中，
// 由 store.Store 独占持有，进程重启即消失。
// JSON 字段名即对客户端的线上格式。
type Room struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Tags            []string             `json:"tags"`
	Teams           bool                 `json:"teams"`
	TeamNames       [2]string            `json:"team_names"`
	RoomSize        int                  `json:"room_size"`
	TimeToStart     int64                `json:"time_to_start"` // unix 秒
	AllowSpectators bool                 `json:"allow_spectators"`
	Users           *ParticipantList     `json:"users_list"`
	Spectators      *ParticipantList     `json:"spectators_list"`
	Moderator       string               `json:"moderator"`
	IsConversation  bool                 `json:"is_conversation"`
	PictureID       int                  `json:"pictureId"`
	Blacklist       StringSet            `json:"blacklist"`
	UserReports     map[string]StringSet `json:"user_reports"`
}

// TeamName 返回 1 号或 2 号队伍的名称。
func (r *Room) TeamName(team int) string {
	if team == 2 {
		return r.TeamNames[1]
	}
	return r.TeamNames[0]
}

// IsMember 判断用户是否在辩手或旁观者列表中。
func (r *Room) IsMember(userID string) bool {
	return r.Users.Has(userID) || r.Spectators.Has(userID)
}

// IsFull 判断辩手席位是否已满。
func (r *Room) IsFull() bool {
	return r.Users.Len() >= r.RoomSize
}

// QuorumThreshold 返回把一名用户拉黑所需的最少举报人数。
// 分母取调用时刻的辩手人数，而不是举报发生时的人数：随着成员退出，
// 门槛会下降，已有的举报可能突然达标。这是沿用下来的既定行为，
// 改动它会改变对外语义，勿随手"修正"。
func (r *Room) QuorumThreshold() int {
	return r.Users.Len()/2 + 1
}

// ReportersOf 返回针对某用户的当前举报人数。
func (r *Room) ReportersOf(userID string) int {
	return r.UserReports[userID].Len()
}
