package domain_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YofiAsi/debate-back/internal/domain"
)

func TestParticipantList_InsertionOrder(t *testing.T) {
	l := domain.NewParticipantList()
	l.Add("c", &domain.Participant{ConnID: "conn-c"})
	l.Add("a", &domain.Participant{ConnID: "conn-a"})
	l.Add("b", &domain.Participant{ConnID: "conn-b"})

	// 顺序是加入顺序，不是字典序
	assert.Equal(t, []string{"c", "a", "b"}, l.IDs())
	assert.Equal(t, "c", l.First())

	// 覆盖已有成员不改变位置
	l.Add("a", &domain.Participant{ConnID: "conn-a2"})
	assert.Equal(t, []string{"c", "a", "b"}, l.IDs())
	assert.Equal(t, "conn-a2", l.Get("a").ConnID)

	// 移除最早的成员后顺位前移
	removed := l.Remove("c")
	require.NotNil(t, removed)
	assert.Equal(t, "conn-c", removed.ConnID)
	assert.Equal(t, "a", l.First())
	assert.Equal(t, 2, l.Len())

	// 移除不存在的成员返回 nil
	assert.Nil(t, l.Remove("ghost"))
}

func TestParticipantList_MarshalPreservesOrder(t *testing.T) {
	l := domain.NewParticipantList()
	l.Add("zed", &domain.Participant{ConnID: "s1", Team: true})
	l.Add("amy", &domain.Participant{ConnID: "s2"})

	data, err := json.Marshal(l)
	require.NoError(t, err)

	// JSON 对象按加入顺序输出，zed 在 amy 前面
	assert.JSONEq(t, `{
		"zed": {"sid":"s1","team":true,"ready":false,"camera_ready":false,"photo_url":""},
		"amy": {"sid":"s2","team":false,"ready":false,"camera_ready":false,"photo_url":""}
	}`, string(data))
	assert.Less(t, strings.Index(string(data), `"zed"`), strings.Index(string(data), `"amy"`),
		"序列化应保持加入顺序")
}

func TestParticipantList_CountTeam(t *testing.T) {
	l := domain.NewParticipantList()
	l.Add("a", &domain.Participant{Team: true})
	l.Add("b", &domain.Participant{Team: false})
	l.Add("c", &domain.Participant{Team: false})

	assert.Equal(t, 1, l.CountTeam(true))
	assert.Equal(t, 2, l.CountTeam(false))
}

func TestRoom_QuorumThreshold(t *testing.T) {
	// 门槛 = floor(辩手数/2)+1，分母取调用时刻的人数
	cases := []struct {
		debaters  int
		threshold int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{5, 3},
		{10, 6},
	}
	for _, tc := range cases {
		room := &domain.Room{Users: domain.NewParticipantList()}
		for i := 0; i < tc.debaters; i++ {
			room.Users.Add(string(rune('a'+i)), &domain.Participant{})
		}
		assert.Equal(t, tc.threshold, room.QuorumThreshold(),
			"debaters=%d", tc.debaters)
	}
}

func TestRoom_TeamName(t *testing.T) {
	room := &domain.Room{TeamNames: [2]string{"For", "Against"}}
	assert.Equal(t, "For", room.TeamName(1))
	assert.Equal(t, "Against", room.TeamName(2))
}

func TestStringSet(t *testing.T) {
	s := domain.NewStringSet("b", "a")
	assert.True(t, s.Has("a"))
	assert.Equal(t, 2, s.Len())

	s.Add("c")
	s.Add("c") // 重复添加不变
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"a", "b", "c"}, s.Values(), "Values 输出有序")

	s.Remove("b")
	assert.False(t, s.Has("b"))
	s.Remove("ghost") // 删除不存在的元素是空操作

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","c"]`, string(data))
}
