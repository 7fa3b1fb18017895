package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YofiAsi/debate-back/internal/domain"
	"github.com/YofiAsi/debate-back/internal/store"
)

func newRoom(id string) *domain.Room {
	return &domain.Room{
		ID:          id,
		Name:        "room " + id,
		RoomSize:    4,
		Users:       domain.NewParticipantList(),
		Spectators:  domain.NewParticipantList(),
		Blacklist:   domain.NewStringSet(),
		UserReports: make(map[string]domain.StringSet),
	}
}

func TestStore_RoomLifecycle(t *testing.T) {
	st := store.New()

	_, ok := st.Room("r1")
	assert.False(t, ok)

	st.PutRoom(newRoom("r1"))
	room, ok := st.Room("r1")
	require.True(t, ok)
	assert.Equal(t, "r1", room.ID)
	assert.Len(t, st.Rooms(), 1)

	st.DeleteRoom("r1")
	_, ok = st.Room("r1")
	assert.False(t, ok)
}

func TestStore_SeedRooms(t *testing.T) {
	st := store.New(newRoom("seed-1"), newRoom("seed-2"))

	assert.Len(t, st.Rooms(), 2)
	_, ok := st.Room("seed-1")
	assert.True(t, ok)
	_, ok = st.Room("seed-2")
	assert.True(t, ok)
}

func TestStore_UserActiveElsewhere(t *testing.T) {
	st := store.New()
	roomA := newRoom("a")
	roomA.Users.Add("user1", &domain.Participant{ConnID: "conn1"})
	roomB := newRoom("b")
	roomB.Spectators.Add("user2", &domain.Participant{ConnID: "conn2"})
	st.PutRoom(roomA)
	st.PutRoom(roomB)

	// 辩手和旁观者都算占用
	otherID, busy := st.UserActiveElsewhere("user1", "b")
	assert.True(t, busy)
	assert.Equal(t, "a", otherID)
	_, busy = st.UserActiveElsewhere("user2", "a")
	assert.True(t, busy)

	// 查的就是自己所在的房间时不算占用
	_, busy = st.UserActiveElsewhere("user1", "a")
	assert.False(t, busy)

	// 不在任何房间
	_, busy = st.UserActiveElsewhere("stranger", "")
	assert.False(t, busy)
}

func TestStore_ConnRegistry(t *testing.T) {
	st := store.New()

	_, _, ok := st.ConnSession("conn1")
	assert.False(t, ok)

	st.BindConn("conn1", "user1", "room1")
	userID, roomID, ok := st.ConnSession("conn1")
	require.True(t, ok)
	assert.Equal(t, "user1", userID)
	assert.Equal(t, "room1", roomID)

	st.UnbindConn("conn1")
	_, _, ok = st.ConnSession("conn1")
	assert.False(t, ok)

	// 未登记的连接解绑是无害的空操作
	st.UnbindConn("never-bound")
}
