package relay

import (
	"sort"

	"github.com/BioHazard786/huddle/internal/room"
)

// Room is a named set of members. Rooms exist while they have members.
type Room struct {
	ID      string
	Members map[string]*Client
}

func newRoom(id string) *Room {
	return &Room{ID: id, Members: make(map[string]*Client)}
}

// state returns every member except the one with id exclude.
func (r *Room) state(exclude string) map[string]room.Member {
	members := make(map[string]room.Member, len(r.Members))
	for id, c := range r.Members {
		if id == exclude {
			continue
		}
		members[id] = room.Member{Name: c.Name, Status: c.Status}
	}
	return members
}

// others returns the members other than c in identity order.
func (r *Room) others(c *Client) []*Client {
	ids := make([]string, 0, len(r.Members))
	for id, member := range r.Members {
		if member != c {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := make([]*Client, len(ids))
	for i, id := range ids {
		out[i] = r.Members[id]
	}
	return out
}

// RoomInfo summarizes a room for the HTTP API.
type RoomInfo struct {
	ID      string `json:"id"`
	Members int    `json:"members"`
}
