package session

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BioHazard786/huddle/internal/peer"
	"github.com/BioHazard786/huddle/internal/room"
	"github.com/BioHazard786/huddle/internal/signaling"
)

func (s *Session) handleRelay(ev signaling.Event) {
	if s.state != Joined {
		s.log.Debug().Str("state", s.state.String()).Msgf("dropping relay event %T", ev)
		return
	}

	switch ev := ev.(type) {
	case signaling.RoomState:
		s.onRoomState(ev.Members)

	case signaling.UserConnected:
		s.names[ev.UserID] = ev.UserName
		s.notify(LevelInfo, fmt.Sprintf("%s joined", displayName(ev.UserName, ev.UserID)), nil)

	case signaling.UserDisconnected:
		s.onUserDisconnected(ev.UserID, ev.UserName)

	case signaling.UserStatusUpdate:
		p, ok := s.participants[ev.UserID]
		if !ok {
			s.log.Debug().Str("peer", ev.UserID).Msg("status update for unknown member dropped")
			return
		}
		p.Status = p.Status.Apply(ev.Status)

	case signaling.ChatReceived:
		msg := ev.Message
		msg.IsMine = false
		s.chat = append(s.chat, msg)
		s.stats.MessagesReceived++

	case signaling.RelayError:
		s.notify(LevelWarning, "relay: "+ev.Message, newError(KindPeerConnection, "relay", errors.New(ev.Message)))
	}
}

// onRoomState calls every member we do not know yet. The call handle is
// recorded before any media arrives so a member is never called twice.
func (s *Session) onRoomState(members map[string]room.Member) {
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		member := members[id]
		s.names[id] = member.Name
		if id == s.local.selfID {
			continue
		}
		if _, known := s.participants[id]; known {
			continue
		}

		call, err := s.peers.Call(id, s.local.camera)
		if err != nil {
			s.notifyError(wrapError(KindPeerConnection, "call", err, displayName(member.Name, id)))
			continue
		}
		s.stats.CallsPlaced++
		s.register(&Participant{ID: id, Name: member.Name, Status: member.Status}, call)
	}
}

func (s *Session) onUserDisconnected(id, name string) {
	delete(s.names, id)
	p, ok := s.participants[id]
	if !ok {
		return
	}
	if p.Call != nil {
		delete(s.live, p.Call)
		p.Call.Close()
	}
	s.remove(id)
	s.notify(LevelInfo, fmt.Sprintf("%s left", displayName(firstNonEmpty(name, p.Name), id)), nil)
}

func (s *Session) handlePeer(ev peer.Event) {
	switch ev := ev.(type) {
	case peer.Open:
		s.onOpen(ev.ID)

	case peer.IncomingCall:
		s.onIncomingCall(ev.Call)

	case peer.CallStream:
		if !s.live[ev.Call] {
			return
		}
		id := ev.Call.RemoteID()
		p, ok := s.participants[id]
		if !ok {
			p = &Participant{ID: id, Name: s.names[id], Call: ev.Call}
			s.add(p)
		}
		p.Stream = ev.Stream

	case peer.CallClosed:
		if !s.live[ev.Call] {
			return
		}
		delete(s.live, ev.Call)
		id := ev.Call.RemoteID()
		if p, ok := s.participants[id]; ok && p.Call == ev.Call {
			p.Stream = nil
			p.Call = nil
			s.remove(id)
		}

	case peer.Error:
		level := LevelWarning
		if ev.Kind == peer.ErrorDisconnected {
			level = LevelError
		}
		s.notify(level, ev.Error(), newError(KindPeerConnection, string(ev.Kind), ev))
	}
}

// onIncomingCall answers with the camera stream. A screen share in progress
// is attached afterwards by track replacement.
func (s *Session) onIncomingCall(call peer.Handle) {
	if s.state != Joined {
		call.Close()
		return
	}

	id := call.RemoteID()
	if err := call.Answer(s.local.camera); err != nil {
		call.Close()
		s.notifyError(wrapError(KindPeerConnection, "answer call", err, displayName(s.names[id], id)))
		return
	}
	s.stats.CallsAnswered++

	p, ok := s.participants[id]
	if !ok {
		p = &Participant{ID: id, Name: s.names[id]}
	} else if p.Call != nil && p.Call != call {
		delete(s.live, p.Call)
		p.Call.Close()
		p.Stream = nil
	}
	s.register(p, call)
}

// register records call as the participant's handle and adds the
// participant if it is new.
func (s *Session) register(p *Participant, call peer.Handle) {
	p.Call = call
	s.live[call] = true
	if _, ok := s.participants[p.ID]; !ok {
		s.add(p)
	}

	if screen := s.local.screen; screen != nil {
		if err := call.ReplaceVideoTrack(screen.VideoTrack()); err != nil {
			s.notifyError(wrapError(KindPeerConnection, "share screen", err, displayName(p.Name, p.ID)))
		}
	}
}

func (s *Session) add(p *Participant) {
	s.participants[p.ID] = p
	s.order = append(s.order, p.ID)
	s.stats.Peers = appendUnique(s.stats.Peers, displayName(p.Name, p.ID))
}

func (s *Session) remove(id string) {
	delete(s.participants, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
