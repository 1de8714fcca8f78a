// Package compose derives the rendered room layout from the current set of
// local and remote streams.
package compose

import (
	"github.com/BioHazard786/huddle/internal/media"
	"github.com/BioHazard786/huddle/internal/room"
)

// Kind tags a feed as a camera or a screen share.
type Kind string

const (
	KindCamera Kind = "camera"
	KindScreen Kind = "screen"
)

// Participant is the slice of a remote member's state that composition needs.
type Participant struct {
	ID     string
	Name   string
	Status room.Status
	Stream *media.Stream
}

// Feed is one renderable stream.
type Feed struct {
	ID     string
	Name   string
	Kind   Kind
	Local  bool
	Status room.Status
	Stream *media.Stream
}

// View is the composed layout: at most one main feed and the camera feeds
// shown next to it.
type View struct {
	Main      *Feed
	Secondary []Feed
}

// Compose builds the view for the given streams. Participants are taken in
// the order they were first seen. It has no side effects and returns equal
// views for equal input.
//
// The most recently added screen feed becomes main; without any screen the
// local camera is main. Every other camera feed is secondary, once per
// identity. Screens that are not main are dropped.
func Compose(localCamera, localScreen *media.Stream, participants []Participant, selfID, selfName string, selfStatus room.Status) View {
	candidates := make([]Feed, 0, len(participants)+2)

	if localCamera != nil {
		candidates = append(candidates, Feed{
			ID:     selfID,
			Name:   selfName,
			Kind:   KindCamera,
			Local:  true,
			Status: selfStatus,
			Stream: localCamera,
		})
	}
	if localScreen != nil {
		candidates = append(candidates, Feed{
			ID:     selfID,
			Name:   selfName,
			Kind:   KindScreen,
			Local:  true,
			Status: selfStatus,
			Stream: localScreen,
		})
	}
	for _, p := range participants {
		if p.Stream == nil {
			continue
		}
		kind := KindCamera
		if p.Status.SharingScreen {
			kind = KindScreen
		}
		candidates = append(candidates, Feed{
			ID:     p.ID,
			Name:   p.Name,
			Kind:   kind,
			Status: p.Status,
			Stream: p.Stream,
		})
	}

	main := -1
	for i, c := range candidates {
		if c.Kind == KindScreen {
			main = i
		}
	}
	if main < 0 && localCamera != nil {
		main = 0
	}

	var view View
	if main >= 0 {
		feed := candidates[main]
		view.Main = &feed
	}

	seen := make(map[string]bool, len(candidates))
	for i, c := range candidates {
		if i == main || c.Kind != KindCamera {
			continue
		}
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		view.Secondary = append(view.Secondary, c)
	}
	return view
}

// Screens reports how many screen feeds the view renders.
func (v View) Screens() int {
	if v.Main != nil && v.Main.Kind == KindScreen {
		return 1
	}
	return 0
}
