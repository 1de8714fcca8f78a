package room

// Status is the broadcast state of one member's media.
type Status struct {
	Muted         bool `json:"muted"`
	VideoOff      bool `json:"videoOff"`
	SharingScreen bool `json:"sharingScreen"`
}

// StatusPatch is a partial Status update. Nil fields are left untouched.
type StatusPatch struct {
	Muted         *bool `json:"muted,omitempty"`
	VideoOff      *bool `json:"videoOff,omitempty"`
	SharingScreen *bool `json:"sharingScreen,omitempty"`
}

// Apply merges the set fields of p into s and returns the result.
func (s Status) Apply(p StatusPatch) Status {
	if p.Muted != nil {
		s.Muted = *p.Muted
	}
	if p.VideoOff != nil {
		s.VideoOff = *p.VideoOff
	}
	if p.SharingScreen != nil {
		s.SharingScreen = *p.SharingScreen
	}
	return s
}

// Patch returns a patch carrying every field of s.
func (s Status) Patch() StatusPatch {
	return StatusPatch{
		Muted:         Bool(s.Muted),
		VideoOff:      Bool(s.VideoOff),
		SharingScreen: Bool(s.SharingScreen),
	}
}

// Empty reports whether the patch carries no fields.
func (p StatusPatch) Empty() bool {
	return p.Muted == nil && p.VideoOff == nil && p.SharingScreen == nil
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}
