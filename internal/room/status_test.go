package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusApply_MergesOnlySetFields(t *testing.T) {
	s := Status{Muted: true, VideoOff: false, SharingScreen: false}

	got := s.Apply(StatusPatch{SharingScreen: Bool(true)})

	assert.Equal(t, Status{Muted: true, SharingScreen: true}, got)
	assert.False(t, s.SharingScreen, "receiver must not be modified")
}

func TestStatusApply_EmptyPatchIsIdentity(t *testing.T) {
	s := Status{Muted: true, VideoOff: true}

	assert.Equal(t, s, s.Apply(StatusPatch{}))
	assert.True(t, StatusPatch{}.Empty())
}

func TestStatusPatch_RoundTripsThroughApply(t *testing.T) {
	want := Status{Muted: true, VideoOff: false, SharingScreen: true}

	got := Status{VideoOff: true}.Apply(want.Patch())

	assert.Equal(t, want, got)
	assert.False(t, want.Patch().Empty())
}
