package peer

import (
	"github.com/BioHazard786/huddle/internal/config"
	"github.com/pion/webrtc/v4"
)

// Configuration builds the pion configuration for every call from cfg.
func Configuration(cfg *config.Config) webrtc.Configuration {
	var iceServers []webrtc.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := webrtc.ICETransportPolicyAll
	if cfg.UseRelayOnly() {
		policy = webrtc.ICETransportPolicyRelay
	}

	return webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	}
}
