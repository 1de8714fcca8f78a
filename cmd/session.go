package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/BioHazard786/huddle/internal/config"
	"github.com/BioHazard786/huddle/internal/media"
	"github.com/BioHazard786/huddle/internal/peer"
	"github.com/BioHazard786/huddle/internal/roomid"
	"github.com/BioHazard786/huddle/internal/session"
	"github.com/BioHazard786/huddle/internal/signaling"
	"github.com/BioHazard786/huddle/internal/ui"
	"github.com/rs/zerolog/log"
)

const createRoomTimeout = 5 * time.Second

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewSession wires a session to the relay, the peer broker and the capture
// devices named in cfg.
func NewSession(cfg *config.Config, roomID string, muted, videoOff bool) *session.Session {
	capturer := media.NewDeviceCapturer(media.Devices{
		CameraVideo:   cfg.Devices.CameraVideo,
		CameraAudio:   cfg.Devices.CameraAudio,
		ScreenVideo:   cfg.Devices.ScreenVideo,
		NoCamera:      cfg.Devices.NoCamera,
		ScreenBlocked: cfg.Devices.ScreenBlocked,
	})
	rtcConfig := peer.Configuration(cfg)

	return session.New(session.Options{
		RoomID:        roomID,
		Capturer:      capturer,
		StartMuted:    muted,
		StartVideoOff: videoOff,
		DialRelay: func(ctx context.Context) (session.Relay, error) {
			relay, err := signaling.DialRelay(ctx, cfg.RelayURL, roomID)
			if err != nil {
				return nil, err
			}
			return relay, nil
		},
		DialPeers: func(ctx context.Context) (session.PeerManager, error) {
			manager, err := peer.Dial(ctx, cfg.BrokerURL, rtcConfig)
			if err != nil {
				return nil, err
			}
			return manager, nil
		},
	})
}

// requestRoomID asks the relay for a fresh room name and falls back to a
// locally generated one when the relay cannot be reached.
func requestRoomID(ctx context.Context, cfg *config.Config) string {
	ctx, cancel := context.WithTimeout(ctx, createRoomTimeout)
	defer cancel()

	id, err := createRoom(ctx, cfg.APIURL+"/rooms")
	if err != nil {
		log.Warn().Str("module", "cmd").Err(err).Msg("relay did not create a room, generating one locally")
		return roomid.Generate(nil)
	}
	return id
}

func createRoom(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create room: unexpected status %s", resp.Status)
	}

	var body struct {
		RoomID string `json:"roomId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	if id := roomid.Normalize(body.RoomID); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("create room: empty room id")
}

// summarize turns the final session stats into the printed call summary.
func summarize(snap session.Snapshot) ui.CallSummary {
	stats := snap.Stats
	var duration time.Duration
	if !stats.JoinedAt.IsZero() && stats.LeftAt.After(stats.JoinedAt) {
		duration = stats.LeftAt.Sub(stats.JoinedAt)
	}

	return ui.CallSummary{
		RoomID:           snap.RoomID,
		Duration:         duration,
		Peers:            stats.Peers,
		CallsPlaced:      stats.CallsPlaced,
		CallsAnswered:    stats.CallsAnswered,
		MessagesSent:     stats.MessagesSent,
		MessagesReceived: stats.MessagesReceived,
		ScreenShares:     stats.ScreenShares,
	}
}
