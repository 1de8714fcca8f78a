package cmd

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/BioHazard786/huddle/internal/config"
	"github.com/BioHazard786/huddle/internal/logging"
	"github.com/BioHazard786/huddle/internal/roomid"
	"github.com/BioHazard786/huddle/internal/session"
	"github.com/BioHazard786/huddle/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagServer      string
	flagInsecure    bool
	flagName        string
	flagSTUN        string
	flagTURN        string
	flagTURNUser    string
	flagTURNPass    string
	flagForceRelay  bool
	flagCameraVideo string
	flagCameraAudio string
	flagScreenVideo string
	flagNoCamera    bool
	flagMuted       bool
	flagVideoOff    bool
)

var joinCmd = &cobra.Command{
	Use:     "join [room]",
	Aliases: []string{"j"},
	Short:   "Join a room, or start a new one",
	Long: `Join a room by name and connect to everyone in it. Without a room name a new
room is created and its invite command is shown.

Capture devices are media files: IVF (VP8, VP9 or AV1) for video and Ogg Opus
for audio. Without files the tracks are idle but still negotiated.

Examples:
  huddle join
  huddle join breezy-harbor-teapot --name Alice
  huddle join standup --server relay.example.com --camera-video cam.ivf --camera-audio mic.ogg
  huddle join standup --screen-video slides.ivf`,
	Args: cobra.MaximumNArgs(1),
	PreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(zerolog.ErrorLevel, true)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		input := ""
		if len(args) == 1 {
			input = args[0]
		}
		return joinRoom(cmd, input)
	},
}

func joinRoom(cmd *cobra.Command, input string) error {
	ctx := cmd.Context()

	cfg, err := LoadConfig(config.Options{
		ConfigFile:  flagConfigFile,
		Domain:      flagServer,
		Insecure:    flagInsecure,
		STUNServer:  flagSTUN,
		TURNServer:  flagTURN,
		TURNUser:    flagTURNUser,
		TURNPass:    flagTURNPass,
		ForceRelay:  flagForceRelay,
		Name:        flagName,
		CameraVideo: flagCameraVideo,
		CameraAudio: flagCameraAudio,
		ScreenVideo: flagScreenVideo,
		NoCamera:    flagNoCamera,
	})
	if err != nil {
		return err
	}

	roomID, err := parseRoomInput(input)
	if err != nil {
		return err
	}
	if roomID == "" {
		roomID = requestRoomID(ctx, cfg)
	}

	sess := NewSession(cfg, roomID, flagMuted, flagVideoOff)
	defer sess.Close()

	fmt.Println()
	sp := ui.RunConnectionSpinner(fmt.Sprintf("Joining %s…", roomID))
	if err := sess.Join(ctx, cfg.User.Name); err != nil {
		sp.Error("Could not join the room")
		if session.IsMediaAccess(err) {
			return fmt.Errorf("%w (use --camera-video/--camera-audio, or drop --no-camera)", err)
		}
		return err
	}
	sp.Stop()

	if err := ui.RunRoom(ctx, sess, ui.RoomInfo{RoomID: roomID, JoinCommand: cfg.GetRoomLink(roomID)}); err != nil {
		return err
	}

	sess.Leave()
	ui.RenderCallSummary(summarize(sess.Snapshot()))
	ui.PrintSuccess("Left " + roomID)
	return nil
}

// parseRoomInput accepts a room name, a join command or a link ending in
// /r/<room>. An empty input means a new room.
func parseRoomInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}

	if strings.Contains(input, "://") {
		id, err := extractRoomIDFromURL(input)
		if err != nil {
			return "", err
		}
		return id, nil
	}

	input = strings.TrimPrefix(input, "huddle join ")
	if fields := strings.Fields(input); len(fields) > 0 {
		input = fields[0]
	}
	if id := roomid.Normalize(input); id != "" {
		return id, nil
	}
	return "", errors.New("room name must contain letters or digits")
}

func extractRoomIDFromURL(urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	parts := strings.Split(strings.TrimSuffix(parsedURL.Path, "/"), "/")
	for i, part := range parts {
		if part == "r" && i+1 < len(parts) {
			if id := roomid.Normalize(parts[i+1]); id != "" {
				return id, nil
			}
		}
	}

	return "", fmt.Errorf("could not extract room name from URL: %s", urlStr)
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVar(&flagServer, "server", "", "Relay server domain (host[:port])")
	joinCmd.Flags().BoolVar(&flagInsecure, "insecure", false, "Use ws:// and http:// for the relay")
	joinCmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name")
	joinCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	joinCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	joinCmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
	joinCmd.Flags().BoolVarP(&flagForceRelay, "relay", "r", false, "Force relay mode")
	joinCmd.Flags().StringVar(&flagCameraVideo, "camera-video", "", "IVF file used as the camera")
	joinCmd.Flags().StringVar(&flagCameraAudio, "camera-audio", "", "Ogg Opus file used as the microphone")
	joinCmd.Flags().StringVar(&flagScreenVideo, "screen-video", "", "IVF file used for screen sharing")
	joinCmd.Flags().BoolVar(&flagNoCamera, "no-camera", false, "Behave as if no camera is attached")
	joinCmd.Flags().BoolVar(&flagMuted, "muted", false, "Join with the microphone muted")
	joinCmd.Flags().BoolVar(&flagVideoOff, "video-off", false, "Join with the camera off")
}
