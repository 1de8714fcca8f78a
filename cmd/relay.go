package cmd

import (
	"github.com/BioHazard786/huddle/internal/config"
	"github.com/BioHazard786/huddle/internal/logging"
	"github.com/BioHazard786/huddle/internal/metrics"
	"github.com/BioHazard786/huddle/internal/relay"
	"github.com/BioHazard786/huddle/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var flagRelayAddr string

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the room relay and peer broker",
	Long: `Run the server that huddle clients meet through. It tracks who is in each room,
forwards status changes and chat, and routes call setup between peers.

Endpoints:
  /ws         room relay (websocket)
  /peerjs     peer broker (websocket)
  /api/rooms  list rooms (GET) or create a room name (POST)
  /health     liveness
  /metrics    prometheus metrics`,
	Args: cobra.NoArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(zerolog.InfoLevel, false)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(config.Options{ConfigFile: flagConfigFile, RelayAddr: flagRelayAddr})
		if err != nil {
			return err
		}

		m := metrics.New()
		hub := relay.NewHub(relay.HubOptions{
			MaxMembers: cfg.Relay.MaxMembers,
			ChatRate:   cfg.Relay.ChatRate,
			ChatBurst:  cfg.Relay.ChatBurst,
		}, m)
		go hub.Run(ctx)

		broker := relay.NewBroker(m)
		defer broker.Close()

		mode := gin.ReleaseMode
		if zerolog.GlobalLevel() <= zerolog.DebugLevel {
			mode = gin.DebugMode
		}
		router := server.NewRouter(server.Options{Mode: mode, Hub: hub, Broker: broker, Metrics: m})

		log.Info().
			Str("module", "cmd").
			Int("max_members", cfg.Relay.MaxMembers).
			Float64("chat_rate", cfg.Relay.ChatRate).
			Msg("starting relay")
		return server.ListenAndServe(ctx, cfg.Relay.Addr, router)
	},
}

func init() {
	rootCmd.AddCommand(relayCmd)

	relayCmd.Flags().StringVarP(&flagRelayAddr, "addr", "a", "", "Listen address (default :8080)")
}
