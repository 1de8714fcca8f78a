// Package server exposes the relay hub and peer broker over HTTP.
package server

import (
	"net/http"

	"github.com/BioHazard786/huddle/internal/metrics"
	"github.com/BioHazard786/huddle/internal/relay"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Terminal clients send no Origin header; browsers are not served.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Options wires the router to the relay.
type Options struct {
	// Mode is "debug" or "release".
	Mode    string
	Hub     *relay.Hub
	Broker  *relay.Broker
	Metrics *metrics.Collector
}

// NewRouter builds the relay's HTTP surface.
func NewRouter(opts Options) *gin.Engine {
	if opts.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if opts.Mode == gin.DebugMode {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/ws", serveWS(opts.Hub.Serve))
	r.GET("/peerjs", serveWS(opts.Broker.Serve))
	r.GET("/health", health(opts))
	r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))

	api := r.Group("/api")
	api.GET("/rooms", listRooms(opts.Hub))
	api.POST("/rooms", createRoom(opts.Hub))

	log.Info().Str("module", "server").Str("mode", gin.Mode()).Msg("router setup")
	return r
}

// serveWS upgrades the request and hands the connection to serve.
func serveWS(serve func(*websocket.Conn)) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Str("module", "server").Str("path", c.FullPath()).Err(err).Msg("failed to upgrade connection")
			return
		}
		serve(conn)
	}
}

func health(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		rooms, err := opts.Hub.Rooms(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"rooms":  len(rooms),
			"peers":  opts.Broker.Peers(),
		})
	}
}

func listRooms(hub *relay.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		rooms, err := hub.Rooms(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rooms": rooms})
	}
}

func createRoom(hub *relay.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := hub.NewRoomID(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"roomId": id})
	}
}
