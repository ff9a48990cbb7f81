// serve.go runs a local ingest endpoint that filters posted events and
// streams the kept ones to WebSocket subscribers.

package cmd

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/faultline-dev/faultline/internal/hub"
	"github.com/faultline-dev/faultline/pkg/faultline"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local ingest endpoint with a live event stream",
	Long: `Serve accepts events on POST /api/events, runs each through the configured
filter stage, and broadcasts kept events to all WebSocket subscribers on
GET /ws. Dropped events are counted but not forwarded.

Example:
  faultline serve --port 8700 --ignore-errors "Script error."`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "8700", "listen port")
	rootCmd.AddCommand(serveCmd)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func runServe(cmd *cobra.Command, args []string) error {
	chain, err := buildChain()
	if err != nil {
		return err
	}

	h := hub.New()
	defer h.Close()

	var dropped atomic.Int64

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.POST("/api/events", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		var event faultline.Event
		if err := json.Unmarshal(body, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
			return
		}
		processed := chain.Run(&event)
		if processed == nil {
			dropped.Add(1)
			c.JSON(http.StatusOK, gin.H{"status": "dropped"})
			return
		}
		h.Publish(processed)
		c.JSON(http.StatusOK, gin.H{"status": "accepted", "event_id": processed.EventID})
	})

	engine.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		events := h.Subscribe()

		// Read pump, only to detect client disconnect.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					conn.Close()
					return
				}
			}
		}()

		for event := range events {
			if err := conn.WriteJSON(event); err != nil {
				slog.Debug("websocket write failed", "error", err)
				return
			}
		}
	})

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"dropped":        dropped.Load(),
			"hub_overflowed": h.Dropped(),
		})
	})

	slog.Info("faultline serving", "port", servePort)
	return engine.Run(":" + servePort)
}
