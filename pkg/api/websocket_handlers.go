package api

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/open-teleop/invkin/domain/control"
	customlog "github.com/open-teleop/invkin/pkg/log"
)

// RegisterPoseStream mounts the /ws/pose stream, sending the latest pose
// every interval.
func RegisterPoseStream(app *fiber.App, state *control.RobotState, interval time.Duration, logger customlog.Logger) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/pose", websocket.New(func(conn *websocket.Conn) {
		PoseStreamHandler(conn, state, interval, logger)
	}))
}

// PoseStreamHandler writes pose frames until the client goes away.
func PoseStreamHandler(conn *websocket.Conn, state *control.RobotState, interval time.Duration, logger customlog.Logger) {
	logger.Infof("Pose WebSocket connected: %s", conn.RemoteAddr())
	defer logger.Infof("Pose WebSocket disconnected: %s", conn.RemoteAddr())

	// the reader only exists to notice the close frame
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warnf("Pose WS read error: %v", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
		}

		pose, ok := state.Pose()
		if !ok {
			continue
		}
		msg := PoseStreamMsg{
			Timestamp:   time.Now(),
			ElapsedTime: state.ElapsedTime(),
			Pose:        newPoseMsg(pose),
		}
		if err := conn.WriteJSON(msg); err != nil {
			logger.Infof("Pose WS write failed: %v", err)
			return
		}
	}
}
