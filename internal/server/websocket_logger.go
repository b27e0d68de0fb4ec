package server

import (
	"errors"

	catalog_errors "catalog-chat/pkg/errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// WebSocketLogger writes one structured record per connection event, always
// tagged with the user and connection it concerns.
type WebSocketLogger struct {
	logger *zap.Logger
}

func NewWebSocketLogger(base *zap.Logger) *WebSocketLogger {
	if base == nil {
		base = zap.L()
	}
	return &WebSocketLogger{logger: base.With(zap.String("component", "websocket"))}
}

func (l *WebSocketLogger) Info(event, userID, clientID string, fields ...zap.Field) {
	l.write(zapcore.InfoLevel, "websocket_event", event, userID, clientID, fields)
}

func (l *WebSocketLogger) Warn(event, userID, clientID string, fields ...zap.Field) {
	l.write(zapcore.WarnLevel, "websocket_warning", event, userID, clientID, fields)
}

func (l *WebSocketLogger) Error(event, userID, clientID string, err error, fields ...zap.Field) {
	l.write(zapcore.ErrorLevel, "websocket_error", event, userID, clientID, append(fields, zap.Error(err)))
}

// Delivery records a frame that could not be queued for a client.
func (l *WebSocketLogger) Delivery(client *Client, frameEvent string, err error) {
	event := "client send buffer full"
	if errors.Is(err, catalog_errors.ErrConnectionClosed) {
		event = "target already closed"
	}
	l.write(zapcore.WarnLevel, "websocket_delivery", event, client.identity.UserID, client.clientID,
		[]zap.Field{zap.String("frame", frameEvent)})
}

func (l *WebSocketLogger) write(level zapcore.Level, msg, event, userID, clientID string, fields []zap.Field) {
	ce := l.logger.Check(level, msg)
	if ce == nil {
		return
	}
	all := make([]zap.Field, 0, len(fields)+3)
	all = append(all, zap.String("event", event))
	if userID != "" {
		all = append(all, zap.String("user_id", userID))
	}
	if clientID != "" {
		all = append(all, zap.String("client_id", clientID))
	}
	ce.Write(append(all, fields...)...)
}
