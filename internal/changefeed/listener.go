package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// ListenerConfig はPostgres通知リスナーの設定。
type ListenerConfig struct {
	DatabaseURL  string
	Channel      string
	MinReconnect time.Duration
	MaxReconnect time.Duration
}

// Listener はPostgresのLISTEN/NOTIFYでブックマーク変更通知を受信し、
// Hubに転送する。接続断からの再接続はpqのListenerに委ねる。
type Listener struct {
	config ListenerConfig
	hub    *Hub
	pql    *pq.Listener
}

// NewListener はListenerを生成する。
func NewListener(config ListenerConfig, hub *Hub) *Listener {
	return &Listener{
		config: config,
		hub:    hub,
	}
}

// Start は通知チャネルの購読を開始し、受信ループをバックグラウンドで起動する。
// ctxのキャンセルでループと接続が停止する。
func (l *Listener) Start(ctx context.Context) error {
	l.pql = pq.NewListener(
		l.config.DatabaseURL,
		l.config.MinReconnect,
		l.config.MaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			switch ev {
			case pq.ListenerEventConnected:
				slog.Info("change feed listener connected", slog.String("channel", l.config.Channel))
			case pq.ListenerEventReconnected:
				slog.Info("change feed listener reconnected", slog.String("channel", l.config.Channel))
			case pq.ListenerEventDisconnected:
				slog.Warn("change feed listener disconnected", slog.String("error", err.Error()))
			case pq.ListenerEventConnectionAttemptFailed:
				slog.Warn("change feed listener connection attempt failed", slog.String("error", err.Error()))
			}
		},
	)

	if err := l.pql.Listen(l.config.Channel); err != nil {
		l.pql.Close()
		return fmt.Errorf("failed to listen on channel %s: %w", l.config.Channel, err)
	}

	go l.run(ctx)
	return nil
}

// run は通知の受信ループ。定期的にPingして接続断を検出する。
func (l *Listener) run(ctx context.Context) {
	const pingInterval = 90 * time.Second

	for {
		select {
		case <-ctx.Done():
			if err := l.pql.Close(); err != nil {
				slog.Warn("failed to close change feed listener", slog.String("error", err.Error()))
			}
			slog.Info("change feed listener stopped")
			return

		case n := <-l.pql.Notify:
			// 再接続直後はnilが届く。切断中の通知は失われている
			// 可能性があるが、受信側は再取得ベースなので次のイベントで追随できる
			if n == nil {
				continue
			}
			event, err := parsePayload(n.Extra)
			if err != nil {
				slog.Warn("invalid change feed payload",
					slog.String("payload", n.Extra),
					slog.String("error", err.Error()),
				)
				continue
			}
			l.hub.Publish(event)

		case <-time.After(pingInterval):
			go func() {
				if err := l.pql.Ping(); err != nil {
					slog.Warn("change feed listener ping failed", slog.String("error", err.Error()))
				}
			}()
		}
	}
}

// parsePayload はpg_notifyのJSONペイロードをEventに変換する。
func parsePayload(payload string) (Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Event{}, fmt.Errorf("failed to parse notification payload: %w", err)
	}
	if event.OwnerID == "" {
		return Event{}, errors.New("empty owner_id in notification payload")
	}
	return event, nil
}
