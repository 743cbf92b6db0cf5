// Package changefeed はブックマーク変更のプロセス内配信を提供する。
// Postgresのpg_notifyで発生した変更通知をユーザー単位で購読者に配る。
package changefeed

import (
	"sync"

	"github.com/hitoshi/marksync/internal/metrics"
)

// Event は1ユーザーのブックマーク集合に変更があったことを表す。
// 変更内容そのものは含まない。受信側は一覧を再取得して追随する。
type Event struct {
	OwnerID   string `json:"owner_id"`
	Operation string `json:"op"` // "INSERT", "UPDATE", "DELETE"
}

// Hub はユーザー単位のイベント購読を管理する。
// 配信はノンブロッキングで、バッファが埋まった購読者へのイベントは破棄される。
// 受信側は再取得ベースなので取りこぼしても次のイベントで追随できる。
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	bufferSize  int
	closed      bool
	collector   metrics.MetricsCollector
}

// NewHub はHubを生成する。bufferSizeは購読者ごとのチャネルバッファ長。
func NewHub(bufferSize int, collector metrics.MetricsCollector) *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		bufferSize:  bufferSize,
		collector:   collector,
	}
}

// Subscribe は指定ユーザーのイベントを受け取るチャネルを返す。
// Hubがすでにクローズ済みの場合はクローズ済みチャネルを返す。
func (h *Hub) Subscribe(ownerID string) chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.bufferSize)
	if h.closed {
		close(ch)
		return ch
	}

	if h.subscribers[ownerID] == nil {
		h.subscribers[ownerID] = make(map[chan Event]struct{})
	}
	h.subscribers[ownerID][ch] = struct{}{}
	if h.collector != nil {
		h.collector.IncFeedSubscribers()
	}
	return ch
}

// Unsubscribe は購読を解除しチャネルをクローズする。
// 未登録のチャネルに対しては何もしない。
func (h *Hub) Unsubscribe(ownerID string, ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channels, ok := h.subscribers[ownerID]
	if !ok {
		return
	}
	if _, ok := channels[ch]; !ok {
		return
	}

	delete(channels, ch)
	if len(channels) == 0 {
		delete(h.subscribers, ownerID)
	}
	close(ch)
	if h.collector != nil {
		h.collector.DecFeedSubscribers()
	}
}

// Publish はイベントを該当ユーザーの全購読者に配信する。
// 他ユーザーの購読者には配信されない。
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	channels := h.subscribers[event.OwnerID]
	for ch := range channels {
		select {
		case ch <- event:
		default:
			// バッファ満杯の購読者はスキップ
		}
	}

	if len(channels) > 0 && h.collector != nil {
		h.collector.RecordFeedEvent(event.Operation)
	}
}

// SubscriberCount は指定ユーザーの現在の購読者数を返す。
func (h *Hub) SubscriberCount(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[ownerID])
}

// Close は全購読者のチャネルをクローズし、以後の購読・配信を停止する。
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for ownerID, channels := range h.subscribers {
		for ch := range channels {
			close(ch)
			if h.collector != nil {
				h.collector.DecFeedSubscribers()
			}
		}
		delete(h.subscribers, ownerID)
	}
}
