package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/marksync/internal/changefeed"
	"github.com/hitoshi/marksync/internal/middleware"
	"github.com/hitoshi/marksync/internal/model"
)

// FeedHandler はブックマーク変更フィードのSSEハンドラー。
// 接続中のクライアントに、そのユーザーのブックマーク変更イベントを配信する。
type FeedHandler struct {
	hub       *changefeed.Hub
	heartbeat time.Duration
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(hub *changefeed.Hub, heartbeat time.Duration) *FeedHandler {
	return &FeedHandler{
		hub:       hub,
		heartbeat: heartbeat,
	}
}

// StreamFeed はServer-Sent Eventsでブックマーク変更を配信する。
// イベントは変更の発生のみを通知し、クライアントは一覧を再取得して追随する。
// クライアント切断（コンテキストのキャンセル）で購読を解除する。
// GET /api/bookmarks/feed
func (h *FeedHandler) StreamFeed(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		slog.Error("response writer does not support flushing")
		writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
			Code:     "STREAMING_UNSUPPORTED",
			Message:  "ストリーミングに対応していません。",
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// リバースプロキシのバッファリングを無効化
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ch := h.hub.Subscribe(userID)
	defer h.hub.Unsubscribe(userID, ch)

	slog.Info("feed stream opened", slog.String("user_id", userID))
	defer slog.Info("feed stream closed", slog.String("user_id", userID))

	// 接続確立をクライアントに通知
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case event, ok := <-ch:
			if !ok {
				// Hubがクローズされた
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				slog.Error("failed to marshal feed event", slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
			flusher.Flush()

		case <-ticker.C:
			// 中間プロキシによる無通信切断を防ぐハートビート
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
