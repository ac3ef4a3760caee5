package handler

import (
	"net/http"
	"time"

	"quant_bench_go/internal/service"
	"quant_bench_go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// feedInterval 是趋势榜推送周期。趋势分随时间衰减，
// 周期推送让前端榜单无需轮询即可跟上排名变化。
const feedInterval = 30 * time.Second

// feedPageSize 每次推送的榜单长度。
const feedPageSize = 10

// FeedHandler 通过 WebSocket 向客户端周期推送趋势榜。
type FeedHandler struct {
	rankingService service.RankingService
	upgrader       websocket.Upgrader
}

func NewFeedHandler(rankingService service.RankingService) *FeedHandler {
	return &FeedHandler{
		rankingService: rankingService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// 榜单是公开只读数据，允许任意来源订阅
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// TrendingFeed 升级连接后立即推送一次趋势榜，之后按周期推送。
// 客户端断开或写失败时结束循环并关闭连接。
func (h *FeedHandler) TrendingFeed(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("TrendingFeed: failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	// 读循环只用于感知客户端断开，收到的消息全部丢弃
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.pushTrending(conn); err != nil {
		return
	}

	ticker := time.NewTicker(feedInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := h.pushTrending(conn); err != nil {
				return
			}
		}
	}
}

func (h *FeedHandler) pushTrending(conn *websocket.Conn) error {
	page, err := h.rankingService.Rank(service.OrderingTrending, "", 0, feedPageSize, nil)
	if err != nil {
		log.Warnf("TrendingFeed: failed to compute trending page: %v", err)
		// 计算失败跳过本轮推送，连接保持
		return nil
	}

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(gin.H{
		"type": "trending",
		"data": page,
	}); err != nil {
		log.Warnf("TrendingFeed: failed to push page: %v", err)
		return err
	}
	return nil
}
