package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Stream keeps the price cache warm from the oracle provider's
// websocket feed so the HTTP source rarely has to fetch synchronously.
// It is optional; the validator works with the REST path alone.
type Stream struct {
	url            string
	apiKey         string
	chainID        int64
	feeds          []string
	cache          *PriceCache
	logger         *zap.Logger
	conn           *websocket.Conn
	connected      bool
	connectedMu    sync.RWMutex
	done           chan struct{}
	closeOnce      sync.Once
	reconnectDelay time.Duration
}

func NewStream(url, apiKey string, chainID int64, feeds []string, cache *PriceCache, logger *zap.Logger) *Stream {
	return &Stream{
		url:            url,
		apiKey:         apiKey,
		chainID:        chainID,
		feeds:          feeds,
		cache:          cache,
		logger:         logger,
		done:           make(chan struct{}),
		reconnectDelay: 5 * time.Second,
	}
}

type subscribeMessage struct {
	Op     string   `json:"op"`
	APIKey string   `json:"api_key"`
	Feeds  []string `json:"feeds"`
}

type priceTick struct {
	Feed      string `json:"feed"`
	Price     string `json:"price"`
	Decimals  int32  `json:"decimals"`
	Timestamp int64  `json:"timestamp"`
}

// Connect dials the feed, subscribes, and starts the read loop.
func (s *Stream) Connect(ctx context.Context) error {
	s.logger.Info("oracle.stream_connecting",
		zap.String("url", s.url),
		zap.Int64("chain", s.chainID))

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to oracle stream: %w", err)
	}
	s.conn = conn
	s.setConnected(true)

	sub := subscribeMessage{Op: "subscribe", APIKey: s.apiKey, Feeds: s.feeds}
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go s.readLoop(ctx)
	return nil
}

// Close stops the read loop and closes the connection.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	s.setConnected(false)
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected reports whether the stream currently holds a connection.
func (s *Stream) IsConnected() bool {
	s.connectedMu.RLock()
	defer s.connectedMu.RUnlock()
	return s.connected
}

func (s *Stream) setConnected(connected bool) {
	s.connectedMu.Lock()
	defer s.connectedMu.Unlock()
	s.connected = connected
}

func (s *Stream) readLoop(ctx context.Context) {
	defer func() {
		s.setConnected(false)
		s.logger.Info("oracle.stream_read_loop_exited")
	}()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		default:
			_, message, err := s.conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Info("oracle.stream_closed")
					return
				}
				s.logger.Warn("oracle.stream_read_failed", zap.Error(err))
				s.scheduleReconnect(ctx)
				return
			}

			var tick priceTick
			if err := json.Unmarshal(message, &tick); err != nil {
				s.logger.Debug("oracle.stream_unparseable_message", zap.Error(err))
				continue
			}
			s.handleTick(ctx, tick)
		}
	}
}

func (s *Stream) handleTick(ctx context.Context, tick priceTick) {
	price, err := decimal.NewFromString(tick.Price)
	if err != nil {
		s.logger.Warn("oracle.stream_bad_price",
			zap.String("feed", tick.Feed),
			zap.String("price", tick.Price))
		return
	}

	p := &Price{
		Price:     price,
		Decimals:  tick.Decimals,
		Timestamp: time.Unix(tick.Timestamp, 0).UTC(),
	}
	if err := s.cache.Put(ctx, s.chainID, tick.Feed, p); err != nil {
		s.logger.Warn("oracle.stream_cache_put_failed",
			zap.String("feed", tick.Feed),
			zap.Error(err))
	}
}

func (s *Stream) scheduleReconnect(ctx context.Context) {
	select {
	case <-s.done:
		return
	case <-ctx.Done():
		return
	case <-time.After(s.reconnectDelay):
	}

	s.logger.Info("oracle.stream_reconnecting")
	if err := s.Connect(ctx); err != nil {
		s.logger.Warn("oracle.stream_reconnect_failed", zap.Error(err))
		go s.scheduleReconnect(ctx)
	}
}
