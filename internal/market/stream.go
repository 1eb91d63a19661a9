package market

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// PriceStream maintains a TwelveData price websocket and caches the last
// quote per symbol. The monitoring cycle reads the cache between REST polls;
// when the stream is down the cycle falls back to REST transparently.
type PriceStream struct {
	mu sync.RWMutex

	apiKey  string
	baseURL string
	symbols []string
	logger  zerolog.Logger

	conn      *websocket.Conn
	isRunning bool
	stopChan  chan struct{}
	wg        sync.WaitGroup

	prices     map[string]float64
	lastUpdate map[string]time.Time
	reconnects int
}

// priceEvent is a TwelveData websocket price message.
type priceEvent struct {
	Event  string  `json:"event"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// NewPriceStream creates a stream for the given symbols. An empty baseURL
// selects the public endpoint.
func NewPriceStream(apiKey, baseURL string, symbols []string, logger zerolog.Logger) *PriceStream {
	if baseURL == "" {
		baseURL = "wss://ws.twelvedata.com/v1/quotes/price"
	}
	return &PriceStream{
		apiKey:     apiKey,
		baseURL:    baseURL,
		symbols:    symbols,
		logger:     logger.With().Str("component", "price_stream").Logger(),
		prices:     make(map[string]float64),
		lastUpdate: make(map[string]time.Time),
	}
}

// Start connects and begins the read loop. Safe to call once.
func (s *PriceStream) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("price stream already running")
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()
	return nil
}

// Stop closes the connection and stops the read loop.
func (s *PriceStream) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// LastPrice returns the freshest streamed quote for symbol. The second
// return value is false when no quote arrived within maxAge.
func (s *PriceStream) LastPrice(symbol string, maxAge time.Duration) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[symbol]
	if !ok {
		return 0, false
	}
	if time.Since(s.lastUpdate[symbol]) > maxAge {
		return 0, false
	}
	return price, true
}

func (s *PriceStream) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		if err := s.connectAndRead(); err != nil {
			s.mu.Lock()
			s.reconnects++
			attempts := s.reconnects
			s.mu.Unlock()

			s.logger.Warn().Err(err).Int("reconnects", attempts).Msg("price stream disconnected")

			select {
			case <-s.stopChan:
				return
			case <-time.After(10 * time.Second):
			}
		}
	}
}

func (s *PriceStream) connectAndRead() error {
	wsURL := fmt.Sprintf("%s?apikey=%s", s.baseURL, s.apiKey)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dialing price stream: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	subscribe := map[string]interface{}{
		"action": "subscribe",
		"params": map[string]string{"symbols": strings.Join(s.symbols, ",")},
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		conn.Close()
		return fmt.Errorf("subscribing: %w", err)
	}

	s.logger.Info().Strs("symbols", s.symbols).Msg("price stream connected")

	// TwelveData drops idle connections; heartbeat keeps it open.
	heartbeatDone := make(chan struct{})
	defer close(heartbeatDone)
	go s.heartbeatLoop(conn, heartbeatDone)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading price stream: %w", err)
		}

		var event priceEvent
		if err := json.Unmarshal(message, &event); err != nil {
			continue
		}
		if event.Event != "price" || event.Symbol == "" {
			continue
		}

		s.mu.Lock()
		s.prices[event.Symbol] = event.Price
		s.lastUpdate[event.Symbol] = time.Now()
		s.mu.Unlock()
	}
}

func (s *PriceStream) heartbeatLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.WriteJSON(map[string]string{"action": "heartbeat"}); err != nil {
				return
			}
		case <-done:
			return
		case <-s.stopChan:
			return
		}
	}
}
