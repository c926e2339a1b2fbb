package monitor

import (
	"context"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// Quote — тик цены по инструменту.
type Quote struct {
	Symbol string
	Price  float64
	Time   time.Time
}

type quoteFrame struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	TsMs   int64   `json:"ts"`
}

// StreamQuotes — один WebSocket на пачку инструментов, переподключение
// при обрыве. Возвращает поток котировок, канал закрывается по ctx.
func StreamQuotes(ctx context.Context, url string, symbols []string) <-chan Quote {
	ch := make(chan Quote)

	go func() {
		defer close(ch)

		if len(symbols) == 0 {
			return
		}
		dialer := &websocket.Dialer{}

		for {
			log.Printf("[WS] connect %s, %d symbols", url, len(symbols))
			conn, _, err := dialer.Dial(url, nil)
			if err != nil {
				log.Printf("[WS] dial error: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			sub := map[string]any{
				"op":      "subscribe",
				"symbols": symbols,
			}
			if err := conn.WriteJSON(sub); err != nil {
				log.Printf("[WS] subscribe error: %v", err)
				_ = conn.Close()
				continue
			}

			// keepalive, иначе сервер рвёт тихое соединение;
			// stopPing закрывает читающая сторона при любом выходе
			stopPing := make(chan struct{})
			go keepalive(conn, 20*time.Second, stopPing)

			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					log.Printf("[WS] read error: %v", err)
					close(stopPing)
					_ = conn.Close()
					break
				}

				var frame quoteFrame
				if err := sonic.Unmarshal(msg, &frame); err != nil {
					continue
				}
				if frame.Symbol == "" || frame.Price <= 0 {
					continue
				}

				q := Quote{
					Symbol: frame.Symbol,
					Price:  frame.Price,
					Time:   time.UnixMilli(frame.TsMs),
				}
				select {
				case ch <- q:
				case <-ctx.Done():
					close(stopPing)
					_ = conn.Close()
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			default:
				time.Sleep(time.Second)
			}
		}
	}()

	return ch
}

type jsonWriter interface {
	WriteJSON(v interface{}) error
}

// keepalive пингует соединение до закрытия stop.
func keepalive(conn jsonWriter, interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			_ = conn.WriteJSON(map[string]string{"op": "ping"})
		}
	}
}
