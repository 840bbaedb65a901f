package link

import (
	"errors"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// dialer is the websocket dialer.
var dialer = websocket.Dialer{}

// WSOptions configures a websocket link endpoint.
type WSOptions struct {
	// URL of the relay carrying SWP frames as binary websocket messages.
	URL string

	// APIToken is sent as the Authorization header, if set.
	APIToken string

	// MaxReconnectInterval is the maximum time to wait between reconnects.
	MaxReconnectInterval time.Duration

	// ReconnectRetries is the number of reconnect attempts before the link
	// is declared dead. 0 means retry forever.
	ReconnectRetries int64

	// ReadTimeout bounds how long Recv blocks before reporting an absent
	// read. Defaults to 50ms.
	ReadTimeout time.Duration

	// Transmit and Propagation describe the path and seed the sender's
	// initial RTT estimate.
	Transmit    time.Duration
	Propagation time.Duration
}

// WS carries SWP frames as binary messages over a websocket connection and
// reconnects with backoff when the connection drops. Frames in flight during
// a reconnect are lost, which the protocol above already tolerates.
type WS struct {
	options WSOptions
	retries int64

	writeMutex sync.Mutex
	conn       *websocket.Conn

	inbox chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// DialWS connects the websocket link.
func DialWS(options WSOptions) (*WS, error) {
	if options.ReadTimeout == 0 {
		options.ReadTimeout = 50 * time.Millisecond
	}
	if options.MaxReconnectInterval == 0 {
		options.MaxReconnectInterval = 5 * time.Second
	}
	w := &WS{
		options: options,
		inbox:   make(chan []byte, 1000),
		closed:  make(chan struct{}),
	}
	if err := w.connect(); err != nil {
		return nil, err
	}
	go w.readPump()
	return w, nil
}

func (w *WS) connect() error {
	header := make(http.Header)
	if w.options.APIToken != "" {
		header.Add("Authorization", w.options.APIToken)
	}
	for {
		conn, _, err := dialer.Dial(w.options.URL, header)
		if err == nil {
			w.writeMutex.Lock()
			w.conn = conn
			w.writeMutex.Unlock()
			w.retries = 0
			return nil
		}
		log.Printf("link: error connecting to %s: %s\n", w.options.URL, err)
		if w.options.ReconnectRetries != 0 && w.retries >= w.options.ReconnectRetries {
			return errors.New("maximum number of retries reached")
		}
		w.retries++
		select {
		case <-w.closed:
			return errors.New("link_closed")
		case <-time.After(w.backoff()):
		}
	}
}

func (w *WS) backoff() time.Duration {
	backoff := time.Duration(math.Pow(2, float64(w.retries))) * 100 * time.Millisecond
	if backoff > w.options.MaxReconnectInterval {
		backoff = w.options.MaxReconnectInterval
	}
	return backoff
}

func (w *WS) readPump() {
	for {
		select {
		case <-w.closed:
			return
		default:
		}
		_, frame, err := w.conn.ReadMessage()
		if err != nil {
			w.conn.Close()
			select {
			case <-w.closed:
				return
			default:
			}
			log.Printf("link: websocket closed after error: %s\n", err)
			if err := w.connect(); err != nil {
				w.Shutdown()
				return
			}
			continue
		}
		select {
		case w.inbox <- frame:
		default:
			// Inbox full; the link is lossy.
		}
	}
}

func (w *WS) Send(raw []byte) error {
	select {
	case <-w.closed:
		return errors.New("link_closed")
	default:
	}
	w.writeMutex.Lock()
	defer w.writeMutex.Unlock()
	return w.conn.WriteMessage(websocket.BinaryMessage, raw)
}

func (w *WS) Recv() ([]byte, error) {
	select {
	case raw := <-w.inbox:
		return raw, nil
	case <-w.closed:
		return nil, errors.New("link_closed")
	case <-time.After(w.options.ReadTimeout):
		return nil, nil
	}
}

func (w *WS) Shutdown() error {
	w.closeOnce.Do(func() {
		close(w.closed)
		w.writeMutex.Lock()
		if w.conn != nil {
			w.conn.Close()
		}
		w.writeMutex.Unlock()
	})
	return nil
}

func (w *WS) TransmitDelay() time.Duration    { return w.options.Transmit }
func (w *WS) PropagationDelay() time.Duration { return w.options.Propagation }
