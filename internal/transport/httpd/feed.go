package httpd

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"auroragrid.io/internal/protocol"
)

// Feed broadcasts admission events to connected admin websockets. It
// implements admission.AuditSink; a slow subscriber drops events rather than
// stalling the pipeline.
type Feed struct {
	log      *log.Logger
	upgrader websocket.Upgrader

	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewFeed(logger *log.Logger) *Feed {
	return &Feed{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
		subs: make(map[chan []byte]struct{}),
	}
}

func (f *Feed) Admission(ev protocol.AdmissionEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for out := range f.subs {
		select {
		case out <- b:
		default:
		}
	}
}

func (f *Feed) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := f.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		out := make(chan []byte, 64)
		f.mu.Lock()
		f.subs[out] = struct{}{}
		f.mu.Unlock()
		defer func() {
			f.mu.Lock()
			delete(f.subs, out)
			f.mu.Unlock()
		}()

		done := make(chan struct{})

		// Reader loop exists only to observe the close.
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case b := <-out:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}

// SubscriberCount reports the number of connected feed clients.
func (f *Feed) SubscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
