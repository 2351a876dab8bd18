// Package monitor streams a running session to browsers: kernel output,
// thread state changes, faults and log lines over a websocket, plus a JSON
// status snapshot.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/session"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/util"
)

// EventLog is the type of messages carrying util.LogF lines.
const EventLog session.EventType = "log"

const clientQueue = 256

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	sessMu    sync.Mutex
	sess      *session.Session
	removeSub func()
	removeLog func()

	// OnRun is called when a browser asks to run the program.
	OnRun func()
}

func NewHub() *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: map[*client]struct{}{},
	}
	h.removeLog = util.AddLogListener(func(line string) {
		h.broadcast(session.Event{Type: EventLog, Text: line})
	})
	return h
}

// Attach follows sess from now on, replacing any earlier session.
func (h *Hub) Attach(sess *session.Session) {
	h.sessMu.Lock()
	defer h.sessMu.Unlock()
	if h.removeSub != nil {
		h.removeSub()
	}
	h.sess = sess
	h.removeSub = sess.Subscribe(h.broadcast)
}

func (h *Hub) session() *session.Session {
	h.sessMu.Lock()
	defer h.sessMu.Unlock()
	return h.sess
}

// broadcast queues ev for every client. A client that cannot keep up loses
// messages instead of stalling the emulator.
func (h *Hub) broadcast(ev session.Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Printf("monitor: could not marshal %s event: %v", ev.Type, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", h.handleEvents)
	mux.HandleFunc("/status", h.handleStatus)
	mux.HandleFunc("/", handleGetPage)
	return mux
}

func (h *Hub) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientQueue)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	h.readLoop(c)

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	conn.Close()
}

func (h *Hub) writeLoop(c *client) {
	for b := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			util.LogF("monitor: write: %v", err)
			return
		}
	}
}

// readLoop handles browser commands until the socket closes.
func (h *Hub) readLoop(c *client) {
	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		message := struct {
			Type string `json:"type"`
		}{}
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			log.Println("monitor: json:", err)
			return
		}

		switch message.Type {
		case "run":
			if h.OnRun != nil {
				h.OnRun()
			}
		case "pause":
			if sess := h.session(); sess != nil {
				sess.Pause()
			}
		default:
			log.Printf("monitor: unknown message type: %s", message.Type)
		}
	}
}

func (h *Hub) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	sess := h.session()
	if sess == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "no program loaded"})
		return
	}
	if err := json.NewEncoder(w).Encode(sess.Status()); err != nil {
		util.LogF("monitor: status: %v", err)
	}
}

// Close drops every client and stops following the session and the log.
func (h *Hub) Close() {
	h.sessMu.Lock()
	if h.removeSub != nil {
		h.removeSub()
		h.removeSub = nil
	}
	h.sessMu.Unlock()
	h.removeLog()

	h.mu.Lock()
	for c := range h.clients {
		c.conn.Close()
	}
	h.mu.Unlock()
}

// ListenAndServe serves the hub on addr until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: h.Handler()}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Connect to the emulator monitor at http://localhost%s", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		// hijacked websockets outlive Shutdown
		h.Close()
		return srv.Shutdown(context.Background())
	})
	return g.Wait()
}

// Shutdown lets a dependency injector close the hub.
func (h *Hub) Shutdown() error {
	h.Close()
	return nil
}
