package debugServer

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/session"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/util"
)

var (
	ErrRunning   = errors.New("emulator is running")
	ErrNoSession = errors.New("no program loaded")
)

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}

// Server answers editor requests (diagnostics, hover) and drives one
// emulator session for any number of connections.
type Server struct {
	config session.Config
	docs   *documents

	// OnSession is called with every session created by program/load.
	OnSession func(*session.Session)

	mu        sync.Mutex
	sess      *session.Session
	removeSub func()
	running   bool
	conns     map[*jsonrpc2.Conn]chan notification
}

type notification struct {
	method string
	params interface{}
}

func NewServer(config session.Config) (*Server, error) {
	// the import names only depend on the kernel, any session will do
	probe, err := session.New(config)
	if err != nil {
		return nil, err
	}
	return &Server{
		config: config,
		docs:   newDocuments(probe.Symbols()),
		conns:  map[*jsonrpc2.Conn]chan notification{},
	}, nil
}

// Session is the session of the last loaded program, or nil.
func (s *Server) Session() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// setSession replaces the current session and forwards its output and
// faults to every connection.
func (s *Server) setSession(sess *session.Session) {
	removeSub := sess.Subscribe(func(ev session.Event) {
		switch ev.Type {
		case session.EventOutput:
			s.broadcast("emulator/output", OutputEvent{Text: ev.Text})
		case session.EventFault:
			s.broadcast("emulator/output", OutputEvent{Text: ev.Text + "\n"})
		}
	})

	s.mu.Lock()
	old := s.removeSub
	s.sess = sess
	s.removeSub = removeSub
	s.mu.Unlock()

	if old != nil {
		old()
	}

	if s.OnSession != nil {
		s.OnSession(sess)
	}
}

func (s *Server) startRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Server) endRun() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Server) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// broadcast queues a notification for every connection. Notifications are
// dropped for a connection whose queue is full rather than stalling the
// emulator.
func (s *Server) broadcast(method string, params interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.conns {
		select {
		case ch <- notification{method, params}:
		default:
			util.LogF("debug server: dropped %s notification", method)
		}
	}
}

// ServeStream serves one connection until it closes or ctx is done.
func (s *Server) ServeStream(ctx context.Context, rwc io.ReadWriteCloser) {
	h := &handler{server: s}
	conn := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{}), h)

	ch := make(chan notification, 1024)
	s.mu.Lock()
	s.conns[conn] = ch
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case n := <-ch:
				if err := conn.Notify(ctx, n.method, n.params); err != nil {
					util.LogF("debug server: notify %s: %v", n.method, err)
				}
			case <-conn.DisconnectNotify():
				return
			}
		}
	}()

	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
		conn.Close()
	}
	<-done

	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// ListenAndServe serves a single client on stdin and stdout.
func (s *Server) ListenAndServe(ctx context.Context) {
	s.ServeStream(ctx, stdrwc{})
}

// ListenAndServeTCP accepts connections on addr until ctx is done.
func (s *Server) ListenAndServeTCP(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		lis.Close()
	}()
	log.Println("PSP emulator debug server: listening for TCP connections on", lis.Addr())

	connectionCount := 0
	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		connectionCount++
		connectionID := connectionCount
		log.Printf("PSP emulator debug server: received incoming connection #%d\n", connectionID)
		go func() {
			s.ServeStream(ctx, conn)
			log.Printf("PSP emulator debug server: connection #%d closed\n", connectionID)
		}()
	}
}
