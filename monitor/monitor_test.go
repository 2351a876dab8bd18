package monitor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/monitor"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/session"
)

const program = `
.data
msg: .ascii "hi"
.text
main:
	li $a0, 1
	la $a1, msg
	jal sceIoWrite
	li $a2, 2
	jal sceKernelExitThread
	li $a0, 0
`

func newSession(t *testing.T) *session.Session {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.Clock = session.ClockVirtual
	s, err := session.New(cfg)
	require.NoError(t, err)
	_, err = s.LoadProgram(program)
	require.NoError(t, err)
	_, err = s.CreateMainThread(nil)
	require.NoError(t, err)
	return s
}

func TestStatusWithoutSession(t *testing.T) {
	hub := monitor.NewHub()
	defer hub.Close()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestEventsStreamRun(t *testing.T) {
	hub := monitor.NewHub()
	defer hub.Close()
	sess := newSession(t)
	hub.Attach(sess)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/events", nil)
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	reason, err := sess.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, session.StopExited, reason)

	var console string
	var exited bool
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for !exited {
		ev := session.Event{}
		require.NoError(t, ws.ReadJSON(&ev))
		switch ev.Type {
		case session.EventOutput:
			console += ev.Text
		case session.EventExited:
			exited = true
		}
	}
	assert.Equal(t, "hi", console)

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	status := session.Status{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "hi", status.Output)
	assert.Equal(t, 0, status.Alive)
}

func TestRunCommand(t *testing.T) {
	hub := monitor.NewHub()
	defer hub.Close()
	runs := make(chan struct{}, 1)
	hub.OnRun = func() { runs <- struct{}{} }
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/events", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "run"}))
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("run command not delivered")
	}
}
