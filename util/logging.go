package util

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
)

var LoggingEnabled = false

// LogEndpoint, when set, receives every message as a plain text POST.
var LogEndpoint = ""

var (
	listenersMu sync.RWMutex
	listeners   = map[int]func(string){}
	nextID      int
)

// AddLogListener registers fn for every message logged while logging is
// enabled and returns a function that removes it.
func AddLogListener(fn func(message string)) (remove func()) {
	listenersMu.Lock()
	id := nextID
	nextID++
	listeners[id] = fn
	listenersMu.Unlock()

	return func() {
		listenersMu.Lock()
		delete(listeners, id)
		listenersMu.Unlock()
	}
}

func LogF(format string, args ...interface{}) {
	if !LoggingEnabled {
		return
	}
	message := fmt.Sprintf(format, args...)

	listenersMu.RLock()
	for _, fn := range listeners {
		fn(message)
	}
	listenersMu.RUnlock()

	if LogEndpoint != "" {
		go http.Post(LogEndpoint, "text/plain", strings.NewReader(message))
	}
}
