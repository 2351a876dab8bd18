package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/util"
)

func TestLogListeners(t *testing.T) {
	var got []string
	remove := util.AddLogListener(func(message string) {
		got = append(got, message)
	})

	util.LoggingEnabled = false
	util.LogF("dropped %d", 1)
	util.LoggingEnabled = true
	util.LogF("kept %d", 2)
	remove()
	util.LogF("after %d", 3)
	util.LoggingEnabled = false

	assert.Equal(t, []string{"kept 2"}, got)
}
