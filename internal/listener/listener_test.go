package listener

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/albapepper/keeper-analytics/internal/cache"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestHandleInvalidatesPrefix(t *testing.T) {
	c := cache.New(true)
	c.Set("runs:latest", []byte("{}"), time.Hour)
	c.Set("runs:list:20", []byte("[]"), time.Hour)
	c.Set("output:abc:expected_wins", []byte("[]"), time.Hour)

	handle(`{"run_id":"abc","league":"Keeper League"}`, c, "runs:", quiet)

	_, _, ok := c.Get("runs:latest")
	assert.False(t, ok)
	_, _, ok = c.Get("output:abc:expected_wins")
	assert.True(t, ok, "stored outputs never change")
}

func TestHandleBadPayloadStillInvalidates(t *testing.T) {
	c := cache.New(true)
	c.Set("runs:latest", []byte("{}"), time.Hour)

	handle("not json", c, "runs:", quiet)

	_, _, ok := c.Get("runs:latest")
	assert.False(t, ok)
}
