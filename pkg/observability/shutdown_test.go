package observability

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdownManager_RunsFuncs(t *testing.T) {
	logger := NewLogger(ErrorLevel, &bytes.Buffer{})
	server := &http.Server{Addr: "127.0.0.1:0"}
	sm := NewShutdownManager(logger, time.Second, server)

	var calls atomic.Int32
	sm.RegisterShutdownFunc("redis", func(context.Context) error { calls.Add(1); return nil })
	sm.RegisterShutdownFunc("database", func(context.Context) error { calls.Add(1); return nil })

	assert.NoError(t, sm.Shutdown())
	assert.Equal(t, int32(2), calls.Load())
}

func TestShutdownManager_CollectsErrors(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, &bytes.Buffer{}), time.Second)
	boom := errors.New("boom")
	sm.RegisterShutdownFunc("tracing", func(context.Context) error { return boom })

	err := sm.Shutdown()
	assert.ErrorIs(t, err, boom)
}

func TestShutdownManager_Timeout(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, &bytes.Buffer{}), 20*time.Millisecond)
	sm.RegisterShutdownFunc("slow", func(ctx context.Context) error {
		time.Sleep(200 * time.Millisecond)
		return nil
	})

	assert.Error(t, sm.Shutdown())
}
