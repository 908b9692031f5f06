package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutOutputsFails(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "inspection-sim"})
	assert.Error(t, err)
}

func TestNew_EnabledWithLogWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "inspection-sim",
		BatchTimeout: time.Second,
		LogWriter:    &buf,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	require.NotNil(t, p.LoggerProvider())
	assert.True(t, p.Enabled())
	assert.NoError(t, p.Flush(context.Background()))
}

func TestMeter_IsNoOp(t *testing.T) {
	p, err := New(Config{})
	require.NoError(t, err)

	m := p.Meter("test")
	counter, err := m.Int64Counter("noop.counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)
}
