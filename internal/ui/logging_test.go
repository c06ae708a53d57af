package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	for _, debug := range []bool{true, false} {
		l := NewLogger(debug)
		require.NotNil(t, l)
		assert.Equal(t, debug, l.Debug)

		l.Debugf("debug %d", 1)
		l.Infof("info %s", "ready")
		l.Warnf("warn")
		l.With("run", "abc").Errorf("error %v", "boom")
		l.Sync()
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Errorf("dropped")
	assert.False(t, l.Debug)
}
