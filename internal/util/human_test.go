package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHuman(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.50 KB"},
		{5 << 20, "5.00 MB"},
		{3 << 30, "3.00 GB"},
		{2 << 40, "2.00 TB"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Human(c.n))
	}
}

func TestRate(t *testing.T) {
	assert.Equal(t, "1.00 MB/s", Rate(4<<20, 4*time.Second))
	assert.Equal(t, "-", Rate(100, 0))
}
