package stitch

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetHeight(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		w, h    int
		target  int
		want    int
		wantErr bool
	}{
		{"upscale rounds to nearest", 600, 800, 800, 1067, false},
		{"same width", 800, 1200, 800, 1200, false},
		{"downscale", 1600, 1000, 800, 500, false},
		{"very wide image keeps one row", 10000, 1, 800, 1, false},
		{"zero width", 0, 100, 800, 0, true},
		{"negative height", 100, -5, 800, 0, true},
		{"zero target", 100, 100, 0, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := TargetHeight(tc.w, tc.h, tc.target)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidImage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveWidth(t *testing.T) {
	t.Parallel()

	srcs := sources(solid(300, 10, red), solid(720, 10, red), nil, solid(500, 10, red))

	assert.Equal(t, 720, ResolveWidth(srcs, 0))
	assert.Equal(t, 720, ResolveWidth(srcs, -1))
	assert.Equal(t, 800, ResolveWidth(srcs, 800))
	assert.Equal(t, 0, ResolveWidth(nil, 0))
}

func TestNormalizeSkipsInvalidAndKeepsOrder(t *testing.T) {
	t.Parallel()

	srcs := sources(
		solid(400, 400, red),
		image.NewRGBA(image.Rect(0, 0, 0, 50)),
		solid(200, 100, green),
		nil,
	)

	entries, invalid := Normalize(srcs, 800)

	require.Len(t, entries, 2)
	assert.Equal(t, "1.png", entries[0].Name)
	assert.Equal(t, 800, entries[0].TargetHeight)
	assert.Equal(t, "3.png", entries[1].Name)
	assert.Equal(t, 2, entries[1].Index)
	assert.Equal(t, 400, entries[1].TargetHeight)

	require.Len(t, invalid, 2)
	for _, e := range invalid {
		assert.Equal(t, KindInvalidImage, e.Kind)
		assert.ErrorIs(t, e, ErrInvalidImage)
	}
	assert.Equal(t, 1, invalid[0].Index)
	assert.Equal(t, 3, invalid[1].Index)
}
