package stitch

import (
	"strings"

	xdraw "golang.org/x/image/draw"
)

type Format string

const (
	FormatJPEG Format = "JPEG"
	FormatPNG  Format = "PNG"
	FormatWebP Format = "WEBP"
)

const (
	DefaultMaxHeight = 12000
	DefaultQuality   = 90
	DefaultResampler = "catmullrom"
)

// ParseFormat accepts a format name or a file extension ("jpg", ".webp").
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "jpg", "jpeg":
		return FormatJPEG, true
	case "png":
		return FormatPNG, true
	case "webp":
		return FormatWebP, true
	}

	return "", false
}

func (f Format) Ext() string {
	switch f {
	case FormatPNG:
		return ".png"
	case FormatWebP:
		return ".webp"
	default:
		return ".jpg"
	}
}

// MaxDimension is the largest width or height the encoder accepts. Zero means
// no practical limit.
func (f Format) MaxDimension() int {
	switch f {
	case FormatJPEG:
		return 65535
	case FormatWebP:
		return 16383
	default:
		return 0
	}
}

// Options is the full parameter set of one stitching run. It is passed by
// value; nothing in this package keeps settings between calls.
type Options struct {
	// TargetWidth is the common output width. Zero or less picks the widest
	// input image.
	TargetWidth int
	// MaxHeight bounds the height of an output page. Zero or less puts the
	// whole chapter on a single page. Either way pages are capped at
	// Format.MaxDimension when the format has one (65535px for JPEG, 16383px
	// for WebP); an empty Format is not capped.
	MaxHeight int
	// Quality (1-100) is used by the lossy encoders.
	Quality int
	// Format selects the encoder. Empty means "derive from the output
	// template extension".
	Format Format
	// Resampler is one of nearest, approx-bilinear, bilinear, catmullrom.
	Resampler string
	// MmapThreshold is the canvas size in bytes above which the canvas is
	// backed by a memory-mapped temp file instead of the heap. Zero disables.
	MmapThreshold int64

	// Progress, if set, is called after each output page is composited with
	// the number of entries handled so far.
	Progress func(done, total int)
}

func DefaultOptions() Options {
	return Options{
		TargetWidth: 0,
		MaxHeight:   DefaultMaxHeight,
		Quality:     DefaultQuality,
		Format:      FormatJPEG,
		Resampler:   DefaultResampler,
	}
}

func (o Options) quality() int {
	switch {
	case o.Quality <= 0:
		return DefaultQuality
	case o.Quality > 100:
		return 100
	default:
		return o.Quality
	}
}

// pageLimit is MaxHeight capped to what the encoder can write.
func (o Options) pageLimit() int {
	limit := o.Format.MaxDimension()
	if limit > 0 && (o.MaxHeight <= 0 || o.MaxHeight > limit) {
		return limit
	}
	return o.MaxHeight
}

func (o Options) interpolator() xdraw.Interpolator {
	switch strings.ToLower(strings.TrimSpace(o.Resampler)) {
	case "nearest":
		return xdraw.NearestNeighbor
	case "approx", "approx-bilinear":
		return xdraw.ApproxBiLinear
	case "bilinear":
		return xdraw.BiLinear
	default:
		return xdraw.CatmullRom
	}
}
