package ui

import "sync/atomic"

type Stats struct {
	TotalChapters atomic.Int64
	TotalImages   atomic.Int64
	TotalBytes    atomic.Int64
	StitchedPages atomic.Int64
	SkippedImages atomic.Int64
	Failed        atomic.Int64
}
