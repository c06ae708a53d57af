// Package stitch turns an ordered run of chapter page images into a few tall
// "long strip" images. Pages are scaled to a common width, packed greedily
// into output pages under a height ceiling, composited onto a white canvas and
// written as 1.<ext>, 2.<ext>, ... in the target directory.
//
// A broken input never aborts a chapter. Every skipped image, failed page or
// failed write is recorded as an EntryError in the Report and the rest of the
// chapter carries on.
package stitch
