package stitch

// Batch is the run of entries that ends up on one output page.
type Batch struct {
	Entries []Entry
	Height  int
}

// Oversized reports whether the batch is a single entry taller than maxHeight.
func (b Batch) Oversized(maxHeight int) bool {
	return maxHeight > 0 && len(b.Entries) == 1 && b.Height > maxHeight
}

// Pack splits entries into contiguous batches whose summed height stays within
// maxHeight. A batch is closed only when it already holds something, so an
// entry taller than maxHeight ends up alone on its own page. maxHeight <= 0
// yields a single batch.
func Pack(entries []Entry, maxHeight int) []Batch {
	var (
		batches []Batch
		cur     Batch
	)

	for _, e := range entries {
		if maxHeight > 0 && len(cur.Entries) > 0 && cur.Height+e.TargetHeight > maxHeight {
			batches = append(batches, cur)
			cur = Batch{}
		}

		cur.Entries = append(cur.Entries, e)
		cur.Height += e.TargetHeight
	}

	if len(cur.Entries) > 0 {
		batches = append(batches, cur)
	}

	return batches
}
