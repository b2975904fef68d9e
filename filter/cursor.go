package filter

// cursor points at the filter to be invoked next.
type cursor struct {
	buckets []Bucket
	bucket  int
	filter  int
}

func newCursor(p *Pipeline) cursor {
	return cursor{buckets: p.Buckets()}
}

// current returns the filter under the cursor. False means the pipeline is exhausted.
func (c *cursor) current() (Filter, bool) {
	if c.bucket >= len(c.buckets) {
		return nil, false
	}

	return c.buckets[c.bucket].Filters[c.filter], true
}

// advance moves to the next filter of the current bucket, or to the first one of the
// next bucket if the current one is exhausted.
func (c *cursor) advance() {
	c.filter++
	if c.filter >= len(c.buckets[c.bucket].Filters) {
		c.bucket++
		c.filter = 0
	}
}
