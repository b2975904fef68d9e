package filter

// Bucket is a group of filters that shared one priority within a single registration.
type Bucket struct {
	Priority Priority
	Filters  []Filter
}

// Pipeline is an ordered sequence of non-empty buckets. It's built at configuration time
// and must not be modified once shared between connections.
type Pipeline struct {
	buckets []Bucket
}

func NewPipeline(entries ...Entry) *Pipeline {
	p := new(Pipeline)
	p.Register(entries...)
	return p
}

// Register partitions the entries by priority and appends a bucket per non-empty tier, from
// high to low. Relative order of entries sharing a priority is preserved. Buckets from
// previous calls are left untouched, even if they have the same priority.
//
// Register panics if any entry is invalid (see Validate). Nothing is registered in that case.
func (p *Pipeline) Register(entries ...Entry) {
	if err := Validate(entries...); err != nil {
		panic(err)
	}

	for _, priority := range priorities {
		var filters []Filter

		for _, entry := range entries {
			if entry.Priority == priority {
				filters = append(filters, entry.Filter)
			}
		}

		if len(filters) > 0 {
			p.buckets = append(p.buckets, Bucket{
				Priority: priority,
				Filters:  filters,
			})
		}
	}
}

// Empty reports whether there are no filters at all.
func (p *Pipeline) Empty() bool {
	return p == nil || len(p.buckets) == 0
}

// Buckets exposes the underlying buckets. They must not be modified.
func (p *Pipeline) Buckets() []Bucket {
	if p == nil {
		return nil
	}

	return p.buckets
}

// Len returns the total number of filters.
func (p *Pipeline) Len() (n int) {
	for _, bucket := range p.Buckets() {
		n += len(bucket.Filters)
	}

	return n
}

// Flatten returns all the filters in their traversal order.
func (p *Pipeline) Flatten() []Filter {
	filters := make([]Filter, 0, p.Len())

	for _, bucket := range p.Buckets() {
		filters = append(filters, bucket.Filters...)
	}

	return filters
}
