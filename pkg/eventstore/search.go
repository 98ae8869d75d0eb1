package eventstore

// SearchQueryBuilder assembles an event filter. All positive sets within
// one sub-query are ANDed, exclusions are ANDed-not, and multiple
// sub-queries are ORed together. Ordering is by (position, in-tx order),
// ascending unless OrderDesc is set.
type SearchQueryBuilder struct {
	instanceID            string
	resourceOwner         string
	limit                 uint64
	desc                  bool
	positionAfter         Position
	positionBefore        uint64
	excludeAggregateTypes []AggregateType
	excludeAggregateIDs   []string
	excludeEventTypes     []EventType
	queries               []*SearchQuery
}

// SearchQuery is one ORed branch of a search.
type SearchQuery struct {
	builder        *SearchQueryBuilder
	aggregateTypes []AggregateType
	aggregateIDs   []string
	eventTypes     []EventType
}

func NewSearchQueryBuilder() *SearchQueryBuilder {
	return &SearchQueryBuilder{}
}

func (b *SearchQueryBuilder) InstanceID(instanceID string) *SearchQueryBuilder {
	b.instanceID = instanceID
	return b
}

func (b *SearchQueryBuilder) ResourceOwner(owner string) *SearchQueryBuilder {
	b.resourceOwner = owner
	return b
}

func (b *SearchQueryBuilder) Limit(limit uint64) *SearchQueryBuilder {
	b.limit = limit
	return b
}

func (b *SearchQueryBuilder) OrderDesc() *SearchQueryBuilder {
	b.desc = true
	return b
}

func (b *SearchQueryBuilder) OrderAsc() *SearchQueryBuilder {
	b.desc = false
	return b
}

// PositionAfter keeps only events strictly after pos.
func (b *SearchQueryBuilder) PositionAfter(pos Position) *SearchQueryBuilder {
	b.positionAfter = pos
	return b
}

// PositionBefore keeps only events with a position strictly below the
// given value.
func (b *SearchQueryBuilder) PositionBefore(position uint64) *SearchQueryBuilder {
	b.positionBefore = position
	return b
}

func (b *SearchQueryBuilder) ExcludeAggregateTypes(types ...AggregateType) *SearchQueryBuilder {
	b.excludeAggregateTypes = append(b.excludeAggregateTypes, types...)
	return b
}

func (b *SearchQueryBuilder) ExcludeAggregateIDs(ids ...string) *SearchQueryBuilder {
	b.excludeAggregateIDs = append(b.excludeAggregateIDs, ids...)
	return b
}

func (b *SearchQueryBuilder) ExcludeEventTypes(types ...EventType) *SearchQueryBuilder {
	b.excludeEventTypes = append(b.excludeEventTypes, types...)
	return b
}

// AddQuery opens a new ORed branch.
func (b *SearchQueryBuilder) AddQuery() *SearchQuery {
	q := &SearchQuery{builder: b}
	b.queries = append(b.queries, q)
	return q
}

func (q *SearchQuery) AggregateTypes(types ...AggregateType) *SearchQuery {
	q.aggregateTypes = append(q.aggregateTypes, types...)
	return q
}

func (q *SearchQuery) AggregateIDs(ids ...string) *SearchQuery {
	q.aggregateIDs = append(q.aggregateIDs, ids...)
	return q
}

func (q *SearchQuery) EventTypes(types ...EventType) *SearchQuery {
	q.eventTypes = append(q.eventTypes, types...)
	return q
}

// Or opens the next branch.
func (q *SearchQuery) Or() *SearchQuery {
	return q.builder.AddQuery()
}

// Builder returns to the enclosing builder.
func (q *SearchQuery) Builder() *SearchQueryBuilder {
	return q.builder
}

// Accessors used by storage adapters.

func (b *SearchQueryBuilder) GetInstanceID() string                     { return b.instanceID }
func (b *SearchQueryBuilder) GetResourceOwner() string                  { return b.resourceOwner }
func (b *SearchQueryBuilder) GetLimit() uint64                          { return b.limit }
func (b *SearchQueryBuilder) IsDesc() bool                              { return b.desc }
func (b *SearchQueryBuilder) GetPositionAfter() Position                { return b.positionAfter }
func (b *SearchQueryBuilder) GetPositionBefore() uint64                 { return b.positionBefore }
func (b *SearchQueryBuilder) GetExcludeAggregateTypes() []AggregateType { return b.excludeAggregateTypes }
func (b *SearchQueryBuilder) GetExcludeAggregateIDs() []string          { return b.excludeAggregateIDs }
func (b *SearchQueryBuilder) GetExcludeEventTypes() []EventType         { return b.excludeEventTypes }
func (b *SearchQueryBuilder) GetQueries() []*SearchQuery                { return b.queries }

func (q *SearchQuery) GetAggregateTypes() []AggregateType { return q.aggregateTypes }
func (q *SearchQuery) GetAggregateIDs() []string          { return q.aggregateIDs }
func (q *SearchQuery) GetEventTypes() []EventType         { return q.eventTypes }

// clone returns a copy sharing the immutable branch slices. Used by the
// streaming reader to advance its cursor without mutating the caller's
// builder.
func (b *SearchQueryBuilder) clone() *SearchQueryBuilder {
	clone := *b
	return &clone
}
