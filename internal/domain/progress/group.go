package progress

// Group is one key together with the items that share it, in input order.
type Group[K comparable, T any] struct {
	Key   K
	Items []T
}

// Groups is an ordered mapping from key to items. Keys keep their
// first-seen order.
type Groups[K comparable, T any] []Group[K, T]

// GroupBy partitions items by keyFn. Groups appear in the order their key was
// first seen and items keep their relative order within a group, so
// Flatten(GroupBy(xs)) is a permutation of xs with no item lost or duplicated.
func GroupBy[T any, K comparable](items []T, keyFn func(T) K) Groups[K, T] {
	index := make(map[K]int)
	var groups Groups[K, T]

	for _, item := range items {
		key := keyFn(item)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group[K, T]{Key: key})
		}
		groups[i].Items = append(groups[i].Items, item)
	}

	return groups
}

// Keys returns the group keys in order.
func (g Groups[K, T]) Keys() []K {
	keys := make([]K, len(g))
	for i, grp := range g {
		keys[i] = grp.Key
	}
	return keys
}

// Get returns the items for key.
func (g Groups[K, T]) Get(key K) ([]T, bool) {
	for _, grp := range g {
		if grp.Key == key {
			return grp.Items, true
		}
	}
	return nil, false
}

// Flatten concatenates all groups back into one slice.
func (g Groups[K, T]) Flatten() []T {
	var out []T
	for _, grp := range g {
		out = append(out, grp.Items...)
	}
	return out
}

// GroupTopicsBySubject groups topics by subject in first-seen order.
func GroupTopicsBySubject(topics []Topic) Groups[string, Topic] {
	return GroupBy(topics, func(t Topic) string { return t.Subject })
}

// ExamTypeGroup holds the subject groups of one exam type (TYT, AYT, ...).
type ExamTypeGroup struct {
	ExamType string
	Subjects Groups[string, Topic]
}

// GroupTopicsByExamType groups topics by exam type, then by subject.
func GroupTopicsByExamType(topics []Topic) []ExamTypeGroup {
	byType := GroupBy(topics, Topic.EffectiveExamType)

	out := make([]ExamTypeGroup, 0, len(byType))
	for _, grp := range byType {
		out = append(out, ExamTypeGroup{
			ExamType: grp.Key,
			Subjects: GroupTopicsBySubject(grp.Items),
		})
	}
	return out
}
