package progress

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yks-coach/coach-hub/internal/domain/shared"
	"github.com/yks-coach/coach-hub/pkg/timeutil"
)

func TestGroupBy_PreservesFirstSeenOrderAndItems(t *testing.T) {
	topics := []Topic{
		{Subject: "Fizik", Title: "Kuvvet"},
		{Subject: "Matematik", Title: "Türev"},
		{Subject: "Fizik", Title: "Enerji"},
		{Subject: "Kimya", Title: "Mol"},
		{Subject: "Matematik", Title: "İntegral"},
	}

	groups := GroupTopicsBySubject(topics)

	assert.Equal(t, []string{"Fizik", "Matematik", "Kimya"}, groups.Keys())
	fizik, ok := groups.Get("Fizik")
	require.True(t, ok)
	assert.Equal(t, []string{"Kuvvet", "Enerji"}, titles(fizik))
	assert.ElementsMatch(t, topics, groups.Flatten())

	_, ok = groups.Get("Biyoloji")
	assert.False(t, ok)
}

func TestGroupBy_RandomCollectionsKeepMultiset(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	subjects := []string{"A", "B", "C", "D"}

	for run := 0; run < 50; run++ {
		n := rng.Intn(30)
		items := make([]Topic, n)
		for i := range items {
			items[i] = Topic{Subject: subjects[rng.Intn(len(subjects))], Title: string(rune('a' + i))}
		}

		groups := GroupTopicsBySubject(items)

		assert.ElementsMatch(t, items, groups.Flatten())

		// first-seen order
		var seen []string
		for _, it := range items {
			if !contains(seen, it.Subject) {
				seen = append(seen, it.Subject)
			}
		}
		assert.Equal(t, len(seen), len(groups))
		if len(seen) > 0 {
			assert.Equal(t, seen, groups.Keys())
		}
	}
}

func TestGroupTopicsByExamType(t *testing.T) {
	topics := []Topic{
		{Subject: "Matematik", Title: "Sayılar"},
		{Subject: "Matematik", Title: "Türev", ExamType: "AYT"},
		{Subject: "Türkçe", Title: "Paragraf", ExamType: "TYT"},
	}

	groups := GroupTopicsByExamType(topics)

	require.Len(t, groups, 2)
	assert.Equal(t, "TYT", groups[0].ExamType)
	assert.Equal(t, []string{"Matematik", "Türkçe"}, groups[0].Subjects.Keys())
	assert.Equal(t, "AYT", groups[1].ExamType)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		status []TopicStatus
		want   Completion
	}{
		{"empty", nil, Completion{}},
		{"half", []TopicStatus{StatusCompleted, StatusCompleted, StatusInProgress, StatusNotStarted},
			Completion{Completed: 2, Incomplete: 2, Total: 4, Percent: 50}},
		{"rounds up", []TopicStatus{StatusCompleted, StatusCompleted, StatusNotStarted},
			Completion{Completed: 2, Incomplete: 1, Total: 3, Percent: 67}},
		{"rounds down", []TopicStatus{StatusCompleted, StatusNotStarted, StatusNotStarted},
			Completion{Completed: 1, Incomplete: 2, Total: 3, Percent: 33}},
		{"all done", []TopicStatus{StatusCompleted}, Completion{Completed: 1, Total: 1, Percent: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topics := make([]Topic, len(tt.status))
			for i, s := range tt.status {
				topics[i] = Topic{Status: s}
			}
			got := Summarize(topics)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.Total, got.Completed+got.Incomplete)
		})
	}

	assert.Equal(t, "2 / 4 (50%)", Completion{Completed: 2, Total: 4, Percent: 50}.String())
}

func TestSummarizeBySubject(t *testing.T) {
	got := SummarizeBySubject([]Topic{
		{Subject: "Fizik", Status: StatusCompleted},
		{Subject: "Kimya", Status: StatusNotStarted},
		{Subject: "Fizik", Status: StatusInProgress},
	})

	require.Len(t, got, 2)
	assert.Equal(t, "Fizik", got[0].Subject)
	assert.Equal(t, 50, got[0].Percent)
	assert.Equal(t, 0, got[1].Percent)
}

func TestGroupTasksByWeek(t *testing.T) {
	now := timeutil.Date(2026, 10, 15) // Thursday
	tasks := []Task{
		{ID: "1", Date: "2026-10-13", Minutes: 60},                  // current week, excluded
		{ID: "2", Date: "2026-09-29", Minutes: 30, Completed: true}, // week of 09-28
		{ID: "3", Date: "2026-10-06", Minutes: 45},                  // week of 10-05
		{ID: "4", Date: "2026-10-04", Minutes: 15, Completed: true}, // Sunday, week of 09-28
		{ID: "5", Date: "yarın"},
	}

	weeks := GroupTasksByWeek(tasks, now)

	require.Len(t, weeks, 2)
	assert.Equal(t, "2026-10-05", weeks[0].Key)
	assert.Equal(t, "2026-09-28", weeks[1].Key)
	assert.Len(t, weeks[1].Tasks, 2)
	assert.Equal(t, 2, weeks[1].Completed)
	assert.Equal(t, 45, weeks[1].Minutes)
	assert.Equal(t, "28 Eylül - 4 Ekim 2026", weeks[1].Label)
}

func TestStudentValidate(t *testing.T) {
	assert.NoError(t, Student{Name: "Ayşe"}.Validate())
	err := Student{Name: "  "}.Validate()
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, "Ayşe Yılmaz", Student{Name: "Ayşe", Surname: "Yılmaz"}.FullName())
	assert.Equal(t, "Ayşe", Student{Name: "Ayşe"}.FullName())
}

func titles(ts []Topic) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Title
	}
	return out
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
