package progress

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/yks-coach/coach-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOPIC COMPLETION
// ══════════════════════════════════════════════════════════════════════════════

// Completion summarizes how many topics are done.
type Completion struct {
	Completed  int
	Incomplete int
	Total      int
	Percent    int
}

// String renders "completed / total (percent%)".
func (c Completion) String() string {
	return fmt.Sprintf("%d / %d (%d%%)", c.Completed, c.Total, c.Percent)
}

// Summarize counts completed topics. Percent is round(100*completed/total)
// and 0 for an empty collection.
func Summarize(topics []Topic) Completion {
	c := Completion{Total: len(topics)}
	for _, t := range topics {
		if t.IsCompleted() {
			c.Completed++
		}
	}
	c.Incomplete = c.Total - c.Completed
	c.Percent = Percent(c.Completed, c.Total)
	return c
}

// Percent returns round(100*part/total), or 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// SubjectCompletion is the completion of one subject group.
type SubjectCompletion struct {
	Subject string
	Completion
}

// SummarizeBySubject returns per-subject completion in first-seen order.
func SummarizeBySubject(topics []Topic) []SubjectCompletion {
	groups := GroupTopicsBySubject(topics)
	out := make([]SubjectCompletion, 0, len(groups))
	for _, grp := range groups {
		out = append(out, SubjectCompletion{Subject: grp.Key, Completion: Summarize(grp.Items)})
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// TASK WEEKS
// ══════════════════════════════════════════════════════════════════════════════

// Week is the set of tasks scheduled in one Monday-start week.
type Week struct {
	Start     time.Time `json:"start"`
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	Tasks     []Task    `json:"tasks"`
	Completed int       `json:"completed"`
	Minutes   int       `json:"minutes"`
}

// GroupTasksByWeek groups tasks by the Monday of their date, newest week
// first. The week containing now is left out since it belongs to the live
// board rather than the history. Tasks with an unparseable date are skipped.
func GroupTasksByWeek(tasks []Task, now time.Time) []Week {
	current := timeutil.StartOfWeek(now).Format(timeutil.FormatDate)

	dated := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if _, err := timeutil.ParseDate(t.Date); err == nil {
			dated = append(dated, t)
		}
	}

	groups := GroupBy(dated, func(t Task) string {
		d, _ := timeutil.ParseDate(t.Date)
		return timeutil.StartOfWeek(d).Format(timeutil.FormatDate)
	})

	weeks := make([]Week, 0, len(groups))
	for _, grp := range groups {
		if grp.Key == current {
			continue
		}
		start, _ := timeutil.ParseDate(grp.Key)
		w := Week{
			Start: start,
			Key:   grp.Key,
			Label: timeutil.WeekRangeTr(start),
			Tasks: grp.Items,
		}
		for _, t := range grp.Items {
			w.Minutes += t.Minutes
			if t.Completed {
				w.Completed++
			}
		}
		weeks = append(weeks, w)
	}

	sort.SliceStable(weeks, func(i, j int) bool {
		return weeks[i].Start.After(weeks[j].Start)
	})
	return weeks
}
