package matching

import (
	"bytes"
	"cmp"
	"runtime"
	"slices"

	"github.com/phrazzld/skillmatch-api/internal/domain"
	"golang.org/x/sync/errgroup"
)

// scoreEntry is one cell of the score matrix.
type scoreEntry struct {
	user  int
	task  int
	score float64
}

// resolution is the resolver's verdict for one task; user is -1 when unresolved.
type resolution struct {
	user  int
	score float64
	cost  float64
}

// loadCost is the workload percentage a task adds to its assignee.
func loadCost(task *domain.Task, params *Params) float64 {
	return float64(task.EffectiveStoryPoints()) * params.LoadPerStoryPoint
}

// scoreMatrix scores every (user, task) pair. Rows are independent, so large
// matrices are filled by one goroutine per user; each goroutine writes only
// its own row.
func scoreMatrix(users []*domain.User, tasks []*domain.Task, params *Params) []scoreEntry {
	entries := make([]scoreEntry, len(users)*len(tasks))

	fillRow := func(u int) {
		row := entries[u*len(tasks) : (u+1)*len(tasks)]
		for t, task := range tasks {
			row[t] = scoreEntry{user: u, task: t, score: compatibility(users[u], task, params)}
		}
	}

	if len(entries) < params.ParallelThreshold {
		for u := range users {
			fillRow(u)
		}
		return entries
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for u := range users {
		g.Go(func() error {
			fillRow(u)
			return nil
		})
	}
	_ = g.Wait()

	return entries
}

// sortEntries orders entries by descending score, then ascending user ID,
// then ascending task ID. IDs are unique, so the order is total.
func sortEntries(entries []scoreEntry, users []*domain.User, tasks []*domain.Task) {
	slices.SortFunc(entries, func(a, b scoreEntry) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := bytes.Compare(users[a.user].ID[:], users[b.user].ID[:]); c != 0 {
			return c
		}
		return bytes.Compare(tasks[a.task].ID[:], tasks[b.task].ID[:])
	})
}

// resolve assigns tasks greedily, highest score first.
//
// Each user starts with capacity 100 - currentWorkload. Walking the sorted
// score list once, a task goes to the user of the first entry whose score
// exceeds params.MinScore and whose remaining capacity covers the task's load
// cost; the cost is then deducted for the rest of the walk. A pair that would
// push a user past 100% is skipped and the next-best user for that task is
// tried further down the list.
//
// The walk is sequential: every capacity check depends on all earlier
// assignments. The result is indexed like tasks.
func resolve(users []*domain.User, tasks []*domain.Task, params *Params) []resolution {
	out := make([]resolution, len(tasks))
	for i := range out {
		out[i].user = -1
	}
	if len(users) == 0 || len(tasks) == 0 {
		return out
	}

	entries := scoreMatrix(users, tasks, params)
	sortEntries(entries, users, tasks)

	remaining := make([]float64, len(users))
	for i, u := range users {
		remaining[i] = u.Headroom()
	}

	left := len(tasks)
	for _, e := range entries {
		if left == 0 || e.score <= params.MinScore {
			break
		}
		if out[e.task].user >= 0 {
			continue
		}

		cost := loadCost(tasks[e.task], params)
		if cost > remaining[e.user] {
			continue
		}

		remaining[e.user] -= cost
		out[e.task] = resolution{user: e.user, score: e.score, cost: cost}
		left--
	}

	return out
}
