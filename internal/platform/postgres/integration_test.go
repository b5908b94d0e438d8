//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/platform/postgres"
	"github.com/phrazzld/skillmatch-api/internal/store"
	"github.com/phrazzld/skillmatch-api/internal/testdb"
)

func integrationLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIntegration_UserStore(t *testing.T) {
	db := testdb.Open(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		users := postgres.NewPostgresUserStore(tx, integrationLogger())

		ada, err := domain.NewUser("IT-E001", "Ada Lovelace", "ada.it@example.com", domain.RoleSoftwareEngineer)
		require.NoError(t, err)
		ada.Skills = []domain.Skill{{Name: "Go", Level: 8}}
		require.NoError(t, users.Create(ctx, ada))

		got, err := users.GetBySSOID(ctx, "IT-E001")
		require.NoError(t, err)
		assert.Equal(t, ada.ID, got.ID)
		assert.Equal(t, ada.Skills, got.Skills)

		dup, err := domain.NewUser("IT-E002", "Ada Again", "ada.it@example.com", domain.RoleQAEngineer)
		require.NoError(t, err)
		testdb.Savepoint(t, tx, func() {
			assert.ErrorIs(t, users.Create(ctx, dup), store.ErrEmailExists)
		})

		require.NoError(t, users.AddWorkload(ctx, ada.ID, 12.5))
		got, err = users.GetByID(ctx, ada.ID)
		require.NoError(t, err)
		assert.InDelta(t, 12.5, got.CurrentWorkload, 0.001)

		ada.Name = "Augusta Ada King"
		created, err := users.Upsert(ctx, ada)
		require.NoError(t, err)
		assert.False(t, created)

		_, err = users.GetBySSOID(ctx, "IT-MISSING")
		assert.ErrorIs(t, err, store.ErrUserNotFound)
	})
}

func TestIntegration_TaskAndAssignmentStores(t *testing.T) {
	db := testdb.Open(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		logger := integrationLogger()
		users := postgres.NewPostgresUserStore(tx, logger)
		tasks := postgres.NewPostgresTaskStore(tx, logger)
		assignments := postgres.NewPostgresAssignmentStore(tx, logger)

		grace, err := domain.NewUser("IT-E100", "Grace Hopper", "grace.it@example.com", domain.RoleQAEngineer)
		require.NoError(t, err)
		require.NoError(t, users.Create(ctx, grace))

		task, err := domain.NewTask("IT regression suite", "Rerun every check nightly")
		require.NoError(t, err)
		task.RequiredSkills = []string{"Testing"}
		require.NoError(t, tasks.Create(ctx, task))

		clash, err := domain.NewTask("IT regression suite", "Same title again")
		require.NoError(t, err)
		testdb.Savepoint(t, tx, func() {
			assert.ErrorIs(t, tasks.Create(ctx, clash), store.ErrTaskTitleExists)
		})

		assignable, err := tasks.ListAssignable(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, assignable)

		now := time.Now().UTC().Truncate(time.Second)
		deadline := now.Add(72 * time.Hour)
		require.NoError(t, tasks.ApplyAssignment(ctx, task.ID, grace.ID, domain.PriorityHigh, &deadline))
		assert.ErrorIs(t,
			tasks.ApplyAssignment(ctx, task.ID, grace.ID, domain.PriorityHigh, &deadline),
			store.ErrTaskAlreadyAssigned)

		run := domain.NewAssignmentRun(now)
		require.NoError(t, assignments.CreateRun(ctx, run))

		rec := domain.AssignmentRecord{
			TaskID:     task.ID,
			TaskTitle:  task.Title,
			UserID:     grace.ID,
			UserName:   grace.Name,
			Priority:   domain.PriorityHigh,
			Deadline:   &deadline,
			Confidence: 0.75,
			LoadCost:   18,
		}
		a, err := domain.NewAssignment(run.ID, rec, "", now)
		require.NoError(t, err)
		require.NoError(t, assignments.Create(ctx, a))

		pending, err := assignments.ListUnnotified(ctx, 10)
		require.NoError(t, err)
		require.NotEmpty(t, pending)

		require.NoError(t, assignments.MarkNotified(ctx, a.ID))
		byRun, err := assignments.ListByRun(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, byRun, 1)
		assert.True(t, byRun[0].NotificationSent)

		finished := now.Add(time.Second)
		run.FinishedAt = &finished
		run.TotalTasks, run.AssignedTasks = 1, 1
		require.NoError(t, assignments.FinishRun(ctx, run))
		stored, err := assignments.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.AssignedTasks)
		assert.NotNil(t, stored.FinishedAt)

		current, err := tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		require.NoError(t, current.TransitionTo(domain.TaskStatusCompleted, now))
		require.NoError(t, tasks.Update(ctx, current, domain.TaskStatusInProgress))
		assert.ErrorIs(t, tasks.Update(ctx, current, domain.TaskStatusInProgress), store.ErrTaskStatusChanged)

		released, err := assignments.ReleaseLoad(ctx, task.ID, now)
		require.NoError(t, err)
		assert.InDelta(t, 18, released.LoadCost, 1e-9)
		_, err = assignments.ReleaseLoad(ctx, task.ID, now)
		assert.ErrorIs(t, err, store.ErrAssignmentNotFound)

		done, err := tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, done.Status)
		assert.NotNil(t, done.CompletedAt)
	})
}
