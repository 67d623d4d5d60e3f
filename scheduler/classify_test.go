package scheduler

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmms_backend/models"
)

func pmDue(name string, active bool, due *time.Time) models.PreventiveMaintenance {
	return models.PreventiveMaintenance{
		ID:             uuid.New(),
		Name:           name,
		IsActive:       active,
		NextDueDate:    due,
		FrequencyType:  models.FrequencyMonthly,
		FrequencyValue: 1,
	}
}

func ptr(t time.Time) *time.Time { return &t }

func intPtr(v int) *int { return &v }

func TestClassify(t *testing.T) {
	now := date(2024, 6, 1)

	records := []models.PreventiveMaintenance{
		pmDue("overdue", true, ptr(date(2024, 5, 1))),
		pmDue("due soon", true, ptr(date(2024, 6, 10))),
		pmDue("scheduled", true, ptr(date(2024, 12, 1))),
		pmDue("inactive overdue", false, ptr(date(2024, 1, 1))),
		pmDue("uninitialized", true, nil),
		pmDue("due now", true, ptr(now)),
	}

	result := Classify(records, now, intPtr(14))

	require.Len(t, result.Items, 5)
	assert.Equal(t, "overdue", result.Items[0].PM.Name)
	assert.Equal(t, Overdue, result.Items[0].Classification)
	assert.Equal(t, "due soon", result.Items[1].PM.Name)
	assert.Equal(t, DueSoon, result.Items[1].Classification)
	assert.Equal(t, "scheduled", result.Items[2].PM.Name)
	assert.Equal(t, Scheduled, result.Items[2].Classification)
	assert.Equal(t, "uninitialized", result.Items[3].PM.Name)
	assert.Equal(t, Scheduled, result.Items[3].Classification)
	assert.True(t, result.Items[3].Uninitialized)
	assert.Equal(t, DueSoon, result.Items[4].Classification)

	require.Len(t, result.Uninitialized, 1)
	assert.Equal(t, "uninitialized", result.Uninitialized[0].PM.Name)

	for _, item := range result.Items {
		assert.NotEqual(t, "inactive overdue", item.PM.Name)
	}
	assert.Len(t, result.Filter(Overdue), 1)

	assert.Equal(t, Summary{Overdue: 1, DueSoon: 2, Scheduled: 2, Uninitialized: 1}, result.Summary())
}

func TestClassify_WithoutLookahead(t *testing.T) {
	now := date(2024, 6, 1)
	records := []models.PreventiveMaintenance{
		pmDue("tomorrow", true, ptr(date(2024, 6, 2))),
		pmDue("yesterday", true, ptr(date(2024, 5, 31))),
	}

	result := Classify(records, now, nil)

	require.Len(t, result.Items, 2)
	assert.Equal(t, Scheduled, result.Items[0].Classification)
	assert.Equal(t, Overdue, result.Items[1].Classification)
}

func TestClassify_WindowBoundary(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []models.PreventiveMaintenance{
		pmDue("edge", true, ptr(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))),
		pmDue("past edge", true, ptr(time.Date(2024, 6, 15, 12, 0, 1, 0, time.UTC))),
	}

	result := Classify(records, now, intPtr(14))

	assert.Equal(t, DueSoon, result.Items[0].Classification)
	assert.Equal(t, Scheduled, result.Items[1].Classification)
}

func TestClassify_Empty(t *testing.T) {
	result := Classify(nil, date(2024, 6, 1), intPtr(7))
	assert.Empty(t, result.Items)
	assert.Empty(t, result.Uninitialized)
	assert.Equal(t, Summary{}, result.Summary())
}

func TestIsOverdue(t *testing.T) {
	now := date(2024, 6, 1)

	active := pmDue("a", true, ptr(date(2024, 5, 1)))
	inactive := pmDue("b", false, ptr(date(2024, 5, 1)))
	noDate := pmDue("c", true, nil)

	assert.True(t, IsOverdue(&active, now))
	assert.False(t, IsOverdue(&inactive, now))
	assert.False(t, IsOverdue(&noDate, now))
}

func TestAllChecked(t *testing.T) {
	assert.False(t, AllChecked([]models.ChecklistItem{
		{ID: "1", Task: "Проверить ремень", Completed: true},
		{ID: "2", Task: "Заменить фильтр", Completed: false},
	}))
	assert.True(t, AllChecked([]models.ChecklistItem{
		{ID: "1", Completed: true},
		{ID: "2", Completed: true},
	}))

	// Пустой чек-лист считается выполненным
	assert.True(t, AllChecked(nil))
	assert.True(t, AllChecked([]models.ChecklistItem{}))
}

func TestChecklistProgressAndReset(t *testing.T) {
	items := []models.ChecklistItem{
		{ID: "1", Task: "a", Completed: true, Notes: "ok"},
		{ID: "2", Task: "b"},
		{ID: "3", Task: "c", Completed: true},
	}

	done, total := ChecklistProgress(items)
	assert.Equal(t, 2, done)
	assert.Equal(t, 3, total)

	reset := ResetChecklist(items)
	require.Len(t, reset, 3)
	for i, item := range reset {
		assert.Equal(t, items[i].ID, item.ID)
		assert.Equal(t, items[i].Task, item.Task)
		assert.False(t, item.Completed)
		assert.Empty(t, item.Notes)
	}
	// Исходный чек-лист не меняется
	assert.True(t, items[0].Completed)
}

func TestValidateChecklist(t *testing.T) {
	assert.NoError(t, models.ValidateChecklist(nil))
	assert.NoError(t, models.ValidateChecklist([]models.ChecklistItem{{ID: "a"}, {ID: "b"}}))
	assert.ErrorIs(t, models.ValidateChecklist([]models.ChecklistItem{{ID: "a"}, {ID: "a"}}), models.ErrValidation)
	assert.ErrorIs(t, models.ValidateChecklist([]models.ChecklistItem{{ID: ""}}), models.ErrValidation)
}
