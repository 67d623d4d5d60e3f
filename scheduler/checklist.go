package scheduler

import "cmms_backend/models"

// AllChecked возвращает true, если отмечены все пункты чек-листа.
// Пустой чек-лист считается полностью выполненным.
func AllChecked(checklist []models.ChecklistItem) bool {
	for _, item := range checklist {
		if !item.Completed {
			return false
		}
	}
	return true
}

// ChecklistProgress возвращает количество отмеченных и общее количество пунктов
func ChecklistProgress(checklist []models.ChecklistItem) (done, total int) {
	for _, item := range checklist {
		if item.Completed {
			done++
		}
	}
	return done, len(checklist)
}

// ResetChecklist возвращает копию чек-листа со сброшенными отметками
func ResetChecklist(checklist []models.ChecklistItem) []models.ChecklistItem {
	out := make([]models.ChecklistItem, len(checklist))
	for i, item := range checklist {
		out[i] = models.ChecklistItem{ID: item.ID, Task: item.Task}
	}
	return out
}
