package scheduler

import (
	"time"

	"cmms_backend/models"
)

// Classification представляет статус графика относительно текущего момента
type Classification string

const (
	Overdue   Classification = "overdue"
	DueSoon   Classification = "due_soon"
	Scheduled Classification = "scheduled"
)

// ClassifiedPM представляет график ТО с вычисленным статусом
type ClassifiedPM struct {
	PM             models.PreventiveMaintenance `json:"pm"`
	Classification Classification               `json:"classification"`
	Uninitialized  bool                         `json:"uninitialized"`
}

// ClassifyResult содержит результат классификации в исходном порядке.
// Uninitialized дублирует записи без NextDueDate, чтобы вызывающий мог
// запустить первичный расчет.
type ClassifyResult struct {
	Items         []ClassifiedPM `json:"items"`
	Uninitialized []ClassifiedPM `json:"uninitialized"`
}

// Summary содержит количество графиков по статусам
type Summary struct {
	Overdue       int `json:"overdue"`
	DueSoon       int `json:"due_soon"`
	Scheduled     int `json:"scheduled"`
	Uninitialized int `json:"uninitialized"`
}

// Classify распределяет активные графики по статусам относительно now.
// Неактивные графики отбрасываются до классификации. Статус due_soon
// возможен только при заданном lookaheadDays.
func Classify(records []models.PreventiveMaintenance, now time.Time, lookaheadDays *int) ClassifyResult {
	result := ClassifyResult{
		Items:         make([]ClassifiedPM, 0, len(records)),
		Uninitialized: []ClassifiedPM{},
	}

	var windowEnd time.Time
	if lookaheadDays != nil {
		windowEnd = now.AddDate(0, 0, *lookaheadDays)
	}

	for _, pm := range records {
		if !pm.IsActive {
			continue
		}

		if pm.NextDueDate == nil {
			item := ClassifiedPM{PM: pm, Classification: Scheduled, Uninitialized: true}
			result.Items = append(result.Items, item)
			result.Uninitialized = append(result.Uninitialized, item)
			continue
		}

		result.Items = append(result.Items, ClassifiedPM{
			PM:             pm,
			Classification: classifyDate(*pm.NextDueDate, now, lookaheadDays != nil, windowEnd),
		})
	}

	return result
}

func classifyDate(due, now time.Time, hasWindow bool, windowEnd time.Time) Classification {
	if due.Before(now) {
		return Overdue
	}
	if hasWindow && !due.After(windowEnd) {
		return DueSoon
	}
	return Scheduled
}

// Summary подсчитывает графики по статусам
func (r ClassifyResult) Summary() Summary {
	var s Summary
	for _, item := range r.Items {
		switch item.Classification {
		case Overdue:
			s.Overdue++
		case DueSoon:
			s.DueSoon++
		default:
			s.Scheduled++
		}
	}
	s.Uninitialized = len(r.Uninitialized)
	return s
}

// Filter возвращает записи с указанным статусом, сохраняя порядок
func (r ClassifyResult) Filter(c Classification) []ClassifiedPM {
	out := []ClassifiedPM{}
	for _, item := range r.Items {
		if item.Classification == c {
			out = append(out, item)
		}
	}
	return out
}

// IsOverdue проверяет, просрочен ли активный график
func IsOverdue(pm *models.PreventiveMaintenance, now time.Time) bool {
	return pm.IsActive && pm.NextDueDate != nil && pm.NextDueDate.Before(now)
}
