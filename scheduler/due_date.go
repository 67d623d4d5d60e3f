package scheduler

import (
	"fmt"
	"time"

	"cmms_backend/models"
)

// NextDueDate возвращает якорную дату, сдвинутую на один интервал правила
func NextDueDate(freq Frequency, anchor time.Time) (time.Time, error) {
	if err := freq.Validate(); err != nil {
		return time.Time{}, err
	}
	if anchor.IsZero() {
		return time.Time{}, fmt.Errorf("%w: anchor timestamp is zero", ErrMissingAnchor)
	}

	days, months := freq.step()
	if months > 0 {
		return AddMonthsClamped(anchor, months), nil
	}
	return anchor.AddDate(0, 0, days), nil
}

// NextDueAfter сдвигает якорь на целое число интервалов, пока результат
// не станет строго позже after. Нужен для политики schedule, когда
// обслуживание выполнено с опозданием на несколько периодов.
func NextDueAfter(freq Frequency, anchor, after time.Time) (time.Time, error) {
	next, err := NextDueDate(freq, anchor)
	if err != nil {
		return time.Time{}, err
	}

	// Месяцы считаем от исходного якоря: иначе 31.01 -> 28.02 -> 28.03
	// терял бы конец месяца
	days, months := freq.step()
	for i := 2; !next.After(after); i++ {
		if months > 0 {
			next = AddMonthsClamped(anchor, months*i)
		} else {
			next = anchor.AddDate(0, 0, days*i)
		}
	}
	return next, nil
}

// ResolveAnchor выбирает якорную дату графика согласно политике
func ResolveAnchor(pm *models.PreventiveMaintenance, policy models.AnchorPolicy) (time.Time, error) {
	if policy == models.AnchorSchedule && pm.NextDueDate != nil && !pm.NextDueDate.IsZero() {
		return *pm.NextDueDate, nil
	}
	if pm.LastCompletedAt != nil && !pm.LastCompletedAt.IsZero() {
		return *pm.LastCompletedAt, nil
	}
	if !pm.CreatedAt.IsZero() {
		return pm.CreatedAt, nil
	}
	return time.Time{}, fmt.Errorf("%w: pm %s has neither last completion nor creation time", ErrMissingAnchor, pm.ID)
}

// ComputeNextDue вычисляет следующий срок графика по его текущему состоянию
func ComputeNextDue(pm *models.PreventiveMaintenance, policy models.AnchorPolicy) (time.Time, error) {
	anchor, err := ResolveAnchor(pm, policy)
	if err != nil {
		return time.Time{}, err
	}
	return NextDueDate(FrequencyOf(pm), anchor)
}

// NextDueOnCompletion вычисляет срок после выполнения обслуживания в completedAt.
//
// completion: отсчет от completedAt.
// schedule: отсчет от прежнего срока с пропуском периодов, уже оставшихся
// в прошлом относительно completedAt. Без прежнего срока ведет себя как completion.
func NextDueOnCompletion(pm *models.PreventiveMaintenance, policy models.AnchorPolicy, completedAt time.Time) (time.Time, error) {
	if completedAt.IsZero() {
		return time.Time{}, fmt.Errorf("%w: completion timestamp is zero", ErrMissingAnchor)
	}
	freq := FrequencyOf(pm)
	if policy == models.AnchorSchedule && pm.NextDueDate != nil && !pm.NextDueDate.IsZero() {
		return NextDueAfter(freq, *pm.NextDueDate, completedAt)
	}
	return NextDueDate(freq, completedAt)
}
