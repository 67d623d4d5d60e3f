// Package scheduler вычисляет сроки планового обслуживания.
//
// Все функции пакета чистые: текущее время и якорная дата передаются
// явно, пакет не обращается к часам, БД и логам.
package scheduler

import (
	"fmt"
	"time"

	"cmms_backend/models"
)

// Ошибки расчета сроков
var (
	ErrInvalidFrequency = models.ErrInvalidFrequency
	ErrMissingAnchor    = models.ErrMissingAnchor
)

// Frequency описывает правило повторения: тип, множитель и единицу для custom
type Frequency struct {
	Type  models.FrequencyType
	Value int
	Unit  models.FrequencyUnit
}

// FrequencyOf извлекает правило повторения из графика ТО
func FrequencyOf(pm *models.PreventiveMaintenance) Frequency {
	return Frequency{
		Type:  pm.FrequencyType,
		Value: pm.FrequencyValue,
		Unit:  pm.FrequencyUnit,
	}
}

// Validate проверяет правило повторения
func (f Frequency) Validate() error {
	if !f.Type.IsValid() {
		return fmt.Errorf("%w: unknown frequency type %q", ErrInvalidFrequency, f.Type)
	}
	if f.Value <= 0 {
		return fmt.Errorf("%w: frequency value must be positive, got %d", ErrInvalidFrequency, f.Value)
	}
	if f.Type == models.FrequencyCustom && !f.Unit.IsValid() {
		return fmt.Errorf("%w: custom frequency requires unit (days, weeks, months, years), got %q", ErrInvalidFrequency, f.Unit)
	}
	if limit := f.maxValue(); f.Value > limit {
		return fmt.Errorf("%w: frequency value must not exceed %d for %s, got %d", ErrInvalidFrequency, limit, f.unitName(), f.Value)
	}
	return nil
}

// MaxIntervalYears ограничивает длину одного интервала
const MaxIntervalYears = 1000

// maxValue возвращает наибольший множитель, укладывающийся в MaxIntervalYears
func (f Frequency) maxValue() int {
	switch f.unitName() {
	case "days":
		return MaxIntervalYears * 365
	case "weeks":
		return MaxIntervalYears * 52
	case "months":
		return MaxIntervalYears * 12
	case "quarters":
		return MaxIntervalYears * 4
	default:
		return MaxIntervalYears
	}
}

// unitName возвращает единицу, в которой задан множитель
func (f Frequency) unitName() string {
	switch f.Type {
	case models.FrequencyDaily:
		return "days"
	case models.FrequencyWeekly:
		return "weeks"
	case models.FrequencyMonthly:
		return "months"
	case models.FrequencyQuarterly:
		return "quarters"
	case models.FrequencyAnnual:
		return "years"
	}
	return string(f.Unit)
}

// String возвращает человекочитаемое описание правила
func (f Frequency) String() string {
	if f.Type == models.FrequencyCustom {
		return fmt.Sprintf("every %d %s", f.Value, f.Unit)
	}
	if f.Value == 1 {
		return string(f.Type)
	}
	return fmt.Sprintf("%s x%d", f.Type, f.Value)
}

// step раскладывает правило на (дни, месяцы) для одного интервала
func (f Frequency) step() (days, months int) {
	switch f.Type {
	case models.FrequencyDaily:
		return f.Value, 0
	case models.FrequencyWeekly:
		return 7 * f.Value, 0
	case models.FrequencyMonthly:
		return 0, f.Value
	case models.FrequencyQuarterly:
		return 0, 3 * f.Value
	case models.FrequencyAnnual:
		return 0, 12 * f.Value
	case models.FrequencyCustom:
		switch f.Unit {
		case models.UnitDays:
			return f.Value, 0
		case models.UnitWeeks:
			return 7 * f.Value, 0
		case models.UnitMonths:
			return 0, f.Value
		case models.UnitYears:
			return 0, 12 * f.Value
		}
	}
	return 0, 0
}

// AddMonthsClamped сдвигает дату на n календарных месяцев.
// Если в целевом месяце нет такого числа, берется последний день месяца
// (31 января + 1 месяц = 28/29 февраля), время суток и зона сохраняются.
func AddMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()

	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	ty, tm, _ := first.Date()

	if last := daysIn(ty, tm, t.Location()); d > last {
		d = last
	}
	return time.Date(ty, tm, d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
