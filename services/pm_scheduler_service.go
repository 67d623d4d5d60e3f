package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"cmms_backend/config"
	"cmms_backend/logger"
	"cmms_backend/models"
	"cmms_backend/scheduler"
)

var schedulerLog = logger.WithComponent("pm_scheduler")

// RunSummary содержит итог одного прохода планировщика
type RunSummary struct {
	StartedAt         time.Time `json:"started_at"`
	Warehouses        int       `json:"warehouses"`
	Initialized       int       `json:"initialized"`
	WorkOrdersCreated int       `json:"work_orders_created"`
	OverdueNotified   int       `json:"overdue_notified"`
	LowStockNotified  int       `json:"low_stock_notified"`
	Errors            int       `json:"errors"`
	Skipped           bool      `json:"skipped"` // Предыдущий проход еще выполняется
}

// PMSchedulerService периодически обрабатывает графики ТО всех площадок:
// инициализирует сроки, создает наряды и уведомления о просрочке
type PMSchedulerService struct {
	cfg           config.SchedulerConfig
	warehouses    *WarehouseService
	pmService     *PMService
	workOrders    *WorkOrderService
	notifications *NotificationService
	reports       *ReportService
	cron          *cron.Cron
	now           func() time.Time

	running sync.Mutex
	mu      sync.RWMutex
	lastRun *RunSummary
}

// NewPMSchedulerService создает новый экземпляр PMSchedulerService.
// now задает источник времени; nil означает time.Now.
func NewPMSchedulerService(cfg config.SchedulerConfig, warehouses *WarehouseService, pmService *PMService, workOrders *WorkOrderService, notifications *NotificationService, reports *ReportService, now func() time.Time) *PMSchedulerService {
	if now == nil {
		now = time.Now
	}
	return &PMSchedulerService{
		cfg:           cfg,
		warehouses:    warehouses,
		pmService:     pmService,
		workOrders:    workOrders,
		notifications: notifications,
		reports:       reports,
		cron:          cron.New(),
		now:           now,
	}
}

// Start запускает планировщик
func (s *PMSchedulerService) Start() error {
	_, err := s.cron.AddFunc(s.cfg.CronSpec, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			schedulerLog.WithError(err).Error("Ошибка прохода планировщика ТО")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	if s.cfg.ReportCronSpec != "" && s.reports != nil {
		_, err := s.cron.AddFunc(s.cfg.ReportCronSpec, func() {
			if _, err := s.ExportDueReports(context.Background()); err != nil {
				schedulerLog.WithError(err).Error("Ошибка выгрузки отчетов по срокам ТО")
			}
		})
		if err != nil {
			return fmt.Errorf("failed to add report cron job: %w", err)
		}
	}

	s.cron.Start()
	schedulerLog.WithFields(log.Fields{
		"cron":     s.cfg.CronSpec,
		"next_run": s.NextRun(),
	}).Info("PM scheduler started")
	return nil
}

// Stop останавливает планировщик и дожидается завершения выполняемых задач
func (s *PMSchedulerService) Stop() {
	<-s.cron.Stop().Done()
	schedulerLog.Info("PM scheduler stopped")
}

// NextRun возвращает время следующего прохода по расписанию
func (s *PMSchedulerService) NextRun() *time.Time {
	schedule, err := cron.ParseStandard(s.cfg.CronSpec)
	if err != nil {
		return nil
	}
	next := schedule.Next(s.now())
	return &next
}

// LastRun возвращает итог последнего завершенного прохода
func (s *PMSchedulerService) LastRun() *RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// RunOnce выполняет один проход по всем активным площадкам. Ошибка одной
// площадки не прерывает обработку остальных. Параллельный запуск пропускается.
func (s *PMSchedulerService) RunOnce(ctx context.Context) (*RunSummary, error) {
	now := s.now()
	summary := &RunSummary{StartedAt: now}

	if !s.running.TryLock() {
		summary.Skipped = true
		schedulerLog.Warn("Предыдущий проход планировщика ТО еще выполняется")
		return summary, nil
	}
	defer s.running.Unlock()

	warehouses, err := s.warehouses.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	for i := range warehouses {
		wh := &warehouses[i]
		whLog := schedulerLog.WithFields(log.Fields{"organization_id": wh.OrganizationID, "warehouse_id": wh.ID})
		summary.Warehouses++

		initialized, err := s.pmService.InitializeDueDates(ctx, wh.OrganizationID, &wh.ID, now)
		if err != nil {
			whLog.WithError(err).Error("Ошибка инициализации сроков ТО")
			summary.Errors++
		}
		summary.Initialized += initialized

		generated, err := s.workOrders.GeneratePMWorkOrders(ctx, wh, now, s.cfg.LookaheadDays)
		if err != nil {
			whLog.WithError(err).Error("Ошибка генерации нарядов ТО")
			summary.Errors++
		} else {
			summary.WorkOrdersCreated += len(generated.Created)
		}

		notified, err := s.notifyOverdue(ctx, wh, now)
		if err != nil {
			whLog.WithError(err).Error("Ошибка уведомлений о просроченном ТО")
			summary.Errors++
		}
		summary.OverdueNotified += notified

		lowStock, err := s.warehouses.CheckLowStockLevels(ctx, wh)
		if err != nil {
			whLog.WithError(err).Error("Ошибка проверки остатков запчастей")
			summary.Errors++
		}
		summary.LowStockNotified += lowStock
	}

	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	schedulerLog.WithFields(log.Fields{
		"warehouses":          summary.Warehouses,
		"initialized":         summary.Initialized,
		"work_orders_created": summary.WorkOrdersCreated,
		"overdue_notified":    summary.OverdueNotified,
		"low_stock_notified":  summary.LowStockNotified,
		"errors":              summary.Errors,
	}).Info("Проход планировщика ТО завершен")
	return summary, nil
}

// notifyOverdue создает уведомления по просроченным графикам площадки
func (s *PMSchedulerService) notifyOverdue(ctx context.Context, wh *models.Warehouse, now time.Time) (int, error) {
	if s.notifications == nil {
		return 0, nil
	}

	report, err := s.pmService.DueReport(ctx, wh.OrganizationID, &wh.ID, now, nil)
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, item := range report.Items {
		if item.Classification != scheduler.Overdue {
			continue
		}
		pm := item.PM
		created, err := s.notifications.NotifyPMOverdue(ctx, &pm)
		if err != nil {
			return notified, err
		}
		if created {
			notified++
		}
	}
	return notified, nil
}

// ExportDueReports сохраняет отчет по срокам ТО каждой активной площадки в Excel.
// Возвращает пути созданных файлов.
func (s *PMSchedulerService) ExportDueReports(ctx context.Context) ([]string, error) {
	if s.reports == nil {
		return nil, nil
	}

	warehouses, err := s.warehouses.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	lookahead := s.cfg.LookaheadDays
	var files []string
	for i := range warehouses {
		wh := &warehouses[i]
		report, err := s.pmService.DueReport(ctx, wh.OrganizationID, &wh.ID, now, &lookahead)
		if err != nil {
			schedulerLog.WithError(err).WithField("warehouse_id", wh.ID).Error("Ошибка построения отчета по срокам ТО")
			continue
		}

		path, err := s.reports.SaveToFile(BuildDueReportData(report), ReportFormatExcel, "pm_due_"+wh.ID.String())
		if err != nil {
			schedulerLog.WithError(err).WithField("warehouse_id", wh.ID).Error("Ошибка сохранения отчета по срокам ТО")
			continue
		}
		files = append(files, path)
	}

	schedulerLog.WithField("files", len(files)).Info("Отчеты по срокам ТО выгружены")
	return files, nil
}
