package database

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DatabaseIndex представляет индекс базы данных
type DatabaseIndex struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
	Type    string // btree, gin
}

// PerformanceIndexes составные индексы под запросы планировщика и API
var PerformanceIndexes = []DatabaseIndex{
	// Отчет по срокам и выборка активных графиков площадки
	{
		Name:    "idx_pm_org_active_due",
		Table:   "preventive_maintenance",
		Columns: []string{"organization_id", "is_active", "next_due_date"},
		Type:    "btree",
	},
	{
		Name:    "idx_pm_warehouse_active",
		Table:   "preventive_maintenance",
		Columns: []string{"warehouse_id", "is_active"},
		Type:    "btree",
	},
	{
		Name:    "idx_pm_search",
		Table:   "preventive_maintenance",
		Columns: []string{"name", "description"},
		Type:    "gin",
	},

	// История выполнения
	{
		Name:    "idx_pm_completions_pm_completed",
		Table:   "pm_completions",
		Columns: []string{"pm_id", "completed_at"},
		Type:    "btree",
	},

	// Поиск открытого наряда по графику и показатели соблюдения
	{
		Name:    "idx_work_orders_pm_status",
		Table:   "work_orders",
		Columns: []string{"pm_id", "status"},
		Type:    "btree",
	},
	{
		Name:    "idx_work_orders_equipment_type",
		Table:   "work_orders",
		Columns: []string{"equipment_id", "type", "status"},
		Type:    "btree",
	},

	// Дедупликация уведомлений
	{
		Name:    "idx_notifications_pm_type_created",
		Table:   "notifications",
		Columns: []string{"pm_id", "type", "created_at"},
		Type:    "btree",
	},
	{
		Name:    "idx_notifications_org_read",
		Table:   "notifications",
		Columns: []string{"organization_id", "read"},
		Type:    "btree",
	},

	// Проверка остатков
	{
		Name:    "idx_parts_warehouse_stock",
		Table:   "parts",
		Columns: []string{"warehouse_id", "is_active", "stock_level"},
		Type:    "btree",
	},
}

// CreateIndexes создает индексы для оптимизации производительности.
// GIN индексы создаются только в PostgreSQL.
func CreateIndexes(db *gorm.DB) error {
	dialect := db.Dialector.Name()
	failed := 0

	for _, index := range PerformanceIndexes {
		if index.Type == "gin" && dialect != "postgres" {
			continue
		}
		if err := CreateIndex(db, index); err != nil {
			// Продолжаем создание других индексов даже если один упал
			log.WithError(err).WithField("index", index.Name).Warn("Не удалось создать индекс")
			failed++
			continue
		}
		log.WithField("index", index.Name).Debug("Индекс создан")
	}

	if failed > 0 {
		return fmt.Errorf("не создано индексов: %d", failed)
	}
	return nil
}

// CreateIndex создает отдельный индекс
func CreateIndex(db *gorm.DB, index DatabaseIndex) error {
	var sql string

	switch index.Type {
	case "gin":
		// Для полнотекстового поиска
		expr := make([]string, len(index.Columns))
		for i, col := range index.Columns {
			expr[i] = fmt.Sprintf("COALESCE(%s, '')", col)
		}
		sql = fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (to_tsvector('russian', %s))",
			index.Name, index.Table, strings.Join(expr, " || ' ' || "),
		)
	default:
		uniqueStr := ""
		if index.Unique {
			uniqueStr = "UNIQUE "
		}
		sql = fmt.Sprintf(
			"CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
			uniqueStr, index.Name, index.Table, strings.Join(index.Columns, ", "),
		)
	}

	return db.Exec(sql).Error
}

// DropIndex удаляет индекс
func DropIndex(db *gorm.DB, indexName string) error {
	return db.Exec(fmt.Sprintf("DROP INDEX IF EXISTS %s", indexName)).Error
}
