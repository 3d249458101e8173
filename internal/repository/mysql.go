package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/config"
	"github.com/flybeeper/ais-dashboard/internal/metrics"
	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
	_ "github.com/go-sql-driver/mysql"
)

const buoysSchema = `
	CREATE TABLE IF NOT EXISTS buoys (
		id         VARCHAR(64)  NOT NULL PRIMARY KEY,
		name       VARCHAR(255) NOT NULL DEFAULT '',
		area       VARCHAR(255) NOT NULL DEFAULT '',
		lat        VARCHAR(32)  NOT NULL DEFAULT '',
		lng        VARCHAR(32)  NOT NULL DEFAULT '',
		position   INT          NOT NULL DEFAULT 0,
		updated_at DATETIME     NOT NULL
	)`

// MySQLRepository каталог буев в MySQL (fallback при недоступности AIS бэкенда)
type MySQLRepository struct {
	db     *sql.DB
	logger *utils.Logger
	now    func() time.Time
}

// NewMySQLRepository создает новый MySQL репозиторий
func NewMySQLRepository(cfg *config.MySQLConfig, logger *utils.Logger) (*MySQLRepository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mysql config cannot be nil")
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("mysql DSN is required")
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	// Настройки connection pool
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	return NewMySQLRepositoryWithDB(db, logger)
}

// NewMySQLRepositoryWithDB оборачивает уже открытое соединение
func NewMySQLRepositoryWithDB(db *sql.DB, logger *utils.Logger) (*MySQLRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &MySQLRepository{db: db, logger: logger, now: time.Now}, nil
}

// Ping проверяет соединение с MySQL
func (r *MySQLRepository) Ping(ctx context.Context) error {
	err := r.db.PingContext(ctx)
	metrics.SetConnectionStatus(metrics.MySQLConnectionStatus, err == nil)
	return err
}

// Close закрывает соединение с MySQL
func (r *MySQLRepository) Close() error {
	return r.db.Close()
}

// EnsureSchema создает таблицу каталога, если ее нет
func (r *MySQLRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, buoysSchema); err != nil {
		return fmt.Errorf("failed to create buoys table: %w", err)
	}
	return nil
}

// SaveBuoys сохраняет каталог буев одним batch upsert, сохраняя порядок бэкенда
func (r *MySQLRepository) SaveBuoys(ctx context.Context, buoys []models.Buoy) error {
	if len(buoys) == 0 {
		return nil
	}
	start := time.Now()

	// Начинаем транзакцию
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin buoys transaction: %w", err)
	}
	defer tx.Rollback()

	updatedAt := r.now().UTC()
	args := make([]interface{}, 0, len(buoys)*7)
	for i, b := range buoys {
		args = append(args, b.ID, b.Name, b.Area, b.Lat, b.Lng, i, updatedAt)
	}

	query := `
		INSERT INTO buoys (id, name, area, lat, lng, position, updated_at)
		VALUES ` + r.generatePlaceholders(len(buoys), 7) + `
		ON DUPLICATE KEY UPDATE
			name = VALUES(name), area = VALUES(area), lat = VALUES(lat),
			lng = VALUES(lng), position = VALUES(position), updated_at = VALUES(updated_at)`

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		metrics.MySQLWriteErrors.WithLabelValues("save_buoys").Inc()
		return fmt.Errorf("failed to upsert buoys: %w", err)
	}

	// Буи, исчезнувшие из ответа бэкенда, удаляются
	if _, err := tx.ExecContext(ctx, `DELETE FROM buoys WHERE updated_at < ?`, updatedAt); err != nil {
		metrics.MySQLWriteErrors.WithLabelValues("save_buoys").Inc()
		return fmt.Errorf("failed to prune buoys: %w", err)
	}

	// Коммитим транзакцию
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit buoys transaction: %w", err)
	}

	metrics.MySQLOperationDuration.WithLabelValues("save_buoys").Observe(time.Since(start).Seconds())
	r.logger.WithField("count", len(buoys)).Debug("Saved buoy catalogue to MySQL")
	return nil
}

// LoadBuoys загружает каталог в порядке последнего ответа бэкенда
func (r *MySQLRepository) LoadBuoys(ctx context.Context) ([]models.Buoy, error) {
	start := time.Now()

	rows, err := r.db.QueryContext(ctx, `SELECT id, name, area, lat, lng FROM buoys ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query buoys: %w", err)
	}
	defer rows.Close()

	buoys := make([]models.Buoy, 0)
	for rows.Next() {
		var b models.Buoy
		if err := rows.Scan(&b.ID, &b.Name, &b.Area, &b.Lat, &b.Lng); err != nil {
			r.logger.WithField("error", err).Warn("Failed to scan buoy row")
			continue
		}
		buoys = append(buoys, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buoy rows: %w", err)
	}

	metrics.MySQLOperationDuration.WithLabelValues("load_buoys").Observe(time.Since(start).Seconds())
	if len(buoys) == 0 {
		return nil, fmt.Errorf("buoy catalogue: %w", ErrNotFound)
	}
	return buoys, nil
}

// generatePlaceholders генерирует плейсхолдеры для batch INSERT
func (r *MySQLRepository) generatePlaceholders(count, fieldsPerRecord int) string {
	if count == 0 {
		return ""
	}

	// Генерируем один набор плейсхолдеров (?,?,?...)
	singleRecord := "(" + strings.Repeat("?,", fieldsPerRecord-1) + "?)"

	// Повторяем для всех записей
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = singleRecord
	}

	return strings.Join(placeholders, ",")
}
