// internal/repository/command_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"robot-service/internal/database"
	"robot-service/internal/model"
)

const commandColumns = `id, operation_type, command, motor_id, status, error_message,
	result, request_id, started_at, duration_ms, created_at`

// commandRepository implements CommandRepository on PostgreSQL
type commandRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewCommandRepository creates a PostgreSQL-backed journal
func NewCommandRepository(db *database.DB, logger *zap.Logger) CommandRepository {
	return &commandRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a journal entry
func (r *commandRepository) Create(ctx context.Context, record *model.CommandRecord) error {
	query := `
		INSERT INTO command_journal (
			id, operation_type, command, motor_id, status, error_message,
			result, request_id, started_at, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.OperationType, record.Command, record.MotorID,
		record.Status, record.ErrorMessage, record.Result, record.RequestID,
		record.StartedAt, record.DurationMs, record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create journal entry", zap.Error(err))
		return fmt.Errorf("failed to create journal entry: %w", err)
	}

	return nil
}

// GetByID retrieves a journal entry
func (r *commandRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.CommandRecord, error) {
	query := `SELECT ` + commandColumns + ` FROM command_journal WHERE id = $1`

	record, err := scanCommand(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: journal entry %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}

	return record, nil
}

// buildWhere renders filter conditions with positional arguments
func buildWhere(filter *CommandFilter) (string, []interface{}) {
	conditions := []string{}
	args := []interface{}{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s $%d", column, len(args)))
	}

	if filter.MotorID != nil {
		add("motor_id =", *filter.MotorID)
	}
	if filter.OperationType != nil {
		add("operation_type =", *filter.OperationType)
	}
	if filter.Status != nil {
		add("status =", *filter.Status)
	}
	if filter.Since != nil {
		add("created_at >=", *filter.Since)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// List retrieves journal entries newest first
func (r *commandRepository) List(ctx context.Context, filter *CommandFilter) ([]*model.CommandRecord, int, error) {
	filter.Normalize()
	whereClause, args := buildWhere(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM command_journal " + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count journal entries: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM command_journal %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		commandColumns, whereClause, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	records := []*model.CommandRecord{}
	for rows.Next() {
		record, err := scanCommand(rows)
		if err != nil {
			r.logger.Error("Failed to scan journal row", zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate journal entries: %w", err)
	}

	return records, total, nil
}

// GetStats aggregates the journal, optionally since a point in time
func (r *commandRepository) GetStats(ctx context.Context, since *time.Time) (*CommandStats, error) {
	whereClause, args := buildWhere(&CommandFilter{Since: since})

	query := fmt.Sprintf(`
		SELECT operation_type, status, COUNT(*), COALESCE(SUM(duration_ms), 0)
		FROM command_journal %s
		GROUP BY operation_type, status
	`, whereClause)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal stats: %w", err)
	}
	defer rows.Close()

	stats := newCommandStats()
	var totalMs int64
	for rows.Next() {
		var (
			opType model.OperationType
			status model.CommandStatus
			count  int
			sumMs  int64
		)
		if err := rows.Scan(&opType, &status, &count, &sumMs); err != nil {
			return nil, fmt.Errorf("failed to scan journal stats: %w", err)
		}
		stats.Total += count
		stats.ByType[opType] += count
		stats.ByStatus[status] += count
		totalMs += sumMs
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal stats: %w", err)
	}

	stats.Successful = stats.ByStatus[model.CommandStatusSuccess]
	stats.Failed = stats.Total - stats.Successful
	if stats.Total > 0 {
		stats.AvgDuration = time.Duration(totalMs/int64(stats.Total)) * time.Millisecond
	}

	return stats, nil
}

// DeleteOlderThan removes entries created before olderThan
func (r *commandRepository) DeleteOlderThan(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM command_journal WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old journal entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Info("Old journal entries deleted", zap.Int64("deleted_count", deleted))
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCommand(row rowScanner) (*model.CommandRecord, error) {
	record := &model.CommandRecord{}
	var motorID sql.NullInt64
	var errorMessage sql.NullString

	err := row.Scan(
		&record.ID, &record.OperationType, &record.Command, &motorID,
		&record.Status, &errorMessage, &record.Result, &record.RequestID,
		&record.StartedAt, &record.DurationMs, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if motorID.Valid {
		id := int(motorID.Int64)
		record.MotorID = &id
	}
	if errorMessage.Valid {
		record.ErrorMessage = &errorMessage.String
	}
	return record, nil
}
