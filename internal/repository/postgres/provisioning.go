package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hoststack/hoststack/internal/domain/provisioning"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/jmoiron/sqlx"
)

type provisioningRepository struct {
	client postgres.IClient
	db     *postgres.DB
	logger *logger.Logger

	// lockConns holds the dedicated connection backing each held advisory
	// lock; session locks must be released on the connection that took them.
	mu        sync.Mutex
	lockConns map[string]*sqlx.Conn
}

func NewProvisioningRepository(client postgres.IClient, db *postgres.DB, logger *logger.Logger) provisioning.Repository {
	return &provisioningRepository{
		client:    client,
		db:        db,
		logger:    logger,
		lockConns: make(map[string]*sqlx.Conn),
	}
}

// stepRecordRow maps the provisioning_step_records table; result is jsonb
type stepRecordRow struct {
	ID             string               `db:"id"`
	TaskID         string               `db:"task_id"`
	StepKind       types.StepKind       `db:"step_kind"`
	RecordKind     types.StepRecordKind `db:"record_kind"`
	StepStatus     types.StepStatus     `db:"step_status"`
	Sequence       int                  `db:"sequence"`
	StartedAt      time.Time            `db:"started_at"`
	FinishedAt     *time.Time           `db:"finished_at"`
	Result         []byte               `db:"result"`
	ErrorCode      string               `db:"error_code"`
	ErrorMessage   string               `db:"error_message"`
	IdempotencyKey string               `db:"idempotency_key"`
	TenantID       string               `db:"tenant_id"`
}

func toStepRecordRow(tenantID string, rec *provisioning.StepRecord) (*stepRecordRow, error) {
	var result []byte
	if rec.Result != nil {
		var err error
		result, err = json.Marshal(rec.Result)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to encode step result").
				Mark(ierr.ErrValidation)
		}
	}
	return &stepRecordRow{
		ID:             rec.ID,
		TaskID:         rec.TaskID,
		StepKind:       rec.StepKind,
		RecordKind:     rec.RecordKind,
		StepStatus:     rec.StepStatus,
		Sequence:       rec.Sequence,
		StartedAt:      rec.StartedAt,
		FinishedAt:     rec.FinishedAt,
		Result:         result,
		ErrorCode:      rec.ErrorCode,
		ErrorMessage:   rec.ErrorMessage,
		IdempotencyKey: rec.IdempotencyKey,
		TenantID:       tenantID,
	}, nil
}

func (row *stepRecordRow) toDomain() (*provisioning.StepRecord, error) {
	rec := &provisioning.StepRecord{
		ID:             row.ID,
		TaskID:         row.TaskID,
		StepKind:       row.StepKind,
		RecordKind:     row.RecordKind,
		StepStatus:     row.StepStatus,
		Sequence:       row.Sequence,
		StartedAt:      row.StartedAt,
		FinishedAt:     row.FinishedAt,
		ErrorCode:      row.ErrorCode,
		ErrorMessage:   row.ErrorMessage,
		IdempotencyKey: row.IdempotencyKey,
	}
	if len(row.Result) > 0 {
		if err := json.Unmarshal(row.Result, &rec.Result); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to decode step result").
				Mark(ierr.ErrDatabase)
		}
	}
	return rec, nil
}

func (r *provisioningRepository) Create(ctx context.Context, task *provisioning.Task) error {
	query := `
		INSERT INTO provisioning_tasks (
			id, subscription_id, server_id, task_status, attempt_count, max_attempts,
			started_at, finished_at, last_error,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :subscription_id, :server_id, :task_status, :attempt_count, :max_attempts,
			:started_at, :finished_at, :last_error,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, task)
	return wrapErr(err, "Failed to create provisioning task")
}

func (r *provisioningRepository) Get(ctx context.Context, id string) (*provisioning.Task, error) {
	var task provisioning.Task
	query := `SELECT * FROM provisioning_tasks WHERE id = $1 AND tenant_id = $2`
	if err := r.client.GetQuerier(ctx).GetContext(ctx, &task, query, id, types.GetTenantID(ctx)); err != nil {
		return nil, wrapErr(err, "Provisioning task not found")
	}

	if err := r.loadStepLog(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *provisioningRepository) loadStepLog(ctx context.Context, task *provisioning.Task) error {
	var rows []*stepRecordRow
	query := `
		SELECT * FROM provisioning_step_records
		WHERE task_id = $1 AND tenant_id = $2
		ORDER BY sequence ASC`
	err := r.client.GetQuerier(ctx).SelectContext(ctx, &rows, query, task.ID, types.GetTenantID(ctx))
	if err != nil {
		return wrapErr(err, "Failed to load step log")
	}

	task.StepLog = make([]*provisioning.StepRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return err
		}
		task.StepLog = append(task.StepLog, rec)
	}
	return nil
}

func (r *provisioningRepository) List(ctx context.Context, filter *types.ProvisioningTaskFilter) ([]*provisioning.Task, error) {
	where, args := r.buildWhere(ctx, filter)

	query := fmt.Sprintf(`SELECT * FROM provisioning_tasks WHERE %s ORDER BY created_at DESC`, where)
	if filter != nil && !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	var tasks []*provisioning.Task
	if err := r.client.GetQuerier(ctx).SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, wrapErr(err, "Failed to list provisioning tasks")
	}
	return tasks, nil
}

func (r *provisioningRepository) Count(ctx context.Context, filter *types.ProvisioningTaskFilter) (int, error) {
	where, args := r.buildWhere(ctx, filter)

	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM provisioning_tasks WHERE %s`, where)
	if err := r.client.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, wrapErr(err, "Failed to count provisioning tasks")
	}
	return count, nil
}

func (r *provisioningRepository) Update(ctx context.Context, task *provisioning.Task) error {
	query := `
		UPDATE provisioning_tasks SET
			server_id = :server_id,
			task_status = :task_status,
			attempt_count = :attempt_count,
			started_at = :started_at,
			finished_at = :finished_at,
			last_error = :last_error,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, task)
	return wrapErr(err, "Failed to update provisioning task")
}

func (r *provisioningRepository) GetRunningBySubscription(ctx context.Context, subscriptionID string) (*provisioning.Task, error) {
	var task provisioning.Task
	query := `
		SELECT * FROM provisioning_tasks
		WHERE subscription_id = $1 AND task_status = $2 AND tenant_id = $3
		ORDER BY created_at DESC
		LIMIT 1`
	err := r.client.GetQuerier(ctx).GetContext(ctx, &task, query,
		subscriptionID, types.ProvisioningTaskStatusRunning, types.GetTenantID(ctx))
	if err != nil {
		return nil, wrapErr(err, "No running task for subscription")
	}

	if err := r.loadStepLog(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *provisioningRepository) AppendStepRecord(ctx context.Context, rec *provisioning.StepRecord) error {
	row, err := toStepRecordRow(types.GetTenantID(ctx), rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO provisioning_step_records (
			id, task_id, step_kind, record_kind, step_status, sequence,
			started_at, finished_at, result, error_code, error_message,
			idempotency_key, tenant_id
		) VALUES (
			:id, :task_id, :step_kind, :record_kind, :step_status, :sequence,
			:started_at, :finished_at, :result, :error_code, :error_message,
			:idempotency_key, :tenant_id
		)`

	_, err = r.client.GetQuerier(ctx).NamedExec(query, row)
	return wrapErr(err, "Failed to append step record")
}

func (r *provisioningRepository) UpdateStepRecord(ctx context.Context, rec *provisioning.StepRecord) error {
	row, err := toStepRecordRow(types.GetTenantID(ctx), rec)
	if err != nil {
		return err
	}

	// Only finalisation fields change; identity fields of an appended record
	// are immutable.
	query := `
		UPDATE provisioning_step_records SET
			step_status = :step_status,
			finished_at = :finished_at,
			result = :result,
			error_code = :error_code,
			error_message = :error_message
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err = r.client.GetQuerier(ctx).NamedExec(query, row)
	return wrapErr(err, "Failed to update step record")
}

// AcquireSubscriptionLock takes a postgres session advisory lock keyed on the
// (tenant, subscription) pair. A dedicated connection backs the lock so the
// release is guaranteed to run on the session that holds it.
func (r *provisioningRepository) AcquireSubscriptionLock(ctx context.Context, subscriptionID string) (bool, error) {
	key := types.GetTenantID(ctx) + ":" + subscriptionID

	conn, err := r.db.Connx(ctx)
	if err != nil {
		return false, wrapErr(err, "Failed to open lock connection")
	}

	var acquired bool
	err = conn.GetContext(ctx, &acquired, `SELECT pg_try_advisory_lock(hashtextextended($1, 0))`, key)
	if err != nil {
		conn.Close()
		return false, wrapErr(err, "Failed to acquire subscription lock")
	}
	if !acquired {
		conn.Close()
		return false, nil
	}

	r.mu.Lock()
	r.lockConns[key] = conn
	r.mu.Unlock()
	return true, nil
}

func (r *provisioningRepository) ReleaseSubscriptionLock(ctx context.Context, subscriptionID string) error {
	key := types.GetTenantID(ctx) + ":" + subscriptionID

	r.mu.Lock()
	conn, ok := r.lockConns[key]
	delete(r.lockConns, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	defer conn.Close()

	var released bool
	if err := conn.GetContext(ctx, &released, `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, key); err != nil {
		return wrapErr(err, "Failed to release subscription lock")
	}
	return nil
}

func (r *provisioningRepository) buildWhere(ctx context.Context, filter *types.ProvisioningTaskFilter) (string, []interface{}) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{types.GetTenantID(ctx)}

	if filter == nil {
		return strings.Join(conditions, " AND "), args
	}
	if filter.TaskStatus != nil {
		args = append(args, *filter.TaskStatus)
		conditions = append(conditions, fmt.Sprintf("task_status = $%d", len(args)))
	}
	if filter.SubscriptionID != nil {
		args = append(args, *filter.SubscriptionID)
		conditions = append(conditions, fmt.Sprintf("subscription_id = $%d", len(args)))
	}
	if filter.CreatedAfter != nil {
		args = append(args, *filter.CreatedAfter)
		conditions = append(conditions, fmt.Sprintf("created_at > $%d", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}
