package core

// store.go persists engineers and import batches in PostgreSQL.
//
// Each submitted file becomes one row in import_batches plus its engineers,
// written in a single transaction so a batch is either fully stored or not
// at all. Engineers are loaded with the COPY protocol.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrBatchNotFound is returned when a batch ID does not exist.
var ErrBatchNotFound = errors.New("import batch not found")

// Store is the persistence used by Service.
type Store interface {
	InsertBatch(ctx context.Context, batch Batch, engineers []Engineer) error
	ListEngineers(ctx context.Context, f EngineerFilter) ([]Engineer, error)
	ListBatches(ctx context.Context, limit int) ([]Batch, error)
	DeleteBatch(ctx context.Context, batchID string) (int64, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS import_batches (
	id          uuid PRIMARY KEY,
	file_name   text NOT NULL,
	row_count   integer NOT NULL,
	ip_address  text NOT NULL DEFAULT '',
	user_agent  text NOT NULL DEFAULT '',
	imported_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS engineers (
	id              bigserial PRIMARY KEY,
	name            text NOT NULL,
	email           text NOT NULL,
	position        text NOT NULL DEFAULT '',
	project_name    text NOT NULL,
	planner         text NOT NULL,
	skills          text[] NOT NULL DEFAULT '{}',
	engineer_status text NOT NULL DEFAULT '',
	phase           text[] NOT NULL DEFAULT '{}',
	batch_id        uuid REFERENCES import_batches(id) ON DELETE CASCADE,
	source_line     integer NOT NULL DEFAULT 0,
	created_at      timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS engineers_batch_id_idx ON engineers (batch_id);
CREATE INDEX IF NOT EXISTS engineers_status_idx ON engineers (engineer_status);
`

// engineerCopyColumns lists columns in the order copyRow returns values.
var engineerCopyColumns = []string{
	"name", "email", "position", "project_name", "planner",
	"skills", "engineer_status", "phase", "batch_id", "source_line",
}

func copyRow(e Engineer, batchID pgtype.UUID) []any {
	return []any{
		e.Name, e.Email, e.Position, e.ProjectName, e.Planner,
		nonNil(e.Skills), e.Status, nonNil(e.Phases), batchID, int32(e.Line),
	}
}

// PgStore implements Store on a pgx connection pool.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a store on pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureSchema creates the tables if they do not exist.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertBatch stores batch and its engineers atomically.
func (s *PgStore) InsertBatch(ctx context.Context, batch Batch, engineers []Engineer) error {
	id := toPgUUID(batch.ID)
	if !id.Valid {
		return fmt.Errorf("invalid batch id %q", batch.ID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO import_batches (id, file_name, row_count, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, batch.FileName, batch.RowCount, batch.IPAddress, batch.UserAgent)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	rows := make([][]any, len(engineers))
	for i, e := range engineers {
		rows[i] = copyRow(e, id)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"engineers"}, engineerCopyColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy engineers: %w", err)
	}
	if int(n) != len(engineers) {
		return fmt.Errorf("copy engineers: wrote %d of %d rows", n, len(engineers))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListEngineers returns engineers matching f, newest first.
func (s *PgStore) ListEngineers(ctx context.Context, f EngineerFilter) ([]Engineer, error) {
	wb := newWhereBuilder()
	if f.Status != "" {
		wb.add("engineer_status = %s", NormalizeStatus(f.Status))
	}
	if f.Skill != "" {
		wb.add("EXISTS (SELECT 1 FROM unnest(skills) s WHERE lower(s) = lower(%s))", f.Skill)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		wb.add("(name ILIKE %[1]s OR email ILIKE %[1]s OR project_name ILIKE %[1]s OR planner ILIKE %[1]s)",
			"%"+escapeLike(q)+"%")
	}
	where, args := wb.build()

	limit := f.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT id, name, email, position, project_name, planner, skills,
		engineer_status, phase, batch_id, source_line, created_at
		FROM engineers` + where + fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d", limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query engineers: %w", err)
	}
	defer rows.Close()

	var out []Engineer
	for rows.Next() {
		var (
			e       Engineer
			batchID pgtype.UUID
			line    int32
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Position, &e.ProjectName, &e.Planner,
			&e.Skills, &e.Status, &e.Phases, &batchID, &line, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan engineer: %w", err)
		}
		e.BatchID = pgUUIDString(batchID)
		e.Line = int(line)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate engineers: %w", err)
	}
	return out, nil
}

// ListBatches returns the most recent import batches.
func (s *PgStore) ListBatches(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, file_name, row_count, ip_address, user_agent, imported_at
		 FROM import_batches ORDER BY imported_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}

	batches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Batch, error) {
		var (
			b     Batch
			id    pgtype.UUID
			count int32
		)
		err := row.Scan(&id, &b.FileName, &count, &b.IPAddress, &b.UserAgent, &b.ImportedAt)
		b.ID = pgUUIDString(id)
		b.RowCount = int(count)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect batches: %w", err)
	}
	return batches, nil
}

// DeleteBatch removes a batch and its engineers.
// Returns the number of engineers removed.
func (s *PgStore) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	id := toPgUUID(batchID)
	if !id.Valid {
		return 0, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM engineers WHERE batch_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete engineers: %w", err)
	}

	batchTag, err := tx.Exec(ctx, `DELETE FROM import_batches WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete batch: %w", err)
	}
	if batchTag.RowsAffected() == 0 {
		return 0, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return tag.RowsAffected(), nil
}

const maxListLimit = 1000

// whereBuilder accumulates AND-ed conditions with numbered placeholders.
// Each condition is a format string whose %s verbs receive the placeholder.
type whereBuilder struct {
	conditions []string
	args       []any
}

func newWhereBuilder() *whereBuilder {
	return &whereBuilder{}
}

func (wb *whereBuilder) add(cond string, arg any) {
	wb.args = append(wb.args, arg)
	wb.conditions = append(wb.conditions, fmt.Sprintf(cond, fmt.Sprintf("$%d", len(wb.args))))
}

func (wb *whereBuilder) build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
