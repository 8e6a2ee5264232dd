package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"userdir/internal/records/models"
	"userdir/pkg/domain"
	"userdir/pkg/platform/sentinel"
	txcontext "userdir/pkg/platform/tx"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

const selectColumns = `SELECT id, email, first_name, last_name, birth_date,
	COALESCE(address, ''), COALESCE(phone_number, '') FROM user_records`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists records in PostgreSQL. Calls join the transaction
// carried by the context when there is one.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate applies the embedded schema files in name order.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *PostgresStore) db(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.pool
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.RecordID) (*models.Record, error) {
	row := s.db(ctx).QueryRow(ctx, selectColumns+` WHERE id = $1`, int64(id))
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindAll(ctx context.Context) ([]*models.Record, error) {
	return s.list(ctx, selectColumns+` ORDER BY id`)
}

func (s *PostgresStore) FindByBirthDateBetween(ctx context.Context, from, to domain.Date) ([]*models.Record, error) {
	return s.list(ctx, selectColumns+` WHERE birth_date BETWEEN $1 AND $2 ORDER BY id`, from.Time(), to.Time())
}

func (s *PostgresStore) FindByBirthDateAfter(ctx context.Context, from domain.Date) ([]*models.Record, error) {
	return s.list(ctx, selectColumns+` WHERE birth_date >= $1 ORDER BY id`, from.Time())
}

func (s *PostgresStore) FindByBirthDateBefore(ctx context.Context, to domain.Date) ([]*models.Record, error) {
	return s.list(ctx, selectColumns+` WHERE birth_date <= $1 ORDER BY id`, to.Time())
}

func (s *PostgresStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM user_records WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

// Save inserts a record with a zero id and updates an existing one
// otherwise. Email is never updated.
func (s *PostgresStore) Save(ctx context.Context, record *models.Record) (*models.Record, error) {
	if record == nil {
		return nil, fmt.Errorf("record is required")
	}
	var row pgx.Row
	if record.ID.IsZero() {
		row = s.db(ctx).QueryRow(ctx, `
			INSERT INTO user_records (email, first_name, last_name, birth_date, address, phone_number)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
			RETURNING id, email, first_name, last_name, birth_date, COALESCE(address, ''), COALESCE(phone_number, '')`,
			record.Email, record.FirstName, record.LastName, record.BirthDate.Time(), record.Address, record.PhoneNumber)
	} else {
		row = s.db(ctx).QueryRow(ctx, `
			UPDATE user_records
			SET first_name = $2, last_name = $3, birth_date = $4,
				address = NULLIF($5, ''), phone_number = NULLIF($6, '')
			WHERE id = $1
			RETURNING id, email, first_name, last_name, birth_date, COALESCE(address, ''), COALESCE(phone_number, '')`,
			int64(record.ID), record.FirstName, record.LastName, record.BirthDate.Time(), record.Address, record.PhoneNumber)
	}

	saved, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("save record: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id domain.RecordID) error {
	tag, err := s.db(ctx).Exec(ctx, `DELETE FROM user_records WHERE id = $1`, int64(id))
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Ping checks that the pool can reach the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := s.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*models.Record, error) {
	var (
		rec   models.Record
		id    int64
		birth time.Time
	)
	if err := row.Scan(&id, &rec.Email, &rec.FirstName, &rec.LastName, &birth, &rec.Address, &rec.PhoneNumber); err != nil {
		return nil, err
	}
	rec.ID = domain.RecordID(id)
	rec.BirthDate = domain.DateOf(birth)
	return &rec, nil
}
