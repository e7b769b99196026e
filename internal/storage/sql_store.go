package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const seenTable = "seen_urls"

// sqlDialect captures the few differences between the SQL backends.
type sqlDialect struct {
	name        string
	placeholder sq.PlaceholderFormat
	schema      string
}

var (
	sqliteDialect = sqlDialect{
		name:        "sqlite3",
		placeholder: sq.Question,
		schema: `CREATE TABLE IF NOT EXISTS seen_urls (
			url TEXT PRIMARY KEY,
			first_seen_at TIMESTAMP NOT NULL
		)`,
	}
	postgresDialect = sqlDialect{
		name:        "postgres",
		placeholder: sq.Dollar,
		schema: `CREATE TABLE IF NOT EXISTS seen_urls (
			url TEXT PRIMARY KEY,
			first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
)

// sqlStore implements Store on a single (url, first_seen_at) table.
type sqlStore struct {
	db      *sql.DB
	dialect sqlDialect
	now     func() time.Time
}

func openSQLite(path string) (*sqlStore, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", path)
	db, err := sql.Open(sqliteDialect.name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer keeps sqlite from returning SQLITE_BUSY under concurrent marks
	db.SetMaxOpenConns(1)
	return initSQLStore(db, sqliteDialect)
}

func openPostgres(dsn string) (*sqlStore, error) {
	db, err := sql.Open(postgresDialect.name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return initSQLStore(db, postgresDialect)
}

func initSQLStore(db *sql.DB, dialect sqlDialect) (*sqlStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.name, err)
	}
	if _, err := db.ExecContext(ctx, dialect.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create %s table: %w", seenTable, err)
	}
	return &sqlStore{db: db, dialect: dialect, now: time.Now}, nil
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlStore) SeenArticle(ctx context.Context, url string) (bool, error) {
	_, ok, err := s.FirstSeen(ctx, url)
	return ok, err
}

// MarkArticle inserts the URL, leaving an existing row untouched.
func (s *sqlStore) MarkArticle(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("url is empty")
	}

	query, args, err := sq.Insert(seenTable).
		Columns("url", "first_seen_at").
		Values(url, s.now().UTC()).
		Suffix("ON CONFLICT (url) DO NOTHING").
		PlaceholderFormat(s.dialect.placeholder).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert seen url: %w", err)
	}
	return nil
}

func (s *sqlStore) FirstSeen(ctx context.Context, url string) (time.Time, bool, error) {
	query, args, err := sq.Select("first_seen_at").
		From(seenTable).
		Where(sq.Eq{"url": url}).
		PlaceholderFormat(s.dialect.placeholder).
		ToSql()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build select: %w", err)
	}

	var ts time.Time
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&ts)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return time.Time{}, false, nil
	case err != nil:
		return time.Time{}, false, fmt.Errorf("query seen url: %w", err)
	}
	return ts.UTC(), true, nil
}

func (s *sqlStore) Count(ctx context.Context) (int, error) {
	query, args, err := sq.Select("COUNT(*)").From(seenTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count seen urls: %w", err)
	}
	return n, nil
}
