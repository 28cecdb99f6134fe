// Package storage keeps one record per run of a grid in a sqlite table.
package storage

import (
	"context"
	"database/sql"
	"os"
	"regexp"
	"sync"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// StatusNotComputed is the status of a run that has never been started.
const StatusNotComputed = "not computed"

var (
	ErrInvalidTable  = errors.New("storage: invalid table name")
	ErrNotFound      = errors.New("storage: record not found")
	ErrDuplicateName = errors.New("storage: model name already used by another run")
)

var tableRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Record is one row of the run table.
type Record struct {
	ID                int    `db:"id" json:"id"`
	ModelName         string `db:"model_name" json:"model_name"`
	TemplateDirectory string `db:"template_directory" json:"template_directory"`
	RunsDirectory     string `db:"runs_directory" json:"runs_directory"`
	JobID             int    `db:"job_id" json:"job_id"`
	Status            string `db:"status" json:"status"`
}

type Store struct {
	path  string
	table string
	db    *sql.DB
	goqu  *goqu.Database
	log   *log.Entry
	lock  sync.RWMutex
}

// Open opens (creating if needed) the database at path. The table is not
// created until Init is called.
func Open(path, table string, logger *log.Entry) (*Store, error) {
	if !tableRe.MatchString(table) {
		return nil, errors.Wrapf(ErrInvalidTable, "%q", table)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening sqlite database %s", path)
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Store{
		path:  path,
		table: table,
		db:    db,
		goqu:  goqu.New("sqlite3", db),
		log:   logger.WithField("table", table),
	}, nil
}

// Remove deletes the database file. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing database %s", path)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// Init creates the run table and its unique model_name index if absent.
func (s *Store) Init(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS "` + s.table + `" (
			id INTEGER PRIMARY KEY,
			model_name TEXT NOT NULL UNIQUE,
			template_directory TEXT NOT NULL,
			runs_directory TEXT NOT NULL,
			job_id INTEGER NOT NULL,
			status TEXT NOT NULL)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS "idx_` + s.table + `_model_name" ON "` + s.table + `" (model_name)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "creating table %s", s.table)
		}
	}
	s.log.Debug("table ready")
	return nil
}

// Drop removes the run table if it exists.
func (s *Store) Drop(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS "`+s.table+`"`); err != nil {
		return errors.Wrapf(err, "dropping table %s", s.table)
	}
	s.log.Info("table dropped")
	return nil
}

func (s *Store) Exists(ctx context.Context, id int) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.exists(ctx, id)
}

func (s *Store) exists(ctx context.Context, id int) (bool, error) {
	n, err := s.goqu.From(s.table).Where(goqu.C("id").Eq(id)).CountContext(ctx)
	if err != nil {
		return false, errors.Wrapf(err, "looking up run %d", id)
	}
	return n > 0, nil
}

// Insert adds r unless a record with the same id is already stored. It
// reports whether a row was written. A name held by another id is rejected
// with ErrDuplicateName.
func (s *Store) Insert(ctx context.Context, r Record) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	found, err := s.exists(ctx, r.ID)
	if err != nil {
		return false, err
	}
	if found {
		s.log.WithField("run", r.ModelName).Debug("record exists, skipping")
		return false, nil
	}
	taken, err := s.goqu.From(s.table).Where(goqu.C("model_name").Eq(r.ModelName)).CountContext(ctx)
	if err != nil {
		return false, errors.Wrapf(err, "looking up %s", r.ModelName)
	}
	if taken > 0 {
		return false, errors.Wrapf(ErrDuplicateName, "run %d: %q", r.ID, r.ModelName)
	}
	if r.Status == "" {
		r.Status = StatusNotComputed
	}
	if _, err := s.goqu.Insert(s.table).Rows(r).Executor().ExecContext(ctx); err != nil {
		return false, errors.Wrapf(err, "inserting run %d", r.ID)
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, id int) (Record, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var r Record
	found, err := s.goqu.From(s.table).Where(goqu.C("id").Eq(id)).ScanStructContext(ctx, &r)
	if err != nil {
		return Record{}, errors.Wrapf(err, "reading run %d", id)
	}
	if !found {
		return Record{}, errors.Wrapf(ErrNotFound, "run %d", id)
	}
	return r, nil
}

// List returns every record ordered by id.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var out []Record
	if err := s.goqu.From(s.table).Order(goqu.C("id").Asc()).ScanStructsContext(ctx, &out); err != nil {
		return nil, errors.Wrapf(err, "listing table %s", s.table)
	}
	return out, nil
}

// UpdateStatus sets the status of the run called name.
func (s *Store) UpdateStatus(ctx context.Context, name, status string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	res, err := s.goqu.Update(s.table).
		Set(goqu.Record{"status": status}).
		Where(goqu.C("model_name").Eq(name)).
		Executor().ExecContext(ctx)
	if err != nil {
		return errors.Wrapf(err, "updating run %s", name)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(ErrNotFound, "run %s", name)
	}
	return nil
}

// IDByName returns the id of the run called name.
func (s *Store) IDByName(ctx context.Context, name string) (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var id int
	found, err := s.goqu.From(s.table).Select("id").Where(goqu.C("model_name").Eq(name)).ScanValContext(ctx, &id)
	if err != nil {
		return 0, errors.Wrapf(err, "looking up run %s", name)
	}
	if !found {
		return 0, errors.Wrapf(ErrNotFound, "run %s", name)
	}
	return id, nil
}
