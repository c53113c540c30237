// Package sqlite provides a source of record backed by an SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/sha1n/cms-indexer/internal/domain"
	"github.com/sha1n/cms-indexer/internal/source"
	"github.com/sha1n/cms-indexer/internal/source/sqlite/migrations"
)

// Store reads types, taxonomies, records and files from SQLite.
// Records page in insertion order.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and applies pending migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Import writes every fixture in one transaction.
func (s *Store) Import(ctx context.Context, fixtures *source.Fixtures) error {
	files, err := fixtures.LoadFiles()
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, kind := range domain.ScopeAll.ObjectTypes() {
		for _, def := range fixtures.Types(kind) {
			if err := saveType(ctx, tx, kind, def); err != nil {
				return err
			}
		}
		for _, rec := range fixtures.Records(kind) {
			if err := saveRecord(ctx, tx, kind, rec); err != nil {
				return err
			}
		}
	}
	for _, v := range fixtures.Vocabularies {
		if err := saveVocabulary(ctx, tx, v); err != nil {
			return err
		}
	}
	for _, term := range fixtures.Terms {
		if err := saveTerm(ctx, tx, term); err != nil {
			return err
		}
	}
	for _, f := range files {
		if err := saveFile(ctx, tx, f); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}

// SaveType stores or updates a type definition.
func (s *Store) SaveType(ctx context.Context, kind domain.ObjectType, def domain.TypeDefinition) error {
	return saveType(ctx, s.db, kind, def)
}

// SaveVocabulary stores or updates a vocabulary.
func (s *Store) SaveVocabulary(ctx context.Context, v domain.Vocabulary) error {
	return saveVocabulary(ctx, s.db, v)
}

// SaveTerm stores or updates a taxonomy term.
func (s *Store) SaveTerm(ctx context.Context, term domain.TaxonomyTerm) error {
	return saveTerm(ctx, s.db, term)
}

// SaveRecord stores or updates a record. Updates keep the record's position.
func (s *Store) SaveRecord(ctx context.Context, kind domain.ObjectType, rec domain.SourceRecord) error {
	return saveRecord(ctx, s.db, kind, rec)
}

// SaveFile stores or updates a file.
func (s *Store) SaveFile(ctx context.Context, f domain.File) error {
	return saveFile(ctx, s.db, f)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveType(ctx context.Context, db execer, kind domain.ObjectType, def domain.TypeDefinition) error {
	body, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshalling type %s: %w", def.ID, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO types (kind, id, name, system, definition) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET
			name = excluded.name,
			system = excluded.system,
			definition = excluded.definition
	`, string(kind), def.ID, def.Name, def.System, string(body))
	if err != nil {
		return fmt.Errorf("saving type %s: %w", def.ID, err)
	}
	return nil
}

func saveVocabulary(ctx context.Context, db execer, v domain.Vocabulary) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO vocabularies (id, name) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name
	`, v.ID, v.Name)
	if err != nil {
		return fmt.Errorf("saving vocabulary %s: %w", v.ID, err)
	}
	return nil
}

func saveTerm(ctx context.Context, db execer, term domain.TaxonomyTerm) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO terms (id, vocabulary_id, parent_id, text) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			vocabulary_id = excluded.vocabulary_id,
			parent_id = excluded.parent_id,
			text = excluded.text
	`, term.ID, term.VocabularyID, term.ParentID, term.Text)
	if err != nil {
		return fmt.Errorf("saving term %s: %w", term.ID, err)
	}
	return nil
}

func saveRecord(ctx context.Context, db execer, kind domain.ObjectType, rec domain.SourceRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshalling record %s: %w", rec.ID, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO records (kind, type_id, id, body) VALUES (?, ?, ?, ?)
		ON CONFLICT (kind, id) DO UPDATE SET
			type_id = excluded.type_id,
			body = excluded.body
	`, string(kind), rec.TypeID, rec.ID, string(body))
	if err != nil {
		return fmt.Errorf("saving record %s: %w", rec.ID, err)
	}
	return nil
}

func saveFile(ctx context.Context, db execer, f domain.File) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO files (id, name, mime_type, data) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			mime_type = excluded.mime_type,
			data = excluded.data
	`, f.ID, f.Name, f.MIMEType, f.Data)
	if err != nil {
		return fmt.Errorf("saving file %s: %w", f.ID, err)
	}
	return nil
}

// FindType returns a type definition or domain.ErrNotFound.
func (s *Store) FindType(ctx context.Context, kind domain.ObjectType, id string) (domain.TypeDefinition, error) {
	var body string
	err := s.db.QueryRowContext(ctx, "SELECT definition FROM types WHERE kind = ? AND id = ?", string(kind), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TypeDefinition{}, fmt.Errorf("%w: %s type %s", domain.ErrNotFound, kind, id)
	}
	if err != nil {
		return domain.TypeDefinition{}, fmt.Errorf("querying type %s: %w", id, err)
	}
	return decodeType(body)
}

// ListTypes returns every type definition of an object type, ordered by id.
func (s *Store) ListTypes(ctx context.Context, kind domain.ObjectType) ([]domain.TypeDefinition, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT definition FROM types WHERE kind = ? ORDER BY id", string(kind))
	if err != nil {
		return nil, fmt.Errorf("querying types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var defs []domain.TypeDefinition
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning type: %w", err)
		}
		def, err := decodeType(body)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func decodeType(body string) (domain.TypeDefinition, error) {
	var def domain.TypeDefinition
	if err := json.Unmarshal([]byte(body), &def); err != nil {
		return domain.TypeDefinition{}, fmt.Errorf("unmarshalling type: %w", err)
	}
	return def, nil
}

// FindVocabulary returns a vocabulary or domain.ErrNotFound.
func (s *Store) FindVocabulary(ctx context.Context, id string) (domain.Vocabulary, error) {
	v := domain.Vocabulary{ID: id}
	err := s.db.QueryRowContext(ctx, "SELECT name FROM vocabularies WHERE id = ?", id).Scan(&v.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Vocabulary{}, fmt.Errorf("%w: vocabulary %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.Vocabulary{}, fmt.Errorf("querying vocabulary %s: %w", id, err)
	}
	return v, nil
}

// FindTerm returns a taxonomy term or domain.ErrNotFound.
func (s *Store) FindTerm(ctx context.Context, id string) (domain.TaxonomyTerm, error) {
	term := domain.TaxonomyTerm{ID: id}
	err := s.db.QueryRowContext(ctx,
		"SELECT vocabulary_id, parent_id, text FROM terms WHERE id = ?", id,
	).Scan(&term.VocabularyID, &term.ParentID, &term.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TaxonomyTerm{}, fmt.Errorf("%w: term %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.TaxonomyTerm{}, fmt.Errorf("querying term %s: %w", id, err)
	}
	return term, nil
}

// GetByType returns every record of a type.
func (s *Store) GetByType(ctx context.Context, kind domain.ObjectType, typeID string) ([]domain.SourceRecord, error) {
	return s.queryRecords(ctx,
		"SELECT body FROM records WHERE kind = ? AND type_id = ? ORDER BY rowid",
		string(kind), typeID)
}

// GetPageByType returns up to limit records of a type starting at offset.
func (s *Store) GetPageByType(ctx context.Context, kind domain.ObjectType, typeID string, offset, limit int) ([]domain.SourceRecord, error) {
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("invalid page offset=%d limit=%d", offset, limit)
	}
	return s.queryRecords(ctx,
		"SELECT body FROM records WHERE kind = ? AND type_id = ? ORDER BY rowid LIMIT ? OFFSET ?",
		string(kind), typeID, limit, offset)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]domain.SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []domain.SourceRecord
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		var rec domain.SourceRecord
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, fmt.Errorf("unmarshalling record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FindFile returns a file or domain.ErrNotFound.
func (s *Store) FindFile(ctx context.Context, id string) (domain.File, error) {
	f := domain.File{ID: id}
	err := s.db.QueryRowContext(ctx,
		"SELECT name, mime_type, data FROM files WHERE id = ?", id,
	).Scan(&f.Name, &f.MIMEType, &f.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.File{}, fmt.Errorf("%w: file %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.File{}, fmt.Errorf("querying file %s: %w", id, err)
	}
	return f, nil
}
