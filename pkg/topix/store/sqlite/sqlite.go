package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/topix/pkg/topix/domain"
	"github.com/cognicore/topix/pkg/topix/store"
	"github.com/cognicore/topix/pkg/topix/vocab"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates
// the schema when missing.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrIO, path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrIO, path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrIO, path, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init schema %s: %v", domain.ErrIO, path, err)
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS model_meta (
	name TEXT PRIMARY KEY,
	id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	scorer TEXT NOT NULL,
	state BLOB,
	docs INTEGER NOT NULL DEFAULT 0,
	vocabulary TEXT,
	options TEXT
);

CREATE TABLE IF NOT EXISTS model_schema (
	model TEXT NOT NULL REFERENCES model_meta(name) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	feature TEXT NOT NULL,
	PRIMARY KEY (model, position)
);

CREATE TABLE IF NOT EXISTS term_df (
	model TEXT NOT NULL REFERENCES model_meta(name) ON DELETE CASCADE,
	key TEXT NOT NULL,
	df INTEGER NOT NULL,
	PRIMARY KEY (model, key)
);

CREATE TABLE IF NOT EXISTS keyphraseness (
	model TEXT NOT NULL REFERENCES model_meta(name) ON DELETE CASCADE,
	key TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY (model, key)
);

CREATE TABLE IF NOT EXISTS vocab_meta (
	key TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	saved_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS vocab_terms (
	vocab TEXT NOT NULL REFERENCES vocab_meta(key) ON DELETE CASCADE,
	id TEXT NOT NULL,
	label TEXT NOT NULL,
	PRIMARY KEY (vocab, id)
);

CREATE TABLE IF NOT EXISTS vocab_senses (
	vocab TEXT NOT NULL REFERENCES vocab_meta(key) ON DELETE CASCADE,
	key TEXT NOT NULL,
	position INTEGER NOT NULL,
	concept TEXT NOT NULL,
	PRIMARY KEY (vocab, key, position)
);

CREATE TABLE IF NOT EXISTS vocab_nondescriptors (
	vocab TEXT NOT NULL REFERENCES vocab_meta(key) ON DELETE CASCADE,
	id TEXT NOT NULL,
	descriptor TEXT NOT NULL,
	PRIMARY KEY (vocab, id)
);

CREATE TABLE IF NOT EXISTS vocab_relations (
	vocab TEXT NOT NULL REFERENCES vocab_meta(key) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	subject TEXT NOT NULL,
	position INTEGER NOT NULL,
	object TEXT NOT NULL,
	PRIMARY KEY (vocab, kind, subject, position)
);

CREATE INDEX IF NOT EXISTS idx_vocab_relations_object ON vocab_relations(vocab, kind, object);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveModel replaces the artifact stored under name in a single
// transaction.
func (s *sqliteStore) SaveModel(ctx context.Context, name string, a store.Artifact) error {
	if name == "" {
		name = store.DefaultModel
	}
	options, err := json.Marshal(a.Options)
	if err != nil {
		return fmt.Errorf("%w: encode options of model %q: %v", domain.ErrIO, name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Children first: foreign_keys is a per-connection pragma, so the
	// cascade cannot be relied on from a pooled connection.
	for _, table := range []string{"model_schema", "term_df", "keyphraseness"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE model=?`, name); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM model_meta WHERE name=?`, name); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO model_meta (name, id, created_at, scorer, state, docs, vocabulary, options)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`, name, a.ID, a.Created.UTC().Format(time.RFC3339Nano), a.Scorer, a.State, a.Docs, a.Vocabulary, string(options))
	if err != nil {
		return err
	}

	if err := insertSchema(ctx, tx, name, a.Schema); err != nil {
		return err
	}
	if err := insertCounts(ctx, tx, `INSERT INTO term_df (model, key, df) VALUES (?, ?, ?)`, name, a.DF); err != nil {
		return err
	}
	if err := insertCounts(ctx, tx, `INSERT INTO keyphraseness (model, key, count) VALUES (?, ?, ?)`, name, a.Keyphraseness); err != nil {
		return err
	}

	return tx.Commit()
}

func insertSchema(ctx context.Context, tx *sql.Tx, model string, schema []string) error {
	if len(schema) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO model_schema (model, position, feature) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, f := range schema {
		if _, err := stmt.ExecContext(ctx, model, i, f); err != nil {
			return err
		}
	}
	return nil
}

func insertCounts(ctx context.Context, tx *sql.Tx, query, model string, counts map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for key, n := range counts {
		if _, err := stmt.ExecContext(ctx, model, key, n); err != nil {
			return err
		}
	}
	return nil
}

// LoadModel reads the artifact stored under name.
func (s *sqliteStore) LoadModel(ctx context.Context, name string) (store.Artifact, error) {
	if name == "" {
		name = store.DefaultModel
	}

	var (
		a         store.Artifact
		created   string
		vocabName sql.NullString
		options   sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, created_at, scorer, state, docs, vocabulary, options
FROM model_meta WHERE name=?
`, name).Scan(&a.ID, &created, &a.Scorer, &a.State, &a.Docs, &vocabName, &options)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Artifact{}, fmt.Errorf("%w: model %q", domain.ErrResourceNotFound, name)
	}
	if err != nil {
		return store.Artifact{}, err
	}

	if a.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return store.Artifact{}, fmt.Errorf("%w: created_at of model %q: %v", domain.ErrParse, name, err)
	}
	a.Vocabulary = vocabName.String
	a.Options = map[string]string{}
	if options.Valid && options.String != "" && options.String != "null" {
		if err := json.Unmarshal([]byte(options.String), &a.Options); err != nil {
			return store.Artifact{}, fmt.Errorf("%w: options of model %q: %v", domain.ErrParse, name, err)
		}
	}

	if a.Schema, err = s.loadSchema(ctx, name); err != nil {
		return store.Artifact{}, err
	}
	if a.DF, err = s.loadCounts(ctx, `SELECT key, df FROM term_df WHERE model=?`, name); err != nil {
		return store.Artifact{}, err
	}
	if a.Keyphraseness, err = s.loadCounts(ctx, `SELECT key, count FROM keyphraseness WHERE model=?`, name); err != nil {
		return store.Artifact{}, err
	}
	return a, nil
}

func (s *sqliteStore) loadSchema(ctx context.Context, model string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT feature FROM model_schema WHERE model=? ORDER BY position`, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schema []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		schema = append(schema, f)
	}
	return schema, rows.Err()
}

func (s *sqliteStore) loadCounts(ctx context.Context, query, model string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// Models lists the saved artifact names in lexical order.
func (s *sqliteStore) Models(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM model_meta ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Relation kinds stored in vocab_relations.
const (
	relRelated  = "related"
	relBroader  = "broader"
	relNarrower = "narrower"
)

// SaveVocabulary replaces the snapshot cached under key.
func (s *sqliteStore) SaveVocabulary(ctx context.Context, key string, snap *vocab.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"vocab_terms", "vocab_senses", "vocab_nondescriptors", "vocab_relations"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE vocab=?`, key); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vocab_meta WHERE key=?`, key); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO vocab_meta (key, name, saved_at) VALUES (?, ?, ?)`,
		key, snap.Name, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	if err := insertPairs(ctx, tx, `INSERT INTO vocab_terms (vocab, id, label) VALUES (?, ?, ?)`, key, snap.Terms); err != nil {
		return err
	}
	if err := insertPairs(ctx, tx, `INSERT INTO vocab_nondescriptors (vocab, id, descriptor) VALUES (?, ?, ?)`, key, snap.NonDescriptors); err != nil {
		return err
	}
	if err := insertLists(ctx, tx, `INSERT INTO vocab_senses (vocab, key, position, concept) VALUES (?, ?, ?, ?)`, key, snap.Senses); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vocab_relations (vocab, kind, subject, position, object) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for kind, lists := range map[string]map[string][]string{
		relRelated:  snap.Related,
		relBroader:  snap.Broader,
		relNarrower: snap.Narrower,
	} {
		for subject, objects := range lists {
			for i, obj := range objects {
				if _, err := stmt.ExecContext(ctx, key, kind, subject, i, obj); err != nil {
					return err
				}
			}
		}
	}

	return tx.Commit()
}

func insertPairs(ctx context.Context, tx *sql.Tx, query, key string, pairs map[string]string) error {
	if len(pairs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for k, v := range pairs {
		if _, err := stmt.ExecContext(ctx, key, k, v); err != nil {
			return err
		}
	}
	return nil
}

func insertLists(ctx context.Context, tx *sql.Tx, query, key string, lists map[string][]string) error {
	if len(lists) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for k, values := range lists {
		for i, v := range values {
			if _, err := stmt.ExecContext(ctx, key, k, i, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadVocabulary reads the snapshot cached under key.
func (s *sqliteStore) LoadVocabulary(ctx context.Context, key string) (*vocab.Snapshot, error) {
	snap := &vocab.Snapshot{}
	err := s.db.QueryRowContext(ctx, `SELECT name FROM vocab_meta WHERE key=?`, key).Scan(&snap.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: vocabulary snapshot %q", domain.ErrResourceNotFound, key)
	}
	if err != nil {
		return nil, err
	}

	if snap.Terms, err = s.loadPairs(ctx, `SELECT id, label FROM vocab_terms WHERE vocab=?`, key); err != nil {
		return nil, err
	}
	if snap.NonDescriptors, err = s.loadPairs(ctx, `SELECT id, descriptor FROM vocab_nondescriptors WHERE vocab=?`, key); err != nil {
		return nil, err
	}
	if snap.Senses, err = s.loadLists(ctx, `SELECT key, concept FROM vocab_senses WHERE vocab=? ORDER BY key, position`, key); err != nil {
		return nil, err
	}

	snap.Related = make(map[string][]string)
	snap.Broader = make(map[string][]string)
	snap.Narrower = make(map[string][]string)
	rows, err := s.db.QueryContext(ctx, `
SELECT kind, subject, object FROM vocab_relations
WHERE vocab=? ORDER BY kind, subject, position
`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind, subject, object string
		if err := rows.Scan(&kind, &subject, &object); err != nil {
			return nil, err
		}
		switch kind {
		case relRelated:
			snap.Related[subject] = append(snap.Related[subject], object)
		case relBroader:
			snap.Broader[subject] = append(snap.Broader[subject], object)
		case relNarrower:
			snap.Narrower[subject] = append(snap.Narrower[subject], object)
		default:
			return nil, fmt.Errorf("%w: unknown relation kind %q in vocabulary %q", domain.ErrParse, kind, key)
		}
	}
	return snap, rows.Err()
}

func (s *sqliteStore) loadPairs(ctx context.Context, query, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func (s *sqliteStore) loadLists(ctx context.Context, query, key string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = append(out[k], v)
	}
	return out, rows.Err()
}
