package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Record 是存储中的一条文本片段及其向量。ID 为插入顺序（rowid）。
type Record struct {
	ID        int64
	Source    string
	Chunk     int
	Content   string
	Hash      string
	Embedding []float32
}

// Store 以 sqlite 持久化片段与向量，按 collection 隔离。
type Store struct {
	db *sql.DB
}

// OpenStore 打开（必要时创建）path 处的索引库；path 为 ":memory:" 时使用内存库。
func OpenStore(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create index dir: %w", err)
			}
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS passages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			source TEXT NOT NULL,
			chunk INTEGER NOT NULL,
			content TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			dims INTEGER NOT NULL,
			embedding BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE (collection, content_hash)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_passages_collection ON passages(collection, id)`,
	}
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Add 写入片段，已存在的相同内容（按 hash 判重）会被忽略。返回实际新增数量。
func (s *Store) Add(ctx context.Context, collection string, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO passages
		(collection, source, chunk, content, content_hash, dims, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	added := 0
	for _, rec := range records {
		if len(rec.Embedding) == 0 {
			return 0, fmt.Errorf("record %s#%d has no embedding", rec.Source, rec.Chunk)
		}
		res, err := stmt.ExecContext(ctx, collection, rec.Source, rec.Chunk, rec.Content, rec.Hash,
			len(rec.Embedding), encodeVector(rec.Embedding), now)
		if err != nil {
			return 0, fmt.Errorf("insert passage: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return added, nil
}

// KnownHashes 返回 hashes 中已存在于 collection 的子集。
func (s *Store) KnownHashes(ctx context.Context, collection string, hashes []string) (map[string]bool, error) {
	known := make(map[string]bool)
	if len(hashes) == 0 {
		return known, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(hashes)), ",")
	args := make([]any, 0, len(hashes)+1)
	args = append(args, collection)
	for _, h := range hashes {
		args = append(args, h)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT content_hash FROM passages WHERE collection = ? AND content_hash IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query hashes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		known[h] = true
	}
	return known, rows.Err()
}

// All 按插入顺序返回 collection 的全部片段。
func (s *Store) All(ctx context.Context, collection string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, chunk, content, content_hash, dims, embedding FROM passages WHERE collection = ? ORDER BY id`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("query passages: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var dims int
		var blob []byte
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Chunk, &rec.Content, &rec.Hash, &dims, &blob); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		vec, err := decodeVector(blob, dims)
		if err != nil {
			return nil, fmt.Errorf("passage %d: %w", rec.ID, err)
		}
		rec.Embedding = vec
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM passages WHERE collection = ?`, collection).Scan(&n)
	return n, err
}

// Reset 删除 collection 的全部片段。
func (s *Store) Reset(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM passages WHERE collection = ?`, collection)
	return err
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte, dims int) ([]float32, error) {
	if len(buf) != dims*4 {
		return nil, errors.New("embedding size mismatch")
	}
	out := make([]float32, dims)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}
