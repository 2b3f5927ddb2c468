// Package storage persists embeddings in SQLite so they survive restarts.
package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// EmbeddingStore keeps one vector per (model, provider fingerprint, text). The fingerprint names
// what computed the vector, so vectors from a fallback provider are never served for the real
// model. Texts are keyed by their SHA-256 digest.
type EmbeddingStore struct {
	db *sql.DB
}

// NewEmbeddingStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewEmbeddingStore(dbPath string) (*EmbeddingStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &EmbeddingStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	// embeddings predates the provider column; its rows have unknown provenance.
	schema := `
	DROP TABLE IF EXISTS embeddings;
	CREATE TABLE IF NOT EXISTS embedding_vectors (
		model_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		text_hash TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		vector BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (model_id, provider, text_hash)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// GetEmbedding returns the vector stored for text under modelID and fingerprint.
func (s *EmbeddingStore) GetEmbedding(ctx context.Context, modelID, fingerprint, text string) ([]float32, bool, error) {
	var dims int
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT dimensions, vector FROM embedding_vectors WHERE model_id = ? AND provider = ? AND text_hash = ?`,
		modelID, fingerprint, hashText(text),
	).Scan(&dims, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get embedding: %w", err)
	}
	vec, err := decodeVector(blob, dims)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// PutEmbedding stores vec for text under modelID and fingerprint, replacing any previous vector.
func (s *EmbeddingStore) PutEmbedding(ctx context.Context, modelID, fingerprint, text string, vec []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO embedding_vectors (model_id, provider, text_hash, dimensions, vector) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(model_id, provider, text_hash) DO UPDATE SET dimensions = excluded.dimensions, vector = excluded.vector`,
		modelID, fingerprint, hashText(text), len(vec), encodeVector(vec),
	)
	if err != nil {
		return fmt.Errorf("failed to put embedding: %w", err)
	}
	return nil
}

// CountEmbeddings returns the number of stored vectors.
func (s *EmbeddingStore) CountEmbeddings(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embedding_vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *EmbeddingStore) Close() error {
	return s.db.Close()
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// encodeVector packs vec as little-endian float32s.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte, dims int) ([]float32, error) {
	if len(blob) != 4*dims {
		return nil, fmt.Errorf("corrupt embedding: %d bytes for %d dimensions", len(blob), dims)
	}
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vec, nil
}
