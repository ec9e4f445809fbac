package rag

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// DefaultTable holds the chunks when PGVectorOptions.Table is empty.
const DefaultTable = "agentry_documents"

var validTable = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ErrInvalidTable is returned for table names that are not plain
// identifiers.
var ErrInvalidTable = errors.New("rag: invalid table name")

// PGVectorOptions configures a PGVectorStore.
type PGVectorOptions struct {
	Table string
	// Dimensions of the embedding column. Required by EnsureSchema.
	Dimensions int
}

// PGVectorStore keeps chunks and their embeddings in Postgres and ranks them
// by L2 distance with pgvector.
type PGVectorStore struct {
	pool     *pgxpool.Pool
	embedder Embedder
	table    string
	dims     int
}

var _ Retriever = (*PGVectorStore)(nil)

// NewPGVectorStore connects to dsn and verifies the connection.
func NewPGVectorStore(ctx context.Context, dsn string, embedder Embedder, opts PGVectorOptions) (*PGVectorStore, error) {
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	if !validTable.MatchString(opts.Table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, opts.Table)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("rag: connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("rag: ping postgres: %w", err)
	}

	return &PGVectorStore{pool: pool, embedder: embedder, table: opts.Table, dims: opts.Dimensions}, nil
}

// EnsureSchema creates the vector extension and the chunk table.
func (s *PGVectorStore) EnsureSchema(ctx context.Context) error {
	if s.dims <= 0 {
		return errors.New("rag: embedding dimensions are required")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id bigserial PRIMARY KEY,
	source text NOT NULL,
	content text NOT NULL,
	content_hash text,
	embedding vector(%d) NOT NULL
)`, s.table, s.dims),
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS content_hash text", s.table),
		fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s_content_hash_idx ON %s (content_hash)", s.table, s.table),
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("rag: ensure schema: %w", err)
		}
	}

	return nil
}

// Add embeds and inserts the docs not stored yet. A chunk is identified by
// its source and content, so indexing the same sources again embeds nothing.
func (s *PGVectorStore) Add(ctx context.Context, docs ...Document) error {
	if len(docs) == 0 {
		return nil
	}

	hashes := make([]string, len(docs))
	for i, d := range docs {
		hashes[i] = ContentHash(d)
	}

	known, err := s.storedHashes(ctx, hashes)
	if err != nil {
		return err
	}

	fresh, freshHashes := unseen(docs, hashes, known)
	if len(fresh) == 0 {
		return nil
	}

	texts := make([]string, len(fresh))
	for i, d := range fresh {
		texts[i] = d.Content
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}

	insert := fmt.Sprintf(`INSERT INTO %s (source, content, content_hash, embedding) VALUES ($1, $2, $3, $4)
ON CONFLICT (content_hash) DO NOTHING`, s.table)

	batch := &pgx.Batch{}
	for i, d := range fresh {
		batch.Queue(insert, d.Source, d.Content, freshHashes[i], pgvector.NewVector(vectors[i]))
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("rag: insert documents: %w", err)
	}

	return nil
}

func (s *PGVectorStore) storedHashes(ctx context.Context, hashes []string) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT content_hash FROM %s WHERE content_hash = ANY($1)", s.table), hashes)
	if err != nil {
		return nil, fmt.Errorf("rag: lookup stored chunks: %w", err)
	}

	known, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("rag: lookup stored chunks: %w", err)
	}

	set := make(map[string]bool, len(known))
	for _, h := range known {
		set[h] = true
	}

	return set, nil
}

// ContentHash identifies a chunk by its source and content.
func ContentHash(d Document) string {
	sum := sha256.Sum256([]byte(d.Source + "\x00" + d.Content))
	return hex.EncodeToString(sum[:])
}

// unseen drops docs whose hash is known or repeats earlier in docs.
func unseen(docs []Document, hashes []string, known map[string]bool) ([]Document, []string) {
	var fresh []Document
	var freshHashes []string

	seen := make(map[string]bool, len(docs))
	for i, d := range docs {
		h := hashes[i]
		if known[h] || seen[h] {
			continue
		}
		seen[h] = true
		fresh = append(fresh, d)
		freshHashes = append(freshHashes, h)
	}

	return fresh, freshHashes
}

// Retrieve embeds query and returns the k nearest chunks. Score is the
// negated distance so higher is better.
func (s *PGVectorStore) Retrieve(ctx context.Context, query string, k int) ([]Document, error) {
	if k <= 0 {
		k = DefaultK
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT id, source, content, embedding <-> $1 AS distance FROM %s ORDER BY distance LIMIT $2", s.table),
		pgvector.NewVector(vectors[0]), k)
	if err != nil {
		return nil, fmt.Errorf("rag: query failed: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var distance float64
		if err := rows.Scan(&d.ID, &d.Source, &d.Content, &distance); err != nil {
			return nil, fmt.Errorf("rag: scan: %w", err)
		}
		d.Score = -distance
		docs = append(docs, d)
	}

	return docs, rows.Err()
}

// Close releases the connection pool.
func (s *PGVectorStore) Close() {
	s.pool.Close()
}
