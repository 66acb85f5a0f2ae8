package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	apperrors "finsight/internal/errors"
)

// VectorIndex persists document embeddings in SQLite and answers similarity
// queries with brute-force cosine scoring. Collection sizes here are small
// (uploaded documents and generated reports), so a linear scan is fine.
type VectorIndex struct {
	db       *sql.DB
	embedder Embedder
	log      zerolog.Logger
}

// NewVectorIndex opens (and if needed initializes) the vector database at
// dbPath.
func NewVectorIndex(dbPath string, embedder Embedder, log zerolog.Logger) (*VectorIndex, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}

	index := &VectorIndex{
		db:       db,
		embedder: embedder,
		log:      log.With().Str("component", "retrieval").Logger(),
	}
	if err := index.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize vector schema: %w", err)
	}

	return index, nil
}

func (x *VectorIndex) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		collection TEXT NOT NULL,
		doc_id TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT,
		vector TEXT NOT NULL,
		PRIMARY KEY (collection, doc_id)
	);

	CREATE INDEX IF NOT EXISTS idx_embeddings_collection ON embeddings(collection);
	`

	_, err := x.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (x *VectorIndex) Close() error {
	return x.db.Close()
}

// Upsert embeds and stores documents in a collection, replacing entries with
// matching IDs.
func (x *VectorIndex) Upsert(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("upsert", collection, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO embeddings (collection, doc_id, content, metadata, vector)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return apperrors.NewStoreError("upsert", collection, err)
	}
	defer stmt.Close()

	for i, d := range docs {
		metadata, err := json.Marshal(d.Metadata)
		if err != nil {
			return apperrors.NewStoreError("upsert", collection, err)
		}
		vector, err := json.Marshal(vectors[i])
		if err != nil {
			return apperrors.NewStoreError("upsert", collection, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, d.ID, d.Content, string(metadata), string(vector)); err != nil {
			return apperrors.NewStoreError("upsert", collection, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreError("upsert", collection, err)
	}

	x.log.Debug().Str("collection", collection).Int("count", len(docs)).Msg("documents indexed")
	return nil
}

// Search returns the k most similar documents to the query text, best
// first. An empty collection yields an empty result, not an error.
func (x *VectorIndex) Search(ctx context.Context, collection, query string, k int) ([]Document, error) {
	if k <= 0 {
		return nil, nil
	}

	vectors, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	queryVector := vectors[0]

	rows, err := x.db.QueryContext(ctx,
		"SELECT doc_id, content, metadata, vector FROM embeddings WHERE collection = ?", collection)
	if err != nil {
		return nil, apperrors.NewStoreError("search", collection, err)
	}
	defer rows.Close()

	var results []Document
	for rows.Next() {
		var doc Document
		var metadata, vector string
		if err := rows.Scan(&doc.ID, &doc.Content, &metadata, &vector); err != nil {
			return nil, apperrors.NewStoreError("search", collection, err)
		}
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &doc.Metadata); err != nil {
				return nil, apperrors.NewStoreError("search", collection, err)
			}
		}
		var embedded []float32
		if err := json.Unmarshal([]byte(vector), &embedded); err != nil {
			return nil, apperrors.NewStoreError("search", collection, err)
		}
		doc.Score = cosineSimilarity(queryVector, embedded)
		results = append(results, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("search", collection, err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}

	x.log.Debug().Str("collection", collection).Int("hits", len(results)).Msg("similarity search")
	return results, nil
}

// DropCollection removes every document in a collection.
func (x *VectorIndex) DropCollection(ctx context.Context, collection string) error {
	if _, err := x.db.ExecContext(ctx,
		"DELETE FROM embeddings WHERE collection = ?", collection); err != nil {
		return apperrors.NewStoreError("drop_collection", collection, err)
	}
	return nil
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector is zero or the dimensions disagree.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
