package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"gridbrief/internal/core"
)

// ReplaceChunks atomically swaps an article's chunk set: existing chunks are
// deleted and the new ones inserted within one transaction, so readers never
// observe a mixed old/new set. Runs in the caller's transaction when one is
// in ctx, otherwise in its own.
func (s *Store) ReplaceChunks(ctx context.Context, articleID int64, chunks []core.ArticleChunk) error {
	if ExtractTx(ctx) == nil {
		return s.RunInTx(ctx, func(ctx context.Context) error {
			return s.replaceChunks(ctx, articleID, chunks)
		})
	}
	return s.replaceChunks(ctx, articleID, chunks)
}

func (s *Store) replaceChunks(ctx context.Context, articleID int64, chunks []core.ArticleChunk) error {
	ex := s.executor(ctx)

	if _, err := ex.Exec(ctx, `DELETE FROM article_chunks WHERE article_id = $1`, articleID); err != nil {
		return fmt.Errorf("delete chunks of article %d: %w", articleID, err)
	}
	if len(chunks) == 0 {
		return nil
	}

	rows := make([][]any, len(chunks))
	for i, c := range chunks {
		var embedding any
		if len(c.Embedding) > 0 {
			embedding = pgvector.NewVector(c.Embedding)
		}
		rows[i] = []any{
			articleID, c.ChunkIndex, c.Text, embedding,
			emptyToNil(c.CountryCodes), emptyToNil(c.TopicTags), c.PublishedAt,
		}
	}

	_, err := ex.CopyFrom(ctx,
		pgx.Identifier{"article_chunks"},
		[]string{"article_id", "chunk_index", "text", "embedding", "country_codes", "topic_tags", "published_at"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("insert chunks of article %d: %w", articleID, err)
	}
	return nil
}

// VectorSearch returns the k chunks nearest to qvec by cosine distance that
// have an embedding and satisfy the filters, joined with their article
// fields. Similarity is 1 - cosine distance. k <= 0 returns an empty set.
func (s *Store) VectorSearch(ctx context.Context, qvec []float32, filters core.SearchFilters, k int) ([]core.RetrievedChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	conds := []string{"c.embedding IS NOT NULL"}
	args := []any{pgvector.NewVector(qvec)}
	fc, fa := filterConditions(filters, "c.", 2)
	conds = append(conds, fc...)
	args = append(args, fa...)
	args = append(args, k)

	rows, err := s.executor(ctx).Query(ctx, fmt.Sprintf(`
		SELECT c.id, c.article_id, c.text,
		       c.embedding <=> $1 AS distance,
		       a.title, a.url, c.published_at,
		       COALESCE(c.country_codes, '{}'), COALESCE(c.topic_tags, '{}')
		FROM article_chunks c
		JOIN articles a ON a.id = c.article_id
		WHERE %s
		ORDER BY distance
		LIMIT $%d`, strings.Join(conds, " AND "), len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []core.RetrievedChunk
	for rows.Next() {
		var r core.RetrievedChunk
		var distance float64
		err := rows.Scan(
			&r.ChunkID, &r.ArticleID, &r.Text, &distance,
			&r.Title, &r.URL, &r.PublishedAt,
			&r.CountryCodes, &r.TopicTags,
		)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		r.Similarity = 1 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}

// ChunksMissingEmbedding returns chunks persisted without vectors, oldest
// first, for the backfill job.
func (s *Store) ChunksMissingEmbedding(ctx context.Context, limit int) ([]core.ArticleChunk, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.executor(ctx).Query(ctx, `
		SELECT id, article_id, chunk_index, text,
		       COALESCE(country_codes, '{}'), COALESCE(topic_tags, '{}'), published_at, created_at
		FROM article_chunks
		WHERE embedding IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("chunks missing embedding: %w", err)
	}
	defer rows.Close()

	var chunks []core.ArticleChunk
	for rows.Next() {
		var c core.ArticleChunk
		err := rows.Scan(&c.ID, &c.ArticleID, &c.ChunkIndex, &c.Text,
			&c.CountryCodes, &c.TopicTags, &c.PublishedAt, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// SetChunkEmbeddings writes vectors for the given chunk ids. Lengths must
// match pairwise.
func (s *Store) SetChunkEmbeddings(ctx context.Context, ids []int64, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("set chunk embeddings: %d ids for %d vectors", len(ids), len(vectors))
	}
	ex := s.executor(ctx)
	for i, id := range ids {
		_, err := ex.Exec(ctx,
			`UPDATE article_chunks SET embedding = $2 WHERE id = $1`,
			id, pgvector.NewVector(vectors[i]))
		if err != nil {
			return fmt.Errorf("set embedding for chunk %d: %w", id, err)
		}
	}
	return nil
}

// SyncChunkFilters re-mirrors the denormalized filter columns from the
// article onto all its chunks. Used after re-tagging.
func (s *Store) SyncChunkFilters(ctx context.Context, articleID int64, countries, topics []string, publishedAt *time.Time) error {
	_, err := s.executor(ctx).Exec(ctx, `
		UPDATE article_chunks
		SET country_codes = $2, topic_tags = $3, published_at = $4
		WHERE article_id = $1`,
		articleID, emptyToNil(countries), emptyToNil(topics), publishedAt)
	if err != nil {
		return fmt.Errorf("sync chunk filters for article %d: %w", articleID, err)
	}
	return nil
}

// ArticlesWithChunks lists ids of articles that have at least one chunk,
// paged by id for the retag backfill.
func (s *Store) ArticlesWithChunks(ctx context.Context, afterID int64, limit int) ([]core.Article, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.executor(ctx).Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles a
		WHERE a.id > $1 AND EXISTS (
			SELECT 1 FROM article_chunks c WHERE c.article_id = a.id
		)
		ORDER BY a.id
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("articles with chunks: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}
