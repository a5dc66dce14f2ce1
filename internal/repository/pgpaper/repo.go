package pgpaper

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/paperdex/internal/domain"
	dompaper "github.com/kailas-cloud/paperdex/internal/domain/paper"
)

const columns = `id, external_id, title, abstract, source, url, published_at, metadata, embedding`

// Repo is the PostgreSQL-backed record store.
type Repo struct {
	conn *sql.DB
	dim  int
}

// New creates a repository over an open connection pool.
func New(conn *sql.DB, dim int) *Repo {
	return &Repo{conn: conn, dim: dim}
}

// Ping checks connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// FindByExternalID returns the record stored for an external id.
func (r *Repo) FindByExternalID(ctx context.Context, externalID string) (dompaper.Paper, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT `+columns+` FROM papers WHERE external_id = $1`, externalID)
	p, err := scanPaper(row)
	if err != nil {
		return dompaper.Paper{}, fmt.Errorf("find %s: %w", externalID, err)
	}
	return p, nil
}

// InsertIfAbsent inserts p unless its external id already exists.
func (r *Repo) InsertIfAbsent(ctx context.Context, p dompaper.Paper) (dompaper.Paper, bool, error) {
	var embedding any
	if p.HasEmbedding() {
		if err := dompaper.CheckDim(p.Embedding, r.dim); err != nil {
			return dompaper.Paper{}, false, err
		}
		embedding = pgvector.NewVector(p.Embedding)
	}
	md, err := json.Marshal(p.Metadata)
	if err != nil {
		return dompaper.Paper{}, false, fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
		INSERT INTO papers (external_id, title, abstract, source, url, published_at, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING id
	`
	var id int64
	err = r.conn.QueryRowContext(ctx, query,
		p.ExternalID, p.Title, p.Abstract, p.Source, p.URL, p.PublishedAt, string(md), embedding,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		existing, err := r.FindByExternalID(ctx, p.ExternalID)
		if err != nil {
			return dompaper.Paper{}, false, err
		}
		return existing, false, nil
	}
	if err != nil {
		return dompaper.Paper{}, false, fmt.Errorf("insert %s: %w", p.ExternalID, err)
	}
	p.ID = id
	return p, true, nil
}

// Get returns a record by surrogate id.
func (r *Repo) Get(ctx context.Context, id int64) (dompaper.Paper, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT `+columns+` FROM papers WHERE id = $1`, id)
	p, err := scanPaper(row)
	if err != nil {
		return dompaper.Paper{}, fmt.Errorf("get %d: %w", id, err)
	}
	return p, nil
}

// QueryBySubstring returns records whose title or abstract contains any of
// the lowercase terms.
func (r *Repo) QueryBySubstring(ctx context.Context, terms []string) ([]dompaper.Paper, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	query := `SELECT ` + columns + ` FROM papers WHERE title ILIKE ANY($1) OR abstract ILIKE ANY($1)`
	return r.queryPapers(ctx, query, pq.Array(likePatterns(terms)))
}

// QueryOrderedByDate returns one window of non-excluded records, newest
// first, with the post-exclusion total.
func (r *Repo) QueryOrderedByDate(
	ctx context.Context, exclude *dompaper.IDSet, offset, limit int,
) ([]dompaper.Paper, int, error) {
	ids := exclude.IDs()
	if ids == nil {
		ids = []int64{}
	}
	excluded := pq.Array(ids)

	var total int
	if err := r.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM papers WHERE NOT (id = ANY($1::bigint[]))`, excluded,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feed: %w", err)
	}

	query := `SELECT ` + columns + ` FROM papers
		WHERE NOT (id = ANY($1::bigint[]))
		ORDER BY published_at DESC NULLS LAST, id ASC
		OFFSET $2 LIMIT $3`
	items, err := r.queryPapers(ctx, query, excluded, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListEmbedded returns all records that carry an embedding.
func (r *Repo) ListEmbedded(ctx context.Context) ([]dompaper.Paper, error) {
	return r.queryPapers(ctx, `SELECT `+columns+` FROM papers WHERE embedding IS NOT NULL ORDER BY id`)
}

// ListMissingEmbedding returns up to limit records without an embedding after afterID.
func (r *Repo) ListMissingEmbedding(ctx context.Context, afterID int64, limit int) ([]dompaper.Paper, error) {
	query := `SELECT ` + columns + ` FROM papers WHERE embedding IS NULL AND id > $1 ORDER BY id LIMIT $2`
	return r.queryPapers(ctx, query, afterID, limit)
}

// ListMissingMetadata returns up to limit records without authors after afterID.
func (r *Repo) ListMissingMetadata(ctx context.Context, afterID int64, limit int) ([]dompaper.Paper, error) {
	query := `SELECT ` + columns + ` FROM papers
		WHERE COALESCE(metadata->'authors', '[]'::jsonb) = '[]'::jsonb AND id > $1
		ORDER BY id LIMIT $2`
	return r.queryPapers(ctx, query, afterID, limit)
}

// AttachEmbedding stores the embedding of an existing record.
func (r *Repo) AttachEmbedding(ctx context.Context, id int64, vec []float32) error {
	if err := dompaper.CheckDim(vec, r.dim); err != nil {
		return err
	}
	return r.exec(ctx, id, `UPDATE papers SET embedding = $2 WHERE id = $1`, pgvector.NewVector(vec))
}

// UpdateMetadata replaces the metadata of an existing record.
func (r *Repo) UpdateMetadata(ctx context.Context, id int64, md dompaper.Metadata) error {
	raw, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return r.exec(ctx, id, `UPDATE papers SET metadata = $2 WHERE id = $1`, string(raw))
}

// Count returns the number of stored records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count papers: %w", err)
	}
	return n, nil
}

func (r *Repo) exec(ctx context.Context, id int64, query string, arg any) error {
	res, err := r.conn.ExecContext(ctx, query, id, arg)
	if err != nil {
		return fmt.Errorf("update %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %d: %w", id, err)
	}
	if n == 0 {
		return domain.ErrPaperNotFound
	}
	return nil
}

func (r *Repo) queryPapers(ctx context.Context, query string, args ...any) ([]dompaper.Paper, error) {
	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query papers: %w", err)
	}
	defer rows.Close()

	out := make([]dompaper.Paper, 0)
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate papers: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(s scanner) (dompaper.Paper, error) {
	var (
		p         dompaper.Paper
		published sql.NullTime
		md        []byte
		embedding *pgvector.Vector
	)
	err := s.Scan(&p.ID, &p.ExternalID, &p.Title, &p.Abstract, &p.Source, &p.URL, &published, &md, &embedding)
	if errors.Is(err, sql.ErrNoRows) {
		return dompaper.Paper{}, domain.ErrPaperNotFound
	}
	if err != nil {
		return dompaper.Paper{}, fmt.Errorf("scan paper: %w", err)
	}
	if published.Valid {
		t := published.Time.UTC()
		p.PublishedAt = &t
	}
	if len(md) > 0 {
		if err := json.Unmarshal(md, &p.Metadata); err != nil {
			return dompaper.Paper{}, fmt.Errorf("paper %d: metadata: %w", p.ID, err)
		}
	}
	if embedding != nil {
		p.Embedding = embedding.Slice()
	}
	return p, nil
}

// likePatterns turns lowercase terms into ILIKE substring patterns with the
// pattern metacharacters escaped.
func likePatterns(terms []string) []string {
	esc := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = "%" + esc.Replace(t) + "%"
	}
	return out
}
