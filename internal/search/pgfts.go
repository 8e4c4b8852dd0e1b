package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search matches the generated search_vector column of the projects table
// using plainto_tsquery, with ts_headline for snippets. The French
// configuration matches the document language.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := "p.search_vector @@ plainto_tsquery('french', $1) AND ($3 OR p.owner_id = $2)"
	args := []any{q.Text, q.OwnerID, q.IncludeAll}
	if q.Phase != "" {
		where += " AND p.current_phase = $4"
		args = append(args, q.Phase)
	}

	ctx := context.Background()

	var total int
	countSQL := fmt.Sprintf(`SELECT count(*) FROM projects p WHERE %s`, where)
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT p.id, p.name,
			ts_headline('french', p.name || ' ' || p.description, plainto_tsquery('french', $1), 'MaxFragments=1,MaxWords=30') AS snippet,
			p.owner_id, p.current_phase,
			ts_rank(p.search_vector, plainto_tsquery('french', $1)) AS rank
		FROM projects p
		WHERE %s
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r    Result
			rank float64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Snippet, &r.OwnerID, &r.CurrentPhase, &rank); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all indexable projects for full reindexing,
// including the flattened section text persisted alongside each blob.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ProjectRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, description, COALESCE(data->>'notes', ''), section_text, owner_id, current_phase
		FROM projects
	`)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	defer rows.Close()

	records := make([]ProjectRecord, 0)
	for rows.Next() {
		var r ProjectRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Notes, &r.SectionText, &r.OwnerID, &r.CurrentPhase); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return records, nil
}
