package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
// Plan blocks live in git rather than in PostgreSQL, so block queries return
// nothing here.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search runs a UNION ALL over plans and annotations using plainto_tsquery and
// ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	dataSQL, countSQL, args := buildPgQuery(q)
	if dataSQL == "" {
		return nil, 0, nil
	}

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.PlanID, &r.BlockID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// buildPgQuery returns empty SQL when the query cannot match anything.
func buildPgQuery(q Query) (dataSQL, countSQL string, args []any) {
	if strings.TrimSpace(q.Text) == "" {
		return "", "", nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args = []any{q.Text}
	planFilter := ""
	if q.FilterPlanID != "" {
		args = append(args, q.FilterPlanID)
		planFilter = fmt.Sprintf(" AND %%s = $%d", len(args))
	}

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultPlan {
		where := "p.fts @@ " + tsQuery
		if planFilter != "" {
			where += fmt.Sprintf(planFilter, "p.id")
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'plan'::text AS type, p.id, p.title,
				p.slug AS snippet,
				p.id AS plan_id, ''::text AS block_id,
				ts_rank(p.fts, %s) AS rank
			FROM plans p
			WHERE %s`, tsQuery, where))
	}

	if q.FilterType == "" || q.FilterType == ResultAnnotation {
		where := "a.fts @@ " + tsQuery
		if planFilter != "" {
			where += fmt.Sprintf(planFilter, "a.plan_id")
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'annotation'::text AS type, a.id, COALESCE(NULLIF(a.tag, ''), a.type) AS title,
				ts_headline('english', coalesce(NULLIF(a.text, ''), a.original_text), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				a.plan_id, a.block_id,
				ts_rank(a.fts, %s) AS rank
			FROM plan_annotations a
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if len(subQueries) == 0 {
		return "", "", nil
	}

	union := strings.Join(subQueries, " UNION ALL ")
	countSQL = fmt.Sprintf("SELECT count(*) FROM (%s) sub", union)
	dataSQL = fmt.Sprintf(`SELECT type, id, title, snippet, plan_id, block_id
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, union, limit, offset)
	return dataSQL, countSQL, args
}
