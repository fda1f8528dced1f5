package query

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"storefront-services/internal/catalog/params"
	"storefront-services/internal/common/errors"
	"storefront-services/internal/models"
)

const productColumns = `id, title, slug, sku, category_slugs, voltage, frequency, protocols, selected, image_url`

type PostgresBackend struct {
	db    *sql.DB
	table string
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db, table: "products"}
}

func (b *PostgresBackend) Name() string { return "postgres" }

// whereClause returns the SQL condition and its arguments, numbered from
// $1.
func whereClause(p Predicate) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if p.Wildcard != "" {
		ph := next(likePattern(p.Wildcard))
		conditions = append(conditions, fmt.Sprintf("(title ILIKE %s OR sku ILIKE %s)", ph, ph))
	}
	if p.Category != "" {
		conditions = append(conditions, fmt.Sprintf("%s = ANY(category_slugs)", next(p.Category)))
	}
	if len(p.Voltages) > 0 {
		conditions = append(conditions, fmt.Sprintf("voltage = ANY(%s)", next(pq.Array(p.Voltages))))
	}
	if len(p.Frequencies) > 0 {
		conditions = append(conditions, fmt.Sprintf("frequency = ANY(%s)", next(pq.Array(p.Frequencies))))
	}
	if len(p.Protocols) > 0 {
		conditions = append(conditions, fmt.Sprintf("protocols && %s::text[]", next(pq.Array(p.Protocols))))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// likePattern turns "*a*b*" into "%a%b%", escaping LIKE metacharacters in
// the tokens.
func likePattern(wildcard string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(wildcard)
	return strings.ReplaceAll(escaped, "*", "%")
}

func orderClause(sort params.Sort) string {
	switch sort {
	case params.SortNameDesc:
		return " ORDER BY title DESC, id ASC"
	case params.SortSKUAsc:
		return " ORDER BY sku ASC, id ASC"
	case params.SortSKUDesc:
		return " ORDER BY sku DESC, id ASC"
	case params.SortTopSelling:
		return " ORDER BY selected DESC, title ASC, id ASC"
	default:
		return " ORDER BY title ASC, id ASC"
	}
}

func (b *PostgresBackend) Rows(ctx context.Context, p Predicate, sort params.Sort, w Window) ([]models.Product, error) {
	where, args := whereClause(p)
	args = append(args, w.Limit, w.Offset)
	query := fmt.Sprintf("SELECT %s FROM %s%s%s LIMIT $%d OFFSET $%d",
		productColumns, b.table, where, orderClause(sort), len(args)-1, len(args))

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, b.wrap(ctx, models.QueryTypeCatalogRows, err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		var voltage, frequency, imageURL sql.NullString
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.SKU, pq.Array(&p.Categories),
			&voltage, &frequency, pq.Array(&p.Protocols), &p.Selected, &imageURL); err != nil {
			return nil, b.wrap(ctx, models.QueryTypeCatalogRows, err)
		}
		p.Voltage = voltage.String
		p.Frequency = frequency.String
		p.ImageURL = imageURL.String
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, b.wrap(ctx, models.QueryTypeCatalogRows, err)
	}
	return products, nil
}

func (b *PostgresBackend) Count(ctx context.Context, p Predicate) (int, error) {
	where, args := whereClause(p)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.table, where)

	var total int
	if err := b.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, b.wrap(ctx, models.QueryTypeCatalogCount, err)
	}
	return total, nil
}

func (b *PostgresBackend) wrap(ctx context.Context, qt models.QueryType, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		return errors.NewQueryTimeoutError(string(qt))
	}
	return errors.NewQueryExecutionFailedError(string(qt), err)
}
