package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mapmystandards/a3e/modules/standards/services"
	"github.com/mapmystandards/a3e/pkg/composables"
)

type StandardsRepository struct{}

func NewStandardsRepository() *StandardsRepository {
	return &StandardsRepository{}
}

// AcquireImportLock takes a transaction-scoped advisory lock derived from the
// standard's business key, serializing concurrent imports of the same key.
func (r *StandardsRepository) AcquireImportLock(ctx context.Context, key string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key)
	return err
}

func (r *StandardsRepository) UpsertStandard(ctx context.Context, in services.UpsertStandardInput) (uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	if err := tx.QueryRow(ctx, `
INSERT INTO standards (key, name, version, publisher)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE SET
	name = excluded.name,
	version = excluded.version,
	publisher = excluded.publisher,
	updated_at = now()
RETURNING id
`, in.Key, in.Name, in.Version, in.Publisher).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *StandardsRepository) GetStandardByKey(ctx context.Context, key string) (services.StandardRow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return services.StandardRow{}, err
	}

	var out services.StandardRow
	if err := tx.QueryRow(ctx, `
SELECT id, key, name, version, publisher
FROM standards
WHERE key = $1
`, key).Scan(&out.ID, &out.Key, &out.Name, &out.Version, &out.Publisher); err != nil {
		return services.StandardRow{}, err
	}
	return out, nil
}

func (r *StandardsRepository) ListStandards(ctx context.Context) ([]services.StandardRow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT id, key, name, version, publisher
FROM standards
ORDER BY key
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]services.StandardRow, 0)
	for rows.Next() {
		var row services.StandardRow
		if err := rows.Scan(&row.ID, &row.Key, &row.Name, &row.Version, &row.Publisher); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *StandardsRepository) DeleteItems(ctx context.Context, standardID uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `DELETE FROM standard_items WHERE standard_id = $1`, standardID)
	return err
}

func (r *StandardsRepository) InsertItem(ctx context.Context, in services.ItemInsert) (uuid.UUID, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	if err := tx.QueryRow(ctx, `
INSERT INTO standard_items (standard_id, code, title, description, parent_id, level, path)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`, in.StandardID, in.Code, in.Title, in.Description, in.ParentID, in.Level, in.Path).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *StandardsRepository) ListItemsByPath(ctx context.Context, standardID uuid.UUID) ([]services.ItemRow, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT id, standard_id, code, title, description, parent_id, level, path
FROM standard_items
WHERE standard_id = $1
ORDER BY path
`, standardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItemRows(rows)
}

func (r *StandardsRepository) CountItems(ctx context.Context, standardID uuid.UUID) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM standard_items WHERE standard_id = $1`, standardID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanItemRows(rows pgx.Rows) ([]services.ItemRow, error) {
	out := make([]services.ItemRow, 0)
	for rows.Next() {
		var row services.ItemRow
		if err := rows.Scan(
			&row.ID,
			&row.StandardID,
			&row.Code,
			&row.Title,
			&row.Description,
			&row.ParentID,
			&row.Level,
			&row.Path,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
