package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ankandalui/med-ai-sub001/internal/platform/db"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFromContext(ctx, r.pool)
}

const docCols = `id, patient_id, title, description, file_name, file_size, file_type, type, tags,
	cid, ipfs_url, created_at, updated_at`

func (r *repoPG) scanDoc(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.PatientID, &d.Title, &d.Description, &d.FileName, &d.FileSize,
		&d.FileType, &d.Type, &d.Tags, &d.CID, &d.IPFSURL, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.NotFound("Document not found")
	}
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Document) error {
	d.ID = uuid.New()
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO uploaded_documents (id, patient_id, title, description, file_name, file_size,
			file_type, type, tags, cid, ipfs_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		d.ID, d.PatientID, d.Title, d.Description, d.FileName, d.FileSize,
		d.FileType, d.Type, d.Tags, d.CID, d.IPFSURL,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Document, error) {
	query := `SELECT ` + docCols + ` FROM uploaded_documents WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != nil {
		query += fmt.Sprintf(" AND patient_id = $%d", idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", idx)
		args = append(args, f.Type)
		idx++
	}
	if f.Search != "" {
		query += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d OR $%d = ANY(tags))", idx, idx, idx+1)
		args = append(args, "%"+f.Search+"%", strings.ToLower(f.Search))
		idx += 2
	}

	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, f.Limit)
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*Document{}
	for rows.Next() {
		d, err := r.scanDoc(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) (*Document, error) {
	return r.scanDoc(r.conn(ctx).QueryRow(ctx,
		`DELETE FROM uploaded_documents WHERE id = $1 RETURNING `+docCols, id))
}
