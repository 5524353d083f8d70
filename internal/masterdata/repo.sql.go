package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed reference lookups.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetFirm returns one firm.
func (r *Repository) GetFirm(ctx context.Context, id int64) (*Firm, error) {
	var f Firm
	err := r.pool.QueryRow(ctx, `SELECT id, name, pib, registry_number, address, city, email, bank_account,
invoice_prefix, invoice_suffix, invoice_counter, active, created_at, updated_at
FROM firms WHERE id = $1`, id).Scan(
		&f.ID, &f.Name, &f.PIB, &f.RegistryNumber, &f.Address, &f.City, &f.Email, &f.BankAccount,
		&f.InvoicePrefix, &f.InvoiceSuffix, &f.InvoiceCounter, &f.Active, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetClient returns one client scoped to a firm.
func (r *Repository) GetClient(ctx context.Context, firmID, id int64) (*Client, error) {
	var c Client
	err := r.pool.QueryRow(ctx, `SELECT id, firm_id, name, pib, address, city, country, email, created_at, updated_at
FROM clients WHERE id = $1 AND firm_id = $2`, id, firmID).Scan(
		&c.ID, &c.FirmID, &c.Name, &c.PIB, &c.Address, &c.City, &c.Country, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCatalogItem returns one catalog item scoped to a firm.
func (r *Repository) GetCatalogItem(ctx context.Context, firmID, id int64) (*CatalogItem, error) {
	var item CatalogItem
	err := r.pool.QueryRow(ctx, `SELECT id, firm_id, name, unit, unit_price, created_at, updated_at
FROM catalog_items WHERE id = $1 AND firm_id = $2`, id, firmID).Scan(
		&item.ID, &item.FirmID, &item.Name, &item.Unit, &item.UnitPrice, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListClients returns all of a firm's clients ordered by name.
func (r *Repository) ListClients(ctx context.Context, firmID int64) ([]Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, firm_id, name, pib, address, city, country, email, created_at, updated_at
FROM clients WHERE firm_id = $1 ORDER BY name`, firmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.FirmID, &c.Name, &c.PIB, &c.Address, &c.City, &c.Country, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return clients, nil
}
