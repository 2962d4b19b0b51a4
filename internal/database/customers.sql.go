package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createCustomer = `
INSERT INTO customers (name, phone, address, delivery_cost)
VALUES ($1, $2, $3, $4)
RETURNING id, name, phone, address, delivery_cost, created_at
`

type CreateCustomerParams struct {
	Name         string
	Phone        pgtype.Text
	Address      pgtype.Text
	DeliveryCost pgtype.Numeric
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	var c Customer
	err := q.db.QueryRow(ctx, createCustomer, arg.Name, arg.Phone, arg.Address, arg.DeliveryCost).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.DeliveryCost, &c.CreatedAt)
	return c, err
}

const getCustomer = `
SELECT id, name, phone, address, delivery_cost, created_at FROM customers WHERE id = $1
`

func (q *Queries) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	var c Customer
	err := q.db.QueryRow(ctx, getCustomer, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.DeliveryCost, &c.CreatedAt)
	return c, err
}

const listCustomers = `
SELECT id, name, phone, address, delivery_cost, created_at FROM customers ORDER BY name
`

func (q *Queries) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.DeliveryCost, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

const createDriver = `
INSERT INTO drivers (name, phone) VALUES ($1, $2)
RETURNING id, name, phone, created_at
`

func (q *Queries) CreateDriver(ctx context.Context, name string, phone pgtype.Text) (Driver, error) {
	var d Driver
	err := q.db.QueryRow(ctx, createDriver, name, phone).Scan(&d.ID, &d.Name, &d.Phone, &d.CreatedAt)
	return d, err
}

const getDriver = `
SELECT id, name, phone, created_at FROM drivers WHERE id = $1
`

func (q *Queries) GetDriver(ctx context.Context, id uuid.UUID) (Driver, error) {
	var d Driver
	err := q.db.QueryRow(ctx, getDriver, id).Scan(&d.ID, &d.Name, &d.Phone, &d.CreatedAt)
	return d, err
}

const listDrivers = `
SELECT id, name, phone, created_at FROM drivers ORDER BY name
`

func (q *Queries) ListDrivers(ctx context.Context) ([]Driver, error) {
	rows, err := q.db.Query(ctx, listDrivers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var drivers []Driver
	for rows.Next() {
		var d Driver
		if err := rows.Scan(&d.ID, &d.Name, &d.Phone, &d.CreatedAt); err != nil {
			return nil, err
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}
