package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"swaad_backend/internal/models"
)

// CustomerRepository exposes the customer reads the order core needs:
// the profile snapshot at order creation and the login lookup.
type CustomerRepository interface {
	GetByUID(uid string) (*models.Customer, error)
	GetByEmail(email string) (*models.Customer, error)
}

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository.
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

const customerColumns = `uid, full_name, phone, email, password_hash, created_at, updated_at`

func (r *customerRepository) scanCustomer(row *sql.Row) (*models.Customer, error) {
	customer := &models.Customer{}
	err := row.Scan(
		&customer.UID, &customer.FullName, &customer.Phone, &customer.Email,
		&customer.PasswordHash, &customer.CreatedAt, &customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning customer: %v", ErrDatabaseError, err)
	}
	return customer, nil
}

func (r *customerRepository) GetByUID(uid string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE uid = $1`
	return r.scanCustomer(r.db.QueryRow(query, uid))
}

func (r *customerRepository) GetByEmail(email string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = $1`
	return r.scanCustomer(r.db.QueryRow(query, email))
}
