package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/authtrail/internal/database"
	"github.com/BradenHooton/authtrail/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// userColumns maps the lookup keys a caller may use to their SQL column
var userColumns = map[string]string{
	"id":    "id",
	"email": "email",
	"name":  "name",
}

const userSelect = `SELECT id, email, name, created_at, updated_at FROM users`

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return scanUserRow(r.pool.QueryRow(ctx, userSelect+` WHERE id = $1`, id))
}

// FindByColumn returns the first user whose column equals value. Only id, email and
// name are accepted; anything else yields ErrUnsupportedKey without touching the database.
func (r *UserRepository) FindByColumn(ctx context.Context, column, value string) (*models.User, error) {
	col, ok := userColumns[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedKey, column)
	}

	query := userSelect + ` WHERE ` + col + ` = $1 ORDER BY created_at LIMIT 1`
	return scanUserRow(r.pool.QueryRow(ctx, query, value))
}

// Upsert inserts the user or refreshes email and name of an existing one
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = CURRENT_TIMESTAMP
		RETURNING id, email, name, created_at, updated_at
	`

	result, err := scanUserRow(r.pool.QueryRow(ctx, query, user.ID, user.Email, user.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return result, nil
}
