package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillmatch-api/internal/domain"
	"github.com/phrazzld/skillmatch-api/internal/platform/logger"
	"github.com/phrazzld/skillmatch-api/internal/store"
)

const userColumns = `id, sso_id, name, email, role, department, skills,
		experience_years, current_workload, is_available, created_at, updated_at`

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// Create implements store.UserStore.Create
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during create",
			slog.String("error", err.Error()),
			slog.String("sso_id", user.SSOID))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	skills, err := encodeJSON(user.Skills)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		user.ID,
		user.SSOID,
		user.Name,
		user.Email,
		user.Role,
		user.Department,
		skills,
		user.ExperienceYears,
		user.CurrentWorkload,
		user.IsAvailable,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("sso_id", user.SSOID))
		return mapUserConflict(err)
	}

	log.Info("user created successfully",
		slog.String("user_id", user.ID.String()),
		slog.String("sso_id", user.SSOID))
	return nil
}

// Upsert implements store.UserStore.Upsert
// An existing row keeps its id and created_at.
func (s *PostgresUserStore) Upsert(ctx context.Context, user *domain.User) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		return false, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	skills, err := encodeJSON(user.Skills)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (sso_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			department = EXCLUDED.department,
			skills = EXCLUDED.skills,
			experience_years = EXCLUDED.experience_years,
			current_workload = EXCLUDED.current_workload,
			is_available = EXCLUDED.is_available,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted
	`
	var inserted bool
	err = s.db.QueryRowContext(ctx, query,
		user.ID,
		user.SSOID,
		user.Name,
		user.Email,
		user.Role,
		user.Department,
		skills,
		user.ExperienceYears,
		user.CurrentWorkload,
		user.IsAvailable,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&inserted)
	if err != nil {
		log.Error("failed to upsert user",
			slog.String("error", err.Error()),
			slog.String("sso_id", user.SSOID))
		return false, mapUserConflict(err)
	}

	log.Debug("user upserted",
		slog.String("sso_id", user.SSOID),
		slog.Bool("created", inserted))
	return inserted, nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.getOne(ctx, query, id, slog.String("user_id", id.String()))
}

// GetBySSOID implements store.UserStore.GetBySSOID
func (s *PostgresUserStore) GetBySSOID(ctx context.Context, ssoID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE sso_id = $1`
	return s.getOne(ctx, query, ssoID, slog.String("sso_id", ssoID))
}

func (s *PostgresUserStore) getOne(ctx context.Context, query string, arg any, attr slog.Attr) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("user not found", attr)
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user", slog.String("error", err.Error()), attr)
		return nil, MapError(err)
	}
	return user, nil
}

// List implements store.UserStore.List
func (s *PostgresUserStore) List(ctx context.Context) ([]*domain.User, error) {
	return s.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
}

// ListAvailable implements store.UserStore.ListAvailable
func (s *PostgresUserStore) ListAvailable(ctx context.Context) ([]*domain.User, error) {
	return s.list(ctx, `SELECT `+userColumns+` FROM users WHERE is_available ORDER BY id`)
}

func (s *PostgresUserStore) list(ctx context.Context, query string) ([]*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query users", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			log.Error("failed to scan user row", slog.String("error", err.Error()))
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating user rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Debug("users listed", slog.Int("count", len(users)))
	return users, nil
}

// AddWorkload implements store.UserStore.AddWorkload
func (s *PostgresUserStore) AddWorkload(ctx context.Context, id uuid.UUID, delta float64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE users
		SET current_workload = LEAST(100, GREATEST(0, current_workload + $1)),
			updated_at = $2
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, delta, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update user workload",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		return err
	}

	log.Debug("user workload updated",
		slog.String("user_id", id.String()),
		slog.Float64("delta", delta))
	return nil
}

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, logger: s.logger}
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user   domain.User
		skills []byte
	)
	err := row.Scan(
		&user.ID,
		&user.SSOID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.Department,
		&skills,
		&user.ExperienceYears,
		&user.CurrentWorkload,
		&user.IsAvailable,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if user.Skills, err = decodeJSON[domain.Skill](skills); err != nil {
		return nil, err
	}
	return &user, nil
}

func mapUserConflict(err error) error {
	if mapped := MapUniqueViolation(err, usersEmailConstraint, store.ErrEmailExists); errors.Is(mapped, store.ErrEmailExists) {
		return mapped
	}
	return MapUniqueViolation(err, usersSSOIDConstraint, store.ErrSSOIDExists)
}
