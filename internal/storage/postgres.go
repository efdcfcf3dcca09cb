package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/xaenox/cupid-bot/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the lib/pq connection string for the config.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(ctx context.Context, config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	// Initialize database schema
	if err := storage.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	s.logger.Info("Database schema ready")
	return nil
}

func (s *PostgresStorage) SaveBinding(ctx context.Context, binding *models.Binding) error {
	query := `
		INSERT INTO proposal_bindings (id, chat_id, message_id, initiator_id, other_id, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET chat_id = EXCLUDED.chat_id, message_id = EXCLUDED.message_id`

	_, err := s.db.ExecContext(ctx, query,
		binding.ID,
		binding.ChatID,
		binding.MessageID,
		binding.Proposal.InitiatorID,
		binding.Proposal.OtherID,
		string(binding.Proposal.Kind),
		binding.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving binding: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetBinding(ctx context.Context, id string) (*models.Binding, error) {
	// Callback data comes from clients; anything that is not a UUID was
	// never saved.
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrBindingNotFound
	}

	query := `
		SELECT id, chat_id, message_id, initiator_id, other_id, kind, created_at
		FROM proposal_bindings
		WHERE id = $1`

	binding := &models.Binding{}
	var kind string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&binding.ID,
		&binding.ChatID,
		&binding.MessageID,
		&binding.Proposal.InitiatorID,
		&binding.Proposal.OtherID,
		&kind,
		&binding.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBindingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying binding: %w", err)
	}
	binding.Proposal.Kind = models.Kind(kind)
	return binding, nil
}

func (s *PostgresStorage) DeleteBinding(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM proposal_bindings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("error deleting binding: %w", err)
	}
	return nil
}

func (s *PostgresStorage) DeleteBindingsFor(ctx context.Context, key models.Key) ([]models.Binding, error) {
	query := `
		DELETE FROM proposal_bindings
		WHERE initiator_id = $1 AND other_id = $2 AND kind = $3
		RETURNING id, chat_id, message_id, created_at`

	rows, err := s.db.QueryContext(ctx, query, key.InitiatorID, key.OtherID, string(key.Kind))
	if err != nil {
		return nil, fmt.Errorf("error deleting bindings: %w", err)
	}
	defer rows.Close()

	var removed []models.Binding
	for rows.Next() {
		binding := models.Binding{Proposal: key}
		if err := rows.Scan(&binding.ID, &binding.ChatID, &binding.MessageID, &binding.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning binding: %w", err)
		}
		removed = append(removed, binding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error deleting bindings: %w", err)
	}
	return removed, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
