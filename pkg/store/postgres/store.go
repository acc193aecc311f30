package postgres

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/foshrdd/grievance/pkg/config"
	"github.com/foshrdd/grievance/pkg/model"
)

// ErrNotFound is returned when a ticket, employee or login does not exist.
var ErrNotFound = errors.New("record not found")

type Store struct {
	db *gorm.DB
}

// NewStore opens a connection for the given purpose. Connection acquisition
// retries with exponential backoff and jitter, cycling through the alternate
// credentials when the purpose user's connection slots are exhausted, and
// fails hard after the configured attempt count. Query-level errors are never
// retried.
func NewStore(cfg *config.DatabaseConfig, purpose string, log *zap.Logger) (*Store, error) {
	users := candidateUsers(cfg, purpose)

	var lastErr error
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		shuffled := make([]string, len(users))
		copy(shuffled, users)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		for _, user := range shuffled {
			db, err := open(cfg, user)
			if err == nil {
				log.Info("connected to database", zap.String("user", user), zap.String("purpose", purpose))
				return &Store{db: db}, nil
			}
			lastErr = err
			log.Warn("database connection attempt failed",
				zap.String("user", user),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
		}

		delay := backoff(cfg.BaseBackoff, cfg.MaxBackoff, attempt)
		log.Warn("all credentials exhausted, backing off",
			zap.Duration("delay", delay),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", cfg.MaxRetries))
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to establish a database connection after %d attempts: %w", cfg.MaxRetries, lastErr)
}

func candidateUsers(cfg *config.DatabaseConfig, purpose string) []string {
	users := []string{purpose}
	if purpose != cfg.User && cfg.User != "" {
		users = append(users, cfg.User)
	}
	for _, u := range cfg.AltUsers {
		if u != purpose {
			users = append(users, u)
		}
	}
	return users
}

func open(cfg *config.DatabaseConfig, user string) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSNForUser(user)), gormConfig)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

func backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	delay := base << uint(attempt)
	jitter := time.Duration(rand.Int63n(int64(time.Second)))
	if delay+jitter > max && max > 0 {
		return max
	}
	return delay + jitter
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&model.Company{},
		&model.Office{},
		&model.Employee{},
		&model.Login{},
		&model.Complaint{},
		&model.ComplaintFile{},
		&model.RoutingRecord{},
		&model.Notification{},
	)
}
