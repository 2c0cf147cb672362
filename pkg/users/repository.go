package users

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	apperrors "github.com/identkit/userhub/pkg/errors"
)

// Repository is the credential store: a keyed record store for identities
// backed by SQLite. The unique index on email is the authoritative defense
// against duplicate identities under concurrent writes.
type Repository struct {
	db *gorm.DB
}

// NewRepository opens the store at the given path and migrates the schema.
// File-backed paths get their parent directory created; paths containing
// "memory" are passed through untouched for tests.
func NewRepository(path string) (*Repository, error) {
	if !strings.Contains(path, "memory") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

// DB exposes the underlying handle for collaborators that query the store
// directly, such as the uniqueness validator.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// GetByID retrieves a user by id, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewDatabase("failed to get user", err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email, or nil when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewDatabase("failed to get user by email", err)
	}
	return &user, nil
}

// List returns all users ordered by id.
func (r *Repository) List(ctx context.Context) ([]User, error) {
	var users []User
	if err := r.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, apperrors.NewDatabase("failed to list users", err)
	}
	return users, nil
}

// Count returns the number of stored identities.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&User{}).Count(&n).Error; err != nil {
		return 0, apperrors.NewDatabase("failed to count users", err)
	}
	return n, nil
}

// Create inserts a new user. A unique-index violation on email surfaces as
// the duplicate-email conflict.
func (r *Repository) Create(ctx context.Context, user *User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicate(err) {
			return apperrors.NewDuplicateEmail(user.Email)
		}
		return apperrors.NewDatabase("failed to create user", err)
	}
	return nil
}

// Update persists all fields of an existing user. Callers load the record
// first, so a missing id is their error to raise.
func (r *Repository) Update(ctx context.Context, user *User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isDuplicate(err) {
			return apperrors.NewDuplicateEmail(user.Email)
		}
		return apperrors.NewDatabase("failed to update user", err)
	}
	return nil
}

// Delete removes a user by id and returns the removed record. Fails with
// not-found when the id is absent; repeating a delete keeps failing the
// same way.
func (r *Repository) Delete(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("user not found")
		}
		return nil, apperrors.NewDatabase("failed to get user", err)
	}

	if err := r.db.WithContext(ctx).Delete(&User{}, id).Error; err != nil {
		return nil, apperrors.NewDatabase("failed to delete user", err)
	}
	return &user, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// isDuplicate reports whether err is a unique-constraint violation. The
// string check covers sqlite drivers predating gorm's error translation.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
