package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// GormStore is the relational Store backed by gorm
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store over db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the helpdesk tables.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(Models()...)
}

func (s *GormStore) FAQs() FAQRepository                   { return &gormFAQRepository{db: s.db} }
func (s *GormStore) Conversations() ConversationRepository { return &gormConversationRepository{db: s.db} }
func (s *GormStore) Messages() MessageRepository           { return &gormMessageRepository{db: s.db} }
func (s *GormStore) Escalations() EscalationRepository     { return &gormEscalationRepository{db: s.db} }
func (s *GormStore) Users() UserRepository                 { return &gormUserRepository{db: s.db} }
func (s *GormStore) Staff() StaffRepository                { return &gormStaffRepository{db: s.db} }

// Transaction runs fn inside a database transaction
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// Ping checks the database connection
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translate maps gorm errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

// affected returns ErrNotFound when a targeted update touched no rows.
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
