package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/lobby-roster/internal/store"
)

type sessionModel struct {
	ID          string         `gorm:"primaryKey;size:64"`
	Version     int            `gorm:"not null"`
	CreatorID   int64          `gorm:"not null"`
	CreatorName string         `gorm:"not null;default:''"`
	Slot        string         `gorm:"size:4;not null"`
	Players     []store.Member `gorm:"serializer:json;type:jsonb"`
	Observers   []store.Member `gorm:"serializer:json;type:jsonb"`
	ChatID      int64
	MessageID   int64
	Status      string `gorm:"size:16;not null"`
	CreatedAt   time.Time
}

func (sessionModel) TableName() string { return "lobby_sessions" }

type adminModel struct {
	ID      int64  `gorm:"primaryKey;autoIncrement:false"`
	Alias   string `gorm:"not null;default:''"`
	AddedAt time.Time
}

func (adminModel) TableName() string { return "lobby_admins" }

type destinationModel struct {
	ChatID  int64  `gorm:"primaryKey;autoIncrement:false"`
	Kind    string `gorm:"size:16;not null"`
	Title   string `gorm:"not null;default:''"`
	AddedAt time.Time
}

func (destinationModel) TableName() string { return "lobby_destinations" }

// Store persists to postgres through gorm and the pgx driver.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&sessionModel{}, &adminModel{}, &destinationModel{}); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func toModel(rec store.SessionRecord) sessionModel {
	return sessionModel{
		ID:          rec.ID,
		Version:     rec.Version,
		CreatorID:   rec.CreatorID,
		CreatorName: rec.CreatorName,
		Slot:        rec.Slot,
		Players:     rec.Players,
		Observers:   rec.Observers,
		ChatID:      rec.ChatID,
		MessageID:   rec.MessageID,
		Status:      rec.Status,
		CreatedAt:   rec.CreatedAt,
	}
}

func fromModel(m sessionModel) store.SessionRecord {
	return store.SessionRecord{
		ID:          m.ID,
		Version:     m.Version,
		CreatorID:   m.CreatorID,
		CreatorName: m.CreatorName,
		Slot:        m.Slot,
		Players:     m.Players,
		Observers:   m.Observers,
		ChatID:      m.ChatID,
		MessageID:   m.MessageID,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt,
	}
}

func (s *Store) SaveSession(ctx context.Context, rec store.SessionRecord) error {
	m := toModel(rec)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"version", "creator_id", "creator_name", "slot", "players",
			"observers", "chat_id", "message_id", "status",
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "lobby_sessions.version < excluded.version"},
		}},
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("save session %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (store.SessionRecord, error) {
	var m sessionModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.SessionRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.SessionRecord{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return fromModel(m), nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&sessionModel{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context) ([]store.SessionRecord, error) {
	var models []sessionModel
	if err := s.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]store.SessionRecord, 0, len(models))
	for _, m := range models {
		out = append(out, fromModel(m))
	}
	return out, nil
}

func (s *Store) PutAdmin(ctx context.Context, a store.Admin) error {
	m := adminModel{ID: a.ID, Alias: a.Alias, AddedAt: a.AddedAt}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"alias"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("put admin %d: %w", a.ID, err)
	}
	return nil
}

func (s *Store) GetAdmin(ctx context.Context, id int64) (store.Admin, error) {
	var m adminModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Admin{}, store.ErrNotFound
	}
	if err != nil {
		return store.Admin{}, fmt.Errorf("get admin %d: %w", id, err)
	}
	return store.Admin{ID: m.ID, Alias: m.Alias, AddedAt: m.AddedAt}, nil
}

func (s *Store) DeleteAdmin(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Delete(&adminModel{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete admin %d: %w", id, err)
	}
	return nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]store.Admin, error) {
	var models []adminModel
	if err := s.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	out := make([]store.Admin, 0, len(models))
	for _, m := range models {
		out = append(out, store.Admin{ID: m.ID, Alias: m.Alias, AddedAt: m.AddedAt})
	}
	return out, nil
}

func (s *Store) PutDestination(ctx context.Context, d store.Destination) error {
	m := destinationModel{ChatID: d.ChatID, Kind: string(d.Kind), Title: d.Title, AddedAt: d.AddedAt}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "title"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("put destination %d: %w", d.ChatID, err)
	}
	return nil
}

func (s *Store) DeleteDestination(ctx context.Context, chatID int64) error {
	if err := s.db.WithContext(ctx).Delete(&destinationModel{}, "chat_id = ?", chatID).Error; err != nil {
		return fmt.Errorf("delete destination %d: %w", chatID, err)
	}
	return nil
}

func (s *Store) ListDestinations(ctx context.Context) ([]store.Destination, error) {
	var models []destinationModel
	if err := s.db.WithContext(ctx).Order("chat_id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}
	out := make([]store.Destination, 0, len(models))
	for _, m := range models {
		out = append(out, store.Destination{
			ChatID:  m.ChatID,
			Kind:    store.DestinationKind(m.Kind),
			Title:   m.Title,
			AddedAt: m.AddedAt,
		})
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// reset empties every table. Tests only.
func (s *Store) reset(ctx context.Context) error {
	for _, table := range []string{"lobby_sessions", "lobby_admins", "lobby_destinations"} {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}
