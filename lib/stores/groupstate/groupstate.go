// Package groupstate persists folded group state in SQLite through gorm, so
// a reader can resume from the last fold instead of replaying history.
package groupstate

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
	"github.com/HORNET-Storage/hornet-groups/lib/groups"
	"github.com/HORNET-Storage/hornet-groups/lib/logging"
	"github.com/HORNET-Storage/hornet-groups/lib/stores"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GroupRecord is one row per group.
type GroupRecord struct {
	ID        string `gorm:"primaryKey"`
	Relay     string `gorm:"index"`
	Local     string
	Lifecycle string
	Name      string
	About     string
	Picture   string
	Privacy   string
	Access    string
	Roles     string
	Retracted string
	Invites   string

	MetadataSeed *int64
	AdminsSeed   *int64
	MembersSeed  *int64
	RolesSeed    *int64

	FoldedAt  int64
	UpdatedAt time.Time
}

// RosterEntry is one row per pubkey known to a group.
type RosterEntry struct {
	GroupID    string `gorm:"primaryKey"`
	PubKey     string `gorm:"primaryKey;index"`
	Membership string
	Roles      string
}

type Store struct {
	DB *gorm.DB
}

// InitStore opens the database file at path, creating the schema if needed.
func InitStore(path string) (*Store, error) {
	// WAL and a generous busy timeout let readers run while a fold is saved
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=30000&_synchronous=normal", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %v", err)
	}

	if err := db.AutoMigrate(&GroupRecord{}, &RosterEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %v", err)
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func seed(state *groups.State, c groups.Component) *int64 {
	ts, ok := state.Seeded[c]
	if !ok {
		return nil
	}
	v := int64(ts)
	return &v
}

func sortedKeys(m map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(m))
}

// Save replaces the stored state of state.Group.
func (s *Store) Save(ctx context.Context, state *groups.State) error {
	roles, err := json.MarshalToString(state.Roles)
	if err != nil {
		return err
	}
	retracted, err := json.MarshalToString(sortedKeys(state.Retracted))
	if err != nil {
		return err
	}
	invites, err := json.MarshalToString(sortedKeys(state.Invites))
	if err != nil {
		return err
	}

	id := state.Group.String()
	record := GroupRecord{
		ID:           id,
		Relay:        state.Group.Relay,
		Local:        state.Group.Local,
		Lifecycle:    state.Lifecycle.String(),
		Name:         state.Metadata.Name,
		About:        state.Metadata.About,
		Picture:      state.Metadata.Picture,
		Privacy:      state.Metadata.Privacy.String(),
		Access:       state.Metadata.Access.String(),
		Roles:        roles,
		Retracted:    retracted,
		Invites:      invites,
		MetadataSeed: seed(state, groups.MetadataComponent),
		AdminsSeed:   seed(state, groups.AdminsComponent),
		MembersSeed:  seed(state, groups.MembersComponent),
		RolesSeed:    seed(state, groups.RolesComponent),
		FoldedAt:     int64(state.UpdatedAt),
	}

	var entries []RosterEntry
	seen := make(map[string]struct{})
	add := func(pk string) error {
		if _, dup := seen[pk]; dup {
			return nil
		}
		seen[pk] = struct{}{}
		entry := RosterEntry{GroupID: id, PubKey: pk, Membership: state.Membership(pk).String()}
		if r, ok := state.Admins[pk]; ok {
			encoded, err := json.MarshalToString(r)
			if err != nil {
				return err
			}
			entry.Roles = encoded
		}
		entries = append(entries, entry)
		return nil
	}
	for _, pk := range state.MemberList() {
		if err := add(pk); err != nil {
			return err
		}
	}
	for _, pk := range sortedKeys(state.Pending) {
		if err := add(pk); err != nil {
			return err
		}
	}
	for _, a := range state.AdminList() {
		if err := add(a.PubKey); err != nil {
			return err
		}
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", id).Delete(&RosterEntry{}).Error; err != nil {
			return err
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return err
			}
		}
		logging.Debug("Saved group state", logging.Fields{"group": id, "roster": len(entries)})
		return nil
	})
}

// Load rebuilds the stored state of g, or returns stores.ErrNotFound.
func (s *Store) Load(ctx context.Context, g groups.GroupID) (*groups.State, error) {
	db := s.DB.WithContext(ctx)

	var record GroupRecord
	err := db.First(&record, "id = ?", g.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, stores.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var entries []RosterEntry
	if err := db.Where("group_id = ?", record.ID).Find(&entries).Error; err != nil {
		return nil, err
	}

	state := groups.NewState(g)
	switch record.Lifecycle {
	case groups.Active.String():
		state.Lifecycle = groups.Active
	case groups.Deleted.String():
		state.Lifecycle = groups.Deleted
	}

	privacy, err := groups.ParsePrivacy(record.Privacy)
	if err != nil {
		return nil, err
	}
	access, err := groups.ParseAccessModel(record.Access)
	if err != nil {
		return nil, err
	}
	state.Metadata = groups.Metadata{
		Name:    record.Name,
		About:   record.About,
		Picture: record.Picture,
		Privacy: privacy,
		Access:  access,
	}

	if err := json.UnmarshalFromString(record.Roles, &state.Roles); err != nil {
		return nil, fmt.Errorf("roles of %s: %w", record.ID, err)
	}
	var retracted, invites []string
	if err := json.UnmarshalFromString(record.Retracted, &retracted); err != nil {
		return nil, fmt.Errorf("retracted ids of %s: %w", record.ID, err)
	}
	if err := json.UnmarshalFromString(record.Invites, &invites); err != nil {
		return nil, fmt.Errorf("invites of %s: %w", record.ID, err)
	}
	for _, id := range retracted {
		state.Retracted[id] = struct{}{}
	}
	for _, code := range invites {
		state.Invites[code] = struct{}{}
	}

	for c, v := range map[groups.Component]*int64{
		groups.MetadataComponent: record.MetadataSeed,
		groups.AdminsComponent:   record.AdminsSeed,
		groups.MembersComponent:  record.MembersSeed,
		groups.RolesComponent:    record.RolesSeed,
	} {
		if v != nil {
			state.Seeded[c] = events.Timestamp(*v)
		}
	}
	state.UpdatedAt = events.Timestamp(record.FoldedAt)

	for _, e := range entries {
		switch e.Membership {
		case groups.Member.String():
			state.Members[e.PubKey] = struct{}{}
		case groups.Pending.String():
			state.Pending[e.PubKey] = struct{}{}
		}
		if e.Roles != "" {
			var roles []string
			if err := json.UnmarshalFromString(e.Roles, &roles); err != nil {
				return nil, fmt.Errorf("roles of %s in %s: %w", e.PubKey, record.ID, err)
			}
			state.Admins[e.PubKey] = roles
		}
	}
	return state, nil
}

// GroupsOf lists the ids of groups in which pubkey is a member or admin.
func (s *Store) GroupsOf(ctx context.Context, pubkey string) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&RosterEntry{}).
		Where("pub_key = ? AND (membership = ? OR roles <> '')", pubkey, groups.Member.String()).
		Order("group_id").
		Pluck("group_id", &ids).Error
	return ids, err
}

func (s *Store) Delete(ctx context.Context, g groups.GroupID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", g.String()).Delete(&RosterEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&GroupRecord{}, "id = ?", g.String()).Error
	})
}
