// Package directory maintains per-guild member indexes for fuzzy ID
// lookup, backed by a SQLite membership store.
//
// The store is the durable record of which member IDs belong to which
// guild; the Directory builds in-memory fuzzy indexes from it and keeps
// them current as members come and go.
package directory

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sxyafiq/fuzzyflake"
)

// Store persists guild membership in a SQLite database.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the membership database at path and
// ensures the schema exists. Use ":memory:" for an ephemeral store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("directory: open store %q: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS guild_members (
			guild_id  INTEGER NOT NULL,
			member_id INTEGER NOT NULL,
			PRIMARY KEY (guild_id, member_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("directory: init schema: %w", err)
	}
	return nil
}

// AddMember records that member belongs to guild. Re-adding an existing
// membership is a no-op.
func (s *Store) AddMember(ctx context.Context, guild, member fuzzyflake.ID) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO guild_members (guild_id, member_id) VALUES (?, ?)",
		guild, member)
	if err != nil {
		return fmt.Errorf("directory: add member %d to guild %d: %w", member, guild, err)
	}
	return nil
}

// RemoveMember deletes a membership. Removing an absent membership is a
// no-op.
func (s *Store) RemoveMember(ctx context.Context, guild, member fuzzyflake.ID) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM guild_members WHERE guild_id = ? AND member_id = ?",
		guild, member)
	if err != nil {
		return fmt.Errorf("directory: remove member %d from guild %d: %w", member, guild, err)
	}
	return nil
}

// Members returns every member ID recorded for the guild.
func (s *Store) Members(ctx context.Context, guild fuzzyflake.ID) ([]fuzzyflake.ID, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT member_id FROM guild_members WHERE guild_id = ? ORDER BY member_id",
		guild)
	if err != nil {
		return nil, fmt.Errorf("directory: list members of guild %d: %w", guild, err)
	}
	defer rows.Close()

	var members []fuzzyflake.ID
	for rows.Next() {
		var id fuzzyflake.ID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("directory: scan member of guild %d: %w", guild, err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list members of guild %d: %w", guild, err)
	}
	return members, nil
}

// Guilds returns every guild ID that has at least one member.
func (s *Store) Guilds(ctx context.Context) ([]fuzzyflake.ID, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT guild_id FROM guild_members ORDER BY guild_id")
	if err != nil {
		return nil, fmt.Errorf("directory: list guilds: %w", err)
	}
	defer rows.Close()

	var guilds []fuzzyflake.ID
	for rows.Next() {
		var id fuzzyflake.ID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("directory: scan guild: %w", err)
		}
		guilds = append(guilds, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list guilds: %w", err)
	}
	return guilds, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
