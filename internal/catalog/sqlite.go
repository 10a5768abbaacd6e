package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/galaxyops/holocron/internal/models"
)

// schema is applied on open; IF NOT EXISTS keeps reopening idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS characters (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	species      TEXT NOT NULL DEFAULT '',
	homeworld    TEXT NOT NULL DEFAULT '',
	gender       TEXT NOT NULL DEFAULT '',
	height       REAL,
	mass         REAL,
	image_url    TEXT NOT NULL DEFAULT '',
	affiliations TEXT NOT NULL DEFAULT '[]',
	master_ids   TEXT NOT NULL DEFAULT '[]',
	biography    TEXT NOT NULL DEFAULT '',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_characters_name ON characters(name);

CREATE TABLE IF NOT EXISTS teams (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   TEXT NOT NULL DEFAULT '',
	member_ids TEXT NOT NULL DEFAULT '[]',
	version    INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLiteStore persists characters and teams in SQLite.
type SQLiteStore struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite opens a SQLite catalog store at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutCharacter inserts or replaces a character record.
func (s *SQLiteStore) PutCharacter(ctx context.Context, ch models.Character) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(ch.ID) == "" {
		return fmt.Errorf("character id is required")
	}
	affiliations, err := json.Marshal(emptyIfNil(ch.Affiliations))
	if err != nil {
		return fmt.Errorf("marshal affiliations: %w", err)
	}
	masters, err := json.Marshal(emptyIfNil(ch.MasterIDs))
	if err != nil {
		return fmt.Errorf("marshal master ids: %w", err)
	}

	createdAt := ch.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := ch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO characters (
		   id, name, species, homeworld, gender, height, mass,
		   image_url, affiliations, master_ids, biography, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   species = excluded.species,
		   homeworld = excluded.homeworld,
		   gender = excluded.gender,
		   height = excluded.height,
		   mass = excluded.mass,
		   image_url = excluded.image_url,
		   affiliations = excluded.affiliations,
		   master_ids = excluded.master_ids,
		   biography = excluded.biography,
		   updated_at = excluded.updated_at`,
		ch.ID, ch.Name, ch.Species, ch.Homeworld, ch.Gender, ch.Height, ch.Mass,
		ch.ImageURL, string(affiliations), string(masters), ch.Biography,
		toMillis(createdAt), toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("put character %s: %w", ch.ID, err)
	}
	return nil
}

const characterColumns = `id, name, species, homeworld, gender, height, mass,
	image_url, affiliations, master_ids, biography, created_at, updated_at`

// GetCharacter retrieves a character by ID.
func (s *SQLiteStore) GetCharacter(ctx context.Context, id string) (*models.Character, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+characterColumns+` FROM characters WHERE id = ?`,
		id,
	)
	ch, err := scanCharacter(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("character %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get character %s: %w", id, err)
	}
	return ch, nil
}

// ListCharacters returns matching characters ordered by ID with cursor pagination.
func (s *SQLiteStore) ListCharacters(ctx context.Context, filter *CharacterFilter, limit int, cursor string) ([]models.Character, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + characterColumns + ` FROM characters WHERE id > ?`
	args := []any{cursor}
	if filter != nil && filter.Search != "" {
		query += ` AND (name LIKE ? COLLATE NOCASE OR species LIKE ? COLLATE NOCASE OR homeworld LIKE ? COLLATE NOCASE)`
		needle := "%" + filter.Search + "%"
		args = append(args, needle, needle, needle)
	}
	query += ` ORDER BY id ASC LIMIT ?`
	args = append(args, limit+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var characters []models.Character
	for rows.Next() {
		ch, err := scanCharacter(rows)
		if err != nil {
			return nil, "", fmt.Errorf("list characters: %w", err)
		}
		characters = append(characters, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("list characters: %w", err)
	}

	var nextCursor string
	if len(characters) > limit {
		characters = characters[:limit]
		nextCursor = characters[len(characters)-1].ID
	}
	return characters, nextCursor, nil
}

// DeleteCharacter removes a character by ID.
func (s *SQLiteStore) DeleteCharacter(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM characters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete character %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete character %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("character %s: %w", id, ErrNotFound)
	}
	return nil
}

// CreateTeam inserts a new team.
func (s *SQLiteStore) CreateTeam(ctx context.Context, team models.Team) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(team.ID) == "" {
		return fmt.Errorf("team id is required")
	}
	members, err := json.Marshal(emptyIfNil(team.MemberIDs))
	if err != nil {
		return fmt.Errorf("marshal member ids: %w", err)
	}
	createdAt := team.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO teams (id, name, owner_id, member_ids, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		team.ID, team.Name, team.OwnerID, string(members), team.Version,
		toMillis(createdAt), toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("create team %s: %w", team.ID, err)
	}
	return nil
}

// GetTeam retrieves a team by ID.
func (s *SQLiteStore) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, owner_id, member_ids, version, created_at, updated_at
		   FROM teams WHERE id = ?`,
		id,
	)
	team, err := scanTeam(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("team %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get team %s: %w", id, err)
	}
	return team, nil
}

// ListTeams returns all teams ordered by creation time descending.
func (s *SQLiteStore) ListTeams(ctx context.Context) ([]models.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, owner_id, member_ids, version, created_at, updated_at
		   FROM teams ORDER BY created_at DESC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("list teams: %w", err)
		}
		teams = append(teams, *team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// UpdateTeam writes a team if its version still matches the stored one.
// The version predicate in the WHERE clause is what closes the concurrent
// add-member race at the storage level.
func (s *SQLiteStore) UpdateTeam(ctx context.Context, team models.Team) (*models.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	members, err := json.Marshal(emptyIfNil(team.MemberIDs))
	if err != nil {
		return nil, fmt.Errorf("marshal member ids: %w", err)
	}
	now := time.Now().UTC()
	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE teams SET name = ?, owner_id = ?, member_ids = ?,
		        version = version + 1, updated_at = ?
		  WHERE id = ? AND version = ?`,
		team.Name, team.OwnerID, string(members), toMillis(now),
		team.ID, team.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("update team %s: %w", team.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update team %s: %w", team.ID, err)
	}
	if n == 0 {
		// Distinguish a stale version from a deleted team.
		if _, getErr := s.GetTeam(ctx, team.ID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("team %s stale at version %d: %w", team.ID, team.Version, ErrVersionConflict)
	}
	team.Version++
	team.UpdatedAt = now
	return &team, nil
}

// DeleteTeam removes a team entirely.
func (s *SQLiteStore) DeleteTeam(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete team %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete team %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("team %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCharacter(row rowScanner) (*models.Character, error) {
	var ch models.Character
	var height, mass sql.NullFloat64
	var affiliations, masters string
	var createdAt, updatedAt int64
	err := row.Scan(
		&ch.ID, &ch.Name, &ch.Species, &ch.Homeworld, &ch.Gender,
		&height, &mass, &ch.ImageURL, &affiliations, &masters,
		&ch.Biography, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if height.Valid {
		ch.Height = &height.Float64
	}
	if mass.Valid {
		ch.Mass = &mass.Float64
	}
	if err := json.Unmarshal([]byte(affiliations), &ch.Affiliations); err != nil {
		return nil, fmt.Errorf("unmarshal affiliations: %w", err)
	}
	if err := json.Unmarshal([]byte(masters), &ch.MasterIDs); err != nil {
		return nil, fmt.Errorf("unmarshal master ids: %w", err)
	}
	ch.CreatedAt = fromMillis(createdAt)
	ch.UpdatedAt = fromMillis(updatedAt)
	return &ch, nil
}

func scanTeam(row rowScanner) (*models.Team, error) {
	var team models.Team
	var members string
	var createdAt, updatedAt int64
	err := row.Scan(
		&team.ID, &team.Name, &team.OwnerID, &members,
		&team.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(members), &team.MemberIDs); err != nil {
		return nil, fmt.Errorf("unmarshal member ids: %w", err)
	}
	team.CreatedAt = fromMillis(createdAt)
	team.UpdatedAt = fromMillis(updatedAt)
	return &team, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ Store = (*SQLiteStore)(nil)
