package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/kadry/dbopen"
)

// querier is the subset of *sql.DB and *sql.Tx the lookups need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries carries every catalog operation; Store runs them on the pool and
// Tx inside a transaction.
type queries struct {
	q   querier
	now func() time.Time
}

// Store wraps the catalog database.
type Store struct {
	queries
	db *sql.DB
}

// Tx is a catalog transaction handed to Update callbacks.
type Tx struct {
	queries
}

// Open opens (or creates) the catalog database at path and applies Schema.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return &Store{queries: queries{q: db, now: time.Now}, db: db}, nil
}

// NewStore wraps an already opened database and applies Schema.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("catalog: migrate: %w", err)
	}
	return &Store{queries: queries{q: db, now: time.Now}, db: db}, nil
}

// DB returns the underlying *sql.DB for sharing with the event log.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Update runs fn in one transaction. Any error returned by fn rolls back
// every write made through the Tx.
func (s *Store) Update(ctx context.Context, fn func(*Tx) error) error {
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&Tx{queries: queries{q: tx, now: s.now}})
	})
}

func (q *queries) stamp() string { return q.now().UTC().Format(time.RFC3339) }

func parseStamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// --- Units ---

// GetUnit returns the unit with id or ErrUnitNotFound.
func (q *queries) GetUnit(ctx context.Context, id int64) (*Unit, error) {
	var u Unit
	var parent sql.NullInt64
	err := q.q.QueryRowContext(ctx,
		`SELECT id, name, code, parent_id, is_active FROM units WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Code, &parent, &u.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrUnitNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get unit: %w", err)
	}
	if parent.Valid {
		u.ParentID = &parent.Int64
	}
	return &u, nil
}

// EnsureUnit returns the unit with code, creating it when absent. An existing
// unit keeps its name.
func (q *queries) EnsureUnit(ctx context.Context, code, name string, parentID *int64) (*Unit, error) {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO units (name, code, parent_id) VALUES (?, ?, ?) ON CONFLICT(code) DO NOTHING`,
		name, code, parentID)
	if err != nil {
		return nil, fmt.Errorf("catalog: ensure unit %q: %w", code, err)
	}
	var id int64
	if err := q.q.QueryRowContext(ctx, `SELECT id FROM units WHERE code = ?`, code).Scan(&id); err != nil {
		return nil, fmt.Errorf("catalog: ensure unit %q: %w", code, err)
	}
	return q.GetUnit(ctx, id)
}

// ListUnits returns all units ordered by code.
func (q *queries) ListUnits(ctx context.Context) ([]Unit, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT id, name, code, parent_id, is_active FROM units ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list units: %w", err)
	}
	defer rows.Close()
	var out []Unit
	for rows.Next() {
		var u Unit
		var parent sql.NullInt64
		if err := rows.Scan(&u.ID, &u.Name, &u.Code, &parent, &u.IsActive); err != nil {
			return nil, fmt.Errorf("catalog: scan unit: %w", err)
		}
		if parent.Valid {
			u.ParentID = &parent.Int64
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// --- Ranks ---

// EnsureRank creates the rank or updates the order of an existing one.
func (q *queries) EnsureRank(ctx context.Context, name string, order int) (*Rank, error) {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO ranks (name, ord) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET ord = excluded.ord`,
		name, order)
	if err != nil {
		return nil, fmt.Errorf("catalog: ensure rank %q: %w", name, err)
	}
	var r Rank
	err = q.q.QueryRowContext(ctx, `SELECT id, name, ord, is_active FROM ranks WHERE name = ?`, name).
		Scan(&r.ID, &r.Name, &r.Order, &r.IsActive)
	if err != nil {
		return nil, fmt.Errorf("catalog: ensure rank %q: %w", name, err)
	}
	return &r, nil
}

// ListRanks returns all ranks ordered by their seniority order.
func (q *queries) ListRanks(ctx context.Context) ([]Rank, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT id, name, ord, is_active FROM ranks ORDER BY ord, name`)
	if err != nil {
		return nil, fmt.Errorf("catalog: list ranks: %w", err)
	}
	defer rows.Close()
	var out []Rank
	for rows.Next() {
		var r Rank
		if err := rows.Scan(&r.ID, &r.Name, &r.Order, &r.IsActive); err != nil {
			return nil, fmt.Errorf("catalog: scan rank: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FindRankByName matches name case-insensitively and exactly (after
// trimming). SQLite's lower() only folds ASCII, so the comparison is done
// here on the full list. ok is false when no rank matches.
func (q *queries) FindRankByName(ctx context.Context, name string) (r Rank, ok bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Rank{}, false, nil
	}
	ranks, err := q.ListRanks(ctx)
	if err != nil {
		return Rank{}, false, err
	}
	for _, r := range ranks {
		if strings.EqualFold(r.Name, name) {
			return r, true, nil
		}
	}
	return Rank{}, false, nil
}

// --- Positions and qualifications ---

// EnsurePosition returns the position (unitID, code), creating it with title
// when absent. created reports whether a row was inserted.
func (q *queries) EnsurePosition(ctx context.Context, unitID int64, code, title string) (p *Position, created bool, err error) {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO positions (unit_id, title, code) VALUES (?, ?, ?) ON CONFLICT(unit_id, code) DO NOTHING`,
		unitID, title, code)
	if err != nil {
		return nil, false, fmt.Errorf("catalog: ensure position %q: %w", code, err)
	}
	n, _ := res.RowsAffected()

	var pos Position
	err = q.q.QueryRowContext(ctx,
		`SELECT id, unit_id, title, code FROM positions WHERE unit_id = ? AND code = ?`, unitID, code).
		Scan(&pos.ID, &pos.UnitID, &pos.Title, &pos.Code)
	if err != nil {
		return nil, false, fmt.Errorf("catalog: ensure position %q: %w", code, err)
	}
	return &pos, n > 0, nil
}

// ListPositions returns the positions of a unit ordered by title.
func (q *queries) ListPositions(ctx context.Context, unitID int64) ([]Position, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, unit_id, title, code FROM positions WHERE unit_id = ? ORDER BY title`, unitID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list positions: %w", err)
	}
	defer rows.Close()
	var out []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.ID, &p.UnitID, &p.Title, &p.Code); err != nil {
			return nil, fmt.Errorf("catalog: scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ReplaceQualification deletes the row at (PositionID, Category, Order) if
// any and inserts qual. qual.ID and qual.CreatedAt are set on return.
func (q *queries) ReplaceQualification(ctx context.Context, qual *Qualification) error {
	if _, err := q.q.ExecContext(ctx,
		`DELETE FROM position_qualifications WHERE position_id = ? AND category = ? AND ord = ?`,
		qual.PositionID, qual.Category, qual.Order); err != nil {
		return fmt.Errorf("catalog: delete qualification: %w", err)
	}
	stamp := q.stamp()
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO position_qualifications (position_id, category, ord, text, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		qual.PositionID, qual.Category, qual.Order, qual.Text, qual.Source, stamp)
	if err != nil {
		return fmt.Errorf("catalog: insert qualification: %w", err)
	}
	qual.ID, _ = res.LastInsertId()
	qual.CreatedAt = parseStamp(stamp)
	return nil
}

// Qualifications returns the rows of a position ordered by category then order.
func (q *queries) Qualifications(ctx context.Context, positionID int64) ([]Qualification, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT id, position_id, category, ord, text, source, created_at
		FROM position_qualifications WHERE position_id = ?
		ORDER BY category, ord`, positionID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list qualifications: %w", err)
	}
	defer rows.Close()
	var out []Qualification
	for rows.Next() {
		var ql Qualification
		var created string
		if err := rows.Scan(&ql.ID, &ql.PositionID, &ql.Category, &ql.Order, &ql.Text, &ql.Source, &created); err != nil {
			return nil, fmt.Errorf("catalog: scan qualification: %w", err)
		}
		ql.CreatedAt = parseStamp(created)
		out = append(out, ql)
	}
	return out, rows.Err()
}

// CountQualifications returns the number of qualification rows across all
// positions of a unit.
func (q *queries) CountQualifications(ctx context.Context, unitID int64) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM position_qualifications pq
		JOIN positions p ON p.id = pq.position_id
		WHERE p.unit_id = ?`, unitID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("catalog: count qualifications: %w", err)
	}
	return n, nil
}

// --- Users ---

// FindUserByEmail looks up an account by lower-cased email.
func (q *queries) FindUserByEmail(ctx context.Context, email string) (u User, ok bool, err error) {
	var created string
	err = q.q.QueryRowContext(ctx,
		`SELECT id, email, role, password_hash, created_at FROM users WHERE email = ?`,
		NormalizeEmail(email)).
		Scan(&u.ID, &u.Email, &u.Role, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, false, nil
	}
	if err != nil {
		return User{}, false, fmt.Errorf("catalog: find user: %w", err)
	}
	u.CreatedAt = parseStamp(created)
	return u, true, nil
}

// CreateUser inserts an account. The email is normalized first.
func (q *queries) CreateUser(ctx context.Context, email, role, passwordHash string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return User{}, fmt.Errorf("catalog: create user: empty email")
	}
	stamp := q.stamp()
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO users (email, role, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		email, role, passwordHash, stamp)
	if err != nil {
		return User{}, fmt.Errorf("catalog: create user %q: %w", email, err)
	}
	id, _ := res.LastInsertId()
	return User{ID: id, Email: email, Role: role, PasswordHash: passwordHash, CreatedAt: parseStamp(stamp)}, nil
}

// CountUsers returns the number of accounts.
func (q *queries) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: count users: %w", err)
	}
	return n, nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// --- Officer profiles ---

const profileColumns = `id, user_id, full_name, birth_date, birth_place, iin, nationality,
	marital_status, combat_participation, combat_notes, rank_id, unit_id, service_start_date,
	personal_number, awards, penalties, education_civil, education_military, service_history, updated_at`

// GetProfile returns the profile of userID; ok is false when none exists.
func (q *queries) GetProfile(ctx context.Context, userID int64) (p OfficerProfile, ok bool, err error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM officer_profiles WHERE user_id = ?`, userID)
	p, err = scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return OfficerProfile{}, false, nil
	}
	if err != nil {
		return OfficerProfile{}, false, fmt.Errorf("catalog: get profile: %w", err)
	}
	return p, true, nil
}

// CreateProfile inserts an empty profile for userID.
func (q *queries) CreateProfile(ctx context.Context, userID int64) (OfficerProfile, error) {
	stamp := q.stamp()
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO officer_profiles (user_id, updated_at) VALUES (?, ?)`, userID, stamp)
	if err != nil {
		return OfficerProfile{}, fmt.Errorf("catalog: create profile: %w", err)
	}
	id, _ := res.LastInsertId()
	return OfficerProfile{
		ID:             id,
		UserID:         userID,
		ServiceHistory: json.RawMessage("[]"),
		UpdatedAt:      parseStamp(stamp),
	}, nil
}

// SaveProfile writes every field of p back to its row.
func (q *queries) SaveProfile(ctx context.Context, p *OfficerProfile) error {
	history := p.ServiceHistory
	if len(history) == 0 {
		history = json.RawMessage("[]")
	}
	stamp := q.stamp()
	res, err := q.q.ExecContext(ctx, `
		UPDATE officer_profiles SET
			full_name = ?, birth_date = ?, birth_place = ?, iin = ?, nationality = ?,
			marital_status = ?, combat_participation = ?, combat_notes = ?, rank_id = ?,
			unit_id = ?, service_start_date = ?, personal_number = ?, awards = ?,
			penalties = ?, education_civil = ?, education_military = ?, service_history = ?,
			updated_at = ?
		WHERE id = ?`,
		p.FullName, p.BirthDate, p.BirthPlace, p.IIN, p.Nationality,
		p.MaritalStatus, p.CombatParticipation, p.CombatNotes, p.RankID,
		p.UnitID, p.ServiceStartDate, p.PersonalNumber, p.Awards,
		p.Penalties, p.EducationCivil, p.EducationMilitary, string(history),
		stamp, p.ID)
	if err != nil {
		return fmt.Errorf("catalog: save profile %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("catalog: save profile %d: %w", p.ID, ErrNotFound)
	}
	p.UpdatedAt = parseStamp(stamp)
	return nil
}

// CountProfiles returns the number of officer profiles.
func (q *queries) CountProfiles(ctx context.Context) (int, error) {
	var n int
	if err := q.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM officer_profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: count profiles: %w", err)
	}
	return n, nil
}

func scanProfile(row *sql.Row) (OfficerProfile, error) {
	var p OfficerProfile
	var birth, start sql.NullString
	var rankID, unitID sql.NullInt64
	var history, updated string
	err := row.Scan(&p.ID, &p.UserID, &p.FullName, &birth, &p.BirthPlace, &p.IIN, &p.Nationality,
		&p.MaritalStatus, &p.CombatParticipation, &p.CombatNotes, &rankID, &unitID, &start,
		&p.PersonalNumber, &p.Awards, &p.Penalties, &p.EducationCivil, &p.EducationMilitary,
		&history, &updated)
	if err != nil {
		return OfficerProfile{}, err
	}
	if birth.Valid {
		p.BirthDate = &birth.String
	}
	if start.Valid {
		p.ServiceStartDate = &start.String
	}
	if rankID.Valid {
		p.RankID = &rankID.Int64
	}
	if unitID.Valid {
		p.UnitID = &unitID.Int64
	}
	p.ServiceHistory = json.RawMessage(history)
	p.UpdatedAt = parseStamp(updated)
	return p, nil
}
