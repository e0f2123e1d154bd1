package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// DefaultTolerance is the match distance used when a sign is created without one.
const DefaultTolerance = 0.5

// Sign is a label the local classifier can recognize.
type Sign struct {
	ID        string
	Label     string
	Tolerance float64
	Samples   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Landmark is one point of a trained sign template.
type Landmark struct {
	Index int
	X     float64
	Y     float64
	Z     float64
}

// SignRepository provides CRUD operations for signs and their templates.
type SignRepository struct {
	db *sql.DB
}

// Signs returns the sign repository for this store.
func (s *Store) Signs() *SignRepository {
	return &SignRepository{db: s.db}
}

const signColumns = `id, label, tolerance, samples, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSign(row rowScanner) (*Sign, error) {
	sg := &Sign{}
	if err := row.Scan(&sg.ID, &sg.Label, &sg.Tolerance, &sg.Samples, &sg.CreatedAt, &sg.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sg, nil
}

// Create inserts a new sign.
func (r *SignRepository) Create(sg *Sign) error {
	now := time.Now()
	sg.CreatedAt = now
	sg.UpdatedAt = now
	if sg.Tolerance <= 0 {
		sg.Tolerance = DefaultTolerance
	}

	_, err := r.db.Exec(
		`INSERT INTO signs (`+signColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		sg.ID, sg.Label, sg.Tolerance, sg.Samples, sg.CreatedAt, sg.UpdatedAt,
	)
	return err
}

// GetByID retrieves a sign by its ID.
func (r *SignRepository) GetByID(id string) (*Sign, error) {
	return scanSign(r.db.QueryRow(`SELECT `+signColumns+` FROM signs WHERE id = ?`, id))
}

// GetByLabel retrieves a sign by its label.
func (r *SignRepository) GetByLabel(label string) (*Sign, error) {
	return scanSign(r.db.QueryRow(`SELECT `+signColumns+` FROM signs WHERE label = ?`, label))
}

// List retrieves all signs ordered by label.
func (r *SignRepository) List() ([]*Sign, error) {
	rows, err := r.db.Query(`SELECT ` + signColumns + ` FROM signs ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signs []*Sign
	for rows.Next() {
		sg, err := scanSign(rows)
		if err != nil {
			return nil, err
		}
		signs = append(signs, sg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return signs, nil
}

// Update updates the label and tolerance of an existing sign.
func (r *SignRepository) Update(sg *Sign) error {
	sg.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE signs SET label = ?, tolerance = ?, updated_at = ? WHERE id = ?`,
		sg.Label, sg.Tolerance, sg.UpdatedAt, sg.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Delete removes a sign and, by cascade, its template and samples.
func (r *SignRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM signs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// SetLandmarks replaces the trained template of a sign.
func (r *SignRepository) SetLandmarks(signID string, landmarks []Landmark) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sign_landmarks WHERE sign_id = ?`, signID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO sign_landmarks (sign_id, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range landmarks {
		if _, err := stmt.Exec(signID, l.Index, l.X, l.Y, l.Z); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetLandmarks returns the trained template of a sign in landmark order.
// A sign that has not been trained yet has no landmarks.
func (r *SignRepository) GetLandmarks(signID string) ([]Landmark, error) {
	rows, err := r.db.Query(
		`SELECT landmark_index, x, y, z FROM sign_landmarks WHERE sign_id = ? ORDER BY landmark_index`,
		signID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var landmarks []Landmark
	for rows.Next() {
		var l Landmark
		if err := rows.Scan(&l.Index, &l.X, &l.Y, &l.Z); err != nil {
			return nil, err
		}
		landmarks = append(landmarks, l)
	}

	return landmarks, rows.Err()
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
