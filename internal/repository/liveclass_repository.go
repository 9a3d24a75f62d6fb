package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/andile-m/brightclass-api/internal/models"
)

const liveClassColumns = `lc.id, lc.title, lc.description, lc.start_time, lc.end_time, lc.instructor_id, lc.meeting_link, lc.status, lc.created_at, lc.updated_at, u.first_name AS instructor_first_name, u.last_name AS instructor_last_name, u.email AS instructor_email`

// liveClassRow joins a live class with its instructor's display fields.
type liveClassRow struct {
	models.LiveClass
	InstructorFirstName string `db:"instructor_first_name"`
	InstructorLastName  string `db:"instructor_last_name"`
	InstructorEmail     string `db:"instructor_email"`
}

func (row liveClassRow) toDetail() models.LiveClassDetail {
	return models.LiveClassDetail{
		LiveClass: row.LiveClass,
		Instructor: models.InstructorInfo{
			ID:        row.InstructorID,
			FirstName: row.InstructorFirstName,
			LastName:  row.InstructorLastName,
			Email:     row.InstructorEmail,
		},
	}
}

// LiveClassRepository provides persistence for live classes and their rosters.
type LiveClassRepository struct {
	db *sqlx.DB
}

// NewLiveClassRepository creates a new live class repository.
func NewLiveClassRepository(db *sqlx.DB) *LiveClassRepository {
	return &LiveClassRepository{db: db}
}

// Create stores a new live class and its roster within a transaction.
func (r *LiveClassRepository) Create(ctx context.Context, class *models.LiveClass) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create live class: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO live_classes (id, title, description, start_time, end_time, instructor_id, meeting_link, status, created_at, updated_at) VALUES (:id, :title, :description, :start_time, :end_time, :instructor_id, :meeting_link, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create live class: %w", err)
	}

	if err = insertRoster(ctx, tx, class.ID, class.StudentIDs); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create live class: %w", err)
	}
	return nil
}

// FindDetailByID loads a live class with its instructor projection and roster.
// Returns sql.ErrNoRows when the id is unknown.
func (r *LiveClassRepository) FindDetailByID(ctx context.Context, id string) (*models.LiveClassDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM live_classes lc JOIN users u ON u.id = lc.instructor_id WHERE lc.id = $1`, liveClassColumns)
	var row liveClassRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}

	rosters, err := r.loadRosters(ctx, []string{row.ID})
	if err != nil {
		return nil, err
	}
	row.StudentIDs = rosters[row.ID]

	detail := row.toDetail()
	return &detail, nil
}

// ListUpcomingForStudent returns classes that have not yet ended and whose
// roster contains the student, ordered by start time ascending.
func (r *LiveClassRepository) ListUpcomingForStudent(ctx context.Context, studentID string, now time.Time) ([]models.LiveClassDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM live_classes lc JOIN live_class_students ls ON ls.live_class_id = lc.id JOIN users u ON u.id = lc.instructor_id WHERE ls.student_id = $1 AND lc.end_time > $2 ORDER BY lc.start_time ASC`, liveClassColumns)
	var rows []liveClassRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID, now); err != nil {
		return nil, fmt.Errorf("list upcoming classes for student: %w", err)
	}
	return r.attachRosters(ctx, rows)
}

// ListUpcomingForInstructor returns the instructor's own classes that have not
// yet ended, ordered by start time ascending. Past classes are excluded.
func (r *LiveClassRepository) ListUpcomingForInstructor(ctx context.Context, instructorID string, now time.Time) ([]models.LiveClassDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM live_classes lc JOIN users u ON u.id = lc.instructor_id WHERE lc.instructor_id = $1 AND lc.end_time > $2 ORDER BY lc.start_time ASC`, liveClassColumns)
	var rows []liveClassRow
	if err := r.db.SelectContext(ctx, &rows, query, instructorID, now); err != nil {
		return nil, fmt.Errorf("list upcoming classes for instructor: %w", err)
	}
	return r.attachRosters(ctx, rows)
}

// Update rewrites the mutable fields of a live class. When replaceRoster is
// set the roster rows are replaced with class.StudentIDs in the same
// transaction.
func (r *LiveClassRepository) Update(ctx context.Context, class *models.LiveClass, replaceRoster bool) error {
	class.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update live class: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `UPDATE live_classes SET title = :title, description = :description, start_time = :start_time, end_time = :end_time, meeting_link = :meeting_link, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update live class: %w", err)
	}

	if replaceRoster {
		if _, err = tx.ExecContext(ctx, `DELETE FROM live_class_students WHERE live_class_id = $1`, class.ID); err != nil {
			return fmt.Errorf("clear live class roster: %w", err)
		}
		if err = insertRoster(ctx, tx, class.ID, class.StudentIDs); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update live class: %w", err)
	}
	return nil
}

// Delete permanently removes a live class and its roster.
func (r *LiveClassRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete live class: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM live_class_students WHERE live_class_id = $1`, id); err != nil {
		return fmt.Errorf("delete live class roster: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM live_classes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete live class: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete live class: %w", err)
	}
	return nil
}

func (r *LiveClassRepository) attachRosters(ctx context.Context, rows []liveClassRow) ([]models.LiveClassDetail, error) {
	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}

	rosters, err := r.loadRosters(ctx, ids)
	if err != nil {
		return nil, err
	}

	details := make([]models.LiveClassDetail, len(rows))
	for i, row := range rows {
		row.StudentIDs = rosters[row.ID]
		details[i] = row.toDetail()
	}
	return details, nil
}

func (r *LiveClassRepository) loadRosters(ctx context.Context, classIDs []string) (map[string][]string, error) {
	rosters := make(map[string][]string, len(classIDs))
	if len(classIDs) == 0 {
		return rosters, nil
	}

	const query = `SELECT live_class_id, student_id FROM live_class_students WHERE live_class_id = ANY($1) ORDER BY student_id ASC`
	rows, err := r.db.QueryxContext(ctx, query, pq.StringArray(classIDs))
	if err != nil {
		return nil, fmt.Errorf("load live class rosters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var classID, studentID string
		if err := rows.Scan(&classID, &studentID); err != nil {
			return nil, fmt.Errorf("scan live class roster: %w", err)
		}
		rosters[classID] = append(rosters[classID], studentID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate live class rosters: %w", err)
	}
	return rosters, nil
}

func insertRoster(ctx context.Context, tx *sqlx.Tx, classID string, studentIDs []string) error {
	for _, studentID := range studentIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO live_class_students (live_class_id, student_id) VALUES ($1, $2)`, classID, studentID); err != nil {
			return fmt.Errorf("insert live class student: %w", err)
		}
	}
	return nil
}
