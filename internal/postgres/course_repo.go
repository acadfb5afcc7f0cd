package postgres

import (
	"context"

	"github.com/campus-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CourseRepository struct {
	db *pgxpool.Pool
}

func NewCourseRepository(db *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) IsTeacherOf(ctx context.Context, userID, courseID int64) (bool, error) {
	var teacherID int64
	err := r.db.QueryRow(ctx,
		`SELECT teacher_id FROM courses WHERE id=$1`, courseID).Scan(&teacherID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, domain.ErrCourseNotFound
		}
		return false, err
	}
	return teacherID == userID, nil
}

func (r *CourseRepository) IsEnrolled(ctx context.Context, userID, courseID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM enrollments WHERE course_id=$1 AND student_id=$2)`,
		courseID, userID).Scan(&exists)
	return exists, err
}
