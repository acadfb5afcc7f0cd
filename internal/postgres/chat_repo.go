package postgres

import (
	"context"
	"errors"

	"github.com/campus-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Unique-violation, see uq_chats_course / uq_chats_pair in migrations.
const pgUniqueViolation = "23505"

type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) FindGroupByCourse(ctx context.Context, courseID int64) (*domain.Chat, error) {
	var c domain.Chat
	query := `
		SELECT id, course_id, is_group, user_lo, user_hi, created_at
		FROM chats
		WHERE is_group AND course_id=$1`
	err := r.db.QueryRow(ctx, query, courseID).
		Scan(&c.ID, &c.CourseID, &c.IsGroup, &c.UserLo, &c.UserHi, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrChatNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepository) CreateGroup(ctx context.Context, courseID int64) (*domain.Chat, error) {
	var c domain.Chat
	query := `
		INSERT INTO chats (course_id, is_group)
		VALUES ($1, TRUE)
		RETURNING id, course_id, is_group, user_lo, user_hi, created_at`
	err := r.db.QueryRow(ctx, query, courseID).
		Scan(&c.ID, &c.CourseID, &c.IsGroup, &c.UserLo, &c.UserHi, &c.CreatedAt)
	if err != nil {
		return nil, mapUnique(err)
	}
	return &c, nil
}

// FindPrivate looks up the private chat for the unordered pair {a, b}.
func (r *ChatRepository) FindPrivate(ctx context.Context, a, b int64) (*domain.Chat, error) {
	lo, hi := domain.PairKey(a, b)

	var c domain.Chat
	query := `
		SELECT id, course_id, is_group, user_lo, user_hi, created_at
		FROM chats
		WHERE NOT is_group AND user_lo=$1 AND user_hi=$2`
	err := r.db.QueryRow(ctx, query, lo, hi).
		Scan(&c.ID, &c.CourseID, &c.IsGroup, &c.UserLo, &c.UserHi, &c.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrChatNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CreatePrivate inserts the private chat row for {a, b}. A concurrent
// creator losing the race gets domain.ErrChatExists from the unique
// index on (user_lo, user_hi).
func (r *ChatRepository) CreatePrivate(ctx context.Context, a, b int64) (*domain.Chat, error) {
	lo, hi := domain.PairKey(a, b)

	var c domain.Chat
	query := `
		INSERT INTO chats (is_group, user_lo, user_hi)
		VALUES (FALSE, $1, $2)
		RETURNING id, course_id, is_group, user_lo, user_hi, created_at`
	err := r.db.QueryRow(ctx, query, lo, hi).
		Scan(&c.ID, &c.CourseID, &c.IsGroup, &c.UserLo, &c.UserHi, &c.CreatedAt)
	if err != nil {
		return nil, mapUnique(err)
	}
	return &c, nil
}

// IsMember reports whether the user may read the chat: member of the
// pair for a private chat, course teacher or enrolled student for a
// group chat.
func (r *ChatRepository) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	const q = `
		SELECT EXISTS(
			SELECT 1
			FROM chats c
			LEFT JOIN courses co ON co.id = c.course_id
			LEFT JOIN enrollments e ON e.course_id = c.course_id AND e.student_id = $2
			WHERE c.id = $1
			  AND (
			    (c.is_group AND (co.teacher_id = $2 OR e.student_id IS NOT NULL))
			    OR (NOT c.is_group AND (c.user_lo = $2 OR c.user_hi = $2))
			  )
		)`
	var ok bool
	err := r.db.QueryRow(ctx, q, chatID, userID).Scan(&ok)
	return ok, err
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.ErrChatExists
	}
	return err
}
