package domain

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

type User struct {
	ID        int64   `db:"id"`
	Username  string  `db:"username"`
	Email     string  `db:"email"`
	Role      string  `db:"role"`
	AvatarURL *string `db:"avatar_url"`
}
