package domain

import "time"

// Chat is a logical room messages are persisted and broadcast against.
// A group chat is bound 1:1 to a course; a private chat is bound to the
// unordered pair {UserLo, UserHi} with UserLo < UserHi.
type Chat struct {
	ID        int64     `db:"id"`
	CourseID  *int64    `db:"course_id"`
	IsGroup   bool      `db:"is_group"`
	UserLo    *int64    `db:"user_lo"`
	UserHi    *int64    `db:"user_hi"`
	CreatedAt time.Time `db:"created_at"`
}

// PairKey canonicalizes two user ids into the order-independent key
// private chats are unique on.
func PairKey(a, b int64) (lo, hi int64) {
	if a < b {
		return a, b
	}
	return b, a
}
