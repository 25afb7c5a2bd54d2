package store

// Chat is a conversation thread with its recency and unread aggregates.
type Chat struct {
	ID            string
	Title         string
	LastMessageAt int64 // unix ms
	UnreadCount   int
}

// Message is an immutable utterance in a chat. Body holds the encoded form.
type Message struct {
	ID     string
	ChatID string
	TS     int64 // unix ms
	Sender string
	Body   string
}

// Page is one page of a paginated listing. HasMore reports whether at least
// one more row exists beyond Items.
type Page[T any] struct {
	Items   []T
	HasMore bool
}

// trim drops the over-fetched row, if any, and reports whether it existed.
func trim[T any](rows []T, limit int) Page[T] {
	if len(rows) > limit {
		return Page[T]{Items: rows[:limit], HasMore: true}
	}
	return Page[T]{Items: rows}
}
