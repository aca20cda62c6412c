package trivia

import "context"

// Question is a single quiz item. Options are shuffled once at fetch time;
// CorrectIndex is the post-shuffle position of the right answer, or -1 when
// the source has no authoritative answer.
type Question struct {
	Prompt       string
	Options      []string
	CorrectIndex int
	Category     string
	Difficulty   string
}

// Filters narrows a fetch to a category and/or difficulty. Empty fields mean
// no restriction.
type Filters struct {
	Category   string
	Difficulty string
}

// Supplier fetches question batches for a single room. Implementations own
// their retry policy and any upstream token lifecycle; callers only see a
// batch or an error.
type Supplier interface {
	Fetch(ctx context.Context, count int, f Filters) ([]Question, error)
}
