package engine

import "context"

// Evaluator decides whether a user type holds a permission.
type Evaluator interface {
	// Allow reports whether userType is granted permission. An error means the decision could not be
	// made; callers deny.
	Allow(ctx context.Context, userType, permission string) (bool, error)
}
