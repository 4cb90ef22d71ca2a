// Package policy holds the authorization rules for record mutation. The
// checks are pure functions of (actor, record) so they can be tested without
// a request context.
package policy

import "github.com/nbrandt/newsboard/models"

// CanMutatePost reports whether actor may edit or delete the post. Only the
// author and superusers qualify; ownership never changes after creation.
func CanMutatePost(actor models.User, post models.Post) bool {
	return post.AuthorID == actor.ID || actor.IsSuperuser
}

// Comment edit and delete intentionally carry no ownership check: any
// authenticated user may modify any comment. This mirrors the behavior the
// site has always had; tightening it would be a visible behavior change.
