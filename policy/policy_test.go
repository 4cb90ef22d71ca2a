package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nbrandt/newsboard/models"
)

func TestCanMutatePost(t *testing.T) {
	owner := models.User{ID: 1, Username: "alice"}
	other := models.User{ID: 2, Username: "bob"}
	admin := models.User{ID: 3, Username: "root", IsSuperuser: true}
	post := models.Post{ID: 10, AuthorID: owner.ID}

	assert.True(t, CanMutatePost(owner, post), "author may mutate own post")
	assert.False(t, CanMutatePost(other, post), "non-author may not mutate")
	assert.True(t, CanMutatePost(admin, post), "superuser may mutate any post")
}

func TestCanMutatePostZeroValues(t *testing.T) {
	// An unresolved actor (zero ID) must never match a real author.
	post := models.Post{ID: 10, AuthorID: 1}
	assert.False(t, CanMutatePost(models.User{}, post))
}
