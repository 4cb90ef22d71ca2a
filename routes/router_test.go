package routes

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nbrandt/newsboard/config"
	"github.com/nbrandt/newsboard/middleware"
	"github.com/nbrandt/newsboard/models"
	"github.com/nbrandt/newsboard/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "router-test-secret")
	os.Setenv("GIN_MODE", "test")
	os.Setenv("GIN_PATH", filepath.Join(os.TempDir(), "newsboard_gin_test.log"))
	os.Setenv("RATE_LIMIT_PER_MINUTE", "10000")

	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	TemplatesGlob = "../templates/*.html"

	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Category{}, &models.Post{}, &models.Comment{}))
	require.NoError(t, models.SeedCategories(db, []string{"News", "Opinion", "Tech"}))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, superuser bool) models.User {
	t.Helper()
	hash, err := utils.HashPassword("str0ng-pass-phrase")
	require.NoError(t, err)
	user := models.User{Username: username, Email: username + "@example.com", PasswordHash: hash, IsSuperuser: superuser}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createPost(t *testing.T, db *gorm.DB, author models.User, title string, createdAt time.Time, categoryID *uint) models.Post {
	t.Helper()
	post := models.Post{Title: title, Content: "some content here", AuthorID: author.ID, CategoryID: categoryID, CreatedAt: createdAt}
	require.NoError(t, db.Create(&post).Error)
	return post
}

func sessionCookie(t *testing.T, user models.User) *http.Cookie {
	t.Helper()
	token, err := utils.GenerateToken(user.ID, user.Username, time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.SessionCookie, Value: token}
}

func doGet(router http.Handler, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doPostForm(router http.Handler, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAnonymousCreateRedirectsToLogin(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)

	w := doGet(router, "/post/new/")
	require.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/login/"), "location = %q", w.Header().Get("Location"))

	w = doPostForm(router, "/post/new/", url.Values{"title": {"hello"}, "content": {"world wide"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/login/"))

	var n int64
	require.NoError(t, db.Model(&models.Post{}).Count(&n).Error)
	assert.EqualValues(t, 0, n, "anonymous submission must not create anything")
}

func TestCreatePostThenView(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	author := createUser(t, db, "writer", false)

	w := doPostForm(router, "/post/new/", url.Values{
		"title":   {"A headline worth reading"},
		"content": {"Body text with enough length."},
	}, sessionCookie(t, author))
	require.Equal(t, http.StatusFound, w.Code)

	location := w.Header().Get("Location")
	assert.Regexp(t, `^/post/\d+/$`, location)

	var post models.Post
	require.NoError(t, db.First(&post).Error)
	assert.Equal(t, author.ID, post.AuthorID)

	w = doGet(router, location)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "A headline worth reading")
}

func TestCreatePostValidationRerendersForm(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	author := createUser(t, db, "writer", false)

	w := doPostForm(router, "/post/new/", url.Values{
		"title":   {"ab"},
		"content": {"hi"},
	}, sessionCookie(t, author))
	require.Equal(t, http.StatusOK, w.Code, "validation failure re-renders, no redirect")
	body := w.Body.String()
	assert.Contains(t, body, "title too short")
	assert.Contains(t, body, "content too short")

	var n int64
	require.NoError(t, db.Model(&models.Post{}).Count(&n).Error)
	assert.EqualValues(t, 0, n)
}

func TestNonOwnerCannotEditPost(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	owner := createUser(t, db, "owner", false)
	intruder := createUser(t, db, "intruder", false)
	post := createPost(t, db, owner, "Original title", time.Now(), nil)

	w := doGet(router, fmt.Sprintf("/post/%d/edit/", post.ID), sessionCookie(t, intruder))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = doPostForm(router, fmt.Sprintf("/post/%d/edit/", post.ID), url.Values{
		"title":   {"Hijacked title"},
		"content": {"new content text"},
	}, sessionCookie(t, intruder))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, "Original title", reloaded.Title)
}

func TestNonOwnerCannotDeletePost(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	owner := createUser(t, db, "owner", false)
	intruder := createUser(t, db, "intruder", false)
	post := createPost(t, db, owner, "Keep me", time.Now(), nil)

	w := doPostForm(router, fmt.Sprintf("/post/%d/delete/", post.ID), url.Values{}, sessionCookie(t, intruder))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	var n int64
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n, "post survives a denied delete")
}

func TestSuperuserCanEditAnyPost(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	owner := createUser(t, db, "owner", false)
	admin := createUser(t, db, "admin", true)
	post := createPost(t, db, owner, "Before moderation", time.Now(), nil)

	w := doPostForm(router, fmt.Sprintf("/post/%d/edit/", post.ID), url.Values{
		"title":   {"After moderation"},
		"content": {"cleaned up content"},
	}, sessionCookie(t, admin))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/post/%d/", post.ID), w.Header().Get("Location"))

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, "After moderation", reloaded.Title)
	assert.Equal(t, owner.ID, reloaded.AuthorID, "moderation never reassigns authorship")
}

func TestEditNeverChangesAuthorOrCreatedAt(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	owner := createUser(t, db, "owner", false)
	created := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	post := createPost(t, db, owner, "Stable metadata", created, nil)

	w := doPostForm(router, fmt.Sprintf("/post/%d/edit/", post.ID), url.Values{
		"title":      {"Stable metadata, edited"},
		"content":    {"updated body text"},
		"author_id":  {"9999"},
		"created_at": {"2001-01-01"},
	}, sessionCookie(t, owner))
	require.Equal(t, http.StatusFound, w.Code)

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, owner.ID, reloaded.AuthorID)
	assert.WithinDuration(t, created, reloaded.CreatedAt, time.Second)
	assert.Equal(t, "Stable metadata, edited", reloaded.Title)
}

func TestListingOrderAndCategoryFilter(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	author := createUser(t, db, "writer", false)

	var news models.Category
	require.NoError(t, db.Where("name = ?", "News").First(&news).Error)

	oldPost := createPost(t, db, author, "Oldest entry", time.Now().Add(-2*time.Hour), &news.ID)
	_ = createPost(t, db, author, "Middle entry", time.Now().Add(-1*time.Hour), nil)
	newPost := createPost(t, db, author, "Newest entry", time.Now(), &news.ID)

	w := doGet(router, "/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	newestIdx := strings.Index(body, "Newest entry")
	middleIdx := strings.Index(body, "Middle entry")
	oldestIdx := strings.Index(body, "Oldest entry")
	require.True(t, newestIdx >= 0 && middleIdx >= 0 && oldestIdx >= 0)
	assert.Less(t, newestIdx, middleIdx, "newest first")
	assert.Less(t, middleIdx, oldestIdx)

	w = doGet(router, fmt.Sprintf("/category/%d/", news.ID))
	require.Equal(t, http.StatusOK, w.Code)
	body = w.Body.String()
	assert.Contains(t, body, newPost.Title)
	assert.Contains(t, body, oldPost.Title)
	assert.NotContains(t, body, "Middle entry", "uncategorized posts are filtered out")
}

func TestUnknownCategoryIs404(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)

	w := doGet(router, "/category/424242/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownPostIs404(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)

	w := doGet(router, "/post/424242/")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCommentFlow(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	author := createUser(t, db, "writer", false)
	commenter := createUser(t, db, "reader", false)
	post := createPost(t, db, author, "Discuss me", time.Now(), nil)

	// Too short after trimming: re-render with the error, nothing stored.
	w := doPostForm(router, fmt.Sprintf("/post/%d/comment/", post.ID), url.Values{
		"content": {"  ab  "},
	}, sessionCookie(t, commenter))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "content too short")

	w = doPostForm(router, fmt.Sprintf("/post/%d/comment/", post.ID), url.Values{
		"content": {"  a solid reply  "},
	}, sessionCookie(t, commenter))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/post/%d/", post.ID), w.Header().Get("Location"))

	var comment models.Comment
	require.NoError(t, db.First(&comment).Error)
	assert.Equal(t, commenter.ID, comment.UserID)
	assert.Equal(t, "a solid reply", comment.Content, "content is stored trimmed")

	w = doGet(router, fmt.Sprintf("/post/%d/", post.ID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a solid reply")
}

func TestAnySignedInUserCanEditOthersComment(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	author := createUser(t, db, "author", false)
	commenter := createUser(t, db, "commenter", false)
	editor := createUser(t, db, "editor", false)
	post := createPost(t, db, author, "Open thread", time.Now(), nil)
	comment := models.Comment{PostID: post.ID, UserID: commenter.ID, Content: "original words"}
	require.NoError(t, db.Create(&comment).Error)

	// Comments carry no ownership rule: any session may rewrite any comment.
	w := doPostForm(router, fmt.Sprintf("/comment/%d/edit/", comment.ID), url.Values{
		"content": {"rewritten by someone else"},
	}, sessionCookie(t, editor))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/post/%d/", post.ID), w.Header().Get("Location"))

	var reloaded models.Comment
	require.NoError(t, db.First(&reloaded, comment.ID).Error)
	assert.Equal(t, "rewritten by someone else", reloaded.Content)
	assert.Equal(t, commenter.ID, reloaded.UserID, "editing never reassigns the comment")
}

func TestAnySignedInUserCanDeleteOthersComment(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	author := createUser(t, db, "author", false)
	commenter := createUser(t, db, "commenter", false)
	remover := createUser(t, db, "remover", false)
	post := createPost(t, db, author, "Open thread", time.Now(), nil)
	comment := models.Comment{PostID: post.ID, UserID: commenter.ID, Content: "soon gone"}
	require.NoError(t, db.Create(&comment).Error)

	w := doPostForm(router, fmt.Sprintf("/comment/%d/delete/", comment.ID), url.Values{}, sessionCookie(t, remover))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, fmt.Sprintf("/post/%d/", post.ID), w.Header().Get("Location"))

	var n int64
	require.NoError(t, db.Model(&models.Comment{}).Where("id = ?", comment.ID).Count(&n).Error)
	assert.EqualValues(t, 0, n)
}

func TestAnonymousCommentMutationRedirectsToLogin(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	author := createUser(t, db, "author", false)
	post := createPost(t, db, author, "Open thread", time.Now(), nil)
	comment := models.Comment{PostID: post.ID, UserID: author.ID, Content: "untouchable"}
	require.NoError(t, db.Create(&comment).Error)

	w := doPostForm(router, fmt.Sprintf("/comment/%d/edit/", comment.ID), url.Values{
		"content": {"drive-by rewrite"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/login/"))

	w = doPostForm(router, fmt.Sprintf("/comment/%d/delete/", comment.ID), url.Values{})
	require.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/login/"))

	var reloaded models.Comment
	require.NoError(t, db.First(&reloaded, comment.ID).Error)
	assert.Equal(t, "untouchable", reloaded.Content)
}

func TestEditLinksOnlyForThoseAllowed(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	owner := createUser(t, db, "owner", false)
	visitor := createUser(t, db, "visitor", false)
	admin := createUser(t, db, "admin", true)
	post := createPost(t, db, owner, "Gated actions", time.Now(), nil)

	editLink := fmt.Sprintf("/post/%d/edit/", post.ID)

	w := doGet(router, fmt.Sprintf("/post/%d/", post.ID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), editLink, "anonymous viewers get no edit link")

	w = doGet(router, fmt.Sprintf("/post/%d/", post.ID), sessionCookie(t, visitor))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), editLink, "non-owners get no edit link")

	w = doGet(router, fmt.Sprintf("/post/%d/", post.ID), sessionCookie(t, owner))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), editLink)

	w = doGet(router, fmt.Sprintf("/post/%d/", post.ID), sessionCookie(t, admin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), editLink)
}

func TestSignupThenLogin(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)

	w := doPostForm(router, "/signup/", url.Values{
		"username": {"newcomer"},
		"email":    {"newcomer@example.com"},
		"password": {"plenty-long-and-odd"},
		"confirm":  {"plenty-long-and-odd"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login/", w.Header().Get("Location"))

	var user models.User
	require.NoError(t, db.Where("username = ?", "newcomer").First(&user).Error)
	assert.NotEqual(t, "plenty-long-and-odd", user.PasswordHash, "password is never stored raw")

	w = doPostForm(router, "/login/", url.Values{
		"username": {"newcomer"},
		"password": {"wrong-password-entirely"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "invalid username or password")

	w = doPostForm(router, "/login/", url.Values{
		"username": {"newcomer"},
		"password": {"plenty-long-and-odd"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	var sessionSet bool
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie && c.Value != "" {
			sessionSet = true
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, sessionSet, "login sets the session cookie")
}

func TestDuplicateUsernameIsFieldError(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	createUser(t, db, "taken", false)

	w := doPostForm(router, "/signup/", url.Values{
		"username": {"taken"},
		"email":    {"other@example.com"},
		"password": {"plenty-long-and-odd"},
		"confirm":  {"plenty-long-and-odd"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, strings.ToLower(w.Body.String()), "taken")

	var n int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "taken").Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestDeleteAccountCascades(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	victim := createUser(t, db, "leaver", false)
	other := createUser(t, db, "stayer", false)
	post := createPost(t, db, victim, "Leaving soon", time.Now(), nil)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: other.ID, Content: "goodbye then"}).Error)

	w := doPostForm(router, "/account/delete/", url.Values{}, sessionCookie(t, victim))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	var n int64
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", victim.ID).Count(&n).Error)
	assert.EqualValues(t, 0, n)
	require.NoError(t, db.Model(&models.Post{}).Where("author_id = ?", victim.ID).Count(&n).Error)
	assert.EqualValues(t, 0, n)
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&n).Error)
	assert.EqualValues(t, 0, n)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", other.ID).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestLogoutRevokesSession(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)
	user := createUser(t, db, "quitter", false)
	cookie := sessionCookie(t, user)

	w := doGet(router, "/account/settings/", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = doPostForm(router, "/logout/", url.Values{}, cookie)
	require.Equal(t, http.StatusFound, w.Code)

	w = doGet(router, "/account/settings/", cookie)
	require.Equal(t, http.StatusFound, w.Code, "revoked token no longer grants access")
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/login/"))
}

func TestHealthEndpoint(t *testing.T) {
	db := newTestDB(t)
	router := SetupRouter(db)

	w := doGet(router, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
