package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nbrandt/newsboard/forms"
	"github.com/nbrandt/newsboard/models"
	"github.com/nbrandt/newsboard/policy"
	"github.com/nbrandt/newsboard/utils"
)

// DefaultCategoryName pre-selects this category on the creation form when it
// exists; its absence just leaves the selection empty.
const DefaultCategoryName = "News"

// PostController manages listing, detail, and CRUD for posts.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// List renders all posts newest first, with the category set for navigation.
func (p *PostController) List(ctx *gin.Context) {
	p.renderList(ctx, nil)
}

// ListByCategory renders posts of a single category, newest first. An
// unknown category is a 404, not an empty list.
func (p *PostController) ListByCategory(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		renderNotFound(ctx)
		return
	}
	var category models.Category
	if err := p.db.First(&category, id).Error; err != nil {
		renderNotFound(ctx)
		return
	}
	p.renderList(ctx, &category)
}

func (p *PostController) renderList(ctx *gin.Context, category *models.Category) {
	query := p.db.Preload("Author").Preload("Category").Order("created_at DESC")
	if category != nil {
		query = query.Where("category_id = ?", category.ID)
	}

	var posts []models.Post
	if err := query.Find(&posts).Error; err != nil {
		utils.Sugar.Errorf("list posts: %v", err)
		render(ctx, http.StatusInternalServerError, "error.html", nil)
		return
	}

	var categories []models.Category
	if err := p.db.Order("name").Find(&categories).Error; err != nil {
		utils.Sugar.Errorf("list categories: %v", err)
		render(ctx, http.StatusInternalServerError, "error.html", nil)
		return
	}

	render(ctx, http.StatusOK, "post_list.html", gin.H{
		"Posts":      posts,
		"Categories": categories,
		"Active":     category,
	})
}

// Detail renders a single post with its comments and an empty comment form.
// The form is shown to everyone; submitting it is what requires a session.
func (p *PostController) Detail(ctx *gin.Context) {
	id := parseID(ctx, "id")
	if id == 0 {
		renderNotFound(ctx)
		return
	}
	var post models.Post
	if err := p.db.Preload("Author").Preload("Category").First(&post, id).Error; err != nil {
		renderNotFound(ctx)
		return
	}

	var comments []models.Comment
	if err := p.db.Preload("User").Where("post_id = ?", post.ID).Order("created_at").Find(&comments).Error; err != nil {
		utils.Sugar.Errorf("load comments for post %d: %v", post.ID, err)
	}
	post.Comments = comments

	canEdit := false
	if actor, ok := currentUser(ctx, p.db); ok {
		canEdit = policy.CanMutatePost(actor, post)
	}

	render(ctx, http.StatusOK, "post_detail.html", gin.H{
		"Post":        post,
		"CommentForm": forms.CommentForm{},
		"CanEdit":     canEdit,
	})
}

// NewForm renders the empty creation form with the category selector
// defaulted to "News" when that category exists.
func (p *PostController) NewForm(ctx *gin.Context) {
	categories, defaultID := p.categoriesWithDefault()
	render(ctx, http.StatusOK, "post_form.html", gin.H{
		"Action":     "/post/new/",
		"Categories": categories,
		"Selected":   defaultID,
	})
}

// Create validates the submitted fields and persists a new post stamped with
// the acting user. Validation failure re-presents the form with no side
// effects.
func (p *PostController) Create(ctx *gin.Context) {
	actor, ok := currentUser(ctx, p.db)
	if !ok {
		ctx.Redirect(http.StatusFound, "/login/")
		return
	}

	form, errs, categoryID := p.bindPostForm(ctx)
	if len(errs) > 0 {
		categories, _ := p.categoriesWithDefault()
		render(ctx, http.StatusOK, "post_form.html", gin.H{
			"Action":     "/post/new/",
			"Categories": categories,
			"Selected":   categoryID,
			"Form":       form,
			"Errors":     errs,
		})
		return
	}

	post := models.Post{
		Title:      form.Title,
		Content:    form.Content,
		AuthorID:   actor.ID,
		CategoryID: form.CategoryID,
	}
	if err := p.db.Create(&post).Error; err != nil {
		utils.Sugar.Errorf("create post: %v", err)
		render(ctx, http.StatusInternalServerError, "error.html", nil)
		return
	}

	ctx.Redirect(http.StatusFound, postPath(post.ID))
}

// EditForm shows the edit form pre-populated with current values, after the
// ownership check.
func (p *PostController) EditForm(ctx *gin.Context) {
	post, ok := p.loadForMutation(ctx)
	if !ok {
		return
	}

	categories, _ := p.categoriesWithDefault()
	render(ctx, http.StatusOK, "post_form.html", gin.H{
		"Action":     postPath(post.ID) + "edit/",
		"Categories": categories,
		"Selected":   post.CategoryID,
		"Form":       forms.PostForm{Title: post.Title, Content: post.Content, CategoryID: post.CategoryID},
	})
}

// Update persists title, content and category only. Author, vote counters
// and the creation timestamp are never touched, whatever the form carries.
func (p *PostController) Update(ctx *gin.Context) {
	post, ok := p.loadForMutation(ctx)
	if !ok {
		return
	}

	form, errs, categoryID := p.bindPostForm(ctx)
	if len(errs) > 0 {
		categories, _ := p.categoriesWithDefault()
		render(ctx, http.StatusOK, "post_form.html", gin.H{
			"Action":     postPath(post.ID) + "edit/",
			"Categories": categories,
			"Selected":   categoryID,
			"Form":       form,
			"Errors":     errs,
		})
		return
	}

	updates := map[string]interface{}{
		"title":       form.Title,
		"content":     form.Content,
		"category_id": form.CategoryID,
	}
	if err := p.db.Model(&post).Updates(updates).Error; err != nil {
		utils.Sugar.Errorf("update post %d: %v", post.ID, err)
		render(ctx, http.StatusInternalServerError, "error.html", nil)
		return
	}

	ctx.Redirect(http.StatusFound, postPath(post.ID))
}

// DeleteConfirm shows the confirmation page. Nothing changes on GET.
func (p *PostController) DeleteConfirm(ctx *gin.Context) {
	post, ok := p.loadForMutation(ctx)
	if !ok {
		return
	}
	render(ctx, http.StatusOK, "post_confirm_delete.html", gin.H{"Post": post})
}

// Delete removes the post and its comments, then returns to the listing.
func (p *PostController) Delete(ctx *gin.Context) {
	post, ok := p.loadForMutation(ctx)
	if !ok {
		return
	}
	if err := models.DeletePost(p.db, post.ID); err != nil {
		utils.Sugar.Errorf("delete post %d: %v", post.ID, err)
		render(ctx, http.StatusInternalServerError, "error.html", nil)
		return
	}
	ctx.Redirect(http.StatusFound, "/")
}

// loadForMutation loads the target post and enforces the mutation policy.
// On denial the caller must not proceed: the user is already redirected to
// the listing with a notice.
func (p *PostController) loadForMutation(ctx *gin.Context) (models.Post, bool) {
	id := parseID(ctx, "id")
	if id == 0 {
		renderNotFound(ctx)
		return models.Post{}, false
	}
	var post models.Post
	if err := p.db.First(&post, id).Error; err != nil {
		renderNotFound(ctx)
		return models.Post{}, false
	}

	actor, ok := currentUser(ctx, p.db)
	if !ok {
		ctx.Redirect(http.StatusFound, "/login/")
		return models.Post{}, false
	}

	if !policy.CanMutatePost(actor, post) {
		utils.SetFlash(ctx, "you can only modify your own posts")
		ctx.Redirect(http.StatusFound, "/")
		return models.Post{}, false
	}
	return post, true
}

// bindPostForm reads and validates the submitted fields. The raw category
// selection is returned as well so failed submissions re-render with it.
func (p *PostController) bindPostForm(ctx *gin.Context) (forms.PostForm, forms.Errors, *uint) {
	form := forms.PostForm{
		Title:   utils.SanitizePlain(ctx.PostForm("title")),
		Content: utils.Sanitize(ctx.PostForm("content")),
	}

	categoryID, parsed := parseCategoryID(ctx.PostForm("category"))
	errs := form.Validate()
	if !parsed {
		errs["category"] = "select a valid category"
	} else if categoryID != nil {
		var count int64
		if err := p.db.Model(&models.Category{}).Where("id = ?", *categoryID).Count(&count).Error; err != nil || count == 0 {
			errs["category"] = "select a valid category"
		} else {
			form.CategoryID = categoryID
		}
	}
	return form, errs, categoryID
}

// categoriesWithDefault returns the category set ordered by name plus the ID
// of the default selection, nil when the default category is absent.
func (p *PostController) categoriesWithDefault() ([]models.Category, *uint) {
	var categories []models.Category
	if err := p.db.Order("name").Find(&categories).Error; err != nil {
		utils.Sugar.Errorf("list categories: %v", err)
		return nil, nil
	}
	for i := range categories {
		if categories[i].Name == DefaultCategoryName {
			return categories, &categories[i].ID
		}
	}
	return categories, nil
}

func postPath(id uint) string {
	return "/post/" + uitoa(id) + "/"
}
