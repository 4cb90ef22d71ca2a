package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nbrandt/newsboard/forms"
	"github.com/nbrandt/newsboard/models"
	"github.com/nbrandt/newsboard/utils"
)

// CommentController manages comment creation, editing and deletion.
//
// Editing and deleting a comment requires a session but no ownership: any
// signed-in user may touch any comment. That matches the longstanding site
// behavior; see DESIGN.md before changing it.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

// AddForm renders the standalone comment form for a post.
func (c *CommentController) AddForm(ctx *gin.Context) {
	post, ok := c.loadPost(ctx)
	if !ok {
		return
	}
	render(ctx, http.StatusOK, "comment_form.html", gin.H{
		"Action": postPath(post.ID) + "comment/",
		"Post":   post,
	})
}

// Add validates and persists a comment stamped with the acting user, then
// returns to the post detail.
func (c *CommentController) Add(ctx *gin.Context) {
	post, ok := c.loadPost(ctx)
	if !ok {
		return
	}
	actor, ok := currentUser(ctx, c.db)
	if !ok {
		ctx.Redirect(http.StatusFound, "/login/")
		return
	}

	form := forms.CommentForm{Content: utils.Sanitize(ctx.PostForm("content"))}
	if errs := form.Validate(); len(errs) > 0 {
		render(ctx, http.StatusOK, "comment_form.html", gin.H{
			"Action": postPath(post.ID) + "comment/",
			"Post":   post,
			"Form":   form,
			"Errors": errs,
		})
		return
	}

	comment := models.Comment{
		PostID:  post.ID,
		UserID:  actor.ID,
		Content: form.Content,
	}
	if err := c.db.Create(&comment).Error; err != nil {
		utils.Sugar.Errorf("create comment on post %d: %v", post.ID, err)
		render(ctx, http.StatusInternalServerError, "error.html", nil)
		return
	}

	ctx.Redirect(http.StatusFound, postPath(post.ID))
}

// EditForm renders the edit form pre-populated with the current content.
func (c *CommentController) EditForm(ctx *gin.Context) {
	comment, ok := c.loadComment(ctx)
	if !ok {
		return
	}
	render(ctx, http.StatusOK, "comment_form.html", gin.H{
		"Action": commentPath(comment.ID) + "edit/",
		"Form":   forms.CommentForm{Content: comment.Content},
	})
}

// Edit validates and persists the new content, then returns to the parent
// post.
func (c *CommentController) Edit(ctx *gin.Context) {
	comment, ok := c.loadComment(ctx)
	if !ok {
		return
	}

	form := forms.CommentForm{Content: utils.Sanitize(ctx.PostForm("content"))}
	if errs := form.Validate(); len(errs) > 0 {
		render(ctx, http.StatusOK, "comment_form.html", gin.H{
			"Action": commentPath(comment.ID) + "edit/",
			"Form":   form,
			"Errors": errs,
		})
		return
	}

	if err := c.db.Model(&comment).Update("content", form.Content).Error; err != nil {
		utils.Sugar.Errorf("update comment %d: %v", comment.ID, err)
		render(ctx, http.StatusInternalServerError, "error.html", nil)
		return
	}

	ctx.Redirect(http.StatusFound, postPath(comment.PostID))
}

// DeleteConfirm shows the confirmation page. Nothing changes on GET.
func (c *CommentController) DeleteConfirm(ctx *gin.Context) {
	comment, ok := c.loadComment(ctx)
	if !ok {
		return
	}
	render(ctx, http.StatusOK, "comment_confirm_delete.html", gin.H{"Comment": comment})
}

// Delete removes the comment and returns to the parent post.
func (c *CommentController) Delete(ctx *gin.Context) {
	comment, ok := c.loadComment(ctx)
	if !ok {
		return
	}
	postID := comment.PostID
	if err := c.db.Delete(&comment).Error; err != nil {
		utils.Sugar.Errorf("delete comment %d: %v", comment.ID, err)
		render(ctx, http.StatusInternalServerError, "error.html", nil)
		return
	}
	ctx.Redirect(http.StatusFound, postPath(postID))
}

func (c *CommentController) loadPost(ctx *gin.Context) (models.Post, bool) {
	id := parseID(ctx, "id")
	if id == 0 {
		renderNotFound(ctx)
		return models.Post{}, false
	}
	var post models.Post
	if err := c.db.First(&post, id).Error; err != nil {
		renderNotFound(ctx)
		return models.Post{}, false
	}
	return post, true
}

func (c *CommentController) loadComment(ctx *gin.Context) (models.Comment, bool) {
	id := parseID(ctx, "id")
	if id == 0 {
		renderNotFound(ctx)
		return models.Comment{}, false
	}
	var comment models.Comment
	if err := c.db.First(&comment, id).Error; err != nil {
		renderNotFound(ctx)
		return models.Comment{}, false
	}
	return comment, true
}

func commentPath(id uint) string {
	return "/comment/" + uitoa(id) + "/"
}
