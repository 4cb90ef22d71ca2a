// Package forms validates user-supplied field values before anything is
// persisted. Validation is all-or-nothing: a form either passes with its
// normalized values or reports a field-keyed set of reasons and nothing is
// written.
package forms

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Errors maps a field name to its rejection reason. An empty map means the
// form passed.
type Errors map[string]string

var validate = validator.New()

const (
	minTitleLen    = 3
	maxTitleLen    = 200
	minContentLen  = 5
	minCommentLen  = 3
	minUsernameLen = 3
	maxUsernameLen = 64
	minPasswordLen = 8
)

// PostForm carries the mutable fields of a post. CategoryID is optional;
// referential existence is checked by the handler against the category set.
type PostForm struct {
	Title      string
	Content    string
	CategoryID *uint
}

// Validate normalizes and checks the post fields.
func (f *PostForm) Validate() Errors {
	errs := Errors{}
	f.Title = strings.TrimSpace(f.Title)
	f.Content = strings.TrimSpace(f.Content)

	switch {
	case len([]rune(f.Title)) < minTitleLen:
		errs["title"] = "title too short"
	case len([]rune(f.Title)) > maxTitleLen:
		errs["title"] = "title too long"
	}
	if len([]rune(f.Content)) < minContentLen {
		errs["content"] = "content too short"
	}
	return errs
}

// CommentForm carries the single mutable field of a comment.
type CommentForm struct {
	Content string
}

// Validate normalizes and checks the comment content.
func (f *CommentForm) Validate() Errors {
	errs := Errors{}
	f.Content = strings.TrimSpace(f.Content)
	if len([]rune(f.Content)) < minCommentLen {
		errs["content"] = "content too short"
	}
	return errs
}

// SignupForm carries the registration fields.
type SignupForm struct {
	Username string
	Email    string
	Password string
	Confirm  string
}

// Validate applies the credential policy: well-formed email, bounded
// username, and a password that is long enough, not purely numeric, not on
// the common-password list and not too similar to the username.
func (f *SignupForm) Validate() Errors {
	errs := Errors{}
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)

	if l := len([]rune(f.Username)); l < minUsernameLen || l > maxUsernameLen {
		errs["username"] = "username must be 3-64 characters"
	}

	if !validEmail(f.Email) {
		errs["email"] = "enter a valid email address"
	}

	if msg := checkPassword(f.Password, f.Username); msg != "" {
		errs["password"] = msg
	} else if f.Password != f.Confirm {
		errs["confirm"] = "passwords do not match"
	}
	return errs
}

// ValidateNewPassword applies the credential policy to a password change.
func ValidateNewPassword(password, confirm, username string) Errors {
	errs := Errors{}
	if msg := checkPassword(password, username); msg != "" {
		errs["password"] = msg
	} else if password != confirm {
		errs["confirm"] = "passwords do not match"
	}
	return errs
}

// validEmail requires local@domain with a dot somewhere in the domain part.
func validEmail(email string) bool {
	if err := validate.Var(email, "required,email"); err != nil {
		return false
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	return strings.Contains(email[at+1:], ".")
}

// Small subset of the usual breached-password lists; enough to stop the
// obvious choices without shipping a dictionary.
var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"12345678":   {},
	"123456789":  {},
	"qwertyuiop": {},
	"letmein123": {},
	"iloveyou1":  {},
	"admin1234":  {},
	"welcome1":   {},
	"abc12345":   {},
}

func checkPassword(password, username string) string {
	if len(password) < minPasswordLen {
		return "password must be at least 8 characters"
	}
	if isNumeric(password) {
		return "password cannot be entirely numeric"
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		return "password is too common"
	}
	if tooSimilar(password, username) {
		return "password is too similar to the username"
	}
	return ""
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// tooSimilar flags passwords that contain the username (or vice versa),
// ignoring case. Short usernames are not meaningful signals.
func tooSimilar(password, username string) bool {
	if len(username) < minUsernameLen {
		return false
	}
	p := strings.ToLower(password)
	u := strings.ToLower(username)
	return strings.Contains(p, u) || strings.Contains(u, p)
}
