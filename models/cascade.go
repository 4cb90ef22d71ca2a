package models

import "gorm.io/gorm"

// Referential cleanup is done here in explicit transactions rather than via
// database-level constraints: migrations run with foreign key constraint
// creation disabled, so the delete rules below are the source of truth.

// DeletePost removes a post and all of its comments in one transaction.
func DeletePost(db *gorm.DB, postID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Post{}, postID).Error
	})
}

// DeleteUser removes a user account together with every post they authored,
// the comments under those posts, and every comment they wrote elsewhere.
func DeleteUser(db *gorm.DB, userID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var postIDs []uint
		if err := tx.Model(&Post{}).Where("author_id = ?", userID).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		if len(postIDs) > 0 {
			if err := tx.Where("post_id IN ?", postIDs).Delete(&Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("author_id = ?", userID).Delete(&Post{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&User{}, userID).Error
	})
}

// DeleteCategory removes a category and detaches its posts. Posts survive
// with a null category, they are never deleted with it.
func DeleteCategory(db *gorm.DB, categoryID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Post{}).Where("category_id = ?", categoryID).
			Update("category_id", gorm.Expr("NULL")).Error; err != nil {
			return err
		}
		return tx.Delete(&Category{}, categoryID).Error
	})
}

// SeedCategories ensures the configured category names exist. Existing rows
// are left untouched.
func SeedCategories(db *gorm.DB, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		var cat Category
		if err := db.Where("name = ?", name).FirstOrCreate(&cat, Category{Name: name}).Error; err != nil {
			return err
		}
	}
	return nil
}
