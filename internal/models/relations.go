package models

import "time"

type Favourite struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UserID    uint   `gorm:"not null;uniqueIndex:idx_favourite_user_recipe"`
	User      User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	RecipeID  uint   `gorm:"not null;uniqueIndex:idx_favourite_user_recipe"`
	Recipe    Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

type ShoppingCart struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UserID    uint   `gorm:"not null;uniqueIndex:idx_shopping_cart_user_recipe"`
	User      User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	RecipeID  uint   `gorm:"not null;uniqueIndex:idx_shopping_cart_user_recipe"`
	Recipe    Recipe `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

// Subscription links a subscriber (UserID) to the author they follow
type Subscription struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UserID    uint `gorm:"not null;uniqueIndex:idx_subscription_user_author;check:chk_no_self_subscription,user_id <> author_id"`
	User      User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	AuthorID  uint `gorm:"not null;uniqueIndex:idx_subscription_user_author"`
	Author    User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}

// All returns every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Ingredient{},
		&Tag{},
		&Recipe{},
		&RecipeTag{},
		&RecipeIngredient{},
		&Favourite{},
		&ShoppingCart{},
		&Subscription{},
	}
}
