package model

// PantryItem はユーザーのパントリー（食品庫）に登録された食材を表す。
// 日付はバックエンドの表現（YYYY-MM-DD / ISO 8601）をそのまま保持する。
type PantryItem struct {
	ID              int64   `json:"id"`
	Name            string  `json:"item_name"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit"`
	ExpirationDate  *string `json:"expiration_date,omitempty"`
	PurchaseDate    *string `json:"purchase_date,omitempty"`
	Category        *string `json:"category,omitempty"`
	CaloriesPerUnit *int    `json:"calories_per_unit,omitempty"`
	ImageURL        *string `json:"image_url,omitempty"`
	UserID          int64   `json:"user_id"`
	AddedAt         string  `json:"added_at"`
}

// PantryItemCreate はパントリー食材の作成リクエスト。
type PantryItemCreate struct {
	Name            string  `json:"item_name"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit"`
	ExpirationDate  *string `json:"expiration_date,omitempty"`
	PurchaseDate    *string `json:"purchase_date,omitempty"`
	Category        *string `json:"category,omitempty"`
	CaloriesPerUnit *int    `json:"calories_per_unit,omitempty"`
	ImageURL        *string `json:"image_url,omitempty"`
}

// Validate は必須項目の有無のみを検証する。
func (c *PantryItemCreate) Validate() error {
	if c.Name == "" {
		return NewMissingFieldError("item_name")
	}
	if c.Quantity <= 0 {
		return NewMissingFieldError("quantity")
	}
	if c.Unit == "" {
		return NewMissingFieldError("unit")
	}
	return nil
}

// PantryItemUpdate はパントリー食材の部分更新リクエスト。
// nilのフィールドは送信しない。
type PantryItemUpdate struct {
	Name            *string  `json:"item_name,omitempty"`
	Quantity        *float64 `json:"quantity,omitempty"`
	Unit            *string  `json:"unit,omitempty"`
	ExpirationDate  *string  `json:"expiration_date,omitempty"`
	PurchaseDate    *string  `json:"purchase_date,omitempty"`
	Category        *string  `json:"category,omitempty"`
	CaloriesPerUnit *int     `json:"calories_per_unit,omitempty"`
	ImageURL        *string  `json:"image_url,omitempty"`
}

// Validate は指定されたフィールドが空値でないことを検証する。
func (u *PantryItemUpdate) Validate() error {
	if u.Name != nil && *u.Name == "" {
		return NewMissingFieldError("item_name")
	}
	if u.Unit != nil && *u.Unit == "" {
		return NewMissingFieldError("unit")
	}
	return nil
}
