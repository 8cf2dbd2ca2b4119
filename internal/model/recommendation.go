package model

// RecommendationParams はおすすめレシピ取得の条件。ゼロ値の項目はクエリに含めない。
type RecommendationParams struct {
	MaxPreparationTime    int
	MaxCalories           int
	MaxMissingIngredients int
	SortBy                string // match_score, preparation_time, calories, expiring_ingredients
	SortOrder             string // asc, desc
	UsePreferences        bool
}

// MatchingIngredient はパントリーと一致したレシピ材料。
type MatchingIngredient struct {
	PantryItemID         int64   `json:"pantry_item_id"`
	PantryItemName       string  `json:"pantry_item_name"`
	RecipeIngredientName string  `json:"recipe_ingredient_name"`
	PantryQuantity       float64 `json:"pantry_quantity"`
	PantryUnit           string  `json:"pantry_unit"`
	RequiredQuantity     float64 `json:"required_quantity"`
	RequiredUnit         string  `json:"required_unit"`
}

// MissingIngredient はパントリーに不足しているレシピ材料。
type MissingIngredient struct {
	Name             string  `json:"ingredient_name"`
	RequiredQuantity float64 `json:"required_quantity"`
	RequiredUnit     string  `json:"required_unit"`
}

// RecommendedRecipe はおすすめレシピ1件。
type RecommendedRecipe struct {
	RecipeID               int64                `json:"recipe_id"`
	Name                   string               `json:"recipe_name"`
	EstimatedCalories      *int                 `json:"estimated_calories"`
	PreparationTimeMinutes *int                 `json:"preparation_time_minutes"`
	ImageURL               *string              `json:"image_url"`
	Instructions           string               `json:"instructions"`
	MatchingIngredients    []MatchingIngredient `json:"matching_ingredients"`
	MissingIngredients     []MissingIngredient  `json:"missing_ingredients"`
	MatchScore             float64              `json:"match_score"`
}

// Recommendations はおすすめレシピ一覧のレスポンス。
type Recommendations struct {
	Recommendations  []RecommendedRecipe `json:"recommendations"`
	TotalPantryItems int                 `json:"total_pantry_items"`
	Message          *string             `json:"message,omitempty"`
}
