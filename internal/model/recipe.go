package model

// RecipeIngredient はレシピの材料1件を表す。スライス内の順序が表示順となる。
type RecipeIngredient struct {
	ID               int64   `json:"id,omitempty"`
	Name             string  `json:"ingredient_name"`
	RequiredQuantity float64 `json:"required_quantity"`
	RequiredUnit     string  `json:"required_unit"`
}

// Recipe はレシピを表す。
type Recipe struct {
	ID                     int64              `json:"id"`
	Name                   string             `json:"recipe_name"`
	Description            *string            `json:"description,omitempty"`
	Instructions           string             `json:"instructions"`
	PreparationTimeMinutes *int               `json:"preparation_time_minutes,omitempty"`
	CookTimeMinutes        *int               `json:"cook_time_minutes,omitempty"`
	Servings               *int               `json:"servings,omitempty"`
	Difficulty             *string            `json:"difficulty,omitempty"`
	Category               *string            `json:"category,omitempty"`
	EstimatedCalories      *int               `json:"estimated_calories,omitempty"`
	ImageURL               *string            `json:"image_url,omitempty"`
	CreatedByUserID        *int64             `json:"created_by_user_id,omitempty"`
	CreatedAt              string             `json:"created_at"`
	Ingredients            []RecipeIngredient `json:"ingredients"`
}

// RecipeInput はレシピの作成・更新リクエスト。
// 更新時はnilのフィールドを送信しない。
type RecipeInput struct {
	Name                   string             `json:"recipe_name,omitempty"`
	Description            *string            `json:"description,omitempty"`
	Instructions           string             `json:"instructions,omitempty"`
	PreparationTimeMinutes *int               `json:"preparation_time_minutes,omitempty"`
	CookTimeMinutes        *int               `json:"cook_time_minutes,omitempty"`
	Servings               *int               `json:"servings,omitempty"`
	Difficulty             *string            `json:"difficulty,omitempty"`
	Category               *string            `json:"category,omitempty"`
	EstimatedCalories      *int               `json:"estimated_calories,omitempty"`
	ImageURL               *string            `json:"image_url,omitempty"`
	Ingredients            []RecipeIngredient `json:"ingredients,omitempty"`
}

// ValidateCreate は作成時の必須項目を検証する。
func (in *RecipeInput) ValidateCreate() error {
	if in.Name == "" {
		return NewMissingFieldError("recipe_name")
	}
	if in.Instructions == "" {
		return NewMissingFieldError("instructions")
	}
	for _, ing := range in.Ingredients {
		if ing.Name == "" {
			return NewMissingFieldError("ingredient_name")
		}
	}
	return nil
}

// RecipeFilter はレシピ一覧の絞り込み条件。ゼロ値の項目はクエリに含めない。
type RecipeFilter struct {
	UserCreatedOnly bool
	MaxCalories     int
	MaxPrepTime     int
	Ingredients     []string
	Skip            int
	Limit           int
}

// CustomRecipeRequest はAIによるレシピ生成リクエスト。
type CustomRecipeRequest struct {
	PantryItemIDs        []int64 `json:"pantry_item_ids"`
	MaxCalories          *int    `json:"max_calories,omitempty"`
	PreparationTimeLimit *int    `json:"preparation_time_limit,omitempty"`
	DietaryRestrictions  *string `json:"dietary_restrictions,omitempty"`
	CuisinePreference    *string `json:"cuisine_preference,omitempty"`
	AdditionalNotes      *string `json:"additional_notes,omitempty"`
}

// Validate は少なくとも1つのパントリー食材が選択されていることを検証する。
func (r *CustomRecipeRequest) Validate() error {
	if len(r.PantryItemIDs) == 0 {
		return &ValidationError{Message: "Pelo menos um item da despensa deve ser selecionado"}
	}
	return nil
}

// GeneratedIngredient はAI生成レシピの材料。
type GeneratedIngredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// GeneratedRecipe はAIが生成したレシピ。永続化されず、1回の表示で消費される。
type GeneratedRecipe struct {
	Name                   string                `json:"recipe_name"`
	Instructions           string                `json:"instructions"`
	EstimatedCalories      *int                  `json:"estimated_calories,omitempty"`
	PreparationTimeMinutes *int                  `json:"preparation_time_minutes,omitempty"`
	Ingredients            []GeneratedIngredient `json:"ingredients"`
}

// UsedPantryItem は生成時に使用されたパントリー食材。
type UsedPantryItem struct {
	PantryItemID int64   `json:"pantry_item_id"`
	Name         string  `json:"item_name"`
	QuantityUsed float64 `json:"quantity_used"`
	Unit         string  `json:"unit"`
}

// GenerationMetadata はAI生成のメタ情報。
type GenerationMetadata struct {
	ModelUsed        string  `json:"model_used"`
	GenerationTime   float64 `json:"generation_time"`
	PromptTokens     *int    `json:"prompt_tokens,omitempty"`
	CompletionTokens *int    `json:"completion_tokens,omitempty"`
}

// CustomRecipeResponse はAIレシピ生成のレスポンス。
type CustomRecipeResponse struct {
	Recipe       GeneratedRecipe    `json:"generated_recipe"`
	UsedItems    []UsedPantryItem   `json:"used_pantry_items"`
	Metadata     GenerationMetadata `json:"generation_metadata"`
	GenerationID *string            `json:"generation_id,omitempty"`
}
