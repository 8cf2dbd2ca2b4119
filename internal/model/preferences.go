package model

// UserPreferences はユーザーの食事設定を表す。
type UserPreferences struct {
	ID                  int64          `json:"id"`
	UserID              int64          `json:"user_id"`
	DailyCalorieGoal    *int           `json:"daily_calorie_goal"`
	DietaryRestrictions []string       `json:"dietary_restrictions"`
	OtherPreferences    map[string]any `json:"other_preferences"`
}

// UserPreferencesUpdate は食事設定の部分更新リクエスト。
// DietaryRestrictionsは空スライスを指すポインタで全解除を表す。
type UserPreferencesUpdate struct {
	DailyCalorieGoal    *int           `json:"daily_calorie_goal,omitempty"`
	DietaryRestrictions *[]string      `json:"dietary_restrictions,omitempty"`
	OtherPreferences    map[string]any `json:"other_preferences,omitempty"`
}

// PreferenceOptions は設定フォームの選択肢。
type PreferenceOptions struct {
	DietaryRestrictions []string `json:"dietary_restrictions"`
	CuisineTypes        []string `json:"cuisine_types"`
	DifficultyLevels    []string `json:"difficulty_levels"`
}
