package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/planeats/web/internal/model"
	"github.com/planeats/web/internal/view"
)

const (
	myRecipesPath     = "/minhas-receitas"
	newRecipePath     = "/adicionar-receita"
	minIngredientRows = 3
)

// レシピ作成・編集画面で表示するメッセージ。
const (
	msgRecipeRequired     = "Por favor, preencha nome da receita, instruções e adicione pelo menos um ingrediente"
	msgIngredientRequired = "Por favor, preencha nome, quantidade e unidade do ingrediente"
	msgInvalidNumber      = "Valor numérico inválido"
	msgRecipeCreated      = "Receita criada com sucesso!"
	msgRecipeUpdated      = "Receita atualizada com sucesso!"
	msgRecipeDeleted      = "Receita excluída com sucesso!"
)

var recipeDifficultyOptions = []formOption{
	{Value: "easy", Label: "Fácil"},
	{Value: "medium", Label: "Médio"},
	{Value: "hard", Label: "Difícil"},
}

var recipeCuisineOptions = []formOption{
	{Value: "portuguese", Label: "Portuguesa"},
	{Value: "italian", Label: "Italiana"},
	{Value: "asian", Label: "Asiática"},
	{Value: "mexican", Label: "Mexicana"},
	{Value: "indian", Label: "Indiana"},
	{Value: "french", Label: "Francesa"},
	{Value: "mediterranean", Label: "Mediterrânea"},
	{Value: "brazilian", Label: "Brasileira"},
	{Value: "international", Label: "Internacional"},
}

type ingredientRow struct {
	Name     string
	Quantity string
	Unit     string
}

func (row ingredientRow) blank() bool {
	return row.Name == "" && row.Quantity == "" && row.Unit == ""
}

// recipeForm はレシピフォームの入力値。再表示用に文字列のまま保持する。
type recipeForm struct {
	Name              string
	Description       string
	Instructions      string
	PreparationTime   string
	CookTime          string
	Servings          string
	Difficulty        string
	Category          string
	EstimatedCalories string
	ImageURL          string
	Ingredients       []ingredientRow
}

// recipeFormFromRequest はPOSTされたフォームを読み取る。
// 材料は ingredient_name / ingredient_quantity / ingredient_unit の同じ位置を1行とし、空行は捨てる。
func recipeFormFromRequest(r *http.Request) (recipeForm, error) {
	if err := r.ParseForm(); err != nil {
		return recipeForm{}, &model.ValidationError{Message: "Formulário inválido"}
	}
	field := func(name string) string { return strings.TrimSpace(r.PostForm.Get(name)) }

	form := recipeForm{
		Name:              field("recipe_name"),
		Description:       field("description"),
		Instructions:      field("instructions"),
		PreparationTime:   field("preparation_time_minutes"),
		CookTime:          field("cook_time_minutes"),
		Servings:          field("servings"),
		Difficulty:        field("difficulty"),
		Category:          field("category"),
		EstimatedCalories: field("estimated_calories"),
		ImageURL:          field("image_url"),
	}

	names := r.PostForm["ingredient_name"]
	quantities := r.PostForm["ingredient_quantity"]
	units := r.PostForm["ingredient_unit"]
	at := func(values []string, i int) string {
		if i < len(values) {
			return strings.TrimSpace(values[i])
		}
		return ""
	}
	for i := 0; i < max(len(names), len(quantities), len(units)); i++ {
		row := ingredientRow{Name: at(names, i), Quantity: at(quantities, i), Unit: at(units, i)}
		if !row.blank() {
			form.Ingredients = append(form.Ingredients, row)
		}
	}
	return form, nil
}

// recipeFormFromRecipe は既存レシピを編集フォームの初期値に変換する。
func recipeFormFromRecipe(recipe *model.Recipe) recipeForm {
	form := recipeForm{
		Name:              recipe.Name,
		Description:       view.Value(recipe.Description),
		Instructions:      recipe.Instructions,
		PreparationTime:   formatOptionalInt(recipe.PreparationTimeMinutes),
		CookTime:          formatOptionalInt(recipe.CookTimeMinutes),
		Servings:          formatOptionalInt(recipe.Servings),
		Difficulty:        view.Value(recipe.Difficulty),
		Category:          view.Value(recipe.Category),
		EstimatedCalories: formatOptionalInt(recipe.EstimatedCalories),
		ImageURL:          view.Value(recipe.ImageURL),
	}
	for _, ing := range recipe.Ingredients {
		form.Ingredients = append(form.Ingredients, ingredientRow{
			Name:     ing.Name,
			Quantity: view.FormatQuantity(ing.RequiredQuantity),
			Unit:     ing.RequiredUnit,
		})
	}
	return form
}

// input はフォームを検証してバックエンドへの入力に変換する。
func (f recipeForm) input() (model.RecipeInput, error) {
	if f.Name == "" || f.Instructions == "" || len(f.Ingredients) == 0 {
		return model.RecipeInput{}, &model.ValidationError{Message: msgRecipeRequired}
	}

	in := model.RecipeInput{
		Name:         f.Name,
		Instructions: f.Instructions,
		Description:  optionalString(f.Description),
		Difficulty:   optionalString(f.Difficulty),
		Category:     optionalString(f.Category),
		ImageURL:     optionalString(f.ImageURL),
	}

	numbers := []struct {
		field string
		raw   string
		dst   **int
	}{
		{"preparation_time_minutes", f.PreparationTime, &in.PreparationTimeMinutes},
		{"cook_time_minutes", f.CookTime, &in.CookTimeMinutes},
		{"servings", f.Servings, &in.Servings},
		{"estimated_calories", f.EstimatedCalories, &in.EstimatedCalories},
	}
	for _, n := range numbers {
		if n.raw == "" {
			continue
		}
		v, err := strconv.Atoi(n.raw)
		if err != nil || v < 0 {
			return model.RecipeInput{}, &model.ValidationError{Field: n.field, Message: msgInvalidNumber}
		}
		*n.dst = &v
	}

	for _, row := range f.Ingredients {
		if row.Name == "" || row.Quantity == "" || row.Unit == "" {
			return model.RecipeInput{}, &model.ValidationError{Field: "ingredients", Message: msgIngredientRequired}
		}
		quantity, ok := parseQuantity(row.Quantity)
		if !ok {
			return model.RecipeInput{}, &model.ValidationError{Field: "ingredients", Message: msgInvalidQuantity}
		}
		in.Ingredients = append(in.Ingredients, model.RecipeIngredient{
			Name:             row.Name,
			RequiredQuantity: quantity,
			RequiredUnit:     row.Unit,
		})
	}
	return in, nil
}

// withBlankRows は入力欄として空の材料行を補う。
func (f recipeForm) withBlankRows() recipeForm {
	rows := append([]ingredientRow(nil), f.Ingredients...)
	rows = append(rows, ingredientRow{})
	for len(rows) < minIngredientRows {
		rows = append(rows, ingredientRow{})
	}
	f.Ingredients = rows
	return f
}

type recipeFormPageData struct {
	Heading      string
	Action       string
	SubmitLabel  string
	CancelURL    string
	Form         recipeForm
	Difficulties []formOption
	Cuisines     []formOption
	Units        []string
}

func (h *PageHandler) renderRecipeForm(w http.ResponseWriter, r *http.Request, status int, data recipeFormPageData, errMsg string) {
	data.Form = data.Form.withBlankRows()
	data.Difficulties = recipeDifficultyOptions
	data.Cuisines = recipeCuisineOptions
	data.Units = pantryUnitOptions

	page := newPage(r, data.Heading, data)
	page.Error = errMsg
	h.pages.Render(w, status, "recipe_form", page)
}

// --- 作成 ---

func newRecipePageData(form recipeForm) recipeFormPageData {
	return recipeFormPageData{
		Heading:     "Nova Receita",
		Action:      newRecipePath,
		SubmitLabel: "Criar receita",
		CancelURL:   myRecipesPath,
		Form:        form,
	}
}

// NewRecipePage はレシピの作成フォームを表示する。
// GET /adicionar-receita
func (h *PageHandler) NewRecipePage(w http.ResponseWriter, r *http.Request) {
	h.renderRecipeForm(w, r, http.StatusOK, newRecipePageData(recipeForm{}), "")
}

// NewRecipeSubmit はレシピを作成し、作成したレシピの詳細へ遷移する。
// POST /adicionar-receita
func (h *PageHandler) NewRecipeSubmit(w http.ResponseWriter, r *http.Request) {
	form, err := recipeFormFromRequest(r)
	if err == nil {
		var in model.RecipeInput
		if in, err = form.input(); err == nil {
			var recipe *model.Recipe
			if recipe, err = h.backend.CreateRecipe(r.Context(), in); err == nil {
				http.Redirect(w, r, fmt.Sprintf("/receita/%d?created=1", recipe.ID), http.StatusSeeOther)
				return
			}
		}
	}

	if errors.Is(err, model.ErrNotAuthenticated) {
		h.handleError(w, r, err)
		return
	}
	status, msg := failureMessage(err)
	h.renderRecipeForm(w, r, status, newRecipePageData(form), msg)
}

// --- 編集 ---

func editRecipePageData(id int64, form recipeForm) recipeFormPageData {
	return recipeFormPageData{
		Heading:     "Editar Receita",
		Action:      fmt.Sprintf("/editar-receita/%d", id),
		SubmitLabel: "Guardar alterações",
		CancelURL:   fmt.Sprintf("/receita/%d", id),
		Form:        form,
	}
}

// EditRecipePage は既存レシピの編集フォームを表示する。
// GET /editar-receita/{id}
func (h *PageHandler) EditRecipePage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.NotFound(w, r)
		return
	}

	recipe, err := h.backend.GetRecipe(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.renderRecipeForm(w, r, http.StatusOK, editRecipePageData(id, recipeFormFromRecipe(recipe)), "")
}

// EditRecipeSubmit はレシピを更新し、自分のレシピ一覧へ戻る。
// POST /editar-receita/{id}
func (h *PageHandler) EditRecipeSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.NotFound(w, r)
		return
	}

	form, err := recipeFormFromRequest(r)
	if err == nil {
		var in model.RecipeInput
		if in, err = form.input(); err == nil {
			if _, err = h.backend.UpdateRecipe(r.Context(), id, in); err == nil {
				http.Redirect(w, r, myRecipesPath+"?updated=1", http.StatusSeeOther)
				return
			}
		}
	}

	if errors.Is(err, model.ErrNotAuthenticated) {
		h.handleError(w, r, err)
		return
	}
	status, msg := failureMessage(err)
	h.renderRecipeForm(w, r, status, editRecipePageData(id, form), msg)
}

// --- 削除 ---

// DeleteRecipeSubmit は自分のレシピ一覧のフォームからレシピを削除する。
// POST /minhas-receitas/{id}/excluir
func (h *PageHandler) DeleteRecipeSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.NotFound(w, r)
		return
	}

	err = h.backend.DeleteRecipe(r.Context(), id)
	if err == nil {
		http.Redirect(w, r, myRecipesPath+"?deleted=1", http.StatusSeeOther)
		return
	}
	if errors.Is(err, model.ErrNotAuthenticated) {
		h.handleError(w, r, err)
		return
	}
	status, msg := failureMessage(err)
	h.renderMyRecipes(w, r, status, "", msg)
}

func formatOptionalInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
