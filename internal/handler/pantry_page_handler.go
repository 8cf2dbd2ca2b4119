package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/planeats/web/internal/model"
)

const (
	pantryPath    = "/meu-frigorifico"
	addItemsPath  = "/adicionar-itens"
	dateLayout    = "2006-01-02"
	recentItemMax = 5
)

// パントリー画面で表示するメッセージ。
const (
	msgPantryRequired    = "Por favor, preencha todos os campos obrigatórios"
	msgInvalidQuantity   = "Quantidade inválida"
	msgInvalidExpiration = "Data de validade inválida"
	msgInvalidCalories   = "Calorias por unidade inválidas"
	msgItemAdded         = "Ingrediente adicionado com sucesso!"
	msgItemUpdated       = "Ingrediente atualizado com sucesso!"
	msgItemDeleted       = "Ingrediente removido do frigorífico"
	msgUnknownAction     = "Ação desconhecida"
)

type formOption struct {
	Value string
	Label string
}

var pantryCategoryOptions = []formOption{
	{Value: "vegetais", Label: "Vegetais"},
	{Value: "frutas", Label: "Frutas"},
	{Value: "proteinas", Label: "Proteínas"},
	{Value: "graos", Label: "Grãos"},
	{Value: "laticinios", Label: "Laticínios"},
	{Value: "temperos", Label: "Temperos"},
	{Value: "outros", Label: "Outros"},
}

var pantryUnitOptions = []string{"unidades", "kg", "g", "L", "mL", "pacotes", "latas"}

// pantryItemForm はパントリー食材フォームの入力値。再表示用に文字列のまま保持する。
type pantryItemForm struct {
	Name            string
	Category        string
	Quantity        string
	Unit            string
	ExpirationDate  string
	CaloriesPerUnit string
}

func pantryItemFormFromRequest(r *http.Request) pantryItemForm {
	return pantryItemForm{
		Name:            strings.TrimSpace(r.PostFormValue("item_name")),
		Category:        strings.TrimSpace(r.PostFormValue("category")),
		Quantity:        strings.TrimSpace(r.PostFormValue("quantity")),
		Unit:            strings.TrimSpace(r.PostFormValue("unit")),
		ExpirationDate:  strings.TrimSpace(r.PostFormValue("expiration_date")),
		CaloriesPerUnit: strings.TrimSpace(r.PostFormValue("calories_per_unit")),
	}
}

// parsed は数量・日付・カロリーを検証して変換する。
func (f pantryItemForm) parsed() (quantity float64, expiration *string, calories *int, err error) {
	quantity, ok := parseQuantity(f.Quantity)
	if !ok {
		return 0, nil, nil, &model.ValidationError{Field: "quantity", Message: msgInvalidQuantity}
	}
	if f.ExpirationDate != "" {
		if _, perr := time.Parse(dateLayout, f.ExpirationDate); perr != nil {
			return 0, nil, nil, &model.ValidationError{Field: "expiration_date", Message: msgInvalidExpiration}
		}
		date := f.ExpirationDate
		expiration = &date
	}
	if f.CaloriesPerUnit != "" {
		n, cerr := strconv.Atoi(f.CaloriesPerUnit)
		if cerr != nil || n < 0 {
			return 0, nil, nil, &model.ValidationError{Field: "calories_per_unit", Message: msgInvalidCalories}
		}
		calories = &n
	}
	return quantity, expiration, calories, nil
}

// parseQuantity は "2"、"0,5"、"1.5"、"1/2" 形式の正の数量を解析する。
func parseQuantity(raw string) (float64, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return 0, false
	}
	if num, den, found := strings.Cut(raw, "/"); found {
		n, nerr := strconv.ParseFloat(strings.TrimSpace(num), 64)
		d, derr := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if nerr != nil || derr != nil || n <= 0 || d <= 0 {
			return 0, false
		}
		return n / d, true
	}
	q, err := strconv.ParseFloat(raw, 64)
	if err != nil || q <= 0 {
		return 0, false
	}
	return q, true
}

// --- 一覧・更新・削除 ---

type pantryPageData struct {
	Items      []model.PantryItem
	Categories []formOption
	Units      []string
}

// Pantry はパントリー食材の一覧を表示する。
// GET /meu-frigorifico
func (h *PageHandler) Pantry(w http.ResponseWriter, r *http.Request) {
	var notice string
	switch {
	case r.URL.Query().Get("updated") != "":
		notice = msgItemUpdated
	case r.URL.Query().Get("deleted") != "":
		notice = msgItemDeleted
	}
	h.renderPantry(w, r, http.StatusOK, notice, "")
}

func (h *PageHandler) renderPantry(w http.ResponseWriter, r *http.Request, status int, notice, errMsg string) {
	items, err := h.backend.ListPantryItems(r.Context(), 0, pantryPageLimit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	page := newPage(r, "Meu Frigorífico", pantryPageData{
		Items:      items,
		Categories: pantryCategoryOptions,
		Units:      pantryUnitOptions,
	})
	page.Path = pantryPath
	page.Notice = notice
	page.Error = errMsg
	h.pages.Render(w, status, "pantry", page)
}

// PantryItemSubmit は一覧画面のフォームから食材を更新または削除する。
// action=delete で削除、それ以外は更新として扱う。
// POST /meu-frigorifico/{id}
func (h *PageHandler) PantryItemSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.NotFound(w, r)
		return
	}

	switch r.PostFormValue("action") {
	case "delete":
		err = h.backend.DeletePantryItem(r.Context(), id)
		if err == nil {
			http.Redirect(w, r, pantryPath+"?deleted=1", http.StatusSeeOther)
			return
		}
	case "update", "":
		err = h.updatePantryItem(r, id)
		if err == nil {
			http.Redirect(w, r, pantryPath+"?updated=1", http.StatusSeeOther)
			return
		}
	default:
		err = &model.ValidationError{Message: msgUnknownAction}
	}

	if errors.Is(err, model.ErrNotAuthenticated) {
		h.handleError(w, r, err)
		return
	}
	status, msg := failureMessage(err)
	h.renderPantry(w, r, status, "", msg)
}

func (h *PageHandler) updatePantryItem(r *http.Request, id int64) error {
	form := pantryItemFormFromRequest(r)
	if form.Name == "" || form.Quantity == "" || form.Unit == "" {
		return &model.ValidationError{Message: msgPantryRequired}
	}
	quantity, expiration, calories, err := form.parsed()
	if err != nil {
		return err
	}

	update := model.PantryItemUpdate{
		Name:            &form.Name,
		Quantity:        &quantity,
		Unit:            &form.Unit,
		ExpirationDate:  expiration,
		CaloriesPerUnit: calories,
		Category:        optionalString(form.Category),
	}
	_, err = h.backend.UpdatePantryItem(r.Context(), id, update)
	return err
}

// --- 追加 ---

type addItemsPageData struct {
	Form       pantryItemForm
	Categories []formOption
	Units      []string
	Recent     []model.PantryItem
}

// AddItemsPage は食材の追加フォームを表示する。
// GET /adicionar-itens
func (h *PageHandler) AddItemsPage(w http.ResponseWriter, r *http.Request) {
	var notice string
	if r.URL.Query().Get("added") != "" {
		notice = msgItemAdded
	}
	h.renderAddItems(w, r, http.StatusOK, pantryItemForm{Unit: pantryUnitOptions[0]}, notice, "")
}

// AddItemsSubmit は食材を登録する。購入日は登録日とする。
// POST /adicionar-itens
func (h *PageHandler) AddItemsSubmit(w http.ResponseWriter, r *http.Request) {
	form := pantryItemFormFromRequest(r)
	if form.Unit == "" {
		form.Unit = pantryUnitOptions[0]
	}

	err := h.createPantryItem(r, form)
	if err == nil {
		http.Redirect(w, r, addItemsPath+"?added=1", http.StatusSeeOther)
		return
	}
	if errors.Is(err, model.ErrNotAuthenticated) {
		h.handleError(w, r, err)
		return
	}
	status, msg := failureMessage(err)
	h.renderAddItems(w, r, status, form, "", msg)
}

func (h *PageHandler) createPantryItem(r *http.Request, form pantryItemForm) error {
	if form.Name == "" || form.Category == "" || form.Quantity == "" {
		return &model.ValidationError{Message: msgPantryRequired}
	}
	quantity, expiration, calories, err := form.parsed()
	if err != nil {
		return err
	}

	purchased := h.now().Format(dateLayout)
	category := form.Category
	_, err = h.backend.CreatePantryItem(r.Context(), model.PantryItemCreate{
		Name:            form.Name,
		Quantity:        quantity,
		Unit:            form.Unit,
		ExpirationDate:  expiration,
		PurchaseDate:    &purchased,
		Category:        &category,
		CaloriesPerUnit: calories,
	})
	return err
}

// renderAddItems は追加フォームと最近登録した食材を表示する。
func (h *PageHandler) renderAddItems(w http.ResponseWriter, r *http.Request, status int, form pantryItemForm, notice, errMsg string) {
	recent, err := h.backend.ListPantryItems(r.Context(), 0, recentItemMax)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	// 新しいものを先頭に表示する
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}

	page := newPage(r, "Adicionar Itens", addItemsPageData{
		Form:       form,
		Categories: pantryCategoryOptions,
		Units:      pantryUnitOptions,
		Recent:     recent,
	})
	page.Notice = notice
	page.Error = errMsg
	h.pages.Render(w, status, "add_items", page)
}
