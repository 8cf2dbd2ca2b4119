package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestBackendError_Message(t *testing.T) {
	err := &BackendError{Status: 404, Detail: "Pantry item not found"}
	want := "backend returned status 404: Pantry item not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestValidationError_WrappedIsDetected(t *testing.T) {
	err := fmt.Errorf("create failed: %w", NewMissingFieldError("item_name"))
	if !IsValidation(err) {
		t.Error("expected wrapped ValidationError to be detected")
	}
	if IsValidation(errors.New("other")) {
		t.Error("plain error should not be a ValidationError")
	}
}

func TestPantryItemCreate_Validate(t *testing.T) {
	valid := PantryItemCreate{Name: "Arroz", Quantity: 1, Unit: "kg"}
	if err := valid.Validate(); err != nil {
		t.Errorf("expected valid item, got %v", err)
	}

	missingName := PantryItemCreate{Quantity: 1, Unit: "kg"}
	if err := missingName.Validate(); err == nil {
		t.Error("expected error for missing item_name")
	}

	zeroQty := PantryItemCreate{Name: "Arroz", Unit: "kg"}
	if err := zeroQty.Validate(); err == nil {
		t.Error("expected error for missing quantity")
	}

	missingUnit := PantryItemCreate{Name: "Arroz", Quantity: 2}
	if err := missingUnit.Validate(); err == nil {
		t.Error("expected error for missing unit")
	}
}

func TestPantryItemUpdate_Validate_EmptyNameRejected(t *testing.T) {
	empty := ""
	upd := PantryItemUpdate{Name: &empty}
	if err := upd.Validate(); err == nil {
		t.Error("expected error for empty item_name")
	}

	qty := 3.0
	ok := PantryItemUpdate{Quantity: &qty}
	if err := ok.Validate(); err != nil {
		t.Errorf("expected partial update to be valid, got %v", err)
	}
}

func TestRecipeInput_ValidateCreate(t *testing.T) {
	in := RecipeInput{Name: "Sopa", Instructions: "Ferver"}
	if err := in.ValidateCreate(); err != nil {
		t.Errorf("expected valid recipe, got %v", err)
	}

	noInstr := RecipeInput{Name: "Sopa"}
	if err := noInstr.ValidateCreate(); err == nil {
		t.Error("expected error for missing instructions")
	}

	badIngredient := RecipeInput{Name: "Sopa", Instructions: "Ferver", Ingredients: []RecipeIngredient{{}}}
	if err := badIngredient.ValidateCreate(); err == nil {
		t.Error("expected error for unnamed ingredient")
	}
}

func TestCustomRecipeRequest_Validate_RequiresPantryItem(t *testing.T) {
	req := CustomRecipeRequest{}
	if err := req.Validate(); err == nil {
		t.Fatal("expected error for empty pantry_item_ids")
	}

	req.PantryItemIDs = []int64{1}
	if err := req.Validate(); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}
}

func TestIdentity_HasToken(t *testing.T) {
	var nilIdentity *Identity
	if nilIdentity.HasToken() {
		t.Error("nil identity should not have a token")
	}
	if (&Identity{ID: 1}).HasToken() {
		t.Error("identity without token should report false")
	}
	if !(&Identity{ID: 1, Token: "abc"}).HasToken() {
		t.Error("identity with token should report true")
	}
}
