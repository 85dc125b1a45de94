package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/repository"
)

func createTestExample(t *testing.T, db *DB, ownerID string, c model.Category, vis model.Visibility, content string) *model.Example {
	t.Helper()
	ex := &model.Example{
		Title:      "title " + content,
		Content:    content,
		Category:   c,
		OwnerID:    ownerID,
		Visibility: vis,
		Tags:       []string{"strat", "electric"},
	}
	if err := db.Examples().Create(context.Background(), ex); err != nil {
		t.Fatalf("failed to create test example: %v", err)
	}
	return ex
}

func TestExampleCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner")

	ex := &model.Example{
		Title:       "Fender Strat",
		Content:     "Bright and snappy.",
		Category:    model.CategoryGuitar,
		Subcategory: "Elektryczna",
		Tags:        []string{"strat", "electric"},
		OwnerID:     owner.ID,
	}
	if err := db.Examples().Create(context.Background(), ex); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if ex.Visibility != model.VisibilityPrivate {
		t.Errorf("Visibility = %q, want default private", ex.Visibility)
	}

	got, err := db.Examples().Get(context.Background(), owner.ID, ex.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Subcategory != "Elektryczna" || strings.Join(got.Tags, ",") != "strat,electric" {
		t.Errorf("Get() = %+v, want stored subcategory and ordered tags", got)
	}
}

func TestExampleGet_OtherOwnerIsNotFound(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")
	ex := createTestExample(t, db, owner.ID, model.CategoryGuitar, model.VisibilityPublic, "shared")

	_, err := db.Examples().Get(context.Background(), other.ID, ex.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}

	err = db.Examples().Delete(context.Background(), other.ID, ex.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestExample_LegacyTagsDecode(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner")
	ex := createTestExample(t, db, owner.ID, model.CategoryGuitar, model.VisibilityPrivate, "legacy")

	if _, err := db.conn.Exec(`UPDATE examples SET tags = ? WHERE id = ?`, "vintage, sunburst", ex.ID); err != nil {
		t.Fatalf("writing legacy tags: %v", err)
	}

	got, err := db.Examples().Get(context.Background(), owner.ID, ex.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if strings.Join(got.Tags, "|") != "vintage|sunburst" {
		t.Errorf("Tags = %q, want [vintage sunburst]", got.Tags)
	}
}

func TestExampleList_FilterAndOrder(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner")

	createTestExample(t, db, owner.ID, model.CategoryGuitar, model.VisibilityPrivate, "first")
	createTestExample(t, db, owner.ID, model.CategoryCompany, model.VisibilityPrivate, "company")
	createTestExample(t, db, owner.ID, model.CategoryGuitar, model.VisibilityPrivate, "second")

	all, err := db.Examples().List(context.Background(), owner.ID, repository.ExampleFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d examples, want 3", len(all))
	}

	guitars, err := db.Examples().List(context.Background(), owner.ID, repository.ExampleFilter{Category: model.CategoryGuitar})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(guitars) != 2 || guitars[0].Content != "second" || guitars[1].Content != "first" {
		t.Errorf("List(guitar) = %v, want [second first]", guitars)
	}
}

func TestExampleListPublic_CrossOwner(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	createTestExample(t, db, alice.ID, model.CategoryGuitar, model.VisibilityPublic, "alice public")
	createTestExample(t, db, alice.ID, model.CategoryGuitar, model.VisibilityPrivate, "alice private")
	createTestExample(t, db, bob.ID, model.CategoryGuitar, model.VisibilityPublic, "bob public")
	createTestExample(t, db, bob.ID, model.CategoryCompany, model.VisibilityPublic, "bob company")

	got, err := db.Examples().ListPublic(context.Background(), model.CategoryGuitar, 50)
	if err != nil {
		t.Fatalf("ListPublic() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListPublic() returned %d, want 2", len(got))
	}
	for _, e := range got {
		if !e.IsPublic() || e.Category != model.CategoryGuitar {
			t.Errorf("ListPublic() returned %+v", e)
		}
	}

	limited, err := db.Examples().ListPublic(context.Background(), "", 1)
	if err != nil {
		t.Fatalf("ListPublic() error = %v", err)
	}
	if len(limited) != 1 || limited[0].Content != "bob company" {
		t.Errorf("ListPublic(all, 1) = %v, want the newest public example", limited)
	}
}

func TestExampleUpdate(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner")
	ex := createTestExample(t, db, owner.ID, model.CategoryGuitar, model.VisibilityPrivate, "before")

	ex.Content = "after"
	ex.Visibility = model.VisibilityPublic
	ex.Tags = []string{"new"}
	if err := db.Examples().Update(context.Background(), ex); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := db.Examples().Get(context.Background(), owner.ID, ex.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Content != "after" || !got.IsPublic() || strings.Join(got.Tags, ",") != "new" {
		t.Errorf("Get() after Update = %+v", got)
	}

	ex.ID = "missing"
	if err := db.Examples().Update(context.Background(), ex); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestExampleCreateFromGeneration(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")

	gen := &model.GenerationRecord{InputText: "Les Paul", GeneratedText: "A warm classic.", Category: model.CategoryGuitar, OwnerID: owner.ID}
	if err := db.Generations().Create(ctx, gen); err != nil {
		t.Fatalf("creating generation: %v", err)
	}

	// Someone else's generation: nothing is written.
	stolen := &model.Example{Content: gen.GeneratedText, Category: gen.Category, OwnerID: other.ID}
	if err := db.Examples().CreateFromGeneration(ctx, stolen, gen.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("CreateFromGeneration(other owner) error = %v, want ErrNotFound", err)
	}
	if list, _ := db.Examples().List(ctx, other.ID, repository.ExampleFilter{}); len(list) != 0 {
		t.Fatalf("other owner has %d examples, want 0", len(list))
	}

	ex := &model.Example{Content: gen.GeneratedText, Category: gen.Category, OwnerID: owner.ID}
	if err := db.Examples().CreateFromGeneration(ctx, ex, gen.ID); err != nil {
		t.Fatalf("CreateFromGeneration() error = %v", err)
	}

	saved, err := db.Generations().Get(ctx, owner.ID, gen.ID)
	if err != nil {
		t.Fatalf("Get generation: %v", err)
	}
	if !saved.WasSaved {
		t.Error("generation was not marked saved")
	}
	if _, err := db.Examples().Get(ctx, owner.ID, ex.ID); err != nil {
		t.Errorf("example not stored: %v", err)
	}
}
