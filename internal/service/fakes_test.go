package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/repository"
)

// =========================================================================
// FAKES
//
// In-memory implementations of the repository interfaces. They model the
// rules the services rely on (owner scoping, NotFound, unique usernames) and
// nothing else. Each has an err field to simulate a database failure.
// =========================================================================

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type idSeq struct{ n int }

func (s *idSeq) next(prefix string) string {
	s.n++
	return fmt.Sprintf("%s-%d", prefix, s.n)
}

// --- users ---

type fakeUserRepo struct {
	ids   idSeq
	users map[string]*model.User
	err   error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return apperror.Conflict("user", u.Username)
		}
	}
	u.ID = f.ids.next("user")
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) UpsertGitHub(ctx context.Context, u *model.User) error {
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.users {
		if existing.GitHubID != nil && *existing.GitHubID == *u.GitHubID {
			existing.Email = u.Email
			*u = *existing
			return nil
		}
	}
	return f.Create(ctx, u)
}

// --- examples ---

type fakeExampleRepo struct {
	ids      idSeq
	examples []*model.Example
	// saved records CreateFromGeneration calls: example ID → generation ID.
	saved map[string]string
	err   error
}

var _ repository.ExampleRepository = (*fakeExampleRepo)(nil)

func newFakeExampleRepo() *fakeExampleRepo {
	return &fakeExampleRepo{saved: make(map[string]string)}
}

func (f *fakeExampleRepo) Create(_ context.Context, ex *model.Example) error {
	if f.err != nil {
		return f.err
	}
	ex.ID = f.ids.next("ex")
	ex.CreatedAt, ex.UpdatedAt = time.Now(), time.Now()
	stored := *ex
	f.examples = append(f.examples, &stored)
	return nil
}

func (f *fakeExampleRepo) find(ownerID, id string) (*model.Example, error) {
	for _, ex := range f.examples {
		if ex.ID == id && ex.OwnerID == ownerID {
			return ex, nil
		}
	}
	return nil, apperror.NotFound("example", id)
}

func (f *fakeExampleRepo) Get(_ context.Context, ownerID, id string) (*model.Example, error) {
	if f.err != nil {
		return nil, f.err
	}
	ex, err := f.find(ownerID, id)
	if err != nil {
		return nil, err
	}
	out := *ex
	return &out, nil
}

// List returns newest first, like the store.
func (f *fakeExampleRepo) List(_ context.Context, ownerID string, flt repository.ExampleFilter) ([]model.Example, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Example
	for i := len(f.examples) - 1; i >= 0; i-- {
		ex := f.examples[i]
		if ex.OwnerID == ownerID && (flt.Category == "" || ex.Category == flt.Category) {
			out = append(out, *ex)
		}
	}
	if flt.Limit > 0 && len(out) > flt.Limit {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakeExampleRepo) ListPublic(_ context.Context, category model.Category, limit int) ([]model.Example, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Example
	for i := len(f.examples) - 1; i >= 0; i-- {
		ex := f.examples[i]
		if ex.IsPublic() && (category == "" || ex.Category == category) {
			out = append(out, *ex)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeExampleRepo) Update(_ context.Context, ex *model.Example) error {
	if f.err != nil {
		return f.err
	}
	stored, err := f.find(ex.OwnerID, ex.ID)
	if err != nil {
		return err
	}
	ex.UpdatedAt = time.Now()
	*stored = *ex
	return nil
}

func (f *fakeExampleRepo) Delete(_ context.Context, ownerID, id string) error {
	if f.err != nil {
		return f.err
	}
	for i, ex := range f.examples {
		if ex.ID == id && ex.OwnerID == ownerID {
			f.examples = append(f.examples[:i], f.examples[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("example", id)
}

func (f *fakeExampleRepo) CreateFromGeneration(ctx context.Context, ex *model.Example, generationID string) error {
	if err := f.Create(ctx, ex); err != nil {
		return err
	}
	f.saved[ex.ID] = generationID
	return nil
}

// --- corrections ---

type fakeCorrectionRepo struct {
	ids         idSeq
	corrections []*model.Correction
	err         error
}

var _ repository.CorrectionRepository = (*fakeCorrectionRepo)(nil)

func (f *fakeCorrectionRepo) Create(_ context.Context, c *model.Correction) error {
	if f.err != nil {
		return f.err
	}
	c.ID = f.ids.next("corr")
	c.CreatedAt = time.Now()
	c.Applied = false
	stored := *c
	f.corrections = append(f.corrections, &stored)
	return nil
}

func (f *fakeCorrectionRepo) Get(_ context.Context, ownerID, id string) (*model.Correction, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, c := range f.corrections {
		if c.ID == id && c.OwnerID == ownerID {
			out := *c
			return &out, nil
		}
	}
	return nil, apperror.NotFound("correction", id)
}

func (f *fakeCorrectionRepo) List(_ context.Context, ownerID string, opts repository.ListOptions) ([]model.Correction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Correction
	for i := len(f.corrections) - 1; i >= 0; i-- {
		if f.corrections[i].OwnerID == ownerID {
			out = append(out, *f.corrections[i])
		}
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeCorrectionRepo) ListUnapplied(_ context.Context, ownerID string, category model.Category, limit int) ([]model.Correction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Correction
	for _, c := range f.corrections {
		if c.OwnerID == ownerID && c.Category == category && !c.Applied {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCorrectionRepo) MarkApplied(_ context.Context, ownerID, id string) error {
	if f.err != nil {
		return f.err
	}
	for _, c := range f.corrections {
		if c.ID == id && c.OwnerID == ownerID {
			c.Applied = true
			return nil
		}
	}
	return apperror.NotFound("correction", id)
}

// --- adjustments ---

type fakeAdjustmentRepo struct {
	ids         idSeq
	adjustments []*model.Adjustment
	err         error
}

var _ repository.AdjustmentRepository = (*fakeAdjustmentRepo)(nil)

func sameOwner(a *model.Adjustment, ownerID string) bool {
	if ownerID == "" {
		return a.OwnerID == nil
	}
	return a.OwnerID != nil && *a.OwnerID == ownerID
}

func (f *fakeAdjustmentRepo) Create(_ context.Context, a *model.Adjustment) error {
	if f.err != nil {
		return f.err
	}
	a.ID = f.ids.next("adj")
	a.CreatedAt = time.Now()
	stored := *a
	f.adjustments = append(f.adjustments, &stored)
	return nil
}

func (f *fakeAdjustmentRepo) Get(_ context.Context, ownerID, id string) (*model.Adjustment, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, a := range f.adjustments {
		if a.ID == id && sameOwner(a, ownerID) {
			out := *a
			return &out, nil
		}
	}
	return nil, apperror.NotFound("adjustment", id)
}

func (f *fakeAdjustmentRepo) List(_ context.Context, ownerID string) ([]model.Adjustment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Adjustment
	for _, a := range f.adjustments {
		if a.OwnerID == nil || *a.OwnerID == ownerID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAdjustmentRepo) ListActive(ctx context.Context, ownerID string, category model.Category) ([]model.Adjustment, error) {
	all, err := f.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var out []model.Adjustment
	for _, a := range all {
		if a.AppliesTo(category) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

func (f *fakeAdjustmentRepo) Update(_ context.Context, a *model.Adjustment) error {
	if f.err != nil {
		return f.err
	}
	owner := ""
	if a.OwnerID != nil {
		owner = *a.OwnerID
	}
	for _, stored := range f.adjustments {
		if stored.ID == a.ID && sameOwner(stored, owner) {
			*stored = *a
			return nil
		}
	}
	return apperror.NotFound("adjustment", a.ID)
}

func (f *fakeAdjustmentRepo) Delete(_ context.Context, ownerID, id string) error {
	if f.err != nil {
		return f.err
	}
	for i, a := range f.adjustments {
		if a.ID == id && sameOwner(a, ownerID) {
			f.adjustments = append(f.adjustments[:i], f.adjustments[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("adjustment", id)
}

// --- templates ---

// fakeTemplateRepo keeps the one-active-per-(owner, type) rule and the
// version counter, like the store.
type fakeTemplateRepo struct {
	ids       idSeq
	templates []*model.PromptTemplate
	err       error
}

var _ repository.TemplateRepository = (*fakeTemplateRepo)(nil)

func (f *fakeTemplateRepo) find(ownerID, id string) (*model.PromptTemplate, error) {
	for _, t := range f.templates {
		if t.ID == id && t.OwnerID == ownerID {
			return t, nil
		}
	}
	return nil, apperror.NotFound("template", id)
}

func (f *fakeTemplateRepo) deactivateSiblings(t *model.PromptTemplate) {
	for _, other := range f.templates {
		if other.ID != t.ID && other.OwnerID == t.OwnerID && other.Category == t.Category {
			other.Active = false
		}
	}
}

func (f *fakeTemplateRepo) Create(_ context.Context, t *model.PromptTemplate) error {
	if f.err != nil {
		return f.err
	}
	t.ID = f.ids.next("tmpl")
	t.Version = 1
	stored := *t
	f.templates = append(f.templates, &stored)
	if t.Active {
		f.deactivateSiblings(&stored)
	}
	return nil
}

func (f *fakeTemplateRepo) Get(_ context.Context, ownerID, id string) (*model.PromptTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, err := f.find(ownerID, id)
	if err != nil {
		return nil, err
	}
	out := *t
	return &out, nil
}

func (f *fakeTemplateRepo) List(_ context.Context, ownerID string) ([]model.PromptTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.PromptTemplate
	for _, t := range f.templates {
		if t.OwnerID == ownerID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTemplateRepo) GetActive(_ context.Context, ownerID string, category model.Category) (*model.PromptTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range f.templates {
		if t.OwnerID == ownerID && t.Category == category && t.Active {
			out := *t
			return &out, nil
		}
	}
	return nil, apperror.NotFound("active template", string(category))
}

func (f *fakeTemplateRepo) Update(_ context.Context, t *model.PromptTemplate) error {
	if f.err != nil {
		return f.err
	}
	stored, err := f.find(t.OwnerID, t.ID)
	if err != nil {
		return err
	}
	stored.Title, stored.Content, stored.Active = t.Title, t.Content, t.Active
	stored.Version++
	if stored.Active {
		f.deactivateSiblings(stored)
	}
	*t = *stored
	return nil
}

func (f *fakeTemplateRepo) Activate(_ context.Context, ownerID, id string) (*model.PromptTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	stored, err := f.find(ownerID, id)
	if err != nil {
		return nil, err
	}
	f.deactivateSiblings(stored)
	stored.Active = true
	stored.Version++
	out := *stored
	return &out, nil
}

func (f *fakeTemplateRepo) Delete(_ context.Context, ownerID, id string) error {
	if f.err != nil {
		return f.err
	}
	for i, t := range f.templates {
		if t.ID == id && t.OwnerID == ownerID {
			f.templates = append(f.templates[:i], f.templates[i+1:]...)
			return nil
		}
	}
	return apperror.NotFound("template", id)
}

// --- generations ---

type fakeGenerationRepo struct {
	ids     idSeq
	records []*model.GenerationRecord
	err     error
}

var _ repository.GenerationRepository = (*fakeGenerationRepo)(nil)

func (f *fakeGenerationRepo) Create(_ context.Context, g *model.GenerationRecord) error {
	if f.err != nil {
		return f.err
	}
	g.ID = f.ids.next("gen")
	g.CreatedAt = time.Now()
	stored := *g
	f.records = append(f.records, &stored)
	return nil
}

func (f *fakeGenerationRepo) Get(_ context.Context, ownerID, id string) (*model.GenerationRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, g := range f.records {
		if g.ID == id && g.OwnerID == ownerID {
			out := *g
			return &out, nil
		}
	}
	return nil, apperror.NotFound("generation", id)
}

func (f *fakeGenerationRepo) List(_ context.Context, ownerID string, opts repository.ListOptions) ([]model.GenerationRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.GenerationRecord
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].OwnerID == ownerID {
			out = append(out, *f.records[i])
		}
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}
