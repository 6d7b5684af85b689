package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Overland-East-Bay/trip-estimator-api/internal/domain"
	contactrepoport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/contactrepo"
	idempotencyport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/idempotency"
	profilerepoport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/profilerepo"
	securestoreport "github.com/Overland-East-Bay/trip-estimator-api/internal/ports/out/securestore"
)

type CleanupFunc = func()

type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)
type SecureStoreFactory func(t *testing.T) (securestoreport.Store, CleanupFunc)
type ProfileRepoFactory func(t *testing.T) (profilerepoport.Repository, CleanupFunc)
type ContactRepoFactory func(t *testing.T) (contactrepoport.Repository, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Subject:  domain.SubjectID("sub-" + uuid.NewString()),
		Method:   "POST",
		Route:    "/registration",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("expected miss before Put, got ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Records are scoped per subject.
	other := fp
	other.Subject = domain.SubjectID("sub-" + uuid.NewString())
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("expected miss for other subject, got ok=%v err=%v", ok, err)
	}

	// Claim: first writer wins, later claims read the winner back.
	claimFP := fp
	claimFP.Key = idempotencyport.Key("k-claim-" + uuid.NewString())
	first := idempotencyport.Record{ContentType: "text/plain", Body: []byte("hash-first"), CreatedAt: time.Unix(200, 0).UTC()}
	got, claimed, err := store.Claim(ctx, claimFP, first)
	if err != nil || !claimed || string(got.Body) != "hash-first" {
		t.Fatalf("first Claim: claimed=%v err=%v body=%q", claimed, err, string(got.Body))
	}
	second := first
	second.Body = []byte("hash-second")
	got, claimed, err = store.Claim(ctx, claimFP, second)
	if err != nil || claimed || string(got.Body) != "hash-first" {
		t.Fatalf("second Claim: claimed=%v err=%v body=%q", claimed, err, string(got.Body))
	}
}

func RunSecureStore(t *testing.T, newStore SecureStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	sub := domain.SubjectID("sub-" + uuid.NewString())
	if _, err := store.Get(ctx, sub, securestoreport.KeySecretToken); !errors.Is(err, securestoreport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Set(ctx, sub, securestoreport.KeySecretToken, "tok-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, sub, securestoreport.KeySecretToken)
	if err != nil || got != "tok-1" {
		t.Fatalf("Get: got=%q err=%v", got, err)
	}

	// Overwrite.
	if err := store.Set(ctx, sub, securestoreport.KeySecretToken, "tok-2"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if got, err := store.Get(ctx, sub, securestoreport.KeySecretToken); err != nil || got != "tok-2" {
		t.Fatalf("expected overwritten value, got=%q err=%v", got, err)
	}

	// Empty values round-trip.
	if err := store.Set(ctx, sub, securestoreport.KeyRegisterEmail, ""); err != nil {
		t.Fatalf("Set empty: %v", err)
	}
	if got, err := store.Get(ctx, sub, securestoreport.KeyRegisterEmail); err != nil || got != "" {
		t.Fatalf("expected empty value, got=%q err=%v", got, err)
	}

	// Subjects are isolated.
	other := domain.SubjectID("sub-" + uuid.NewString())
	if _, err := store.Get(ctx, other, securestoreport.KeySecretToken); !errors.Is(err, securestoreport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other subject, got %v", err)
	}

	if err := store.Delete(ctx, sub, securestoreport.KeySecretToken); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, sub, securestoreport.KeySecretToken); !errors.Is(err, securestoreport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after Delete, got %v", err)
	}
	// Deleting a missing key is not an error.
	if err := store.Delete(ctx, sub, securestoreport.KeySecretToken); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func RunProfileRepo(t *testing.T, newRepo ProfileRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	sub := domain.SubjectID("sub-" + uuid.NewString())
	if _, err := repo.GetBySubject(ctx, sub); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	ph := domain.PlaceholderProfile()
	p := profilerepoport.Profile{
		ID:          domain.ProfileID(uuid.NewString()),
		Subject:     sub,
		Name:        ph.Name,
		Email:       ph.Email,
		PhoneNumber: ph.PhoneNumber,
		Address:     ph.Address,
		Gender:      ph.Gender,
		Occupation:  ph.Occupation,
		EmployeeID:  ph.EmployeeID,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetBySubject(ctx, sub)
	if err != nil {
		t.Fatalf("GetBySubject: %v", err)
	}
	if got.ID != p.ID || got.Name != ph.Name || got.EmployeeID != ph.EmployeeID || got.Version != 1 {
		t.Fatalf("unexpected profile: %#v", got)
	}

	// One profile per subject.
	dup := p
	dup.ID = domain.ProfileID(uuid.NewString())
	if err := repo.Create(ctx, dup); !errors.Is(err, profilerepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Versioned update.
	upd := got
	upd.Name = "Jane Roe"
	upd.Version = 2
	upd.UpdatedAt = now.Add(time.Minute)
	if err := repo.Update(ctx, upd, 1); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = repo.GetBySubject(ctx, sub)
	if err != nil {
		t.Fatalf("GetBySubject after update: %v", err)
	}
	if got.Name != "Jane Roe" || got.Version != 2 || !got.UpdatedAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected updated profile: %#v", got)
	}

	// Stale version loses.
	stale := upd
	stale.Name = "Stale"
	stale.Version = 2
	if err := repo.Update(ctx, stale, 1); !errors.Is(err, profilerepoport.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	got, _ = repo.GetBySubject(ctx, sub)
	if got.Name != "Jane Roe" {
		t.Fatalf("stale update leaked: %#v", got)
	}

	missing := upd
	missing.Subject = domain.SubjectID("sub-" + uuid.NewString())
	if err := repo.Update(ctx, missing, 2); !errors.Is(err, profilerepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing subject, got %v", err)
	}
}

func RunContactRepo(t *testing.T, newRepo ContactRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	sub := domain.SubjectID("sub-" + uuid.NewString())
	base := time.Unix(5000, 0).UTC()

	ids := []domain.ContactMessageID{
		domain.ContactMessageID(uuid.NewString()),
		domain.ContactMessageID(uuid.NewString()),
		domain.ContactMessageID(uuid.NewString()),
	}
	for i, id := range ids {
		if err := repo.Create(ctx, contactrepoport.Message{
			ID:        id,
			Subject:   sub,
			Name:      "Asha",
			Email:     "asha@example.com",
			Message:   "Hello there, team!",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}
	if err := repo.Create(ctx, contactrepoport.Message{
		ID:        ids[0],
		Subject:   sub,
		Name:      "Asha",
		Email:     "asha@example.com",
		Message:   "Duplicate id message",
		CreatedAt: base,
	}); !errors.Is(err, contactrepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.GetByID(ctx, ids[1])
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Subject != sub || got.Message != "Hello there, team!" || !got.CreatedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("unexpected message: %#v", got)
	}
	if _, err := repo.GetByID(ctx, domain.ContactMessageID(uuid.NewString())); !errors.Is(err, contactrepoport.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Newest first, limited.
	list, err := repo.ListBySubject(ctx, sub, 2)
	if err != nil {
		t.Fatalf("ListBySubject: %v", err)
	}
	if len(list) != 2 || list[0].ID != ids[2] || list[1].ID != ids[1] {
		t.Fatalf("unexpected list: %#v", list)
	}

	other, err := repo.ListBySubject(ctx, domain.SubjectID("sub-"+uuid.NewString()), 10)
	if err != nil {
		t.Fatalf("ListBySubject other: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no messages for other subject, got %#v", other)
	}
}
