package templates

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"

	"github.com/friendsincode/cronoapp/internal/events"
	"github.com/friendsincode/cronoapp/internal/models"
	"github.com/friendsincode/cronoapp/internal/store/storetest"
)

func TestBuiltinCatalog(t *testing.T) {
	c, err := Builtin()
	if err != nil {
		t.Fatalf("builtin: %v", err)
	}

	list := c.List()
	ids := make([]string, len(list))
	for i, tpl := range list {
		ids[i] = tpl.ID
	}
	want := []string{"standard", "freelance", "student"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, ids)
		}
	}

	student, err := c.Get("student")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if student.Title["it"] != "Studente" || len(student.Areas) != 3 {
		t.Fatalf("unexpected student template %+v", student)
	}
	if student.Areas[2].Activities[0] != "Corsi online" {
		t.Fatalf("unexpected activities %v", student.Areas[2].Activities)
	}

	if _, err := c.Get("nope"); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestLoadRejectsInvalidTemplates(t *testing.T) {
	tests := []struct {
		name string
		fs   fstest.MapFS
	}{
		{"no id", fstest.MapFS{"a.yaml": {Data: []byte("areas:\n  - name: X\n")}}},
		{"no areas", fstest.MapFS{"a.yaml": {Data: []byte("id: a\n")}}},
		{"bad yaml", fstest.MapFS{"a.yaml": {Data: []byte("id: [\n")}}},
		{"duplicate", fstest.MapFS{
			"a.yaml": {Data: []byte("id: a\nareas:\n  - name: X\n")},
			"b.yaml": {Data: []byte("id: a\nareas:\n  - name: Y\n")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.fs); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestApply(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()
	user := &models.User{Email: "new@example.com"}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	c, err := Builtin()
	if err != nil {
		t.Fatalf("builtin: %v", err)
	}
	bus := events.NewBus()
	changed := bus.Subscribe(events.EventAreaChanged)
	svc := NewService(c, st, bus, zerolog.Nop())

	res, err := svc.Apply(ctx, user.ID, "freelance")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(res.Areas) != 3 || len(res.Activities) != 7 {
		t.Fatalf("expected 3 areas and 7 activities, got %d/%d", len(res.Areas), len(res.Activities))
	}
	for _, a := range res.Activities {
		var area models.LifeArea
		for _, ar := range res.Areas {
			if ar.ID == a.LifeAreaID {
				area = ar
			}
		}
		if a.Color != area.Color {
			t.Fatalf("activity %s color %s differs from area %s", a.Name, a.Color, area.Color)
		}
	}

	got, err := st.UserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	if !got.Onboarded {
		t.Fatal("expected onboarded user")
	}

	select {
	case p := <-changed:
		if p.UserID() != user.ID {
			t.Fatalf("unexpected payload %v", p)
		}
	default:
		t.Fatal("expected area.changed event")
	}

	if _, err := svc.Apply(ctx, user.ID, "unknown"); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}
