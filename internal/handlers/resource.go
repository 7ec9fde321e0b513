package handlers

import (
	"context"
	"net/http"

	"github.com/diewo77/inspection-workshop/httpx"
	"github.com/diewo77/inspection-workshop/validation"
)

// record is a pointer to a persisted entity.
type record[T any] interface {
	*T
	GetID() string
	SetID(string)
}

// resource serves the plain CRUD endpoints of one cached collection.
type resource[T any, P record[T]] struct {
	Deps
	kind   string
	all    func() []T
	get    func(id string) (T, bool)
	add    func(context.Context, *T) error
	update func(context.Context, *T) error
	remove func(context.Context, string) error

	// blank returns the row a create body is decoded over. Optional.
	blank func() T
	// match filters List by the ?q= query. Optional.
	match func(row T, q string) bool
	// check adds domain violations to the struct tag ones. Optional.
	check func(row *T, v validation.Violations)
}

func (res resource[T, P]) List(w http.ResponseWriter, r *http.Request) {
	rows := res.all()
	if q := r.URL.Query().Get("q"); q != "" && res.match != nil {
		kept := rows[:0]
		for _, row := range rows {
			if res.match(row, q) {
				kept = append(kept, row)
			}
		}
		rows = kept
	}
	if rows == nil {
		rows = []T{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": rows, "total": len(rows)})
}

func (res resource[T, P]) Get(w http.ResponseWriter, r *http.Request) {
	row, ok := res.get(r.PathValue("id"))
	if !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (res resource[T, P]) validate(row *T) validation.Violations {
	v := validation.Struct(row)
	if res.check != nil {
		res.check(row, v)
	}
	return v
}

func (res resource[T, P]) Create(w http.ResponseWriter, r *http.Request) {
	var row T
	if res.blank != nil {
		row = res.blank()
	}
	if err := httpx.Decode(r, &row); err != nil {
		res.fail(w, r, err, "save_failed")
		return
	}
	P(&row).SetID("")
	if v := res.validate(&row); !v.Empty() {
		res.invalid(w, r, v)
		return
	}
	if err := res.add(r.Context(), &row); err != nil {
		res.fail(w, r, err, "save_failed")
		return
	}
	res.ok(w, r, http.StatusCreated, "created", row)
}

// Update decodes the body over the cached row, so absent fields keep their value.
func (res resource[T, P]) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	row, ok := res.get(id)
	if !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	if err := httpx.Decode(r, &row); err != nil {
		res.fail(w, r, err, "save_failed")
		return
	}
	P(&row).SetID(id)
	if v := res.validate(&row); !v.Empty() {
		res.invalid(w, r, v)
		return
	}
	if err := res.update(r.Context(), &row); err != nil {
		res.fail(w, r, err, "save_failed")
		return
	}
	res.ok(w, r, http.StatusOK, "saved", row)
}

// Delete requires a confirmation token for the entity.
func (res resource[T, P]) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := res.get(id); !ok {
		httpx.JSONErrorMessage(w, http.StatusNotFound, "not_found", "", nil)
		return
	}
	if !res.confirmed(w, r, DeleteAction(res.kind, id)) {
		return
	}
	if err := res.remove(r.Context(), id); err != nil {
		res.fail(w, r, err, "delete_failed")
		return
	}
	res.ok(w, r, http.StatusOK, "deleted", map[string]string{"id": id})
}
