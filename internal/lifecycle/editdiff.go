package lifecycle

import (
	"fmt"
	"reflect"

	"github.com/MaikoCheng/parelpracht-server/internal/domain"
	"github.com/shopspring/decimal"
)

// StatusField is the distinguished field whose change is recorded as a STATUS activity
const StatusField = "status"

// Entry is an activity to append, before owner/actor/batch are filled in
type Entry struct {
	Kind        domain.ActivityKind
	SubKind     domain.StatusSubKind
	Description string
}

// EditActivities compares old and new values of every field and returns the
// activities describing the edit: one STATUS entry when the status changed and
// one UPDATE entry per other changed field, in the order the changes were given.
// noChange is true when no field differs.
func EditActivities(changes []domain.FieldChange) (entries []Entry, noChange bool) {
	for _, c := range changes {
		if sameValue(c.Old, c.New) {
			continue
		}
		if c.Field == StatusField {
			entries = append(entries, Entry{
				Kind:        domain.ActivityStatus,
				SubKind:     toStatus(c.New),
				Description: fmt.Sprintf("Status changed from %s to %s", display(c.Old), display(c.New)),
			})
			continue
		}
		entries = append(entries, Entry{
			Kind:        domain.ActivityUpdate,
			Description: fmt.Sprintf("Changed %s from %q to %q", c.Field, display(c.Old), display(c.New)),
		})
	}
	return entries, len(entries) == 0
}

// AddProductEntry describes a product being attached to a contract or invoice
func AddProductEntry(productName string) Entry {
	return Entry{Kind: domain.ActivityAddProduct, Description: fmt.Sprintf("Added product %q", productName)}
}

// DelProductEntry describes products being detached from a contract or invoice
func DelProductEntry(productNames ...string) Entry {
	desc := "Removed product"
	if len(productNames) > 1 {
		desc += "s"
	}
	for i, name := range productNames {
		if i > 0 {
			desc += ","
		}
		desc += fmt.Sprintf(" %q", name)
	}
	return Entry{Kind: domain.ActivityDelProduct, Description: desc}
}

// StatusEntry describes an explicit status append
func StatusEntry(status domain.StatusSubKind, description string) Entry {
	return Entry{Kind: domain.ActivityStatus, SubKind: status, Description: description}
}

func toStatus(v interface{}) domain.StatusSubKind {
	switch s := deref(v).(type) {
	case domain.StatusSubKind:
		return s
	case string:
		return domain.StatusSubKind(s)
	}
	return ""
}

func deref(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func sameValue(a, b interface{}) bool {
	a, b = deref(a), deref(b)
	if da, ok := a.(decimal.Decimal); ok {
		if db, ok := b.(decimal.Decimal); ok {
			return da.Equal(db)
		}
	}
	return reflect.DeepEqual(a, b)
}

func display(v interface{}) string {
	v = deref(v)
	switch x := v.(type) {
	case nil:
		return "none"
	case decimal.Decimal:
		return x.StringFixed(2)
	}
	return fmt.Sprintf("%v", v)
}
