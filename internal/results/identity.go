package results

import (
	"strings"
)

// Resolver assigns each row one canonical athlete key for the duration of a
// run. The first key chosen for an athlete is reused for every later row.
//
// Order of preference: federation id, a name already tied to a key, bib
// (scoped to its race) and finally the bare name. A name carried by two
// different federation ids is ambiguous; id-less rows with that name are
// rejected rather than attributed to either athlete.
type Resolver struct {
	byName  map[string]string
	aliases map[string]string
	// owner is the id that took over a weak name key.
	owner     map[string]string
	ambiguous map[string]bool
}

func NewResolver() *Resolver {
	return &Resolver{
		byName:    make(map[string]string),
		aliases:   make(map[string]string),
		owner:     make(map[string]string),
		ambiguous: make(map[string]bool),
	}
}

// Learn records the name to id pairs of a race before its rows are resolved,
// so id-less rows in the same race can be matched by name.
func (r *Resolver) Learn(rows []Row) {
	for _, row := range rows {
		if row.ID == "" || row.Team {
			continue
		}
		r.bindID(foldName(row.Name), "id:"+row.ID)
	}
}

// Resolve returns the canonical key of row in race raceID. ok is false when
// the row cannot be attributed to anyone.
func (r *Resolver) Resolve(raceID string, row Row) (key string, ok bool) {
	name := foldName(row.Name)
	if row.ID != "" {
		idKey := "id:" + row.ID
		if k, ok := r.aliases[idKey]; ok {
			return k, true
		}
		return r.bindID(name, idKey), true
	}

	if name != "" {
		if r.ambiguous[name] {
			return "", false
		}
		if k, ok := r.byName[name]; ok {
			return k, true
		}
	}

	switch {
	case row.Bib != "":
		key = "bib:" + raceID + ":" + row.Bib
	case name != "":
		key = "name:" + name
	default:
		return "", false
	}
	if name != "" {
		r.byName[name] = key
	}
	return key, true
}

// bindID ties name to idKey and returns the key the id should use.
func (r *Resolver) bindID(name, idKey string) string {
	if name == "" || r.ambiguous[name] {
		return idKey
	}
	prev, seen := r.byName[name]
	switch {
	case !seen:
		r.byName[name] = idKey
	case prev == idKey:
	case IsWeakKey(prev):
		if owner, claimed := r.owner[name]; claimed && owner != idKey {
			r.ambiguous[name] = true
			return idKey
		}
		r.owner[name] = idKey
		r.aliases[idKey] = prev
		return prev
	default:
		r.ambiguous[name] = true
	}
	return idKey
}

// Ambiguous reports whether name has been seen with two federation ids.
func (r *Resolver) Ambiguous(name string) bool {
	return r.ambiguous[foldName(name)]
}

// IsWeakKey reports whether key was derived from a bib or a name instead of
// a federation id.
func IsWeakKey(key string) bool {
	return !strings.HasPrefix(key, "id:")
}

func foldName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
