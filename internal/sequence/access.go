package sequence

import (
	"fmt"
	"strings"
)

// Priv is a bitmask of privileges a principal may hold on a sequence or on
// the universe.
type Priv uint8

const (
	// PrivUsage allows referencing the sequence at all.
	PrivUsage Priv = 1 << iota
	// PrivWrite allows advancing or setting the sequence.
	PrivWrite
)

func (p Priv) String() string {
	var names []string
	if p&PrivUsage != 0 {
		names = append(names, "usage")
	}
	if p&PrivWrite != 0 {
		names = append(names, "write")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// Credentials identifies the caller for access checks. It is threaded
// explicitly through every check rather than looked up from ambient session
// state, so authorization stays a pure predicate.
type Credentials struct {
	// User is the principal's display name, used in denial errors.
	User string
	// UID is the principal's numeric id; owners bypass grant checks.
	UID uint32
	// Universal is the privilege set granted on every object.
	Universal Priv
	// Granted holds the effective per-sequence privileges, keyed by
	// sequence id.
	Granted map[uint32]Priv
}

// AccessDeniedError names the privilege, the object and the principal of a
// failed access check. No state changes on denial.
type AccessDeniedError struct {
	Priv       Priv
	ObjectType string
	Object     string
	User       string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("%s access to %s '%s' is denied for user '%s'",
		e.Priv, e.ObjectType, e.Object, e.User)
}

// CheckAccess reports whether cr may advance or set the sequence described
// by def. The caller passes if its universal grants already cover usage and
// write, if it owns the sequence, or if its per-sequence grants cover
// whatever the universal grants left uncovered.
//
// Denials distinguish a principal with no universal usage privilege at all
// from one merely lacking privileges on this particular sequence. Pure
// predicate; safe to call repeatedly.
func CheckAccess(def *Definition, cr *Credentials) error {
	need := PrivUsage | PrivWrite
	// Whatever the universal grants cover needs no per-object grant.
	masked := need &^ cr.Universal
	if def.Owner == cr.UID || masked&^cr.Granted[def.ID] == 0 {
		return nil
	}
	if cr.Universal&PrivUsage == 0 {
		return &AccessDeniedError{
			Priv:       PrivUsage,
			ObjectType: "universe",
			Object:     "",
			User:       cr.User,
		}
	}
	return &AccessDeniedError{
		Priv:       need,
		ObjectType: "sequence",
		Object:     def.Name,
		User:       cr.User,
	}
}
