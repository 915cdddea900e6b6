package diag

import "strings"

// Family groups diagnostic codes that are corrected by the same strategies.
type Family uint8

const (
	FamilyOther Family = iota
	FamilyMethodMissing
	FamilyTypeMismatch
	FamilyUnresolved
	FamilyStructField
	FamilyMove           // use of moved value, move out of borrow
	FamilyMutability     // assignment to or mutable borrow of an immutable binding
	FamilyUnusedImport   // unused_imports lint
	FamilyUnusedVariable // unused_variables lint
	FamilyUnusedMut      // unused_mut lint
)

var familyNames = [...]string{
	FamilyOther:          "other",
	FamilyMethodMissing:  "method-missing",
	FamilyTypeMismatch:   "type-mismatch",
	FamilyUnresolved:     "unresolved",
	FamilyStructField:    "struct-field",
	FamilyMove:           "move",
	FamilyMutability:     "mutability",
	FamilyUnusedImport:   "unused-import",
	FamilyUnusedVariable: "unused-variable",
	FamilyUnusedMut:      "unused-mut",
}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return "other"
}

// codeFamilies is the fixed dispatch table: exact codes only.
var codeFamilies = map[string]Family{
	"method-missing": FamilyMethodMissing,
	"E0599":          FamilyMethodMissing,

	"type-mismatch": FamilyTypeMismatch,
	"E0308":         FamilyTypeMismatch,

	"unresolved": FamilyUnresolved,
	"E0412":      FamilyUnresolved,
	"E0422":      FamilyUnresolved,
	"E0423":      FamilyUnresolved,
	"E0425":      FamilyUnresolved,
	"E0433":      FamilyUnresolved,

	"struct-field": FamilyStructField,
	"E0026":        FamilyStructField,
	"E0027":        FamilyStructField,
	"E0063":        FamilyStructField,
	"E0559":        FamilyStructField,
	"E0560":        FamilyStructField,
	"E0609":        FamilyStructField,

	"E0382": FamilyMove,
	"E0505": FamilyMove,
	"E0507": FamilyMove,

	"E0384": FamilyMutability,
	"E0596": FamilyMutability,

	"unused_imports":   FamilyUnusedImport,
	"unused_variables": FamilyUnusedVariable,
	"unused_mut":       FamilyUnusedMut,
}

// FamilyOf maps an opaque diagnostic code onto a Family.
// Unknown codes fall through to FamilyOther.
func FamilyOf(code string) Family {
	if f, ok := codeFamilies[code]; ok {
		return f
	}
	return FamilyOther
}

// familyFromMessage recognises lints whose code was not captured (human output
// without the `#[warn(...)]` note).
func familyFromMessage(msg string) Family {
	switch {
	case strings.HasPrefix(msg, "unused import"):
		return FamilyUnusedImport
	case strings.HasPrefix(msg, "unused variable"):
		return FamilyUnusedVariable
	case strings.HasPrefix(msg, "variable does not need to be mutable"):
		return FamilyUnusedMut
	default:
		return FamilyOther
	}
}
