package relevance

import "fmt"

// Kind is what the user intends to do with the item. It selects the wording
// of the scoring prompt.
type Kind string

const (
	KindBorrow  Kind = "borrow"
	KindRecycle Kind = "recycle"
	KindRepair  Kind = "repair"
)

// ParseKind validates s as a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindBorrow, KindRecycle, KindRepair:
		return k, nil
	default:
		return "", fmt.Errorf("unknown result kind %q (want borrow, recycle or repair)", s)
	}
}
