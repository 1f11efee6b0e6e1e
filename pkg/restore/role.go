package restore

import (
	"fmt"
	"strconv"
	"strings"
)

// RoleKind distinguishes the control-node roles within a scope.
type RoleKind int

const (
	RoleBank   RoleKind = iota // one slider bank, indexed
	RolePoints                 // the point collection
	RoleLegacy                 // the single-bank control named exactly by the prefix
)

const (
	bankSuffix   = "slids"
	pointsSuffix = "points"
)

// Role is the correlation key between snapshot generations. Names are
// derived from it only when nodes are created; ParseRole is the single inverse.
type Role struct {
	Kind RoleKind
	Bank int
}

// BankRole returns the role of bank i.
func BankRole(i int) Role { return Role{Kind: RoleBank, Bank: i} }

// PointsRole returns the role of the point collection.
func PointsRole() Role { return Role{Kind: RolePoints} }

// LegacyRole returns the role of a single-bank control.
func LegacyRole() Role { return Role{Kind: RoleLegacy} }

// Name formats the node name for r within prefix.
func (r Role) Name(prefix string) string {
	switch r.Kind {
	case RoleBank:
		return prefix + bankSuffix + strconv.Itoa(r.Bank)
	case RolePoints:
		return prefix + pointsSuffix
	default:
		return prefix
	}
}

func (r Role) String() string {
	switch r.Kind {
	case RoleBank:
		return fmt.Sprintf("bank %d", r.Bank)
	case RolePoints:
		return "points"
	default:
		return "legacy"
	}
}

// ParseRole recovers the role encoded in name, if name is exactly one of
// {prefix}, {prefix}slids{i} or {prefix}points.
func ParseRole(prefix, name string) (Role, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return Role{}, false
	}
	switch {
	case rest == "":
		return LegacyRole(), true
	case rest == pointsSuffix:
		return PointsRole(), true
	case strings.HasPrefix(rest, bankSuffix):
		digits := rest[len(bankSuffix):]
		i, err := strconv.Atoi(digits)
		if err != nil || i < 0 || strconv.Itoa(i) != digits {
			return Role{}, false
		}
		return BankRole(i), true
	}
	return Role{}, false
}
