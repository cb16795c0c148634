package settings

import "fmt"

// AccessLevel orders who may change a setting.
type AccessLevel string

const (
	AccessAll   AccessLevel = "all"
	AccessMod   AccessLevel = "mod"
	AccessAdmin AccessLevel = "admin"
)

var accessRank = map[AccessLevel]int{
	AccessAll:   0,
	AccessMod:   1,
	AccessAdmin: 2,
}

// ParseAccessLevel validates s as an access level.
func ParseAccessLevel(s string) (AccessLevel, error) {
	level := AccessLevel(s)
	if _, ok := accessRank[level]; !ok {
		return "", fmt.Errorf("unknown access level %q", s)
	}
	return level, nil
}

// Allows reports whether a holder of l may act at required.
func (l AccessLevel) Allows(required AccessLevel) bool {
	have, ok := accessRank[l]
	if !ok {
		return false
	}
	need, ok := accessRank[required]
	if !ok {
		return false
	}
	return have >= need
}
