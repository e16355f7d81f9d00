// internal/role/role.go

package role

import (
	"fmt"
	"strings"
)

type Role string

const (
	User  Role = "user"
	Admin Role = "admin"
	Sale  Role = "sale"
	HR    Role = "hr"
)

func IsValid(r string) bool {
	switch Role(r) {
	case User, Admin, Sale, HR:
		return true
	default:
		return false
	}
}

// Parse нормализует роль; пустая строка → User.
func Parse(raw string) (Role, error) {
	r := strings.ToLower(strings.TrimSpace(raw))
	if r == "" {
		return User, nil
	}
	if !IsValid(r) {
		return "", fmt.Errorf("invalid role: %s", raw)
	}
	return Role(r), nil
}

// ParseList разбирает список ролей без дублей.
func ParseList(raw []string) ([]Role, error) {
	seen := map[Role]struct{}{}
	var clean []Role
	for _, s := range raw {
		r, err := Parse(s)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[r]; !ok {
			seen[r] = struct{}{}
			clean = append(clean, r)
		}
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("no roles provided")
	}
	return clean, nil
}
