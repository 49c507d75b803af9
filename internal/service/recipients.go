package service

import (
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// RecipientList is the parsed form of a rule or template recipients field: a comma separated
// mix of role names and e-mail addresses. "creator" is accepted as an alias for end_user.
type RecipientList struct {
	Roles     []domain.Role
	Addresses []string
}

// Empty reports whether the list names nobody, in which case routing is left untouched.
func (l RecipientList) Empty() bool {
	return len(l.Roles) == 0 && len(l.Addresses) == 0
}

// Allows reports whether a notification addressed to role may go out. With no roles listed
// every role is allowed.
func (l RecipientList) Allows(role domain.Role) bool {
	if len(l.Roles) == 0 {
		return true
	}
	for _, r := range l.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ParseRecipients parses raw into a RecipientList, rejecting unknown roles and bad addresses.
func ParseRecipients(raw string) (RecipientList, error) {
	var list RecipientList
	seen := map[string]bool{}
	for _, token := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if strings.Contains(token, "@") {
			address := strings.ToLower(token)
			if !validEmail(address) {
				return RecipientList{}, apperrors.NewInvalidInput("invalid recipient address", map[string]any{"recipient": token})
			}
			if !seen[address] {
				seen[address] = true
				list.Addresses = append(list.Addresses, address)
			}
			continue
		}
		role := domain.Role(strings.ToLower(token))
		if role == "creator" {
			role = domain.RoleEndUser
		}
		if !role.Valid() {
			return RecipientList{}, apperrors.NewInvalidInput("unknown recipient role", map[string]any{"recipient": token})
		}
		if !seen[string(role)] {
			seen[string(role)] = true
			list.Roles = append(list.Roles, role)
		}
	}
	return list, nil
}
