// Package directory holds the account-manager roster consulted by CSV
// export and the outbound mail/chat link builders. Managers are tracked by
// display name on requests; their mailboxes live here rather than in the
// users table.
package directory

import "strings"

// AccountManager pairs a display name with a mailbox.
type AccountManager struct {
	Name  string
	Email string
}

// Demo roster. Deployments replace this seed through configuration
// management; lookups are case-insensitive on the display name.
var accountManagers = []AccountManager{
	{Name: "Alex Ramos", Email: "alex.ramos@example.com"},
	{Name: "Bianca Cruz", Email: "bianca.cruz@example.com"},
	{Name: "Carlo Mendoza", Email: "carlo.mendoza@example.com"},
	{Name: "Diana Santos", Email: "diana.santos@example.com"},
	{Name: "Enzo Villanueva", Email: "enzo.villanueva@example.com"},
}

// AccountManagers returns the roster in display order.
func AccountManagers() []AccountManager {
	out := make([]AccountManager, len(accountManagers))
	copy(out, accountManagers)
	return out
}

// AccountManagerNames returns just the display names, for form choices.
func AccountManagerNames() []string {
	names := make([]string, len(accountManagers))
	for i, m := range accountManagers {
		names[i] = m.Name
	}
	return names
}

// EmailFor resolves a manager display name to a mailbox. The second return
// is false when the name is not in the roster.
func EmailFor(name string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, m := range accountManagers {
		if strings.ToLower(m.Name) == needle {
			return m.Email, true
		}
	}
	return "", false
}
