// Package access holds the credential table and per-table authorization
// rules. Tables with no registered rule are open by default; a registered
// rule may require an authenticated session whose identity appears on the
// table's allow-list.
package access

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// User is an identity that can authenticate for debug mode.
type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	FullName string `yaml:"fullName"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
}

// TableRule restricts a table to authenticated sessions whose full name
// is on the allow-list.
type TableRule struct {
	RequiresAuth  bool     `yaml:"requiresAuth"`
	AllowedUsers  []string `yaml:"allowedUsers"`
	DenialMessage string   `yaml:"denialMessage"`
}

// Decision is the outcome of a table access check.
type Decision struct {
	Allowed       bool
	DenialMessage string
}

// SessionView is the subset of session state that access decisions read.
type SessionView interface {
	Authenticated() bool
	FullName() string
}

// Control bundles the credential table and the table rules.
type Control struct {
	users      map[string]User
	tableRules map[string]TableRule
}

const defaultDenialMessage = "Anda tidak memiliki akses untuk tabel ini."

// DefaultControl returns the built-in credential table and table rules.
func DefaultControl() *Control {
	return newControl(
		[]User{
			{Username: "nur iswanto", Password: "5553", FullName: "Nur Iswanto", Email: "nur.iswanto@cladtek.com", Role: "Admin"},
			{Username: "fernando siboro", Password: "4106", FullName: "Fernando Siboro", Email: "fernando.siboro@cladtek.com", Role: "Manager"},
			{Username: "ah muh rojab", Password: "4127", FullName: "Ah muh Rojab", Email: "rojab@cladtek.com", Role: "Staff"},
		},
		map[string]TableRule{
			"employees": {
				RequiresAuth:  true,
				AllowedUsers:  []string{"Nur Iswanto", "Fernando Siboro"},
				DenialMessage: "Anda tidak memiliki akses untuk melihat data karyawan. Hanya user tertentu yang dapat mengakses informasi ini.",
			},
		},
	)
}

type accessFile struct {
	Users  []User               `yaml:"users"`
	Tables map[string]TableRule `yaml:"tables"`
}

// Load reads the credential table and table rules from a YAML file.
func Load(path string) (*Control, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading access rules: %w", err)
	}
	var file accessFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing access rules: %w", err)
	}
	if len(file.Users) == 0 {
		return nil, fmt.Errorf("access rules at %s define no users", path)
	}
	return newControl(file.Users, file.Tables), nil
}

func newControl(users []User, rules map[string]TableRule) *Control {
	byUsername := make(map[string]User, len(users))
	for _, u := range users {
		byUsername[strings.ToLower(u.Username)] = u
	}
	if rules == nil {
		rules = map[string]TableRule{}
	}
	return &Control{users: byUsername, tableRules: rules}
}

// LookupUser returns the user registered under the given username,
// case-insensitively.
func (c *Control) LookupUser(username string) (User, bool) {
	u, ok := c.users[strings.ToLower(strings.TrimSpace(username))]
	return u, ok
}

// ValidateCredentials checks a username/password pair against the
// credential table. Password comparison is plain-text equality; the
// scheme is deliberately simple and unsuitable for anything beyond
// gating debug output.
func (c *Control) ValidateCredentials(username, password string) (User, bool) {
	u, ok := c.LookupUser(username)
	if !ok || u.Password != password {
		return User{}, false
	}
	return u, true
}

// Usernames returns every registered username, for phrase matching
// against incoming messages.
func (c *Control) Usernames() []string {
	names := make([]string, 0, len(c.users))
	for name := range c.users {
		names = append(names, name)
	}
	return names
}

// CheckTableAccess decides whether the session may query the table.
// Tables without a rule are open. A rule that requires auth denies any
// session that is not authenticated or whose identity is not on the
// table's allow-list.
func (c *Control) CheckTableAccess(tableName string, sess SessionView) Decision {
	rule, ok := c.tableRules[tableName]
	if !ok || !rule.RequiresAuth {
		return Decision{Allowed: true}
	}

	if sess == nil || !sess.Authenticated() {
		return deny(rule)
	}
	for _, allowed := range rule.AllowedUsers {
		if allowed == sess.FullName() {
			return Decision{Allowed: true}
		}
	}
	return deny(rule)
}

func deny(rule TableRule) Decision {
	msg := rule.DenialMessage
	if msg == "" {
		msg = defaultDenialMessage
	}
	return Decision{Allowed: false, DenialMessage: msg}
}
