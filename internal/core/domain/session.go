package domain

import "strings"

// Session is the current employee identity on the lane. A logged-in session
// must carry a non-blank employee code; anything else is invalid and gets
// reset to the zero value.
type Session struct {
	EmployeeCode string
	LoggedIn     bool
}

// Valid reports whether the session satisfies the login invariant.
func (s Session) Valid() bool {
	if !s.LoggedIn {
		return true
	}
	return strings.TrimSpace(s.EmployeeCode) != ""
}
