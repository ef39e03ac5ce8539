package domain

import "time"

// User represents a registered account of the system.
type User struct {
	ID             int64
	Email          string
	HashedPassword string
	SessionID      *string
	ResetToken     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasSession reports whether the user holds an active session.
func (u *User) HasSession() bool {
	return u != nil && u.SessionID != nil
}

// HasPendingReset reports whether a password reset has been requested and not yet consumed.
func (u *User) HasPendingReset() bool {
	return u != nil && u.ResetToken != nil
}

// LookupField names the column a UserCriteria matches on.
type LookupField string

const (
	LookupEmail      LookupField = "email"
	LookupSessionID  LookupField = "session_id"
	LookupResetToken LookupField = "reset_token"
)

// UserCriteria selects a single user by exactly one identifying column.
type UserCriteria struct {
	Field LookupField
	Value string
}

func ByEmail(email string) UserCriteria {
	return UserCriteria{Field: LookupEmail, Value: email}
}

func BySessionID(sessionID string) UserCriteria {
	return UserCriteria{Field: LookupSessionID, Value: sessionID}
}

func ByResetToken(token string) UserCriteria {
	return UserCriteria{Field: LookupResetToken, Value: token}
}

// Valid reports whether the criteria names a known column.
func (c UserCriteria) Valid() bool {
	switch c.Field {
	case LookupEmail, LookupSessionID, LookupResetToken:
		return true
	default:
		return false
	}
}

// FieldChange is a tri-state assignment for a nullable column: the zero value
// leaves the column untouched.
type FieldChange struct {
	set   bool
	value *string
}

// SetTo assigns v to the column.
func SetTo(v string) FieldChange {
	return FieldChange{set: true, value: &v}
}

// Clear sets the column to NULL.
func Clear() FieldChange {
	return FieldChange{set: true}
}

func (c FieldChange) IsSet() bool {
	return c.set
}

// Value returns the new column value; nil means NULL.
func (c FieldChange) Value() *string {
	return c.value
}

// UserUpdate is a partial update applied to one user record.
type UserUpdate struct {
	HashedPassword *string
	SessionID      FieldChange
	ResetToken     FieldChange

	// ResetTokenMatch, when non-nil, restricts the update to a record whose
	// current reset token equals it.
	ResetTokenMatch *string
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.HashedPassword == nil && !u.SessionID.IsSet() && !u.ResetToken.IsSet()
}
