package types

// FieldName identifies one answer collected by the registration wizard.
type FieldName string

// String returns the string form of the field name.
func (f FieldName) String() string { return string(f) }

// Username is the public handle a member registers with.
type Username string

// String returns the string form of the username.
func (u Username) String() string { return string(u) }

// UserID is the identity service's opaque account identifier.
type UserID string

// String returns the string form of the user identifier.
func (id UserID) String() string { return string(id) }

// Answers holds the values collected so far, keyed by field.
type Answers map[FieldName]string

// Clone returns an independent copy of a.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
