package types

// AccountTokens are the credentials issued when an account is bootstrapped.
type AccountTokens struct {
	SessionToken string `json:"sessionToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       UserID `json:"userId"`
}

// Empty reports whether no session token is held.
func (t AccountTokens) Empty() bool { return t.SessionToken == "" }

// AccountProfile is the local record of a completed registration on a
// specific identity server.
type AccountProfile struct {
	ServerURL  string   `json:"server_url"`
	UserID     UserID   `json:"user_id"`
	Username   Username `json:"username"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	CityID     string   `json:"city_id"`
	CreatedUTC int64    `json:"created_utc"`
}
