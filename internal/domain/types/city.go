package types

// City is one entry of the identity service's city directory.
type City struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
