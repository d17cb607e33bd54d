package models

// Login represents the credentials submitted for user login.
type Login struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Identity is the client-held view of the signed-in user. It is cached locally so
// that it survives restarts, but it is not a credential: the server session travels
// separately in the session cookie.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
