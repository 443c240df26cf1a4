package domain

type (
	Identity struct {
		UID           string
		Email         string
		EmailVerified bool
		DisplayName   string
		PhotoURL      string
	}

	Profile struct {
		UID      string
		Email    string
		Name     string
		PhotoURL string
		Phone    string
	}

	// User is the stored credential record behind an [Identity].
	User struct {
		Identity
		PasswordHash []byte
	}
)

// SignedIn reports whether the identity may enter the private area.
func (i *Identity) SignedIn() bool {
	return i != nil && i.EmailVerified
}

func (i Identity) Profile() Profile {
	return Profile{
		UID:      i.UID,
		Email:    i.Email,
		Name:     i.DisplayName,
		PhotoURL: i.PhotoURL,
	}
}
