package model

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/cespare/xxhash"
)

type UserID string

type Gender string

const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderOther          Gender = "other"
	GenderPreferNotToSay Gender = "prefer_not_to_say"
)

const (
	UserVersion    = 2
	DefaultCountry = "US"
	GuestPrefix    = "guest:"
)

type CreateUserParams struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Country  string `json:"country"`
}

type LoginParams struct {
	Identifier string `json:"identifier"` // username or email
	Password   string `json:"password"`
}

// ProfileUpdate holds the fields a user may change on their own profile. Nil
// means unchanged.
type ProfileUpdate struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Avatar   *string `json:"avatar"`
	Country  *string `json:"country"`
	Gender   *Gender `json:"gender"`
	Mobile   *string `json:"mobile"`
}

type User struct {
	ID           UserID `json:"id"`
	Version      int    `json:"version"`
	CreatedAt    int64  `json:"createdAt"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	IsGuest      bool   `json:"isGuest"`
	Username     string `json:"username,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
	Country      string `json:"country,omitempty"`
	Gender       Gender `json:"gender,omitempty"`
	Mobile       string `json:"mobile,omitempty"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

// Profile strips credentials before a user is handed to a client.
func (u *User) Profile() User {
	p := *u
	p.PasswordHash = ""
	return p
}

// Viewer is whoever is making the current request.
type Viewer struct {
	ID      UserID
	IsGuest bool
	Country string
	User    *User
}

func GuestViewer(device string) Viewer {
	return Viewer{ID: UserID(GuestPrefix + device), IsGuest: true}
}

func ViewerFor(u *User) Viewer {
	return Viewer{ID: u.ID, IsGuest: u.IsGuest, Country: u.Country, User: u}
}

// MigrateUser backfills the username and avatar of accounts created before
// either existed.
func MigrateUser(u *User) {
	if u.Version >= UserVersion {
		return
	}
	if !u.IsGuest {
		if u.Username == "" {
			u.Username = DefaultUsername(u.ID, u.Name)
		}
		if u.Avatar == "" {
			u.Avatar = AvatarURL(u.Name, "0067F5")
		}
	}
	u.Version = UserVersion
}

func DefaultUsername(id UserID, name string) string {
	compact := strings.ToLower(strings.Join(strings.Fields(name), ""))
	return fmt.Sprintf("@%s%d", compact, xxhash.Sum64String(string(id))%1000)
}

func AvatarURL(name, background string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=%s&color=fff&bold=true", url.QueryEscape(name), background)
}
