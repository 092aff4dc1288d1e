package model

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// DefaultTheme is assigned to every new account.
const DefaultTheme = "system"

// Themes 个人资料页可选的主题
var Themes = []string{DefaultTheme, "light", "dark", "ocean", "sunset", "emerald", "cosmic"}

// Account represents a local user account in the account directory.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Avatar       string    `json:"avatar,omitempty"`
	Theme        string    `json:"theme"`
	Playlists    []string  `json:"playlists"`
	Following    []string  `json:"following"`
	CreatedAt    time.Time `json:"createdAt"`
	PasswordHash string    `json:"passwordHash,omitempty"`
}

// Public returns a copy without the credential hash, for API responses.
func (a *Account) Public() *Account {
	if a == nil {
		return nil
	}
	c := a.Clone()
	c.PasswordHash = ""
	return c
}

// Clone 深拷贝账户，避免外部修改目录中的记录
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Playlists = append([]string{}, a.Playlists...)
	c.Following = append([]string{}, a.Following...)
	return &c
}

// ProfileUpdate carries the fields a profile update may change.
// Nil members are left untouched.
type ProfileUpdate struct {
	Email     *string   `json:"email,omitempty"`
	Avatar    *string   `json:"avatar,omitempty"`
	Theme     *string   `json:"theme,omitempty"`
	Playlists *[]string `json:"playlists,omitempty"`
	Following *[]string `json:"following,omitempty"`
}

// Validate rejects values the profile page cannot produce.
func (u ProfileUpdate) Validate() error {
	if u.Theme != nil && !lo.Contains(Themes, *u.Theme) {
		return fmt.Errorf("unknown theme %q", *u.Theme)
	}
	return nil
}

// Apply merges u into a.
func (u ProfileUpdate) Apply(a *Account) {
	if u.Email != nil {
		a.Email = *u.Email
	}
	if u.Avatar != nil {
		a.Avatar = *u.Avatar
	}
	if u.Theme != nil {
		a.Theme = *u.Theme
	}
	if u.Playlists != nil {
		a.Playlists = append([]string{}, (*u.Playlists)...)
	}
	if u.Following != nil {
		a.Following = append([]string{}, (*u.Following)...)
	}
}
