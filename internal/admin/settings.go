// AngelaMos | 2026
// settings.go

package admin

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/edig/bibliotheque/internal/core"
)

type Section string

const (
	SectionProfile       Section = "profile"
	SectionSecurity      Section = "security"
	SectionNotifications Section = "notifications"
	SectionAppearance    Section = "appearance"
)

var sectionMessages = map[Section]string{
	SectionProfile:       "Profil mis à jour avec succès.",
	SectionSecurity:      "Préférences de sécurité enregistrées.",
	SectionNotifications: "Notifications mises à jour.",
	SectionAppearance:    "Préférences d’affichage sauvegardées.",
}

const resetMessage = "Préférences réinitialisées."

type ProfileSettings struct {
	FullName     string `json:"full_name"    validate:"required,min=1,max=100"`
	Email        string `json:"email"        validate:"required,email,max=255"`
	Organization string `json:"organization" validate:"max=120"`
	Phone        string `json:"phone"        validate:"max=32"`
}

type SecuritySettings struct {
	TwoFactor       bool `json:"two_factor"`
	AutoLogoutDelay int  `json:"auto_logout_delay" validate:"gte=5,lte=480"`
	EmailAlerts     bool `json:"email_alerts"`
}

type NotificationSettings struct {
	ProductUpdates bool `json:"product_updates"`
	SecurityAlerts bool `json:"security_alerts"`
	WeeklyDigest   bool `json:"weekly_digest"`
}

type AppearanceSettings struct {
	Theme   string `json:"theme"   validate:"oneof=light dark system"`
	Density string `json:"density" validate:"oneof=comfortable compact"`
}

// Settings are one administrator's back-office preferences.
type Settings struct {
	Profile       ProfileSettings      `json:"profile"`
	Security      SecuritySettings     `json:"security"`
	Notifications NotificationSettings `json:"notifications"`
	Appearance    AppearanceSettings   `json:"appearance"`
}

func DefaultSettings() Settings {
	return Settings{
		Profile: ProfileSettings{
			FullName:     "Administrateur",
			Email:        "admin@edig.com",
			Organization: "ÉDIG",
		},
		Security: SecuritySettings{
			AutoLogoutDelay: 30,
			EmailAlerts:     true,
		},
		Notifications: defaultNotifications(),
		Appearance:    defaultAppearance(),
	}
}

func defaultNotifications() NotificationSettings {
	return NotificationSettings{ProductUpdates: true, SecurityAlerts: true}
}

func defaultAppearance() AppearanceSettings {
	return AppearanceSettings{Theme: "system", Density: "comfortable"}
}

// Reset restores notifications and appearance. Profile and security are
// left as they are.
func (s Settings) Reset() Settings {
	s.Notifications = defaultNotifications()
	s.Appearance = defaultAppearance()
	return s
}

func ParseSection(raw string) (Section, bool) {
	sec := Section(raw)
	_, ok := sectionMessages[sec]
	return sec, ok
}

// target returns the struct a section payload decodes into.
func (s *Settings) target(sec Section) any {
	switch sec {
	case SectionProfile:
		return &s.Profile
	case SectionSecurity:
		return &s.Security
	case SectionNotifications:
		return &s.Notifications
	case SectionAppearance:
		return &s.Appearance
	}
	return nil
}

// decodeSettings overlays stored JSON on the defaults, so fields added
// later keep their default.
func decodeSettings(raw []byte) (Settings, error) {
	s := DefaultSettings()
	if len(bytes.TrimSpace(raw)) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

func decodeSection(dst any, raw json.RawMessage) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode section: %w: %w", core.ErrInvalidInput, err)
	}
	return nil
}
