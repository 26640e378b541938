// Package utenti manages user accounts, permissions, login sessions and the
// audit trail of administrative actions.
package utenti

import (
	"slices"
	"time"
)

// Permission names.
const (
	PermBanche       = "banche"
	PermBilancio     = "bilancio"
	PermCircolari    = "circolari"
	PermAnagrafica   = "anagrafica"
	PermAttivita     = "attivita"
	PermUtenti       = "utenti"
	PermLicenze      = "licenze"
	PermImpostazioni = "impostazioni"
)

// TuttiPermessi lists every permission; the administrator holds all of them.
var TuttiPermessi = []string{
	PermBanche, PermBilancio, PermCircolari, PermAnagrafica,
	PermAttivita, PermUtenti, PermLicenze, PermImpostazioni,
}

const (
	AdminUsername        = "admin"
	DefaultAdminPassword = "admin"
)

type Utente struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Nome         string     `json:"nome"`
	PasswordHash string     `json:"password_hash"`
	Permessi     []string   `json:"permessi"`
	Attivo       bool       `json:"attivo"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

func (u Utente) HaPermesso(p string) bool {
	return slices.Contains(u.Permessi, p)
}

// Pubblico strips the password hash.
func (u Utente) Pubblico() Utente {
	u.PasswordHash = ""
	return u
}

// AuditEntry records who did what and when.
type AuditEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	Azione    string    `json:"azione"`
	Dettaglio string    `json:"dettaglio,omitempty"`
}

// Audit actions
const (
	AzioneLogin           = "login"
	AzioneLoginFallito    = "login_fallito"
	AzioneLogout          = "logout"
	AzioneCreaUtente      = "crea_utente"
	AzioneCambiaPassword  = "cambia_password"
	AzioneImpostaPermessi = "imposta_permessi"
	AzioneDisattiva       = "disattiva_utente"
	AzioneSeedAdmin       = "seed_admin"
)
