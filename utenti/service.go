package utenti

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/aqlanhadi/gestionale/common"
	"github.com/aqlanhadi/gestionale/logger"
	"github.com/aqlanhadi/gestionale/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrCredenzialiNonValide = errors.New("invalid username or password")
	ErrUtenteDisattivato    = errors.New("user is disabled")
	ErrUtenteNonTrovato     = errors.New("user not found")
	ErrUtenteEsistente      = errors.New("username already taken")
	ErrPermessoNegato       = errors.New("permission denied")
	ErrSessioneChiusa       = errors.New("session closed")
)

const minPasswordLen = 5

// ModuliProvider reports the licensed modules to attach to a new session.
type ModuliProvider interface {
	ModuliAttivi(ctx context.Context) []string
}

// Service manages users and sessions.
type Service struct {
	utenti *store.Collection[Utente]
	audit  *store.Collection[AuditEntry]
	moduli ModuliProvider
	cost   int
	now    func() time.Time
	log    zerolog.Logger
}

func NewService(db *store.DB, moduli ModuliProvider) *Service {
	return &Service{
		utenti: store.NewCollection[Utente](db, store.CollUtenti),
		audit:  store.NewCollection[AuditEntry](db, store.CollAudit),
		moduli: moduli,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		log:    logger.WithComponent("utenti"),
	}
}

// SetHashCost changes the bcrypt cost for new hashes.
func (s *Service) SetHashCost(cost int) {
	s.cost = cost
}

func (s *Service) autorizza(sess *Session, permesso string) error {
	if !sess.Attiva() {
		return ErrSessioneChiusa
	}
	if !sess.Utente.HaPermesso(permesso) {
		return fmt.Errorf("%w: %s requires %q", ErrPermessoNegato, sess.Username(), permesso)
	}
	return nil
}

func (s *Service) registra(ctx context.Context, username, azione, dettaglio string) {
	entry := AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: s.now(),
		Username:  username,
		Azione:    azione,
		Dettaglio: dettaglio,
	}
	if err := s.audit.Upsert(ctx, entry.ID, entry); err != nil {
		s.log.Error().Err(err).Str("azione", azione).Msg("Failed to write audit entry")
	}
}

func normalizza(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validaPermessi(permessi []string) error {
	for _, p := range permessi {
		if !slices.Contains(TuttiPermessi, p) {
			return common.NewValidationError("permessi", p, "unknown permission")
		}
	}
	return nil
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", common.NewValidationError("password", "***", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

func (s *Service) trova(ctx context.Context, username string) (*Utente, error) {
	username = normalizza(username)
	u, ok, err := s.utenti.FindOne(ctx, func(u Utente) bool { return u.Username == username })
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !ok {
		return nil, ErrUtenteNonTrovato
	}
	return &u, nil
}

// Crea adds a user. The caller needs the users permission.
func (s *Service) Crea(ctx context.Context, sess *Session, username, nome, password string, permessi []string) (*Utente, error) {
	const op = "Crea"
	if err := s.autorizza(sess, PermUtenti); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u, err := s.crea(ctx, username, nome, password, permessi)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.registra(ctx, sess.Username(), AzioneCreaUtente, u.Username)
	return u, nil
}

func (s *Service) crea(ctx context.Context, username, nome, password string, permessi []string) (*Utente, error) {
	username = normalizza(username)
	if username == "" {
		return nil, common.NewValidationError("username", username, "must not be empty")
	}
	if err := validaPermessi(permessi); err != nil {
		return nil, err
	}
	if _, err := s.trova(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrUtenteEsistente, username)
	} else if !errors.Is(err, ErrUtenteNonTrovato) {
		return nil, err
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	u := Utente{
		ID:           uuid.NewString(),
		Username:     username,
		Nome:         strings.TrimSpace(nome),
		PasswordHash: hash,
		Permessi:     slices.Clone(permessi),
		Attivo:       true,
		CreatedAt:    s.now(),
	}
	if err := s.utenti.Upsert(ctx, u.ID, u); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	s.log.Info().Str("username", username).Strs("permessi", permessi).Msg("User created")
	pub := u.Pubblico()
	return &pub, nil
}

// Elenco lists users without their hashes, ordered by username.
func (s *Service) Elenco(ctx context.Context, sess *Session) ([]Utente, error) {
	if err := s.autorizza(sess, PermUtenti); err != nil {
		return nil, err
	}
	utenti, err := s.utenti.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for i := range utenti {
		utenti[i] = utenti[i].Pubblico()
	}
	sort.Slice(utenti, func(i, j int) bool { return utenti[i].Username < utenti[j].Username })
	return utenti, nil
}

// CambiaPassword changes the password of the session's own user.
func (s *Service) CambiaPassword(ctx context.Context, sess *Session, vecchia, nuova string) error {
	if !sess.Attiva() {
		return ErrSessioneChiusa
	}
	u, err := s.trova(ctx, sess.Username())
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(vecchia)) != nil {
		return ErrCredenzialiNonValide
	}
	return s.impostaPassword(ctx, sess, u, nuova)
}

// ReimpostaPassword sets another user's password. Needs the users permission.
func (s *Service) ReimpostaPassword(ctx context.Context, sess *Session, username, nuova string) error {
	if err := s.autorizza(sess, PermUtenti); err != nil {
		return err
	}
	u, err := s.trova(ctx, username)
	if err != nil {
		return err
	}
	return s.impostaPassword(ctx, sess, u, nuova)
}

func (s *Service) impostaPassword(ctx context.Context, sess *Session, u *Utente, nuova string) error {
	hash, err := s.hash(nuova)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if err := s.utenti.Upsert(ctx, u.ID, *u); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	s.registra(ctx, sess.Username(), AzioneCambiaPassword, u.Username)
	s.log.Info().Str("username", u.Username).Msg("Password changed")
	return nil
}

// ImpostaPermessi replaces the permission set of a user.
func (s *Service) ImpostaPermessi(ctx context.Context, sess *Session, username string, permessi []string) error {
	if err := s.autorizza(sess, PermUtenti); err != nil {
		return err
	}
	if err := validaPermessi(permessi); err != nil {
		return err
	}
	u, err := s.trova(ctx, username)
	if err != nil {
		return err
	}
	u.Permessi = slices.Clone(permessi)
	if err := s.utenti.Upsert(ctx, u.ID, *u); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	s.registra(ctx, sess.Username(), AzioneImpostaPermessi, fmt.Sprintf("%s: %s", u.Username, strings.Join(permessi, ",")))
	return nil
}

// Disattiva disables a user. Users cannot disable themselves.
func (s *Service) Disattiva(ctx context.Context, sess *Session, username string) error {
	if err := s.autorizza(sess, PermUtenti); err != nil {
		return err
	}
	u, err := s.trova(ctx, username)
	if err != nil {
		return err
	}
	if u.Username == sess.Username() {
		return common.NewValidationError("username", username, "cannot disable the current user")
	}
	u.Attivo = false
	if err := s.utenti.Upsert(ctx, u.ID, *u); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	s.registra(ctx, sess.Username(), AzioneDisattiva, u.Username)
	s.log.Info().Str("username", u.Username).Msg("User disabled")
	return nil
}

// verifica checks the credentials, auditing failures.
func (s *Service) verifica(ctx context.Context, username, password string) (*Utente, error) {
	u, err := s.trova(ctx, username)
	if errors.Is(err, ErrUtenteNonTrovato) {
		s.registra(ctx, normalizza(username), AzioneLoginFallito, "unknown user")
		return nil, ErrCredenzialiNonValide
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		s.registra(ctx, u.Username, AzioneLoginFallito, "wrong password")
		return nil, ErrCredenzialiNonValide
	}
	if !u.Attivo {
		s.registra(ctx, u.Username, AzioneLoginFallito, "disabled")
		return nil, ErrUtenteDisattivato
	}
	return u, nil
}

func (s *Service) moduliAttivi(ctx context.Context) []string {
	if s.moduli == nil {
		return nil
	}
	return s.moduli.ModuliAttivi(ctx)
}

// Login checks the credentials and opens a session.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.verifica(ctx, username, password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u.LastLogin = &now
	if err := s.utenti.Upsert(ctx, u.ID, *u); err != nil {
		s.log.Warn().Err(err).Str("username", u.Username).Msg("Failed to record last login")
	}

	moduli := s.moduliAttivi(ctx)
	sess := nuovaSessione(*u, moduli, now)
	s.registra(ctx, u.Username, AzioneLogin, "")
	s.log.Info().Str("username", u.Username).Strs("moduli", moduli).Msg("User logged in")
	return sess, nil
}

// Autentica checks the credentials of a single stateless request. Unlike
// Login it does not record the access or update LastLogin.
func (s *Service) Autentica(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.verifica(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return nuovaSessione(*u, s.moduliAttivi(ctx), s.now()), nil
}

// Logout closes the session.
func (s *Service) Logout(ctx context.Context, sess *Session) error {
	if !sess.Attiva() {
		return ErrSessioneChiusa
	}
	sess.chiudi()
	s.registra(ctx, sess.Username(), AzioneLogout, "")
	return nil
}

// Audit returns the most recent entries first, at most limit (0 = all).
func (s *Service) Audit(ctx context.Context, sess *Session, limit int) ([]AuditEntry, error) {
	if err := s.autorizza(sess, PermUtenti); err != nil {
		return nil, err
	}
	entries, err := s.audit.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// SeedAdmin creates the administrator with the default password and every
// permission. An existing admin gets its password, permissions and active
// flag reset.
func (s *Service) SeedAdmin(ctx context.Context) (*Utente, error) {
	u, err := s.trova(ctx, AdminUsername)
	switch {
	case errors.Is(err, ErrUtenteNonTrovato):
		u, err := s.crea(ctx, AdminUsername, "Amministratore", DefaultAdminPassword, TuttiPermessi)
		if err != nil {
			return nil, fmt.Errorf("failed to seed admin: %w", err)
		}
		s.registra(ctx, "system", AzioneSeedAdmin, AdminUsername)
		return u, nil
	case err != nil:
		return nil, err
	}

	hash, err := s.hash(DefaultAdminPassword)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	u.Permessi = slices.Clone(TuttiPermessi)
	u.Attivo = true
	if err := s.utenti.Upsert(ctx, u.ID, *u); err != nil {
		return nil, fmt.Errorf("failed to reset admin: %w", err)
	}
	s.registra(ctx, "system", AzioneSeedAdmin, AdminUsername)
	s.log.Info().Msg("Administrator reset to default password")
	pub := u.Pubblico()
	return &pub, nil
}
