package licenza

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/aqlanhadi/gestionale/logger"
	"github.com/rs/zerolog"
)

var (
	ErrLicenzaNonValida  = errors.New("invalid license")
	ErrLicenzaAssente    = errors.New("module not activated on this workstation")
	ErrModuloSconosciuto = errors.New("unknown module")
	ErrRegistro          = errors.New("license registry unavailable")
)

// Licensable modules of the default configuration
const (
	ModuloBanche    = "BANCHE"
	ModuloBilancio  = "BILANCIO"
	ModuloCircolari = "CIRCOLARI"
	ModuloTodo      = "TODO"
)

// StatoModulo describes the license status of one module.
type StatoModulo struct {
	Modulo string `json:"modulo"`
	Chiave string `json:"chiave,omitempty"` // masked
	Valida bool   `json:"valida"`
	Errore string `json:"errore,omitempty"`
}

// Service issues, activates and validates module licenses.
type Service struct {
	registry Registry
	locale   *FileLocale
	secret   string
	moduli   []string
	now      func() time.Time
	log      zerolog.Logger
}

func NewService(registry Registry, locale *FileLocale, secret string, moduli []string) *Service {
	norm := make([]string, 0, len(moduli))
	for _, m := range moduli {
		norm = append(norm, strings.ToUpper(strings.TrimSpace(m)))
	}
	return &Service{
		registry: registry,
		locale:   locale,
		secret:   secret,
		moduli:   norm,
		now:      time.Now,
		log:      logger.WithComponent("licenza"),
	}
}

func (s *Service) Moduli() []string {
	return slices.Clone(s.moduli)
}

func (s *Service) modulo(m string) (string, error) {
	m = strings.ToUpper(strings.TrimSpace(m))
	if !slices.Contains(s.moduli, m) {
		return "", fmt.Errorf("%w: %s", ErrModuloSconosciuto, m)
	}
	return m, nil
}

// Emetti generates a new key for modulo and records it in the registry.
func (s *Service) Emetti(ctx context.Context, modulo, intestatario string) (*Licenza, error) {
	const op = "Emetti"
	modulo, err := s.modulo(modulo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	chiave, guid := GeneraChiave(modulo, s.secret)
	l := Licenza{
		Chiave:       chiave,
		Modulo:       modulo,
		GUID:         guid,
		Intestatario: intestatario,
		EmessaIl:     s.now(),
	}
	if err := s.registry.Registra(ctx, l); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrRegistro, err)
	}
	s.log.Info().Str("modulo", modulo).Str("chiave", Maschera(chiave)).Str("intestatario", intestatario).Msg("License issued")
	return &l, nil
}

// Attiva checks chiave against the registry and caches it locally for modulo.
func (s *Service) Attiva(ctx context.Context, modulo, chiave string) error {
	const op = "Attiva"
	modulo, err := s.modulo(modulo)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	chiave = strings.TrimSpace(chiave)
	if !VerificaFormato(chiave, modulo) {
		return fmt.Errorf("%s: %w: malformed key for %s", op, ErrLicenzaNonValida, modulo)
	}
	if err := s.controlla(ctx, modulo, chiave); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.locale.Set(modulo, chiave); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info().Str("modulo", modulo).Str("chiave", Maschera(chiave)).Msg("License activated")
	return nil
}

// Valida confirms that modulo has a locally cached key the registry still
// honours. An unreachable registry fails validation.
func (s *Service) Valida(ctx context.Context, modulo string) error {
	modulo, err := s.modulo(modulo)
	if err != nil {
		return err
	}
	chiave, ok, err := s.locale.Get(modulo)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLicenzaAssente, modulo)
	}
	if !VerificaFormato(chiave, modulo) {
		return fmt.Errorf("%w: cached key for %s is malformed", ErrLicenzaNonValida, modulo)
	}
	return s.controlla(ctx, modulo, chiave)
}

func (s *Service) controlla(ctx context.Context, modulo, chiave string) error {
	l, err := s.registry.Trova(ctx, chiave)
	if errors.Is(err, ErrLicenzaNonTrovata) {
		return fmt.Errorf("%w: key not issued", ErrLicenzaNonValida)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("modulo", modulo).Msg("License registry unreachable, refusing license")
		return fmt.Errorf("%w: %v", ErrRegistro, err)
	}
	if l.Modulo != modulo {
		return fmt.Errorf("%w: key belongs to %s", ErrLicenzaNonValida, l.Modulo)
	}
	if !l.Attiva() {
		return fmt.Errorf("%w: key revoked on %s", ErrLicenzaNonValida, l.RevocataIl.Format("02/01/2006"))
	}
	return nil
}

// Revoca marks a key revoked in the registry.
func (s *Service) Revoca(ctx context.Context, chiave string) error {
	if err := s.registry.Revoca(ctx, strings.TrimSpace(chiave), s.now()); err != nil {
		return err
	}
	s.log.Info().Str("chiave", Maschera(chiave)).Msg("License revoked")
	return nil
}

// Disattiva removes the cached key of modulo from this workstation.
func (s *Service) Disattiva(modulo string) error {
	modulo, err := s.modulo(modulo)
	if err != nil {
		return err
	}
	return s.locale.Remove(modulo)
}

// Stato validates every known module.
func (s *Service) Stato(ctx context.Context) []StatoModulo {
	chiavi, err := s.locale.Load()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to read license file")
	}
	stato := make([]StatoModulo, 0, len(s.moduli))
	for _, m := range s.moduli {
		st := StatoModulo{Modulo: m}
		if chiave, ok := chiavi[m]; ok {
			st.Chiave = Maschera(chiave)
		}
		if err := s.Valida(ctx, m); err != nil {
			st.Errore = err.Error()
		} else {
			st.Valida = true
		}
		stato = append(stato, st)
	}
	return stato
}

// ModuliAttivi returns the modules that currently validate.
func (s *Service) ModuliAttivi(ctx context.Context) []string {
	var attivi []string
	for _, st := range s.Stato(ctx) {
		if st.Valida {
			attivi = append(attivi, st.Modulo)
		}
	}
	return attivi
}
