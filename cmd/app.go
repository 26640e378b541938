package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/aqlanhadi/gestionale/anagrafica"
	"github.com/aqlanhadi/gestionale/attivita"
	"github.com/aqlanhadi/gestionale/banca"
	"github.com/aqlanhadi/gestionale/bilancio"
	"github.com/aqlanhadi/gestionale/circolari"
	"github.com/aqlanhadi/gestionale/integrations/postgres"
	"github.com/aqlanhadi/gestionale/licenza"
	"github.com/aqlanhadi/gestionale/sicurezza"
	"github.com/aqlanhadi/gestionale/store"
	"github.com/aqlanhadi/gestionale/utenti"
	"github.com/rs/zerolog/log"
)

// app bundles the services every command works with.
type app struct {
	db           *store.DB
	pg           *postgres.DB
	banche       *banca.Service
	bilanci      *bilancio.Service
	template     *bilancio.TemplateService
	associazioni *bilancio.AssociazioneService
	statistiche  *bilancio.StatisticaService
	licenze      *licenza.Service
	utenti       *utenti.Service
	anagrafica   *anagrafica.Service
	attivita     *attivita.Service
	circolari    *circolari.Archivio
	sicurezza    *sicurezza.Manager
}

// openApp opens the local database and wires the services. The license
// registry lives in PostgreSQL when postgres.url is set, in the local
// database otherwise.
func openApp(ctx context.Context) (*app, error) {
	db, err := store.Open(ctx, appCfg.Database.Path, appCfg.Database.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", appCfg.Database.Path, err)
	}

	a := &app{db: db}

	var registry licenza.Registry = licenza.NewStoreRegistry(db)
	if appCfg.Postgres.URL != "" {
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		pg, err := postgres.Connect(pctx, appCfg.Postgres.URL)
		if err != nil {
			// Validation fails closed when the registry is unreachable
			log.Warn().Err(err).Msg("Central database unavailable, license checks will fail")
			registry = unreachableRegistry{err: err}
		} else if err := pg.EnsureSchema(pctx); err != nil {
			pg.Close()
			db.Close()
			return nil, err
		} else {
			a.pg = pg
			registry = pg.Registry()
		}
	}

	soglie := banca.DefaultSoglie()
	soglie.GiorniIncassi = appCfg.Alerts.GiorniIncassi
	soglie.GiorniPagamenti = appCfg.Alerts.GiorniPagamenti
	soglie.GiorniAnticipi = appCfg.Alerts.GiorniAnticipi
	soglie.SogliaFido = appCfg.SogliaFido()

	archivio := bilancio.NewArchivio(db)
	a.banche = banca.NewService(banca.NewStoreRepository(db), soglie)
	a.bilanci = bilancio.NewService(archivio)
	a.template = bilancio.NewTemplateService(archivio)
	a.associazioni = bilancio.NewAssociazioneService(archivio)
	a.statistiche = bilancio.NewStatisticaService(archivio)
	a.licenze = licenza.NewService(registry, licenza.NewFileLocale(appCfg.License.File), appCfg.License.Secret, appCfg.License.Modules)
	a.utenti = utenti.NewService(db, a.licenze)
	a.anagrafica = anagrafica.NewService(db)
	a.attivita = attivita.NewService(db)
	a.circolari = circolari.NewArchivio(db, appCfg.CircolariDir())
	a.sicurezza = sicurezza.NewManager(db, appCfg.PasswordFile(), appCfg.Security.MasterPassword)
	return a, nil
}

func (a *app) Close() {
	if a.pg != nil {
		a.pg.Close()
	}
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}

// unreachableRegistry stands in for a central registry that could not be reached.
type unreachableRegistry struct {
	err error
}

func (r unreachableRegistry) Registra(context.Context, licenza.Licenza) error { return r.err }

func (r unreachableRegistry) Trova(context.Context, string) (*licenza.Licenza, error) {
	return nil, r.err
}

func (r unreachableRegistry) Revoca(context.Context, string, time.Time) error { return r.err }

var (
	cliUser     string
	cliPassword string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cliUser, "user", "u", "", "act as this user (default: local system session)")
	rootCmd.PersistentFlags().StringVar(&cliPassword, "password", "", "password for --user")
}

// sessione logs in as --user, or returns the system session for local
// maintenance when no user is given.
func (a *app) sessione(ctx context.Context) (*utenti.Session, error) {
	if cliUser == "" {
		return utenti.SessioneSistema(), nil
	}
	return a.utenti.Login(ctx, cliUser, cliPassword)
}

// withApp opens the application for the duration of fn.
func withApp(fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// withModulo is withApp for commands of a licensed module.
func withModulo(modulo string, fn func(ctx context.Context, a *app) error) error {
	return withApp(func(ctx context.Context, a *app) error {
		if err := a.licenze.Valida(ctx, modulo); err != nil {
			return fmt.Errorf("module %s: %w", modulo, err)
		}
		return fn(ctx, a)
	})
}
