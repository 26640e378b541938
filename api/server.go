// Package api exposes the bank and trial-balance services over HTTP.
// Every route except /health requires HTTP basic auth with a gestionale user.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aqlanhadi/gestionale/banca"
	"github.com/aqlanhadi/gestionale/bilancio"
	"github.com/aqlanhadi/gestionale/common"
	"github.com/aqlanhadi/gestionale/licenza"
	"github.com/aqlanhadi/gestionale/logger"
	"github.com/aqlanhadi/gestionale/utenti"
	"github.com/rs/zerolog"
)

// Config holds the API server configuration
type Config struct {
	Port string
}

// DefaultConfig returns the default API configuration
func DefaultConfig() Config {
	return Config{
		Port: ":8080",
	}
}

// Services are the application services the routes call into.
type Services struct {
	Banche      *banca.Service
	Bilanci     *bilancio.Service
	Template    *bilancio.TemplateService
	Statistiche *bilancio.StatisticaService
	Utenti      *utenti.Service
}

// Server represents the HTTP API server
type Server struct {
	config Config
	svc    Services
	mux    *http.ServeMux
	now    func() time.Time
	log    zerolog.Logger
}

// New creates a new API server with the given configuration
func New(cfg Config, svc Services) *Server {
	s := &Server{
		config: cfg,
		svc:    svc,
		mux:    http.NewServeMux(),
		now:    time.Now,
		log:    logger.WithComponent("api"),
	}
	s.registerRoutes()
	return s
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, sess *utenti.Session)

// registerRoutes sets up the API endpoints
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	s.route("/banche", http.MethodGet, utenti.PermBanche, licenza.ModuloBanche, s.handleBanche)
	s.route("/banche/riepilogo", http.MethodGet, utenti.PermBanche, licenza.ModuloBanche, s.handleRiepilogo)
	s.route("/banche/alert", http.MethodGet, utenti.PermBanche, licenza.ModuloBanche, s.handleAlert)
	s.route("/banche/previsione", http.MethodGet, utenti.PermBanche, licenza.ModuloBanche, s.handlePrevisione)
	s.route("/banche/pivot", http.MethodGet, utenti.PermBanche, licenza.ModuloBanche, s.handlePivot)
	s.route("/bilancio/statistica", http.MethodGet, utenti.PermBilancio, licenza.ModuloBilancio, s.handleStatistica)
	s.route("/bilancio/import", http.MethodPost, utenti.PermBilancio, licenza.ModuloBilancio, s.handleImport)
	s.route("/bilancio/template", http.MethodPost, utenti.PermBilancio, licenza.ModuloBilancio, s.handleTemplate)
}

// route wraps h with the method check, basic auth, the permission check and
// the module license check.
func (s *Server) route(path, method, permesso, modulo string, h handlerFunc) {
	s.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="gestionale"`)
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		sess, err := s.svc.Utenti.Autentica(r.Context(), username, password)
		if err != nil {
			s.log.Warn().Err(err).Str("username", username).Str("path", path).Str("remote", r.RemoteAddr).Msg("Rejected request")
			w.Header().Set("WWW-Authenticate", `Basic realm="gestionale"`)
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		if !sess.Puo(permesso) {
			http.Error(w, "Permission denied", http.StatusForbidden)
			return
		}
		if !sess.HaModulo(modulo) {
			http.Error(w, "Module "+modulo+" is not licensed", http.StatusForbidden)
			return
		}
		l := logger.WithUser("api", sess.Username())
		l.Debug().Str("method", r.Method).Str("path", path).Msg("Request")
		h(w, r, sess)
	})
}

// Handler returns the http.Handler for the server
// This allows the server to be used with custom http.Server configurations
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server (blocking)
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.config.Port).Msg("Starting server")
	return http.ListenAndServe(s.config.Port, s.mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleBanche(w http.ResponseWriter, r *http.Request, _ *utenti.Session) {
	banche, err := s.svc.Banche.Elenco(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, banche)
}

func (s *Server) handleRiepilogo(w http.ResponseWriter, r *http.Request, _ *utenti.Session) {
	riepilogo, err := s.svc.Banche.Riepilogo(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, riepilogo)
}

// handleAlert returns the alerts of one bank with ?id=, of every bank otherwise.
func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request, _ *utenti.Session) {
	var (
		alerts []banca.Alert
		err    error
	)
	if id := r.URL.Query().Get("id"); id != "" {
		alerts, err = s.svc.Banche.Alert(r.Context(), id)
	} else {
		alerts, err = s.svc.Banche.AlertTutte(r.Context())
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	if alerts == nil {
		alerts = []banca.Alert{}
	}
	writeJSON(w, alerts)
}

func (s *Server) handlePrevisione(w http.ResponseWriter, r *http.Request, _ *utenti.Session) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing bank id", http.StatusBadRequest)
		return
	}
	data := common.Giorno(s.now())
	if raw := r.URL.Query().Get("data"); raw != "" {
		d, err := common.ParseData(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data = common.Giorno(d)
	}
	saldo, err := s.svc.Banche.SaldoPrevisto(r.Context(), id, data)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"banca_id":       id,
		"data":           data.Format("2006-01-02"),
		"saldo_previsto": saldo,
	})
}

func (s *Server) handlePivot(w http.ResponseWriter, r *http.Request, _ *utenti.Session) {
	q := r.URL.Query()
	anno := s.now().Year()
	if raw := q.Get("anno"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "Invalid year: "+raw, http.StatusBadRequest)
			return
		}
		anno = n
	}
	tipo := coalesce(q.Get("tipo"), banca.TipoIncassi)
	per := banca.Raggruppamento(coalesce(q.Get("per"), string(banca.PerCategoria)))

	pivot, err := s.svc.Banche.Pivot(r.Context(), tipo, anno, per)
	var verr *common.ValidationError
	if errors.As(err, &verr) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, pivot)
}

func (s *Server) handleStatistica(w http.ResponseWriter, r *http.Request, _ *utenti.Session) {
	p, err := parsePeriodo(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	stat, err := s.svc.Statistiche.Genera(r.Context(), p)
	switch {
	case errors.Is(err, bilancio.ErrPeriodoNonValido):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, bilancio.ErrAssociazioneNonTrovata), errors.Is(err, bilancio.ErrTemplateNonTrovato):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		s.internalError(w, err)
	default:
		writeJSON(w, stat)
	}
}

// handleImport loads an uploaded trial-balance workbook into a period.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, sess *utenti.Session) {
	// Parse multipart form with 32MB max memory
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Could not parse multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	p, err := parsePeriodo(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, handler, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Could not get uploaded file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		s.internalError(w, err)
		return
	}
	res, err := bilancio.ImportaExcel(bytes.NewReader(fileBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	descrizione := coalesce(r.FormValue("descrizione"), handler.Filename)
	n, err := s.svc.Bilanci.Importa(r.Context(), p, descrizione, res.Righe)
	var verr *common.ValidationError
	switch {
	case errors.Is(err, bilancio.ErrPeriodoNonValido), errors.As(err, &verr):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		s.internalError(w, err)
		return
	}

	s.log.Info().Str("username", sess.Username()).Str("periodo", p.String()).Str("file", handler.Filename).Int("righe", n).Msg("Trial balance imported over HTTP")
	errori := res.Errori
	if errori == nil {
		errori = []string{}
	}
	writeJSON(w, map[string]any{
		"periodo":     p.String(),
		"descrizione": descrizione,
		"importate":   n,
		"saltate":     res.Saltate,
		"errori":      errori,
	})
}

// handleTemplate replaces the template of a period with the JSON array of
// lines in the body and returns the saved lines.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request, sess *utenti.Session) {
	p, err := parsePeriodo(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var voci []bilancio.BilancioTemplate
	if err := json.NewDecoder(r.Body).Decode(&voci); err != nil {
		http.Error(w, "Invalid template body: "+err.Error(), http.StatusBadRequest)
		return
	}

	err = s.svc.Template.Salva(r.Context(), p, voci)
	var verr *common.ValidationError
	switch {
	case errors.Is(err, bilancio.ErrPeriodoNonValido), errors.Is(err, bilancio.ErrFormulaNonValida), errors.As(err, &verr):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		s.internalError(w, err)
		return
	}

	salvate, err := s.svc.Template.Elenco(r.Context(), p)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.log.Info().Str("username", sess.Username()).Str("periodo", p.String()).Int("voci", len(salvate)).Msg("Template saved over HTTP")
	writeJSON(w, salvate)
}

// parsePeriodo reads cliente, mese and anno from the query or form.
func parsePeriodo(r *http.Request) (bilancio.Periodo, error) {
	p := bilancio.Periodo{ClienteID: r.FormValue("cliente")}
	var err error
	if p.Mese, err = strconv.Atoi(r.FormValue("mese")); err != nil {
		return p, common.NewValidationError("mese", r.FormValue("mese"), "must be a number")
	}
	if p.Anno, err = strconv.Atoi(r.FormValue("anno")); err != nil {
		return p, common.NewValidationError("anno", r.FormValue("anno"), "must be a number")
	}
	return p, nil
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("Request failed")
	http.Error(w, "Internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// coalesce returns the first non-empty string
func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
