package bilancio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aqlanhadi/gestionale/common"
	"github.com/aqlanhadi/gestionale/logger"
	"github.com/aqlanhadi/gestionale/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TemplateService manages the statement templates of each client and period.
type TemplateService struct {
	archivio *Archivio
	log      zerolog.Logger
}

func NewTemplateService(a *Archivio) *TemplateService {
	return &TemplateService{archivio: a, log: logger.WithComponent("template")}
}

// Salva replaces the template of the period with voci. Lines keep their id
// when it already belongs to a line of the same period, so existing mappings
// stay valid. Any other id is replaced with a new one.
func (s *TemplateService) Salva(ctx context.Context, p Periodo, voci []BilancioTemplate) error {
	const op = "Salva"
	if err := p.Valida(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	attuali, err := s.archivio.templatePeriodo(ctx, p)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	propri := make(map[string]bool, len(attuali))
	for _, t := range attuali {
		propri[t.ID] = true
	}

	codici := make(map[string]bool, len(voci))
	docs := make([]store.Entry[BilancioTemplate], 0, len(voci))
	for i, v := range voci {
		v.Codice = strings.TrimSpace(v.Codice)
		v.Formula = strings.TrimSpace(v.Formula)
		if v.Codice == "" {
			return fmt.Errorf("%s: %w", op, common.NewValidationError("codice", v.Codice, "must not be empty"))
		}
		if codici[v.Codice] {
			return fmt.Errorf("%s: %w", op, common.NewValidationError("codice", v.Codice, "duplicated in template"))
		}
		codici[v.Codice] = true

		switch v.Segno {
		case "":
			v.Segno = "+"
		case "+", "-":
		default:
			return fmt.Errorf("%s: %w", op, common.NewValidationError("segno", v.Segno, "must be + or -"))
		}
		if v.Formula != "" {
			if _, err := Valuta(v.Formula, nil); err != nil {
				return fmt.Errorf("%s: line %s: %w", op, v.Codice, err)
			}
		}

		if !propri[v.ID] {
			v.ID = uuid.NewString()
		}
		delete(propri, v.ID)
		if v.Ordine == 0 {
			v.Ordine = i + 1
		}
		v.ClienteID, v.Mese, v.Anno = p.ClienteID, p.Mese, p.Anno
		docs = append(docs, store.Entry[BilancioTemplate]{ID: v.ID, Doc: v})
	}

	if _, err := s.archivio.template.ReplaceWhere(ctx, func(t BilancioTemplate) bool {
		return p.contiene(t.ClienteID, t.Mese, t.Anno)
	}, docs); err != nil {
		return fmt.Errorf("%s: failed to save template: %w", op, err)
	}
	s.log.Info().Str("periodo", p.String()).Int("voci", len(docs)).Msg("Template saved")
	return nil
}

// Elenco returns the template lines of the period in statement order.
func (s *TemplateService) Elenco(ctx context.Context, p Periodo) ([]BilancioTemplate, error) {
	return s.archivio.templatePeriodo(ctx, p)
}

// Copia duplicates the template of da onto a, replacing whatever a had.
func (s *TemplateService) Copia(ctx context.Context, da, a Periodo) (int, error) {
	voci, err := s.archivio.templatePeriodo(ctx, da)
	if err != nil {
		return 0, err
	}
	if len(voci) == 0 {
		return 0, fmt.Errorf("%s: %w", da, ErrTemplateNonTrovato)
	}
	for i := range voci {
		voci[i].ID = ""
	}
	if err := s.Salva(ctx, a, voci); err != nil {
		return 0, err
	}
	return len(voci), nil
}

// LeggiTemplate reads template lines from a .json array or an .xlsx
// workbook, chosen by the extension of nome.
func LeggiTemplate(r io.Reader, nome string) ([]BilancioTemplate, error) {
	switch strings.ToLower(filepath.Ext(nome)) {
	case ".json":
		var voci []BilancioTemplate
		if err := json.NewDecoder(r).Decode(&voci); err != nil {
			return nil, fmt.Errorf("failed to decode template %s: %w", nome, err)
		}
		return voci, nil
	case ".xlsx":
		return ImportaTemplateExcel(r)
	default:
		return nil, common.NewValidationError("file", nome, "template must be .json or .xlsx")
	}
}
