package circolari

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/aqlanhadi/gestionale/logger"
	"github.com/dslipak/pdf"
)

// EstraiRighe reads a PDF and returns its text one visual row per entry.
// Pages that fail to decode are skipped with a warning.
func EstraiRighe(reader io.Reader) ([]string, int, error) {
	var rAt io.ReaderAt
	var size int64

	switch v := reader.(type) {
	case io.ReaderAt:
		seeker, ok := reader.(io.Seeker)
		if !ok {
			return nil, 0, errors.New("reader is io.ReaderAt but not io.Seeker, cannot determine size")
		}
		end, err := seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, err
		}
		rAt, size = v, end
	default:
		b, err := io.ReadAll(reader)
		if err != nil {
			return nil, 0, err
		}
		rAt, size = bytes.NewReader(b), int64(len(b))
	}

	r, err := pdf.NewReader(rAt, size)
	if err != nil {
		return nil, 0, err
	}

	log := logger.WithComponent("circolari")
	pagine := r.NumPage()
	righe := make([]string, 0, pagine*50)
	for no := 1; no <= pagine; no++ {
		rows, err := r.Page(no).GetTextByRow()
		if err != nil {
			log.Warn().Err(err).Int("page", no).Msg("Failed to read page text")
			continue
		}
		for _, row := range rows {
			parts := make([]string, 0, len(row.Content))
			for _, t := range row.Content {
				parts = append(parts, t.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				righe = append(righe, line)
			}
		}
	}
	return righe, pagine, nil
}

// EstraiTesto joins the rows of a PDF with newlines.
func EstraiTesto(reader io.Reader) (string, int, error) {
	righe, pagine, err := EstraiRighe(reader)
	if err != nil {
		return "", 0, err
	}
	return strings.Join(righe, "\n"), pagine, nil
}
