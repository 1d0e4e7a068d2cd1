package collection

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/tommycwz/tcgp-sync/internal/export"
)

const sheetName = "Collection"

// Paths locates the inputs and outputs of an export. CardsPath, CSVPath
// and XLSXPath are optional.
type Paths struct {
	Reference string
	Owned     string
	Cards     string
	Combined  string
	CSV       string
	XLSX      string
}

// Run reads the reference and owned lists, combines them and writes every
// configured output.
func Run(p Paths) ([]Entry, error) {
	log := zap.L().With(zap.String("component", "collection"))
	start := time.Now()

	var refs []Reference
	if err := export.ReadJSON(p.Reference, &refs); err != nil {
		return nil, eris.Wrapf(err, "collection: read reference %s", p.Reference)
	}
	var owned []Owned
	if err := export.ReadJSON(p.Owned, &owned); err != nil {
		return nil, eris.Wrapf(err, "collection: read owned %s", p.Owned)
	}
	idx, err := LoadCardIndex(p.Cards)
	if err != nil {
		return nil, err
	}

	entries := Combine(refs, owned)
	if err := export.WriteJSON(p.Combined, entries, export.IndentCards); err != nil {
		return nil, eris.Wrap(err, "collection: write combined")
	}

	rows := Rows(entries, idx)
	if p.CSV != "" {
		if err := WriteCSV(p.CSV, rows); err != nil {
			return nil, err
		}
	}
	if p.XLSX != "" {
		if err := WriteXLSX(p.XLSX, rows); err != nil {
			return nil, err
		}
	}

	log.Info("collection exported",
		zap.Int("references", len(refs)),
		zap.Int("owned", len(owned)),
		zap.Int("entries", len(entries)),
		zap.String("combined", p.Combined),
		zap.String("csv", p.CSV),
		zap.String("xlsx", p.XLSX),
		zap.Duration("elapsed", time.Since(start)),
	)
	return entries, nil
}

// WriteCSV atomically writes rows under the fixed header.
func WriteCSV(path string, rows []Row) error {
	err := export.WriteFile(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		enc := csvutil.NewEncoder(cw)
		enc.AutoHeader = false
		if err := enc.EncodeHeader(Row{}); err != nil {
			return err
		}
		for _, row := range rows {
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	return eris.Wrapf(err, "collection: write csv %s", path)
}

// WriteXLSX atomically writes rows as a single-sheet workbook.
func WriteXLSX(path string, rows []Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "collection: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Header {
		header.AddCell().SetString(h)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.ID)
		row.AddCell().SetString(r.CardName)
		row.AddCell().SetInt(r.NumberOwn)
		row.AddCell().SetString(r.Expansion)
		row.AddCell().SetString(r.Pack)
		row.AddCell().SetString(r.Rarity)
	}

	return eris.Wrapf(export.WriteFile(path, f.Write), "collection: write xlsx %s", path)
}
