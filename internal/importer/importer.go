// Package importer loads the guest list spreadsheet into the guest store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"wedding-rsvp/internal/logging"
	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/phone"
)

// ErrMissingColumn is returned when the header row has no phone column.
var ErrMissingColumn = errors.New("missing required column")

// Header aliases, Hebrew first.
var columns = map[string][]string{
	"name":     {"שם המוזמן", "name"},
	"guests":   {"מספר מוזמנים", "guests"},
	"phone":    {"מספר פל'", "phone"},
	"category": {"קירבה", "category"},
}

type GuestWriter interface {
	UpsertGuest(ctx context.Context, guest models.Guest) error
}

// Result counts what happened to the data rows.
type Result struct {
	Rows     int
	Imported int
	Skipped  int
	Failed   int
}

type Importer struct {
	store       GuestWriter
	countryCode string
	log         zerolog.Logger
}

func New(store GuestWriter, countryCode string, log zerolog.Logger) *Importer {
	return &Importer{
		store:       store,
		countryCode: countryCode,
		log:         logging.Component(log, "Importer"),
	}
}

// Import reads sheet (the first sheet when empty) from the workbook at path
// and upserts one guest per row that carries a phone number.
func (im *Importer) Import(ctx context.Context, path, sheet string) (Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Result{}, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Result{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return Result{}, nil
	}

	idx := headerIndex(rows[0])
	if _, ok := idx["phone"]; !ok {
		return Result{}, fmt.Errorf("%w: phone", ErrMissingColumn)
	}

	var res Result
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if blank(row) {
			continue
		}
		res.Rows++
		line := i + 2

		guest, ok := im.parseRow(row, idx)
		if !ok {
			im.log.Warn().Int("row", line).Msg("Skipping row without a phone number")
			res.Skipped++
			continue
		}
		if err := im.store.UpsertGuest(ctx, guest); err != nil {
			im.log.Error().Err(err).Int("row", line).Str("phone", guest.PhoneNumber).Msg("Failed to import guest")
			res.Failed++
			continue
		}
		res.Imported++
	}

	im.log.Info().
		Str("sheet", sheet).
		Int("rows", res.Rows).
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("Guest import finished")
	return res, nil
}

func (im *Importer) parseRow(row []string, idx map[string]int) (models.Guest, bool) {
	p := phone.Normalize(cell(row, idx, "phone"), im.countryCode)
	if p == "" {
		return models.Guest{}, false
	}
	invited, _ := strconv.Atoi(cell(row, idx, "guests"))
	if invited < 0 {
		invited = 0
	}
	return models.Guest{
		PhoneNumber:  p,
		Name:         cell(row, idx, "name"),
		Category:     cell(row, idx, "category"),
		InvitedCount: invited,
	}, true
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for field, aliases := range columns {
			for _, alias := range aliases {
				if h == alias {
					if _, seen := idx[field]; !seen {
						idx[field] = i
					}
				}
			}
		}
	}
	return idx
}

func cell(row []string, idx map[string]int, field string) string {
	i, ok := idx[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
