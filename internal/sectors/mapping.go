// Package sectors loads the reference mapping of stock codes to named
// sectors. The mapping is built once per orchestration run and passed
// explicitly to every component that needs sector membership; there is
// no process-wide mutable mapping state.
package sectors

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "brokerflow/internal/errors"
)

// Mapping is an immutable sector membership table.
type Mapping struct {
	stocksBySector map[string][]string
	sectorByStock  map[string]string
	sectors        []string
}

// AllSector names the sector-agnostic aggregate cell.
const AllSector = "ALL"

// NewMapping builds a mapping from (sector, stock) pairs, normalizing
// codes to upper case and deduplicating.
func NewMapping(pairs map[string][]string) *Mapping {
	m := &Mapping{
		stocksBySector: make(map[string][]string),
		sectorByStock:  make(map[string]string),
	}

	for sector, stocks := range pairs {
		sector = strings.ToUpper(strings.TrimSpace(sector))
		if sector == "" {
			continue
		}
		for _, stock := range stocks {
			stock = strings.ToUpper(strings.TrimSpace(stock))
			if stock == "" {
				continue
			}
			if _, dup := m.sectorByStock[stock]; dup {
				continue
			}
			m.sectorByStock[stock] = sector
			m.stocksBySector[sector] = append(m.stocksBySector[sector], stock)
		}
	}

	for sector, stocks := range m.stocksBySector {
		sort.Strings(stocks)
		m.sectors = append(m.sectors, sector)
	}
	sort.Strings(m.sectors)

	return m
}

// Sectors returns every sector name, sorted.
func (m *Mapping) Sectors() []string {
	return m.sectors
}

// Stocks returns the sorted stock codes of one sector, or nil for an
// unknown sector.
func (m *Mapping) Stocks(sector string) []string {
	return m.stocksBySector[strings.ToUpper(sector)]
}

// SectorOf returns the sector a stock belongs to, or "".
func (m *Mapping) SectorOf(stock string) string {
	return m.sectorByStock[strings.ToUpper(stock)]
}

// Contains reports whether the stock belongs to the sector. The ALL
// sector contains every stock.
func (m *Mapping) Contains(sector, stock string) bool {
	if strings.EqualFold(sector, AllSector) {
		return true
	}
	return m.SectorOf(stock) == strings.ToUpper(sector)
}

// Len returns the number of mapped stocks.
func (m *Mapping) Len() int {
	return len(m.sectorByStock)
}

// LoadCSV reads a Sector,StockCode reference table with a header row.
// Rows with the wrong shape are skipped rather than failing the load.
func LoadCSV(r io.Reader) (*Mapping, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read sector mapping CSV", err)
	}
	if len(rows) < 2 {
		return nil, apperrors.NewParsingError("sector mapping CSV has no data rows", nil)
	}

	pairs := make(map[string][]string)
	for _, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		sector, stock := row[0], row[1]
		if strings.TrimSpace(sector) == "" || strings.TrimSpace(stock) == "" {
			continue
		}
		pairs[sector] = append(pairs[sector], stock)
	}

	m := NewMapping(pairs)
	if m.Len() == 0 {
		return nil, apperrors.NewParsingError("sector mapping CSV mapped no stocks", nil)
	}
	return m, nil
}

// LoadExcel reads the same Sector,StockCode table from the first sheet
// of a reference workbook.
func LoadExcel(path string) (*Mapping, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to open sector workbook %s", path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewParsingError("sector workbook has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read sector workbook rows", err)
	}
	if len(rows) < 2 {
		return nil, apperrors.NewParsingError("sector workbook has no data rows", nil)
	}

	pairs := make(map[string][]string)
	for _, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		if strings.TrimSpace(row[0]) == "" || strings.TrimSpace(row[1]) == "" {
			continue
		}
		pairs[row[0]] = append(pairs[row[0]], row[1])
	}

	m := NewMapping(pairs)
	if m.Len() == 0 {
		return nil, apperrors.NewParsingError("sector workbook mapped no stocks", nil)
	}
	return m, nil
}
