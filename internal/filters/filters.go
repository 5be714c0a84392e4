// Package filters defines the board and investor-type filter axes and
// renders the object-store key grammar shared with the serving API.
package filters

import (
	"fmt"
	"strings"

	apperrors "brokerflow/internal/errors"
)

// Board restricts transactions to a trading segment.
type Board string

const (
	BoardAll        Board = ""
	BoardRegular    Board = "rg"
	BoardCash       Board = "tn"
	BoardNegotiated Board = "ng"
)

// Investor restricts transactions to a counterparty type.
type Investor string

const (
	InvestorAll      Investor = ""
	InvestorForeign  Investor = "f"
	InvestorDomestic Investor = "d"
)

// Boards lists every board axis value, the unfiltered case first.
func Boards() []Board {
	return []Board{BoardAll, BoardRegular, BoardCash, BoardNegotiated}
}

// Investors lists every investor axis value, the unfiltered case first.
func Investors() []Investor {
	return []Investor{InvestorAll, InvestorForeign, InvestorDomestic}
}

// ParseBoard validates a caller-supplied board filter. Accepted input
// is case-insensitive; "all" and "" both mean unfiltered.
func ParseBoard(s string) (Board, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return BoardAll, nil
	case "rg", "regular":
		return BoardRegular, nil
	case "tn", "cash":
		return BoardCash, nil
	case "ng", "negotiated":
		return BoardNegotiated, nil
	}
	return BoardAll, apperrors.NewValidationError(fmt.Sprintf("invalid board filter %q", s), nil)
}

// ParseInvestor validates a caller-supplied investor filter.
func ParseInvestor(s string) (Investor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return InvestorAll, nil
	case "f", "foreign":
		return InvestorForeign, nil
	case "d", "domestic":
		return InvestorDomestic, nil
	}
	return InvestorAll, apperrors.NewValidationError(fmt.Sprintf("invalid investor filter %q", s), nil)
}

const transactionBase = "broker_transaction"

// Combination is one (board, investor) cell of the filter
// cross-product.
type Combination struct {
	Board    Board
	Investor Investor
}

// Combinations enumerates all board × investor cells in orchestration
// order: board varies fastest within one investor value.
func Combinations() []Combination {
	var combos []Combination
	for _, inv := range Investors() {
		for _, board := range Boards() {
			combos = append(combos, Combination{Board: board, Investor: inv})
		}
	}
	return combos
}

// Folder returns the top-level folder segment for this combination.
// The unfiltered-board + investor-filter case keeps the folder
// unqualified; only the dated segment carries the investor qualifier.
func (c Combination) Folder() string {
	if c.Board == BoardAll {
		return transactionBase
	}
	return transactionBase + "_" + string(c.Board) + c.investorSuffix()
}

// DatedPrefix returns the file-prefix segment without the trailing
// date, e.g. "broker_transaction_rg_f".
func (c Combination) DatedPrefix() string {
	base := transactionBase
	if c.Board != BoardAll {
		base += "_" + string(c.Board)
	}
	return base + c.investorSuffix()
}

// DatedFolder returns the per-date folder for this combination,
// e.g. "broker_transaction_rg/broker_transaction_rg_20240115".
func (c Combination) DatedFolder(date string) string {
	return c.Folder() + "/" + c.DatedPrefix() + "_" + date
}

// TransactionKey returns the full object key of one broker's file for
// this combination and date.
func (c Combination) TransactionKey(date, brokerCode string) string {
	return c.DatedFolder(date) + "/" + brokerCode + ".csv"
}

// SectorKey returns the object key of the aggregate artifact for one
// sector cell. The lowercase "sector_" prefix keeps these artifacts
// outside the uppercase broker-code candidate set.
func (c Combination) SectorKey(date, sector string) string {
	return c.DatedFolder(date) + "/sector_" + sector + ".csv"
}

func (c Combination) investorSuffix() string {
	if c.Investor == InvestorAll {
		return ""
	}
	return "_" + string(c.Investor)
}

// String renders the combination for logs and messages.
func (c Combination) String() string {
	board := "all"
	if c.Board != BoardAll {
		board = string(c.Board)
	}
	inv := "all"
	if c.Investor != InvestorAll {
		inv = string(c.Investor)
	}
	return fmt.Sprintf("board=%s investor=%s", board, inv)
}

// InventoryKey returns the object key of one (stock, broker) cumulative
// inventory artifact.
func InventoryKey(stockCode, brokerCode string) string {
	return "broker_inventory/" + stockCode + "/" + brokerCode + ".csv"
}
