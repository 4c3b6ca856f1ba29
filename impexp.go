package cardvault

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// This file contains the CSV import/export of collections. Spreadsheet and
// collection-app exports vary a lot, so columns are found by name.

// ImportDefaults completes the rows of an import.
type ImportDefaults struct {
	Game      Game      // when there is no game column
	Currency  string    // when prices have no currency
	Date      Date      // when there is no date column, today if zero
	Condition Condition // when there is no condition column, near mint if empty
	Language  string    // when there is no language column, english if empty
}

type column int

const (
	colGame column = iota
	colSet
	colSetName
	colNumber
	colName
	colFinish
	colCondition
	colLanguage
	colQuantity
	colPrice
	colCurrency
	colDate
	colRarity
	numColumns
)

// columnAliases maps normalized header names to columns.
var columnAliases = map[string]column{
	"game": colGame, "tcg": colGame, "product line": colGame,
	"set": colSet, "set code": colSet, "setcode": colSet, "edition": colSet, "expansion code": colSet,
	"set name": colSetName, "expansion": colSetName, "edition name": colSetName,
	"number": colNumber, "card number": colNumber, "collector number": colNumber, "collector #": colNumber, "no": colNumber, "#": colNumber,
	"name": colName, "card name": colName, "card": colName,
	"finish": colFinish, "foil": colFinish, "printing": colFinish, "variant": colFinish,
	"condition": colCondition, "cond": colCondition, "grade": colCondition,
	"language": colLanguage, "lang": colLanguage,
	"quantity": colQuantity, "qty": colQuantity, "count": colQuantity, "amount": colQuantity,
	"price": colPrice, "purchase price": colPrice, "cost": colPrice, "unit price": colPrice, "price paid": colPrice,
	"currency": colCurrency,
	"date": colDate, "purchase date": colDate, "acquired": colDate, "date added": colDate,
	"rarity": colRarity,
}

var exportHeader = []string{"game", "set", "set name", "number", "name", "finish", "condition", "language", "quantity", "price", "currency", "rarity"}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == ' ' || r == '-' }), " ")
}

// ImportCSV reads a header-driven CSV of owned copies and returns the declare
// and acquire transactions that add them to a collection. Rows sharing a
// printing and a condition are merged. Errors report the line of the row.
func ImportCSV(r io.Reader, defaults ImportDefaults) ([]Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty CSV")
	}
	if err != nil {
		return nil, fmt.Errorf("invalid CSV header: %w", err)
	}
	idx := make([]int, numColumns)
	for i := range idx {
		idx[i] = -1
	}
	for i, h := range header {
		if c, ok := columnAliases[normalizeHeader(h)]; ok && idx[c] < 0 {
			idx[c] = i
		}
	}
	if idx[colSet] < 0 {
		idx[colSet], idx[colSetName] = idx[colSetName], -1
	}
	var missing []string
	if idx[colSet] < 0 {
		missing = append(missing, "set")
	}
	if idx[colNumber] < 0 {
		missing = append(missing, "number")
	}
	if idx[colGame] < 0 && defaults.Game == "" {
		missing = append(missing, "game")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("line 1: missing column(s) %s", strings.Join(missing, ", "))
	}
	if defaults.Date.IsZero() {
		defaults.Date = Today()
	}
	if defaults.Currency == "" {
		defaults.Currency = DefaultCurrency
	}

	var (
		copies []Copy
		errs   []error
	)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line, _ := cr.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		get := func(c column) string {
			if idx[c] < 0 || idx[c] >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx[c]])
		}
		if strings.TrimSpace(strings.Join(record, "")) == "" {
			continue
		}
		c, err := parseRow(get, defaults)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if c.Quantity == 0 {
			continue
		}
		c.Line = line
		copies = append(copies, c)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	groups, err := Group(copies, ByPrintingCondition)
	if err != nil {
		return nil, err
	}
	// declare every printing on the day of its earliest copy.
	declared := make(map[PrintingKey]int)
	var txs []Transaction
	for _, c := range groups {
		key := c.Printing.Key()
		if i, ok := declared[key]; ok {
			d := txs[i].(Declare)
			if c.Date.Before(d.Date) {
				d.Date = c.Date
			}
			d.Printing = d.Printing.merge(c.Printing)
			txs[i] = d
		} else {
			declared[key] = len(txs)
			txs = append(txs, NewDeclare(c.Date, c.Printing))
		}
		txs = append(txs, NewAcquire(c.Date, key, c.Condition, c.Quantity, c.Cost))
	}
	return txs, nil
}

func parseRow(get func(column) string, defaults ImportDefaults) (Copy, error) {
	var c Copy
	var errs []error

	c.Printing.Game = defaults.Game
	if s := get(colGame); s != "" {
		g, err := ParseGame(s)
		if err != nil {
			errs = append(errs, err)
		}
		c.Printing.Game = g
	}
	c.Printing.Set = get(colSet)
	if c.Printing.Set == "" {
		errs = append(errs, errors.New("set is empty"))
	}
	c.Printing.SetName = get(colSetName)
	c.Printing.Number = get(colNumber)
	if c.Printing.Number == "" {
		errs = append(errs, errors.New("number is empty"))
	}
	c.Printing.Name = get(colName)
	c.Printing.Rarity = get(colRarity)
	finish, err := ParseFinish(get(colFinish))
	if err != nil {
		errs = append(errs, err)
	}
	c.Printing.Finish = finish
	c.Printing.Language = strings.ToLower(get(colLanguage))
	if c.Printing.Language == "" {
		c.Printing.Language = strings.ToLower(defaults.Language)
	}
	if c.Printing.Language == "" {
		c.Printing.Language = "en"
	}

	cond := get(colCondition)
	if cond == "" {
		cond = string(defaults.Condition)
	}
	c.Condition, err = ParseCondition(cond)
	if err != nil {
		errs = append(errs, err)
	}

	c.Quantity = 1
	if s := get(colQuantity); s != "" {
		q, err := strconv.Atoi(s)
		if err != nil || q < 0 {
			errs = append(errs, fmt.Errorf("invalid quantity %q", s))
		}
		c.Quantity = Quantity(q)
	}

	if s := get(colPrice); s != "" {
		currency := get(colCurrency)
		if currency == "" {
			currency = defaults.Currency
		}
		price, err := ParseMoney(s, currency)
		switch {
		case err != nil:
			errs = append(errs, err)
		case price.IsNegative():
			errs = append(errs, fmt.Errorf("negative price %q", s))
		default:
			c.Cost = price
		}
	}

	c.Date = defaults.Date
	if s := get(colDate); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			errs = append(errs, err)
		}
		c.Date = d
	}
	return c, errors.Join(errs...)
}

// ExportCSV writes the holdings of a snapshot in the columns read by [ImportCSV].
// The price column is the average unit cost.
func ExportCSV(w io.Writer, s *Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, h := range s.Holdings() {
		p := h.Printing
		var price, currency string
		if !h.UnitCost.IsZero() {
			price = h.UnitCost.Decimal().String()
			currency = h.UnitCost.Currency()
		}
		record := []string{
			string(h.Key.Game()), h.Key.Set(), p.SetName, h.Key.Number(), p.Name,
			string(h.Key.Finish()), string(h.Condition), h.Key.Language(),
			h.Quantity.String(), price, currency, p.Rarity,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
