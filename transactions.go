package cardvault

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// CommandType is a typed string for identifying transaction commands.
type CommandType string

// Command types used for identifying transactions.
const (
	CmdDeclare     CommandType = "declare"
	CmdAcquire     CommandType = "acquire"
	CmdDispose     CommandType = "dispose"
	CmdUpdatePrice CommandType = "update-price"
	CmdList        CommandType = "list"
	CmdDelist      CommandType = "delist"
)

// Transaction defines the common interface for all the changes that can be
// recorded in a collection ledger.
type Transaction interface {
	What() CommandType // What returns the command type of the transaction (e.g., "acquire").
	When() Date        // When returns the date on which the transaction occurred.
	Equal(Transaction) bool
}

type baseCmd struct {
	Command CommandType `json:"command"`
	Date    Date        `json:"date"`
	Memo    string      `json:"memo,omitempty"`
}

func (t baseCmd) What() CommandType { return t.Command }
func (t baseCmd) When() Date        { return t.Date }

// Rationale returns the memo associated with the transaction.
func (t baseCmd) Rationale() string { return t.Memo }

func (t baseCmd) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("command", t.Command)
	w.Append("date", t.Date)
	w.Optional("memo", t.Memo)
	return w.MarshalJSON()
}

// validate sets the date to today if it's zero.
func (t *baseCmd) validate() {
	if t.Date.IsZero() {
		t.Date = Today()
	}
}

// equalJSON compares transactions through their canonical encoding.
func equalJSON(a, b Transaction) bool {
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

// Declare registers a printing, its metadata and provider references, in a collection.
type Declare struct {
	baseCmd
	Printing Printing `json:"printing"`
}

// NewDeclare creates a Declare transaction.
func NewDeclare(day Date, p Printing) Declare {
	return Declare{baseCmd: baseCmd{Command: CmdDeclare, Date: day}, Printing: p}
}

func (t Declare) Equal(o Transaction) bool { return equalJSON(t, o) }

func (t Declare) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.Append("key", t.Printing.Key())
	w.Append("printing", t.Printing)
	return w.MarshalJSON()
}

// copyCmd is the component shared by transactions on copies of a printing.
type copyCmd struct {
	baseCmd
	Key       PrintingKey `json:"key"`
	Condition Condition   `json:"condition,omitempty"`
	Quantity  Quantity    `json:"quantity"`
}

func (t copyCmd) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.Append("key", t.Key)
	w.Optional("condition", t.Condition)
	w.Append("quantity", t.Quantity)
	return w.MarshalJSON()
}

// Acquire adds copies of a declared printing to the collection.
type Acquire struct {
	copyCmd
	Cost Money `json:"cost"` // unit cost, zero when unknown.
}

// NewAcquire creates an Acquire transaction.
func NewAcquire(day Date, key PrintingKey, cond Condition, q Quantity, unitCost Money) Acquire {
	return Acquire{
		copyCmd: copyCmd{baseCmd: baseCmd{Command: CmdAcquire, Date: day}, Key: key, Condition: cond, Quantity: q},
		Cost:    unitCost,
	}
}

func (t Acquire) Equal(o Transaction) bool { return equalJSON(t, o) }

func (t Acquire) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.copyCmd)
	w.Optional("cost", t.Cost)
	return w.MarshalJSON()
}

// Dispose removes copies from the collection (sold, traded, lost).
// A zero Quantity means every copy held in that condition.
type Dispose struct {
	copyCmd
	Proceeds Money `json:"proceeds"` // unit proceeds, zero when unknown.
}

// NewDispose creates a Dispose transaction.
func NewDispose(day Date, key PrintingKey, cond Condition, q Quantity, unitProceeds Money) Dispose {
	return Dispose{
		copyCmd:  copyCmd{baseCmd: baseCmd{Command: CmdDispose, Date: day}, Key: key, Condition: cond, Quantity: q},
		Proceeds: unitProceeds,
	}
}

func (t Dispose) Equal(o Transaction) bool { return equalJSON(t, o) }

func (t Dispose) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.copyCmd)
	w.Optional("proceeds", t.Proceeds)
	return w.MarshalJSON()
}

// UpdatePrice records market prices observed on a day.
type UpdatePrice struct {
	baseCmd
	Currency string                          `json:"currency"`
	Source   string                          `json:"source,omitempty"`
	Prices   map[PrintingKey]decimal.Decimal `json:"prices"`
}

// NewUpdatePrice creates an UpdatePrice for a single printing.
func NewUpdatePrice(day Date, key PrintingKey, price Money) UpdatePrice {
	return UpdatePrice{
		baseCmd:  baseCmd{Command: CmdUpdatePrice, Date: day},
		Currency: price.Currency(),
		Prices:   map[PrintingKey]decimal.Decimal{key: price.Decimal()},
	}
}

func (t UpdatePrice) Equal(o Transaction) bool { return equalJSON(t, o) }

// Price returns the recorded price for key.
func (t UpdatePrice) Price(key PrintingKey) (Money, bool) {
	v, ok := t.Prices[key]
	return M(v, t.Currency), ok
}

func (t UpdatePrice) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.Append("currency", t.Currency)
	w.Optional("source", t.Source)
	// sorted keys keep the file diffable
	var p jsonObjectWriter
	for _, k := range slices.Sorted(maps.Keys(t.Prices)) {
		p.Append(string(k), t.Prices[k])
	}
	w.Append("prices", &p)
	return w.MarshalJSON()
}

// List records a marketplace listing for copies of a printing.
type List struct {
	copyCmd
	Listing     string `json:"listing"`
	Marketplace string `json:"marketplace"`
	Price       Money  `json:"price"` // unit price
}

// NewList creates a List transaction.
func NewList(day Date, listing, marketplace string, key PrintingKey, cond Condition, q Quantity, unitPrice Money) List {
	return List{
		copyCmd:     copyCmd{baseCmd: baseCmd{Command: CmdList, Date: day}, Key: key, Condition: cond, Quantity: q},
		Listing:     listing,
		Marketplace: marketplace,
		Price:       unitPrice,
	}
}

func (t List) Equal(o Transaction) bool { return equalJSON(t, o) }

func (t List) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.copyCmd)
	w.Append("listing", t.Listing)
	w.Append("marketplace", t.Marketplace)
	w.Append("price", t.Price)
	return w.MarshalJSON()
}

// Delist closes a listing.
type Delist struct {
	baseCmd
	Listing string `json:"listing"`
}

// NewDelist creates a Delist transaction.
func NewDelist(day Date, listing string) Delist {
	return Delist{baseCmd: baseCmd{Command: CmdDelist, Date: day}, Listing: listing}
}

func (t Delist) Equal(o Transaction) bool { return equalJSON(t, o) }

func (t Delist) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.baseCmd)
	w.Append("listing", t.Listing)
	return w.MarshalJSON()
}
