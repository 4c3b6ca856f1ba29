package cardvault

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportCSV(t *testing.T) {
	input := `Card Name,Set Code,Collector Number,Foil,Condition,Qty,Purchase Price
Elsa - Spirit of Winter,1,42,,Near Mint,1,10
Mickey Mouse - Brave Little Tailor,1,012,,nm,2,
Elsa - Spirit of Winter,1,042,,NM,3,2
Elsa - Spirit of Winter,1,42,foil,LP,1,30 EUR
`
	txs, err := ImportCSV(strings.NewReader(input), ImportDefaults{Game: Lorcana, Date: day("2025-04-01")})
	require.NoError(t, err)

	var commands []CommandType
	for _, tx := range txs {
		commands = append(commands, tx.What())
	}
	// elsa, mickey and foil elsa are declared once, each followed by its merged acquire.
	assert.Equal(t, []CommandType{CmdDeclare, CmdAcquire, CmdDeclare, CmdAcquire, CmdDeclare, CmdAcquire}, commands)

	elsaAcq := txs[1].(Acquire)
	assert.Equal(t, elsa.Key(), elsaAcq.Key)
	assert.Equal(t, Quantity(4), elsaAcq.Quantity)
	assert.True(t, elsaAcq.Cost.Equal(USD(4)), "got %v", elsaAcq.Cost)
	assert.Equal(t, day("2025-04-01"), elsaAcq.Date)

	foilAcq := txs[5].(Acquire)
	assert.Equal(t, elsaFoil.Key(), foilAcq.Key)
	assert.Equal(t, LightlyPlayed, foilAcq.Condition)
	assert.True(t, foilAcq.Cost.Equal(EUR(30)))

	// the import can be recorded as is.
	l := newTestLedger(t, txs...)
	assert.Equal(t, Quantity(2), l.NewSnapshot(day("2025-04-01")).Position(mickey.Key()))
}

func TestImportCSV_errors(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		defaults ImportDefaults
		want     []string
	}{
		{
			name:  "missing columns",
			input: "name,qty\nElsa,1\n",
			want:  []string{"line 1", "set", "number", "game"},
		},
		{
			name:     "bad rows",
			input:    "set,number,quantity,condition\n1,42,two,NM\n1,43,1,NM\n1,,1,mint-ish\n",
			defaults: ImportDefaults{Game: Lorcana},
			want:     []string{"line 2: invalid quantity", "line 4: number is empty", `unknown condition "mint-ish"`},
		},
		{
			name:  "empty",
			input: "",
			want:  []string{"empty CSV"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ImportCSV(strings.NewReader(tc.input), tc.defaults)
			require.Error(t, err)
			for _, w := range tc.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestExportCSV(t *testing.T) {
	s := sampleLedger(t).NewSnapshot(day("2025-01-20"))
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, s))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "game,set,set name,number,name,finish,condition,language,quantity,price,currency,rarity", lines[0])
	assert.Equal(t, "lorcana,1,,42,Elsa - Spirit of Winter,normal,NM,en,1,8,USD,legendary", lines[1])

	// exported holdings import back to the same positions.
	txs, err := ImportCSV(&buf, ImportDefaults{Date: day("2025-01-20")})
	require.NoError(t, err)
	back := newTestLedger(t, txs...).NewSnapshot(day("2025-01-20"))
	assert.Equal(t, s.Position(elsa.Key()), back.Position(elsa.Key()))
	assert.Equal(t, s.Position(mickey.Key()), back.Position(mickey.Key()))
	assert.True(t, back.CostBasis(elsa.Key()).Equal(USD(16)), "got %v", back.CostBasis(elsa.Key()))
}

func TestExportCSV_subCentCost(t *testing.T) {
	l := newTestLedger(t,
		NewDeclare(day("2025-01-10"), elsa),
		NewAcquire(day("2025-01-10"), elsa.Key(), NearMint, 3, M(decimal.RequireFromString("3.333"), "USD")),
	)
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, l.NewSnapshot(day("2025-01-20"))))
	assert.Contains(t, buf.String(), ",3,3.333,USD,")

	txs, err := ImportCSV(&buf, ImportDefaults{Date: day("2025-01-20")})
	require.NoError(t, err)
	back := newTestLedger(t, txs...).NewSnapshot(day("2025-01-20"))
	assert.True(t, back.CostBasis(elsa.Key()).Equal(M(decimal.RequireFromString("9.999"), "USD")), "got %v", back.CostBasis(elsa.Key()))
}
