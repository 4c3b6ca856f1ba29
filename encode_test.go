package cardvault

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeTransaction(t *testing.T) {
	k := elsa.Key()
	testCases := []struct {
		tx   Transaction
		want string
	}{
		{
			tx:   NewAcquire(day("2025-01-10"), k, NearMint, 2, USD(10)),
			want: `{"command":"acquire","date":"2025-01-10","key":"lorcana/1/42/normal/en","condition":"NM","quantity":2,"cost":{"amount":10,"currency":"USD"}}`,
		},
		{
			tx:   NewDispose(day("2025-01-10"), k, LightlyPlayed, 1, Money{}),
			want: `{"command":"dispose","date":"2025-01-10","key":"lorcana/1/42/normal/en","condition":"LP","quantity":1}`,
		},
		{
			tx:   NewUpdatePrice(day("2025-01-11"), k, USD(12.5)),
			want: `{"command":"update-price","date":"2025-01-11","currency":"USD","prices":{"lorcana/1/42/normal/en":12.5}}`,
		},
		{
			tx:   NewList(day("2025-01-12"), "ct-1", "cardtrader", k, NearMint, 1, USD(20)),
			want: `{"command":"list","date":"2025-01-12","key":"lorcana/1/42/normal/en","condition":"NM","quantity":1,"listing":"ct-1","marketplace":"cardtrader","price":{"amount":20,"currency":"USD"}}`,
		},
		{
			tx:   NewDelist(day("2025-01-13"), "ct-1"),
			want: `{"command":"delist","date":"2025-01-13","listing":"ct-1"}`,
		},
		{
			tx:   NewDeclare(day("2025-01-10"), mickey),
			want: `{"command":"declare","date":"2025-01-10","key":"lorcana/1/12/normal/en","printing":{"game":"lorcana","set":"1","number":"12","name":"Mickey Mouse - Brave Little Tailor","finish":"normal","language":"en"}}`,
		},
	}
	for _, tc := range testCases {
		t.Run(string(tc.tx.What()), func(t *testing.T) {
			got, err := EncodeTransaction(tc.tx)
			if err != nil {
				t.Fatalf("EncodeTransaction() unexpected error: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("EncodeTransaction() =\n%s\nwant\n%s", got, tc.want)
			}
			back, err := DecodeTransaction(got)
			if err != nil {
				t.Fatalf("DecodeTransaction() unexpected error: %v", err)
			}
			if !back.Equal(tc.tx) {
				t.Errorf("DecodeTransaction() = %#v, want %#v", back, tc.tx)
			}
		})
	}
}

func TestDecodeLedger(t *testing.T) {
	input := `{"command":"declare","date":"2025-01-10","printing":{"game":"lorcana","set":"1","number":"42","name":"Elsa"}}

{"command":"acquire","date":"2025-01-10","key":"lorcana/1/42/normal/en","quantity":2,"cost":3.5}
`
	l, err := DecodeLedger(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeLedger() unexpected error: %v", err)
	}
	if l.Len() != 2 {
		t.Fatalf("DecodeLedger() has %d transactions, want 2", l.Len())
	}
	var got []CommandType
	for _, tx := range l.Transactions() {
		got = append(got, tx.What())
	}
	if diff := cmp.Diff([]CommandType{CmdDeclare, CmdAcquire}, got); diff != "" {
		t.Errorf("DecodeLedger() commands mismatch (-want +got):\n%s", diff)
	}
	if _, ok := l.Printing(PrintingKey("lorcana/1/42/normal/en")); !ok {
		t.Errorf("DecodeLedger() did not register the declared printing")
	}

	var buf bytes.Buffer
	if err := EncodeLedger(&buf, l); err != nil {
		t.Fatalf("EncodeLedger() unexpected error: %v", err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Errorf("EncodeLedger() wrote %d lines, want 2", n)
	}
}

func TestDecodeLedger_errors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "unknown command", input: `{"command":"buy","date":"2025-01-01"}`, want: "line 1: unknown command"},
		{name: "bad json", input: "\n{\"command\":", want: "line 2:"},
		{name: "bad date", input: `{"command":"delist","date":"01/02/2025","listing":"x"}`, want: "line 1: invalid delist"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeLedger(strings.NewReader(tc.input))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("DecodeLedger() error = %v, want containing %q", err, tc.want)
			}
		})
	}
}
