package cmd

import (
	"strings"
	"testing"
	"text/template"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/date"
)

func TestGeneratePeriods(t *testing.T) {
	all := []date.Period{date.Daily, date.Weekly, date.Monthly, date.Quarterly, date.Yearly}
	tests := []struct {
		name          string
		from, to      string
		wantDaily     int
		wantWeekly    int
		wantMonthly   int
		wantQuarterly int
		wantYearly    int
	}{
		{
			name:          "single day",
			from:          "2025-08-15",
			to:            "2025-08-15",
			wantDaily:     1,
			wantWeekly:    1,
			wantMonthly:   1,
			wantQuarterly: 1,
			wantYearly:    1,
		},
		{
			name:          "multi-week, single-month",
			from:          "2025-08-10",
			to:            "2025-08-25",
			wantDaily:     16,
			wantWeekly:    4, // W32, W33, W34, W35
			wantMonthly:   1,
			wantQuarterly: 1,
			wantYearly:    1,
		},
		{
			name:          "cross-year boundary",
			from:          "2024-12-15",
			to:            "2025-01-15",
			wantDaily:     32,
			wantWeekly:    6, // W50, W51, W52 (2024), W1, W2, W3 (2025)
			wantMonthly:   2,
			wantQuarterly: 2,
			wantYearly:    2,
		},
		{
			name:          "full year",
			from:          "2023-01-01",
			to:            "2023-12-31",
			wantDaily:     365,
			wantWeekly:    53,
			wantMonthly:   12,
			wantQuarterly: 4,
			wantYearly:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := generatePeriods(date.MustParse(tt.from), date.MustParse(tt.to), all...)
			count := make(map[date.Period]int)
			for _, task := range tasks {
				if task.Report != "holding" {
					t.Errorf("generatePeriods() got report %q, want holding", task.Report)
				}
				count[task.Period]++
			}
			want := map[date.Period]int{
				date.Daily:     tt.wantDaily,
				date.Weekly:    tt.wantWeekly,
				date.Monthly:   tt.wantMonthly,
				date.Quarterly: tt.wantQuarterly,
				date.Yearly:    tt.wantYearly,
			}
			for p, n := range want {
				if count[p] != n {
					t.Errorf("generatePeriods() got %d %s ranges, want %d", count[p], p, n)
				}
			}
		})
	}

	if got := generatePeriods(date.Date{}, date.MustParse("2025-01-01"), all...); len(got) != 0 {
		t.Errorf("generatePeriods() of an empty collection = %v, want none", got)
	}
}

func TestRenderFrontMatter(t *testing.T) {
	monthly := reportTask{
		Collection: "binder",
		Report:     "holding",
		Period:     date.Monthly,
		Range:      date.NewRange(date.MustParse("2025-01-10"), date.Monthly),
	}
	tests := []struct {
		name     string
		template string
		task     reportTask
		want     string
		wantErr  bool
	}{
		{
			name:     "basic template",
			template: "---\ntitle: {{.Collection}} {{.Report}} for {{.Identifier}}\n---",
			task:     monthly,
			want:     "---\ntitle: binder holding for 2025-01\n---",
		},
		{
			name: "api",
			template: `
{{.Period}}: The period of the report.
{{.Range.From}}: The start date of the report.
{{.Range.To}}: The end date of the report.
{{.Range.To.Format "January 06"}}: A formatted string of the end date.`,
			task: reportTask{Report: "holding", Period: date.Weekly, Range: date.NewRange(date.MustParse("2025-01-01"), date.Weekly)},
			want: `
weekly: The period of the report.
2024-12-30: The start date of the report.
2025-01-05: The end date of the report.
January 25: A formatted string of the end date.`,
		},
		{
			name:     "empty template",
			template: "",
			task:     monthly,
			want:     "",
		},
		{
			name:     "template with error",
			template: "{{.NonExistentField}}",
			task:     monthly,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := template.New("test").Parse(tt.template)
			if err != nil {
				t.Fatalf("failed to parse template: %v", err)
			}

			got, err := renderFrontMatter(tpl, tt.task)
			if (err != nil) != tt.wantErr {
				t.Errorf("renderFrontMatter() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("renderFrontMatter() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPublishCollection(t *testing.T) {
	elsa := cardvault.Printing{Game: cardvault.Lorcana, Set: "1", Number: "42", Name: "Elsa - Spirit of Winter"}
	l := cardvault.NewLedger("binder")
	d := date.MustParse("2025-01-10")
	if _, err := l.Apply(
		cardvault.NewDeclare(d, elsa),
		cardvault.NewAcquire(d, elsa.Key(), cardvault.NearMint, 2, cardvault.M(10, "USD")),
	); err != nil {
		t.Fatal(err)
	}

	tpl := template.Must(template.New("fm").Parse("---\ntitle: {{.Identifier}}\n---"))
	files, err := publishCollection(l, generatePeriods(d, date.MustParse("2025-02-01"), date.Monthly), tpl)
	if err != nil {
		t.Fatalf("publishCollection() error = %v", err)
	}

	for _, name := range []string{"holding/monthly/2025-01.md", "holding/monthly/2025-02.md", "listings.md", "binder.jsonl"} {
		if _, ok := files[name]; !ok {
			t.Errorf("publishCollection() misses %s", name)
		}
	}
	if got := string(files["holding/monthly/2025-01.md"]); !strings.HasPrefix(got, "---\ntitle: 2025-01\n---\n") {
		t.Errorf("holding report does not start with its front matter: %q", got)
	}
	if got := strings.Count(string(files["binder.jsonl"]), "\n"); got != 2 {
		t.Errorf("binder.jsonl has %d lines, want 2", got)
	}
}
