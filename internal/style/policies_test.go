package style

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildAllCombinations(t *testing.T) {
	details := []DetailLevel{DetailBrief, DetailMedium, DetailDetailed}
	tones := []Tone{ToneSimple, ToneExplanatory, ToneAcademic}
	languages := []Language{LangZH, LangEN}

	for _, d := range details {
		for _, tn := range tones {
			for _, lang := range languages {
				p, err := Build(d, tn, lang)
				if err != nil {
					t.Fatalf("Build(%s,%s,%s): %v", d, tn, lang, err)
				}
				if p.Text == "" {
					t.Errorf("Build(%s,%s,%s): empty instruction text", d, tn, lang)
				}
				if p.Directives.Language != lang {
					t.Errorf("Build(%s,%s,%s): language = %s", d, tn, lang, p.Directives.Language)
				}
				if p.Directives.PageHeaderTemplate == "" {
					t.Errorf("Build(%s,%s,%s): empty page header template", d, tn, lang)
				}
			}
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	a, err := Build(DetailMedium, ToneExplanatory, LangZH)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(DetailMedium, ToneExplanatory, LangZH)
	if err != nil {
		t.Fatal(err)
	}
	if a.Text != b.Text || a.ExampleSnippet != b.ExampleSnippet {
		t.Error("identical selections produced different profiles")
	}
	if a.Directives != b.Directives {
		t.Error("identical selections produced different directives")
	}
}

func TestBuildUnknownStyle(t *testing.T) {
	if _, err := Build("verbose", ToneSimple, LangZH); !errors.Is(err, ErrUnknownStyle) {
		t.Errorf("unknown detail: err = %v, want ErrUnknownStyle", err)
	}
	if _, err := Build(DetailBrief, "sarcastic", LangZH); !errors.Is(err, ErrUnknownStyle) {
		t.Errorf("unknown tone: err = %v, want ErrUnknownStyle", err)
	}
}

func TestBuildUnknownLanguageDefaultsToChinese(t *testing.T) {
	p, err := Build(DetailBrief, ToneSimple, "fr")
	if err != nil {
		t.Fatal(err)
	}
	if p.Directives.Language != LangZH {
		t.Errorf("language = %s, want zh", p.Directives.Language)
	}
	if !strings.Contains(p.Directives.PageHeaderTemplate, "第") {
		t.Errorf("page header template = %q, want Chinese form", p.Directives.PageHeaderTemplate)
	}
}

func TestDirectivesByDetail(t *testing.T) {
	tests := []struct {
		detail     DetailLevel
		summary    SummaryMode
		useTable   bool
		blockquote bool
	}{
		{DetailBrief, SummaryNone, false, false},
		{DetailMedium, SummaryTakeaway, true, true},
		{DetailDetailed, SummaryInsight, true, true},
	}
	for _, tt := range tests {
		p, err := Build(tt.detail, ToneExplanatory, LangZH)
		if err != nil {
			t.Fatal(err)
		}
		d := p.Directives
		if d.SummaryMode != tt.summary {
			t.Errorf("%s: summary mode = %s, want %s", tt.detail, d.SummaryMode, tt.summary)
		}
		if d.UseTable != tt.useTable {
			t.Errorf("%s: use table = %v, want %v", tt.detail, d.UseTable, tt.useTable)
		}
		if d.BlockquoteRequired != tt.blockquote {
			t.Errorf("%s: blockquote = %v, want %v", tt.detail, d.BlockquoteRequired, tt.blockquote)
		}
	}
}

func TestDirectivesByTone(t *testing.T) {
	tests := []struct {
		tone    Tone
		formula FormulaMode
		analogy bool
	}{
		{ToneSimple, FormulaLight, true},
		{ToneExplanatory, FormulaBalanced, false},
		{ToneAcademic, FormulaExtended, false},
	}
	for _, tt := range tests {
		p, err := Build(DetailMedium, tt.tone, LangZH)
		if err != nil {
			t.Fatal(err)
		}
		if p.Directives.FormulaMode != tt.formula {
			t.Errorf("%s: formula mode = %s, want %s", tt.tone, p.Directives.FormulaMode, tt.formula)
		}
		if p.Directives.AnalogyRequired != tt.analogy {
			t.Errorf("%s: analogy required = %v, want %v", tt.tone, p.Directives.AnalogyRequired, tt.analogy)
		}
	}
}

func TestPromptBlockMarkers(t *testing.T) {
	briefSimple, err := Build(DetailBrief, ToneSimple, LangZH)
	if err != nil {
		t.Fatal(err)
	}
	detailedAcademic, err := Build(DetailDetailed, ToneAcademic, LangZH)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(briefSimple.PromptBlock(), "打个比方") {
		t.Error("brief+simple prompt block missing analogy cue")
	}
	if strings.Contains(briefSimple.PromptBlock(), TableMarker) {
		t.Error("brief+simple prompt block should not request a comparison table")
	}
	if !strings.Contains(detailedAcademic.PromptBlock(), TableMarker) {
		t.Error("detailed+academic prompt block missing table skeleton")
	}
	if !strings.Contains(detailedAcademic.PromptBlock(), "> **"+InsightLabelZH) {
		t.Error("detailed+academic prompt block missing insight example")
	}
	if len(briefSimple.PromptBlock()) >= len(detailedAcademic.PromptBlock()) {
		t.Error("brief prompt block should be shorter than detailed one")
	}
}
