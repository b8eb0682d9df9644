package textutil

import "testing"

func TestNormalizeWhitespace(t *testing.T) {
	if got := NormalizeWhitespace("  多个\t空白\n字符  "); got != "多个 空白 字符" {
		t.Errorf("got %q", got)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"第一句。第二句！第三句？", 3},
		{"First. Second sentence.", 2},
		{"没有终结符的残句", 1},
		{"", 0},
	}
	for _, tt := range tests {
		if got := SplitSentences(tt.text); len(got) != tt.want {
			t.Errorf("SplitSentences(%q) = %v, want %d sentences", tt.text, got, tt.want)
		}
	}
}

func TestTakeSentences(t *testing.T) {
	if got := TakeSentences("一。二。三。", 2); got != "一。 二。" {
		t.Errorf("got %q", got)
	}
	if got := FirstSentence("只有一句"); got != "只有一句" {
		t.Errorf("got %q", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("卷积神经网络", 2); got != "卷积" {
		t.Errorf("got %q", got)
	}
	if got := TruncateRunes("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
}

func TestBulletJoin(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		want  string
	}{
		{"basic", []string{"第一点", "第二点"}, "- 第一点\n- 第二点"},
		{"skips empty items", []string{"", "仅此一点", ""}, "- 仅此一点"},
		{"all empty", []string{"", ""}, ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BulletJoin(tt.items); got != tt.want {
				t.Errorf("BulletJoin(%v) = %q, want %q", tt.items, got, tt.want)
			}
		})
	}
}
