package conversation

import "testing"

func TestTitleFromQuestion(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{"short question kept whole", "What is SSR?", "What is SSR?"},
		{"empty", "", ""},
		{"whitespace trimmed", "  hi  ", "hi"},
		{"cut at word boundary", "How do I configure middleware in my app", "How do I configure"},
		{"exactly at limit", "12345678901234567890", "12345678901234567890"},
		{"no boundary in range falls back to hard cut", "Whatisaverylongunbrokenquestionword", "Whatisaverylongunbro"},
		{"multibyte runes", "怎麼在應用程式裡設定中介軟體與路由規則呢請告訴我", "怎麼在應用程式裡設定中介軟體與路由規則"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TitleFromQuestion(tt.question)
			if got != tt.want {
				t.Errorf("TitleFromQuestion(%q) = %q, want %q", tt.question, got, tt.want)
			}
			if n := len([]rune(got)); n > TitleMaxRunes {
				t.Errorf("title %q is %d runes, max %d", got, n, TitleMaxRunes)
			}
		})
	}
}
