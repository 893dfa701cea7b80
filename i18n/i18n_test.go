package i18n

import "testing"

func TestPassthroughWithoutInit(t *testing.T) {
	po = nil
	if got := T("Translation failed"); got != "Translation failed" {
		t.Fatalf("T() = %q", got)
	}
}

func TestChineseCatalog(t *testing.T) {
	Init("zh_CN")
	t.Cleanup(func() { po = nil })

	if got := T("Original text restored"); got != "已恢复原文" {
		t.Fatalf("T() = %q", got)
	}
	// Untranslated strings pass through.
	if got := T("no such msgid"); got != "no such msgid" {
		t.Fatalf("T() = %q", got)
	}
}

func TestUnknownLanguageFallsThrough(t *testing.T) {
	Init("xx_YY")
	t.Cleanup(func() { po = nil })

	if got := T("Translation failed"); got != "Translation failed" {
		t.Fatalf("T() = %q", got)
	}
}
