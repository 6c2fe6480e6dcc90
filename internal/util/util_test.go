package util

import (
	"encoding/base64"
	"strings"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestGetFingerprint(t *testing.T) {
	a := GetFingerprint([]byte("@font-face{}"), "inline_")
	b := GetFingerprint([]byte("@font-face{}"), "inline_")
	c := GetFingerprint([]byte("@font-face{ }"), "inline_")

	if a != b {
		t.Errorf("GetFingerprint() not stable: %v != %v", a, b)
	}
	if a == c {
		t.Errorf("GetFingerprint() collided for different content: %v", a)
	}
	if !strings.HasPrefix(a, "inline_") || len(a) != len("inline_")+12 {
		t.Errorf("GetFingerprint() = %v, want inline_ + 12 hex chars", a)
	}
}

func TestEncodeDataURL(t *testing.T) {
	got := EncodeDataURL("image/png", []byte("abc"))
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("abc"))
	if got != want {
		t.Errorf("EncodeDataURL() = %v, want %v", got, want)
	}
	if !IsDataURL(got) {
		t.Errorf("IsDataURL(%q) = false, want true", got)
	}
}

func TestGetMediaType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"image/png", "image/png"},
		{"Image/JPEG; charset=binary", "image/jpeg"},
		{"text/html;", "text/html"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := GetMediaType(tt.in); got != tt.want {
			t.Errorf("GetMediaType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLooksLikeFontURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://fonts.example/a.woff2", true},
		{"https://fonts.example/a.TTF?v=3", true},
		{"/fonts/icons.woff#iefix", true},
		{"https://img.example/bg.png", false},
		{"https://img.example/woff2", false},
	}
	for _, tt := range tests {
		if got := LooksLikeFontURL(tt.url); got != tt.want {
			t.Errorf("LooksLikeFontURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestSniffFont(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
		wantErr bool
	}{
		{"TrueType", goregular.TTF, "font/ttf", false},
		{"WOFF2", append([]byte("wOF2"), make([]byte, 16)...), "font/woff2", false},
		{"WOFF", append([]byte("wOFF"), make([]byte, 16)...), "font/woff", false},
		{"CorruptTrueType", []byte{0x00, 0x01, 0x00, 0x00, 0x01}, "", true},
		{"HTML", []byte("<!doctype html>"), "", true},
		{"Short", []byte("ab"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SniffFont(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SniffFont() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SniffFont() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCaptureLogKeepsMostRecent(t *testing.T) {
	l := NewCaptureLog(NopLogger{}, 3)
	for i := 0; i < 5; i++ {
		l.Infof("entry %d", i)
	}
	l.Errorf("boom")

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("len(Entries()) = %v, want %v", len(entries), 3)
	}
	if entries[0].Message != "entry 3" || entries[2].Message != "boom" {
		t.Errorf("Entries() = %+v, want entries 3, 4, boom", entries)
	}
	if entries[2].Level != "error" {
		t.Errorf("Level = %v, want error", entries[2].Level)
	}

	l.Clear()
	if n := len(l.Entries()); n != 0 {
		t.Errorf("len(Entries()) after Clear = %v, want 0", n)
	}
}
