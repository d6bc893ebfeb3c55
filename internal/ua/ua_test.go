package ua

import "testing"

func TestParse_DesktopChrome(t *testing.T) {
	raw := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.6422.60 Safari/537.36"
	info := Parse(raw)
	if info.Browser != "Chrome" {
		t.Fatalf("browser = %q", info.Browser)
	}
	if info.Device != "Desktop" {
		t.Fatalf("device = %q", info.Device)
	}
	if info.IsBot {
		t.Fatalf("not a bot")
	}
}

func TestParse_Bot(t *testing.T) {
	info := Parse("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	if !info.IsBot {
		t.Fatalf("googlebot should be a bot: %+v", info)
	}
}
