package settings

import "testing"

func TestAccountKey(t *testing.T) {
	got := AccountKey("acc-1", FeatureLocale)
	want := "account:acc-1:locale"
	if got != want {
		t.Fatalf("AccountKey = %q, want %q", got, want)
	}
}

func TestValidFeature(t *testing.T) {
	for _, feature := range []string{FeatureEmailNotifications, FeatureLocale, FeatureTimezone} {
		if !ValidFeature(feature) {
			t.Errorf("ValidFeature(%q) = false, want true", feature)
		}
	}
	for _, feature := range []string{"", "push_tokens", "locale ", "account:x:locale"} {
		if ValidFeature(feature) {
			t.Errorf("ValidFeature(%q) = true, want false", feature)
		}
	}
}
