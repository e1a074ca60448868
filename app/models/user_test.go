package models

import "testing"

func TestHashAPIKeyIsDeterministic(t *testing.T) {
	a := HashAPIKey("lk_live_abc123")
	b := HashAPIKey("lk_live_abc123")
	if a != b {
		t.Fatalf("same key hashed to different values: %s vs %s", a, b)
	}
	if a == HashAPIKey("lk_live_other") {
		t.Fatalf("different keys must not collide")
	}
	if len(a) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(a))
	}
}

func TestHasExternalSubscription(t *testing.T) {
	var u User
	if u.HasExternalSubscription() {
		t.Fatalf("zero user must not report a linked subscription")
	}

	empty := ""
	u.ExternalSubscriptionID = &empty
	if u.HasExternalSubscription() {
		t.Fatalf("empty subscription id must not count as linked")
	}

	id := "sub_123"
	u.ExternalSubscriptionID = &id
	if !u.HasExternalSubscription() {
		t.Fatalf("user with subscription id must report linked")
	}
}
