package server

import "testing"

func TestValidSignature(t *testing.T) {
	body := []byte(`{"action":"created"}`)

	if !validSignature(testSecret, body, sign(testSecret, body)) {
		t.Fatal("expected matching signature to verify")
	}
	if validSignature(testSecret, body, sign("other-secret", body)) {
		t.Fatal("expected signature with wrong secret to fail")
	}
	if validSignature(testSecret, body, "sha256=not-hex") {
		t.Fatal("expected malformed hex to fail")
	}
	if validSignature(testSecret, body, "") {
		t.Fatal("expected missing header to fail")
	}
	if validSignature(testSecret, body, "sha1=deadbeef") {
		t.Fatal("expected wrong scheme to fail")
	}
}

func TestEmptySecretDisablesVerification(t *testing.T) {
	if !validSignature("", []byte(`{}`), "") {
		t.Fatal("expected empty secret to skip verification")
	}
}
