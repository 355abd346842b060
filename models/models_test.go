package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/legit-games/oauth2-core"
)

func TestClientVerifyPassword(t *testing.T) {
	c := &Client{ID: "c1", Secret: "s1"}
	if !c.VerifyPassword("s1") {
		t.Fatal("expected matching secret to verify")
	}
	if c.VerifyPassword("s2") || c.VerifyPassword("") {
		t.Fatal("expected mismatching secret to fail")
	}
	if c.IsPublic() {
		t.Fatal("client with a secret is confidential")
	}

	pub := &Client{ID: "p1"}
	if pub.VerifyPassword("") {
		t.Fatal("public client must never verify a secret")
	}
	if !pub.IsPublic() {
		t.Fatal("client without secret is public")
	}
}

func TestClientAllowsGrant(t *testing.T) {
	c := &Client{GrantTypes: []oauth2.GrantType{oauth2.AuthorizationCode, oauth2.Refreshing}}
	if !c.AllowsGrant(oauth2.Refreshing) {
		t.Fatal("refresh_token should be allowed")
	}
	if c.AllowsGrant(oauth2.ClientCredentials) {
		t.Fatal("client_credentials should not be allowed")
	}
}

func TestTokenExpiry(t *testing.T) {
	now := time.Now()
	tok := &Token{
		CodeCreateAt:     now.Add(-10 * time.Minute),
		CodeExpiresIn:    5 * time.Minute,
		AccessCreateAt:   now,
		AccessExpiresIn:  time.Hour,
		RefreshCreateAt:  now.Add(-time.Hour),
		RefreshExpiresIn: 0,
	}
	if !CodeExpired(tok, now) {
		t.Fatal("code should be expired")
	}
	if AccessExpired(tok, now) {
		t.Fatal("access should be valid")
	}
	if !AccessExpired(tok, now.Add(time.Hour)) {
		t.Fatal("access should expire exactly at its deadline")
	}
	if RefreshExpired(tok, now.Add(1000*time.Hour)) {
		t.Fatal("zero refresh lifetime never expires")
	}
}

func TestUserJSONOmitsPasswordHash(t *testing.T) {
	b, err := json.Marshal(&User{ID: "1", Username: "alice", PasswordHash: "$2a$10$x"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if _, ok := out["PasswordHash"]; ok {
		t.Fatal("password hash must not be serialized")
	}
}
