package vault

import (
	"context"
	"testing"

	"liquidity-matrix-bot/config"
)

// TestSeededCredentials tests the disabled-Vault path serving the seeded
// cache.
func TestSeededCredentials(t *testing.T) {
	client, err := NewClient(config.VaultConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Expected no error for a disabled vault client, got %v", err)
	}

	client.Seed(Credentials{
		TwelveDataKey: "test-key",
		TelegramToken: "test-token",
		TelegramChat:  "12345",
	})

	creds, err := client.GetCredentials(context.Background())
	if err != nil {
		t.Fatalf("Expected seeded credentials, got error %v", err)
	}
	if creds.TwelveDataKey != "test-key" {
		t.Errorf("Expected the seeded feed key, got %q", creds.TwelveDataKey)
	}
	if creds.TelegramChat != "12345" {
		t.Errorf("Expected the seeded chat ID, got %q", creds.TelegramChat)
	}
}

// TestDisabledVaultWithoutSeed tests that a disabled client without seeded
// credentials reports an error instead of empty secrets.
func TestDisabledVaultWithoutSeed(t *testing.T) {
	client, err := NewClient(config.VaultConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Expected no error for a disabled vault client, got %v", err)
	}

	if _, err := client.GetCredentials(context.Background()); err == nil {
		t.Error("Expected an error when nothing was seeded and vault is disabled")
	}
}
