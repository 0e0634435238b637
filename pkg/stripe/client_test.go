package stripe

import (
	"context"
	"testing"

	"github.com/danielhargrove/shopflow-backend/pkg/config"
)

func TestNewClientValidatesKeyAgainstEnv(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StripeConfig
		wantErr bool
	}{
		{name: "test env with test key", cfg: config.StripeConfig{APIKey: "sk_test_abc", Env: "test"}},
		{name: "live env with live key", cfg: config.StripeConfig{APIKey: "sk_live_abc", Env: "live"}},
		{name: "live env with test key", cfg: config.StripeConfig{APIKey: "sk_test_abc", Env: "live"}, wantErr: true},
		{name: "test env with live key", cfg: config.StripeConfig{APIKey: "sk_live_abc", Env: "test"}, wantErr: true},
		{name: "empty key", cfg: config.StripeConfig{Env: "test"}, wantErr: true},
		{name: "unknown env", cfg: config.StripeConfig{APIKey: "sk_test_abc", Env: "staging"}, wantErr: true},
		{name: "env defaults to test", cfg: config.StripeConfig{APIKey: "rk_test_abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tt.cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got client %+v", client)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.API() == nil {
				t.Fatalf("expected underlying api client")
			}
		})
	}
}

func TestSigningSecretNilSafe(t *testing.T) {
	var client *Client
	if client.SigningSecret() != "" {
		t.Fatalf("nil client should report empty signing secret")
	}
	if client.API() != nil {
		t.Fatalf("nil client should report nil api")
	}
}
