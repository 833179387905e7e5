package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/resale-hub/internal/config"
	"github.com/benvon/resale-hub/internal/services/oidc"
	"github.com/spf13/cobra"
)

type discoveryDocument struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// NewOIDCCheckCmd verifies the configured identity provider is reachable and publishes signing keys.
func NewOIDCCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "oidc-check",
		Short: "Check the OIDC issuer and JWKS endpoint",
		Long:  "Fetch the issuer's discovery document and the configured JWKS to confirm operator tokens can be verified.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			client := &http.Client{Timeout: 10 * time.Second}

			discoveryURL := strings.TrimSuffix(cfg.OIDCIssuer, "/") + "/.well-known/openid-configuration"
			fmt.Fprintf(out, "Issuer: %s\n", cfg.OIDCIssuer)
			fmt.Fprintf(out, "Fetching discovery document: %s\n", discoveryURL)
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, discoveryURL, nil)
			if err != nil {
				return fmt.Errorf("build discovery request: %w", err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("failed to reach discovery endpoint: %w", err)
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("discovery endpoint returned status: %d", resp.StatusCode)
			}
			var doc discoveryDocument
			if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
				return fmt.Errorf("decode discovery document: %w", err)
			}
			if doc.Issuer != cfg.OIDCIssuer {
				fmt.Fprintf(out, "Warning: discovery issuer %q differs from OIDC_ISSUER\n", doc.Issuer)
			}
			if doc.JWKSURI != "" && doc.JWKSURI != cfg.OIDCJWKSURL {
				fmt.Fprintf(out, "Warning: discovery jwks_uri %q differs from OIDC_JWKS_URL\n", doc.JWKSURI)
			}

			fmt.Fprintf(out, "Fetching JWKS: %s\n", cfg.OIDCJWKSURL)
			set, err := oidc.NewJWKSManager(client).GetJWKS(cmd.Context(), cfg.OIDCJWKSURL)
			if err != nil {
				return fmt.Errorf("fetch jwks: %w", err)
			}
			if set.Len() == 0 {
				return fmt.Errorf("JWKS at %s has no keys", cfg.OIDCJWKSURL)
			}
			fmt.Fprintf(out, "OK: %d signing key(s) available\n", set.Len())
			return nil
		},
	}
}
