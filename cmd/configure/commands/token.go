package commands

import (
	"fmt"
	"strings"

	"authlink/internal/config"
	"authlink/internal/token"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewTokenCmd creates the token command with issue and inspect subcommands.
// Both use the TOKEN_SECRET the service itself signs with, so issued tokens
// are accepted by the API and API tokens can be inspected here.
func NewTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect signed tokens",
		Long:  "Issue tokens for testing and support work, or inspect a token's claims.",
	}
	cmd.AddCommand(newTokenIssueCmd())
	cmd.AddCommand(newTokenInspectCmd())
	return cmd
}

func newTokenIssueCmd() *cobra.Command {
	var sub string
	var email string
	var provider string
	var ttl string
	var extraClaims []string
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a signed token",
		Long:  "Sign a token with the configured secret. The TTL defaults to the service's TOKEN_TTL.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sub = strings.TrimSpace(sub)
			if sub == "" {
				return fmt.Errorf("--sub is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			claims := map[string]any{"sub": sub}
			if email != "" {
				claims["email"] = email
			}
			if provider != "" {
				claims["provider"] = provider
			}
			for _, kv := range extraClaims {
				key, value, ok := strings.Cut(kv, "=")
				if !ok || key == "" {
					return fmt.Errorf("invalid --claim %q (expected key=value)", kv)
				}
				claims[key] = value
			}
			if ttl == "" {
				ttl = cfg.TokenTTL
			}
			signed, err := token.Sign(claims, cfg.TokenSecret, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Println(signed)
			return nil
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "", "Subject claim, the user ID (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringVar(&provider, "provider", "", "Provider claim")
	cmd.Flags().StringVar(&ttl, "ttl", "", "Token lifetime, e.g. 45s, 1h, 7d, 2w (default: TOKEN_TTL)")
	cmd.Flags().StringArrayVar(&extraClaims, "claim", nil, "Additional claim as key=value (repeatable)")
	return cmd
}

func newTokenInspectCmd() *cobra.Command {
	var tokenString string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Verify a token and print its claims",
		Long:  "Check the token's signature and expiry against the configured secret and print the claims as YAML.",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenString = strings.TrimSpace(tokenString)
			if tokenString == "" {
				return fmt.Errorf("--token is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			claims, err := token.Verify(tokenString, cfg.TokenSecret)
			if err != nil {
				return fmt.Errorf("verify token: %w", err)
			}
			out, err := yaml.Marshal(claims)
			if err != nil {
				return fmt.Errorf("render claims: %w", err)
			}
			fmt.Println("Token is valid. Claims:")
			fmt.Print(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&tokenString, "token", "", "Token string to inspect (required)")
	return cmd
}
