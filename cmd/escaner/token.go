package main

import (
	"errors"

	"github.com/HectorPOsuna/escaner-red/internal/pkg/auth"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var agentID, hostname string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "为 Agent 签发上报令牌",
		RunE: func(cmd *cobra.Command, args []string) error {
			agentAuth := cfg.Security.AgentAuth
			if agentAuth.Secret == "" {
				return errors.New("security.agent_auth.secret is not configured")
			}

			manager := auth.NewAgentJWTManager(agentAuth.Secret, agentAuth.Issuer, agentAuth.TokenExpire)
			token, claims, err := manager.GenerateToken(agentID, hostname)
			if err != nil {
				return err
			}

			pterm.Info.Printfln("agent_id: %s", claims.AgentID)
			pterm.Info.Printfln("expires:  %s", claims.ExpiresAt.Time.Format("2006-01-02 15:04:05"))
			if !agentAuth.Enabled {
				pterm.Warning.Println("agent auth is disabled; the server will not check this token")
			}
			pterm.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent-id", "", "Agent ID (默认生成 UUID)")
	cmd.Flags().StringVar(&hostname, "hostname", "", "Agent 所在主机名")
	return cmd
}
