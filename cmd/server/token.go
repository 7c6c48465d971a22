package main

import (
	"fmt"

	"github.com/dylantneal/eng.com-sub003/internal/auth"
	"github.com/dylantneal/eng.com-sub003/internal/config"
	"github.com/spf13/cobra"
)

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Выпустить JWT для локальной отладки",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
			}
			token, err := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).GenerateToken(userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "id пользователя")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
