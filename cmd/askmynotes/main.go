package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/askmynotes/backend/config"
	srv "github.com/askmynotes/backend/internal/server"
	"github.com/askmynotes/backend/internal/vectorstore/qdrant"
)

func main() {
	var root = &cobra.Command{Use: "askmynotes"}

	root.AddCommand(serveCMD(), resetCMD())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCMD() *cobra.Command {
	var cfgPath string
	var addr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the study copilot HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			return srv.Run(cfg)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	serve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return serve
}

func resetCMD() *cobra.Command {
	var cfgPath string
	var reset = &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the vector collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			store := qdrant.New(qdrant.Config{
				URL:        cfg.Qdrant.URL(),
				APIKey:     cfg.Qdrant.APIKey,
				Collection: cfg.Qdrant.Collection,
				Timeout:    cfg.Qdrant.Timeout,
			})
			if err := store.Reset(context.Background(), cfg.OpenAI.EmbeddingDimension); err != nil {
				return err
			}
			fmt.Printf("collection %s reset\n", cfg.Qdrant.Collection)
			return nil
		},
	}
	reset.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return reset
}
