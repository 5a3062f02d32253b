package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xyzj/cherrybot/excel"
	"github.com/xyzj/cherrybot/llms/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "export every stored conversation to an xlsx file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := storage.New(&cfg.Storage)
		if err != nil {
			return err
		}
		defer store.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		convs, err := store.List(ctx)
		if err != nil {
			return err
		}
		fd, err := excel.NewConversationBook(args[0], convs)
		if err != nil {
			return err
		}
		fn, err := fd.ToFile("")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d conversations exported to %s\n", len(convs), fn)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "cherrybot "+version)
	},
}
