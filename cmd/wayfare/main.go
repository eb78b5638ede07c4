package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "wayfare",
	Short: "Wayfare collaborative trip planning API",
	Long:  "Wayfare is a REST backend for planning trips together: shared trips with per-member roles and permissions, invitations, and an activity feed of everything that changes.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/wayfare.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
