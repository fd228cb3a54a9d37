package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/core/format"
	"github.com/brazyl/brazyl/internal/infra/storage"
)

var (
	userName  string
	userPhone string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage subscribers",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a subscriber by WhatsApp number",
	Run:   runUserAdd,
}

func init() {
	userAddCmd.Flags().StringVar(&userName, "name", "", "subscriber name")
	userAddCmd.Flags().StringVar(&userPhone, "phone", "", "WhatsApp number, any format")
	_ = userAddCmd.MarkFlagRequired("name")
	_ = userAddCmd.MarkFlagRequired("phone")
	userCmd.AddCommand(userAddCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)
	ctx, cancel := commandContext()
	defer cancel()

	app := newApp(ctx, cfg)
	defer func() {
		_ = app.Close()
	}()

	u := &domain.User{
		Name:           userName,
		WhatsAppNumber: format.WhatsAppNumber(userPhone),
		Active:         true,
	}

	err := app.Users.Create(ctx, u)
	var dup *storage.DuplicateKeyError
	if errors.As(err, &dup) {
		fmt.Printf("WhatsApp number %s is already registered\n", u.WhatsAppNumber)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("Failed to create user", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Created user %s (%s)\n", u.ID, u.WhatsAppNumber)
}
