package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/core/format"
	"github.com/brazyl/brazyl/internal/delivery"
)

var (
	notifyUser    string
	notifyTitle   string
	notifyMessage string
	notifyAt      string
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Create a notification, sent now or at --at",
	Run:   runNotify,
}

func init() {
	notifyCmd.Flags().StringVar(&notifyUser, "user", "", "recipient user id")
	notifyCmd.Flags().StringVar(&notifyTitle, "title", "", "notification title")
	notifyCmd.Flags().StringVar(&notifyMessage, "message", "", "notification body")
	notifyCmd.Flags().StringVar(&notifyAt, "at", "", `schedule time, RFC3339 or "DD/MM/YYYY HH:MM" in Brasília time`)
	_ = notifyCmd.MarkFlagRequired("user")
	_ = notifyCmd.MarkFlagRequired("title")
	_ = notifyCmd.MarkFlagRequired("message")
	rootCmd.AddCommand(notifyCmd)
}

// parseScheduleTime accepts RFC3339 or the Brazilian day-first layout.
func parseScheduleTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("02/01/2006 15:04", s, format.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule time %q", s)
	}
	return t, nil
}

func runNotify(cmd *cobra.Command, args []string) {
	cfg := setup(cmd)

	req := delivery.CreateRequest{
		UserID:   notifyUser,
		Title:    notifyTitle,
		Message:  notifyMessage,
		Delivery: domain.DeliverNow,
	}
	if notifyAt != "" {
		at, err := parseScheduleTime(notifyAt)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		req.Delivery = domain.DeliverScheduled
		req.ScheduledFor = at
	}

	ctx, cancel := commandContext()
	defer cancel()

	app := newApp(ctx, cfg)
	defer func() {
		_ = app.Close()
	}()

	id, err := app.Service.Create(ctx, req)

	var gwErr *delivery.DeliveryGatewayError
	var unresolved *delivery.RecipientUnresolvedError
	switch {
	case errors.Is(err, delivery.ErrUserNotFound):
		fmt.Printf("User %s not found\n", notifyUser)
		os.Exit(1)
	case errors.As(err, &unresolved):
		fmt.Printf("Notification %s failed: user has no WhatsApp number\n", id)
		os.Exit(1)
	case errors.As(err, &gwErr):
		fmt.Printf("Notification %s failed: %v\n", id, gwErr.Err)
		os.Exit(1)
	case err != nil:
		slog.Error("Failed to create notification", "error", err)
		os.Exit(1)
	}

	if req.Delivery == domain.DeliverScheduled {
		fmt.Printf("Notification %s scheduled for %s\n", id, format.DateTimeBR(req.ScheduledFor))
		return
	}
	fmt.Printf("Notification %s delivered\n", id)
}
