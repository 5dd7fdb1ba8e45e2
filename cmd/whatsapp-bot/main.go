package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"wedding-rsvp/internal/app"
	"wedding-rsvp/internal/classifier"
	"wedding-rsvp/internal/config"
	"wedding-rsvp/internal/conversation"
	"wedding-rsvp/internal/dispatcher"
	"wedding-rsvp/internal/handler"
	"wedding-rsvp/internal/logging"
	"wedding-rsvp/internal/messages"
	"wedding-rsvp/internal/models"
	"wedding-rsvp/internal/storage"
	"wedding-rsvp/internal/whatsapp"
)

func main() {
	dispatch := pflag.Bool("dispatch", false, "send the invitation to every pending guest after connecting")
	noCLI := pflag.Bool("no-cli", false, "run without the interactive menu")
	pflag.Parse()

	fmt.Println("🎉 Wedding WhatsApp RSVP Bot")
	fmt.Println("============================")

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deps, err := app.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up storage")
	}
	defer deps.Close()

	whatsappService, err := whatsapp.NewService(ctx, &whatsapp.Config{
		DataDir:             cfg.WhatsAppDataDir,
		CountryCode:         cfg.DefaultCountryCode,
		InvitationImagePath: cfg.InvitationImagePath,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize WhatsApp service")
	}

	templates := messages.NewTemplates(messages.Wedding{
		BrideName:     cfg.Wedding.BrideName,
		GroomName:     cfg.Wedding.GroomName,
		Date:          cfg.Wedding.Date,
		Location:      cfg.Wedding.Location,
		CalendarStart: cfg.Wedding.CalendarStart,
		CalendarEnd:   cfg.Wedding.CalendarEnd,
	}, cfg.ResetKeyword, cfg.MaxAttendees)

	engine := conversation.NewEngine(deps.Store, newClassifier(cfg, log), templates, cfg.MaxAttendees, log)

	invites := dispatcher.New(deps.Store, whatsappService, templates, dispatcher.Config{
		Delay:       cfg.DispatchDelay,
		CountryCode: cfg.DefaultCountryCode,
		OnDelivered: func(ctx context.Context, phone string) {
			if err := engine.Reopen(ctx, phone); err != nil {
				log.Warn().Err(err).Str("phone", phone).Msg("Failed to reopen dialogue after invitation")
			}
		},
	}, log)

	rsvpHandler := handler.NewRSVPHandler(whatsappService, engine, deps.Store, invites, cfg.DefaultCountryCode, log)
	whatsappService.SetMessageHandler(rsvpHandler.HandleMessage)

	fmt.Println("Connecting to WhatsApp...")
	if err := whatsappService.Connect(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to WhatsApp")
	}
	defer whatsappService.Disconnect()

	fmt.Println("\n✅ Connected to WhatsApp!")
	fmt.Println("The bot is now listening for RSVP responses.")

	if *dispatch {
		go func() {
			if _, err := invites.RunPending(ctx); err != nil {
				log.Error().Err(err).Msg("Dispatch failed")
			}
		}()
	}

	if !*noCLI {
		go startCLI(ctx, cancel, rsvpHandler, invites, deps.Store)
	}

	<-ctx.Done()
	fmt.Println("\n\nShutting down...")
	fmt.Println("Goodbye! 👋")
}

func newClassifier(cfg *config.Config, log zerolog.Logger) *classifier.Classifier {
	var fuzzy classifier.Fuzzy
	if cfg.LLM.Enabled {
		fuzzy = classifier.NewLLM(classifier.LLMConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		})
		log.Info().Str("model", cfg.LLM.Model).Str("base_url", cfg.LLM.BaseURL).Msg("Fuzzy classifier enabled")
	}
	return classifier.New(cfg.ResetKeyword, fuzzy, cfg.LLM.Timeout, log)
}

func startCLI(ctx context.Context, stop context.CancelFunc, rsvpHandler *handler.RSVPHandler, invites *dispatcher.Dispatcher, store storage.Store) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Println("\nCommands:")
		fmt.Println("  1. Send invitation")
		fmt.Println("  2. View all guests")
		fmt.Println("  3. View guests by status")
		fmt.Println("  4. Send invitation to all pending guests")
		fmt.Println("  5. Exit")
		fmt.Print("\nEnter command (1-5): ")

		if !scanner.Scan() {
			return
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			sendInvitation(ctx, scanner, rsvpHandler)
		case "2":
			viewAllGuests(ctx, store)
		case "3":
			viewGuestsByStatus(ctx, scanner, store)
		case "4":
			dispatchPending(ctx, invites)
		case "5":
			fmt.Println("Exiting...")
			stop()
			return
		default:
			fmt.Println("Invalid command. Please try again.")
		}
	}
}

func sendInvitation(ctx context.Context, scanner *bufio.Scanner, rsvpHandler *handler.RSVPHandler) {
	fmt.Print("Enter guest name: ")
	if !scanner.Scan() {
		return
	}
	name := strings.TrimSpace(scanner.Text())

	fmt.Print("Enter phone number (e.g., 050-1234567): ")
	if !scanner.Scan() {
		return
	}
	phoneNumber := strings.TrimSpace(scanner.Text())

	fmt.Printf("\nSending invitation to %s (%s)...\n", name, phoneNumber)
	if err := rsvpHandler.SendInvitation(ctx, phoneNumber, name); err != nil {
		fmt.Printf("❌ Error sending invitation: %v\n", err)
	} else {
		fmt.Printf("✅ Invitation sent successfully!\n")
	}
}

func dispatchPending(ctx context.Context, invites *dispatcher.Dispatcher) {
	fmt.Println("\nSending invitations to pending guests...")
	report, err := invites.RunPending(ctx)
	if err != nil {
		fmt.Printf("❌ Error: %v\n", err)
		return
	}
	fmt.Printf("✅ Done: %d attempted, %d delivered, %d undelivered\n",
		report.Attempted, len(report.Delivered), len(report.Undelivered))
}

func printGuest(guest models.Guest) {
	fmt.Printf("Name: %s\n", guest.Name)
	fmt.Printf("Phone: %s\n", guest.PhoneNumber)
	fmt.Printf("Status: %s\n", guest.RSVPStatus)
	if guest.RSVPStatus == models.RSVPYes {
		fmt.Printf("Attendees: %d\n", guest.Attendees)
	}
	if !guest.UpdatedAt.IsZero() {
		fmt.Printf("Updated: %s\n", guest.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Println(strings.Repeat("-", 60))
}

func viewAllGuests(ctx context.Context, store storage.Store) {
	guests, err := store.ListGuests(ctx)
	if err != nil {
		fmt.Printf("❌ Error loading guests: %v\n", err)
		return
	}
	if len(guests) == 0 {
		fmt.Println("\nNo guests found.")
		return
	}

	fmt.Printf("\n📋 All Guests (%d total):\n", len(guests))
	fmt.Println(strings.Repeat("-", 60))
	for _, guest := range guests {
		printGuest(guest)
	}
}

func viewGuestsByStatus(ctx context.Context, scanner *bufio.Scanner, store storage.Store) {
	fmt.Println("\nSelect status:")
	for i, s := range models.Statuses {
		fmt.Printf("  %d. %s\n", i+1, s)
	}
	fmt.Printf("Enter choice (1-%d): ", len(models.Statuses))

	if !scanner.Scan() {
		return
	}

	var status models.RSVPStatus
	choice := strings.TrimSpace(scanner.Text())
	for i, s := range models.Statuses {
		if choice == fmt.Sprint(i+1) {
			status = s
		}
	}
	if status == "" {
		fmt.Println("Invalid choice.")
		return
	}

	guests, err := store.ListGuests(ctx)
	if err != nil {
		fmt.Printf("❌ Error loading guests: %v\n", err)
		return
	}
	group := models.Summarize(guests)[status]
	if len(group.Guests) == 0 {
		fmt.Printf("\nNo guests with status '%s'.\n", string(status))
		return
	}

	fmt.Printf("\n📋 Guests with status '%s' (%d total, %d people):\n", string(status), len(group.Guests), group.Total)
	fmt.Println(strings.Repeat("-", 60))
	for _, guest := range group.Guests {
		printGuest(guest)
	}
}
