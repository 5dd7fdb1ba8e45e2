package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"wedding-rsvp/internal/dispatcher"
	"wedding-rsvp/internal/phone"
)

// MessageHandler is a callback function for handling messages
type MessageHandler func(*events.Message) error

type Config struct {
	DataDir     string
	CountryCode string
	// InvitationImagePath, when set, is attached to invitations with the text as caption.
	InvitationImagePath string
}

type Service struct {
	client         *whatsmeow.Client
	cfg            *Config
	log            zerolog.Logger
	messageHandler MessageHandler

	image     []byte
	imageMime string
	uploadMu  sync.Mutex
	uploaded  *whatsmeow.UploadResponse
}

// NewService creates a new WhatsApp service
func NewService(ctx context.Context, cfg *Config, log zerolog.Logger) (*Service, error) {
	logger := log.With().Str("component", "WhatsApp").Logger()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	dbLog := waLog.Zerolog(logger.With().Str("module", "Database").Logger().Level(zerolog.WarnLevel))
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", cfg.DataDir), dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	clientLog := waLog.Zerolog(logger.With().Str("module", "Client").Logger().Level(zerolog.WarnLevel))
	client := whatsmeow.NewClient(deviceStore, clientLog)

	service := &Service{
		client: client,
		cfg:    cfg,
		log:    logger,
	}

	if cfg.InvitationImagePath != "" {
		data, err := os.ReadFile(cfg.InvitationImagePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read invitation image: %w", err)
		}
		service.image = data
		service.imageMime = http.DetectContentType(data)
	}

	client.AddEventHandler(func(evt interface{}) {
		service.eventHandler(evt)
	})

	return service, nil
}

// Connect connects to WhatsApp, showing a pairing QR code on first use.
func (s *Service) Connect() error {
	if s.client.Store.ID != nil {
		if err := s.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	}

	qrChan, _ := s.client.GetQRChannel(context.Background())
	if err := s.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	for evt := range qrChan {
		if evt.Event != "code" {
			s.log.Info().Str("event", evt.Event).Msg("Login event")
			continue
		}
		q, err := qrcode.New(evt.Code, qrcode.Medium)
		if err != nil {
			fmt.Printf("QR Code: %s\n", evt.Code)
			continue
		}
		fmt.Println("\n" + q.ToSmallString(false))
		fmt.Println("📱 Scan the QR code above with WhatsApp:")
		fmt.Println("   Settings > Linked Devices > Link a Device")
	}
	return nil
}

// Disconnect disconnects from WhatsApp
func (s *Service) Disconnect() {
	s.client.Disconnect()
}

// lookup asks WhatsApp whether p has an account and returns its JID.
func (s *Service) lookup(ctx context.Context, p string) (types.JID, bool, error) {
	resp, err := s.client.IsOnWhatsApp(ctx, []string{"+" + p})
	if err != nil {
		return types.JID{}, false, fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return types.JID{}, false, nil
	}
	return resp[0].JID, true, nil
}

// IsRegistered reports whether the phone number has a WhatsApp account.
func (s *Service) IsRegistered(ctx context.Context, phoneNumber string) (bool, error) {
	p := phone.Normalize(phoneNumber, s.cfg.CountryCode)
	if p == "" {
		return false, nil
	}
	_, ok, err := s.lookup(ctx, p)
	return ok, err
}

func (s *Service) resolve(ctx context.Context, phoneNumber string) (types.JID, error) {
	p := phone.Normalize(phoneNumber, s.cfg.CountryCode)
	if p == "" {
		return types.JID{}, fmt.Errorf("invalid phone number %q", phoneNumber)
	}
	jid, ok, err := s.lookup(ctx, p)
	if err != nil {
		return types.JID{}, err
	}
	if !ok {
		return types.JID{}, fmt.Errorf("number %s: %w", p, dispatcher.ErrNotRegistered)
	}
	return jid, nil
}

func (s *Service) send(ctx context.Context, jid types.JID, msg *waE2E.Message) error {
	s.log.Debug().Str("jid", jid.String()).Msg("Attempting to send message")

	sent, err := s.client.SendMessage(ctx, jid, msg)
	if err != nil {
		if strings.Contains(err.Error(), "unknown server") || strings.Contains(err.Error(), "can't send message") {
			return fmt.Errorf("failed to send message to %s: %w (the recipient may need to be in your contacts)", jid.String(), err)
		}
		return fmt.Errorf("failed to send message: %w", err)
	}

	s.log.Debug().Str("jid", jid.String()).Str("id", sent.ID).Time("timestamp", sent.Timestamp).Msg("Message sent")
	return nil
}

// SendMessage sends a simple text message
func (s *Service) SendMessage(ctx context.Context, phoneNumber, text string) error {
	jid, err := s.resolve(ctx, phoneNumber)
	if err != nil {
		return err
	}
	return s.send(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
}

// SendInvitation sends the invitation text, as the caption of the invitation
// image when one is configured.
func (s *Service) SendInvitation(ctx context.Context, phoneNumber, text string) error {
	jid, err := s.resolve(ctx, phoneNumber)
	if err != nil {
		return err
	}
	if len(s.image) == 0 {
		return s.send(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
	}

	up, err := s.uploadImage(ctx)
	if err != nil {
		return err
	}
	return s.send(ctx, jid, &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{
			Caption:       proto.String(text),
			Mimetype:      proto.String(s.imageMime),
			URL:           proto.String(up.URL),
			DirectPath:    proto.String(up.DirectPath),
			MediaKey:      up.MediaKey,
			FileEncSHA256: up.FileEncSHA256,
			FileSHA256:    up.FileSHA256,
			FileLength:    proto.Uint64(up.FileLength),
		},
	})
}

// uploadImage uploads the invitation image once and reuses the media reference.
func (s *Service) uploadImage(ctx context.Context) (*whatsmeow.UploadResponse, error) {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()

	if s.uploaded != nil {
		return s.uploaded, nil
	}
	resp, err := s.client.Upload(ctx, s.image, whatsmeow.MediaImage)
	if err != nil {
		return nil, fmt.Errorf("failed to upload invitation image: %w", err)
	}
	s.uploaded = &resp
	return s.uploaded, nil
}

// eventHandler handles incoming WhatsApp events
func (s *Service) eventHandler(evt interface{}) {
	if evt == nil {
		return
	}
	switch evt := evt.(type) {
	case *events.Message:
		s.handleMessage(evt)
	case *events.Connected:
		s.log.Info().Msg("Connected to WhatsApp")
	case *events.Disconnected:
		s.log.Info().Msg("Disconnected from WhatsApp")
	case *events.LoggedOut:
		s.log.Warn().Msg("Logged out from WhatsApp")
	}
}

// handleMessage processes incoming messages
func (s *Service) handleMessage(msg *events.Message) {
	if msg.Info.IsFromMe {
		return
	}

	if s.messageHandler == nil {
		s.log.Info().
			Str("sender", msg.Info.Sender.String()).
			Str("message", msg.Message.GetConversation()).
			Msg("Received message")
		return
	}
	if err := s.messageHandler(msg); err != nil {
		s.log.Error().Err(err).Msg("Error handling message")
	}
}

// SetMessageHandler sets a custom handler for incoming messages
func (s *Service) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}
