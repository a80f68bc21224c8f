package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"flowbot/pkg/channel"
	"flowbot/pkg/channel/messenger"
	"flowbot/pkg/config"
)

const (
	defaultHost = "0.0.0.0"
	defaultPort = 8080

	webhookBodyLimit = 1 << 20
)

// Service hosts the webhook HTTP front and supervises polling channels.
type Service struct {
	cfg       *config.Config
	log       *slog.Logger
	messenger *messenger.Adapter
	pollers   []channel.Poller
}

// NewService wires the gateway. At least one channel must be present.
func NewService(cfg *config.Config, messengerAdapter *messenger.Adapter, pollers []channel.Poller, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if messengerAdapter == nil && len(pollers) == 0 {
		return nil, errors.New("no channels are enabled")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		cfg:       cfg,
		log:       log.With("component", "gateway.service"),
		messenger: messengerAdapter,
		pollers:   pollers,
	}, nil
}

// Router builds the HTTP routes: health, webhook verification handshake,
// and webhook delivery.
func (s *Service) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)
	if s.messenger != nil {
		router.GET("/webhook/messenger", s.handleVerify)
		router.POST("/webhook/messenger", s.handleWebhook)
	}

	return router
}

func (s *Service) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleVerify answers the Messenger webhook subscription handshake by
// echoing the challenge when the verify token matches.
func (s *Service) handleVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	if mode != "subscribe" || token == "" || token != s.cfg.Channels.Messenger.VerifyToken {
		c.Status(http.StatusForbidden)
		return
	}

	c.String(http.StatusOK, c.Query("hub.challenge"))
}

// handleWebhook feeds one delivery into the messenger adapter. The
// adapter never raises; the endpoint always acknowledges so the platform
// does not redeliver.
func (s *Service) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
	if err != nil {
		s.log.Debug("Failed to read webhook body", "error", err)
		c.Status(http.StatusOK)
		return
	}

	s.messenger.HandleEvent(c.Request.Context(), body)
	c.Status(http.StatusOK)
}

// Run serves HTTP and runs pollers until the context is canceled or a
// component fails.
func (s *Service) Run(ctx context.Context) error {
	host := s.cfg.Gateway.Host
	if host == "" {
		host = defaultHost
	}
	port := s.cfg.Gateway.Port
	if port == 0 {
		port = defaultPort
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info("Gateway listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	pollerErrors := make(chan error, len(s.pollers))
	for _, poller := range s.pollers {
		go func() {
			if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				pollerErrors <- fmt.Errorf("run %s channel: %w", poller.Name(), err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErrors:
	case runErr = <-pollerErrors:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("Gateway shutdown incomplete", "error", err)
	}

	return runErr
}
