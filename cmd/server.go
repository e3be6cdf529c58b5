package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	tb "gopkg.in/tucnak/telebot.v2"

	"golang.org/x/sync/errgroup"

	"github.com/soulgarden/topicbus/api"
	"github.com/soulgarden/topicbus/broker"
	"github.com/soulgarden/topicbus/conf"
	"github.com/soulgarden/topicbus/server"
	"github.com/soulgarden/topicbus/service"
)

const httpShutdownTimeout = 5 * time.Second

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the in-memory pub/sub broker",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := conf.New()

			defaultLogLevel := zerolog.InfoLevel
			if cfg.Debug {
				defaultLogLevel = zerolog.DebugLevel
			}

			logger := zerolog.New(os.Stdout).Level(defaultLogLevel).With().Timestamp().Caller().Logger()

			logger.Info().
				Str("host", cfg.Host).
				Int("port", cfg.Port).
				Int("max_subscriber_queue_size", cfg.MaxSubscriberQueueSize).
				Int("topic_history_size", cfg.TopicHistorySize).
				Int("shutdown_drain_sec", cfg.ShutdownDrainSec).
				Int("ping_interval_sec", cfg.PingIntervalSec).
				Bool("disconnect_slow_consumer", cfg.DisconnectSlowConsumer).
				Msg("starting pub/sub broker")

			brk := broker.New(cfg, &logger)

			cmdManager := service.NewManager(&logger)
			ctx, _ := cmdManager.ListenSignal()

			if cfg.Telegram.Token != "" {
				tgBot, err := tb.NewBot(tb.Settings{Token: cfg.Telegram.Token})
				if err != nil {
					logger.Err(err).Msg("new tg bot")

					return
				}

				tgSvc := service.NewTelegram(cfg, tgBot, &logger)

				go tgSvc.Start()

				tgSvc.SendAsync(fmt.Sprintf("env: %s, pub/sub broker starting", cfg.Env))
				defer tgSvc.SendSync(fmt.Sprintf("env: %s, pub/sub broker stopped", cfg.Env))
			}

			wsHandler := server.NewHandler(cfg, brk, &logger)

			if !cfg.Debug {
				gin.SetMode(gin.ReleaseMode)
			}

			router := gin.New()
			router.Use(gin.Recovery())

			api.SetupRoutes(router, brk, wsHandler.ServeWS)

			srv := &http.Server{
				Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, ctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Err(err).Msg("listen and serve")

					return err
				}

				return nil
			})

			g.Go(func() error {
				<-ctx.Done()

				service.NewShutdown(cfg, brk, &logger).Run()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
				defer cancel()

				return srv.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				logger.Err(err).Msg("wait goroutines")
			}
		},
	}
}
