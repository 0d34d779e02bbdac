package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"appointment-booking/internal/booking"
	"appointment-booking/internal/catalog"
	"appointment-booking/internal/config"
	gweb "appointment-booking/internal/grpcweb"
	"appointment-booking/internal/handler"
	"appointment-booking/internal/httpapi"
	"appointment-booking/internal/logging"
	"appointment-booking/internal/metrics"
	"appointment-booking/internal/middleware"
	"appointment-booking/internal/photo"
	"appointment-booking/internal/session"
	"appointment-booking/internal/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Appointment booking service",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(doctorsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC server and the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the key-value table on the configured SQL backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, cfg.Env)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			// Open migrates SQL backends before returning
			st, err := store.Open(ctx, storeOptions(cfg))
			if err != nil {
				return err
			}
			defer st.Close()
			if _, ok := st.(store.Migrator); !ok {
				log.Info().Str("driver", cfg.StoreDriver).Msg("driver has no schema, nothing to migrate")
				return nil
			}
			log.Info().Str("driver", cfg.StoreDriver).Msg("migration applied")
			return nil
		},
	}
}

func doctorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctors",
		Short: "Print the doctor catalog, bookable dates and time slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.Default()
			out := cmd.OutOrStdout()
			for _, d := range cat.ListDoctors() {
				fmt.Fprintf(out, "%s\t%s\n", d.Name, d.Specialty)
			}
			fmt.Fprintf(out, "dates:\t%v\n", cat.BookableDates())
			fmt.Fprintf(out, "slots:\t%v\n", cat.ListTimeSlots())
			return nil
		},
	}
}

func storeOptions(cfg *config.Config) store.Options {
	return store.Options{
		Driver:        cfg.StoreDriver,
		SQLitePath:    cfg.StoreDSN,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		DatabaseURL:   cfg.DatabaseURL,
	}
}

func runServer(cfg *config.Config) error {
	log := logging.New(cfg.LogLevel, cfg.Env)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	st, err := store.Open(openCtx, storeOptions(cfg))
	cancel()
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()
	log.Info().Str("driver", cfg.StoreDriver).Msg("store ready")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	sessions := session.New(st, session.Options{
		Secret:  cfg.JWTSecret,
		TTL:     cfg.SessionTTL,
		Layout:  session.Layout(cfg.IdentityLayout),
		Metrics: m,
		Logger:  log,
	})
	engine := booking.NewEngine(st, catalog.Default(), m, log)

	photos, err := newPhotoStore(ctx, cfg, st, m, log)
	if err != nil {
		return err
	}

	// grpc server
	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go rl.Run(ctx)
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.UnaryLogger(logging.Component(log, "grpc")),
			middleware.RateLimit(rl),
			middleware.Auth(sessions),
		),
	)
	handler.Register(srv, handler.New(sessions, engine, log))

	lis, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("grpc listening")
		if err := srv.Serve(lis); err != nil {
			log.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	// grpc-web bridge -> forwards browser requests to grpc on localhost
	bridge, err := gweb.New("localhost:"+cfg.Port, log)
	if err != nil {
		return err
	}
	defer bridge.Close()

	httpSrv := &http.Server{
		Addr: ":" + cfg.WebPort,
		Handler: httpapi.New(httpapi.Config{
			Logger:        log,
			Sessions:      sessions,
			Photos:        photos,
			PhotoMaxBytes: cfg.PhotoMaxBytes,
			Store:         st,
			Bridge:        bridge.Handler(),
			Gatherer:      reg,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.WebPort).Msg("http listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	srv.GracefulStop()
	return nil
}

// newPhotoStore returns nil when no bucket is configured.
func newPhotoStore(ctx context.Context, cfg *config.Config, st store.Store, m *metrics.Metrics, log zerolog.Logger) (*photo.Store, error) {
	if cfg.PhotoBucket == "" {
		log.Info().Msg("PHOTO_BUCKET not set, identity photo upload disabled")
		return nil, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
			o.UsePathStyle = true
		}
	})
	return photo.NewStore(client, cfg.PhotoBucket, cfg.PhotoMaxBytes, st, m, log), nil
}
