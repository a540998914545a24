package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvload/internal/trigger"
	"github.com/JonMunkholm/csvload/internal/web"
)

func lambdaCommand() *cobra.Command {
	return &cobra.Command{
		Args:  cobra.NoArgs,
		Use:   "lambda",
		Short: "handle SQS batches of file notifications as an AWS Lambda function",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}

			handler := trigger.NewSQSHandler(a.svc)
			lambda.StartWithOptions(handler.Handle,
				lambda.WithContext(ctx),
				lambda.WithEnableSIGTERM(a.close),
			)
			return nil
		},
	}
}

func consumeCommand() *cobra.Command {
	return &cobra.Command{
		Args:  cobra.NoArgs,
		Use:   "consume",
		Short: "process file notifications from a Kafka topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			consumer, err := trigger.NewKafkaConsumer(a.cfg.Kafka, a.svc)
			if err != nil {
				return err
			}
			defer func() {
				if err := consumer.Close(); err != nil {
					slog.Warn("failed to close consumer", "error", err)
				}
			}()

			slog.Info("consumer starting",
				"brokers", a.cfg.Kafka.Brokers,
				"topic", a.cfg.Kafka.Topic,
				"group", a.cfg.Kafka.GroupID,
			)
			err = consumer.Run(ctx)

			slog.Info("shutting down...")
			a.drain(a.cfg.Server.ShutdownTimeout)
			return err
		},
	}
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Args:  cobra.NoArgs,
		Use:   "serve",
		Short: "accept file notifications over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			server := web.NewServer(a.svc, a.svc.Limiter(), a.cfg.Server)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			slog.Info("shutting down...")
			a.drain(a.cfg.Server.ShutdownTimeout)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown error", "error", err)
			}
			return nil
		},
	}
}
