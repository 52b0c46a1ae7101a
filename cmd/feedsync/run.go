package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"feed-sync/internal/canonical"
	"feed-sync/internal/config"
	"feed-sync/internal/delivery"
	"feed-sync/internal/domain"
	"feed-sync/internal/export"
	"feed-sync/internal/logging"
	"feed-sync/internal/metrics"
	"feed-sync/internal/objectstore"
	"feed-sync/internal/providers/canvas"
	"feed-sync/internal/providers/jex"
	"feed-sync/internal/reconcile"
	"feed-sync/internal/sftpclient"
)

func execute(cmd *cobra.Command, o *options, feed domain.FeedType) error {
	ctx := cmd.Context()

	if err := config.LoadEnvFile(o.envFile); err != nil {
		return err
	}
	cfg := config.Load()
	if o.outDir != "" {
		cfg.OutDir = o.outDir
	}
	cfg.BlueprintCourseID = resolveBlueprint(cfg.BlueprintCourseID, o.blueprint, o.noBlueprint)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer func() { _ = log.Sync() }()

	today, err := parseToday(o.today, time.Now())
	if err != nil {
		return err
	}

	terms := canonical.DefaultTerms
	if cfg.TermsFile != "" {
		if terms, err = canonical.LoadTermTable(cfg.TermsFile); err != nil {
			return err
		}
	}

	sinks, err := buildSinks(o, cfg)
	if err != nil {
		return err
	}

	sis, err := jex.Open(ctx, cfg.SISDriver, cfg.SISDSN)
	if err != nil {
		return err
	}
	defer sis.Close()
	sis.Divisions = cfg.SISDivisions

	p := &reconcile.Pipeline{
		Source: sis,
		Target: canvas.New(cfg.CanvasBaseURL, cfg.CanvasToken, cfg.CanvasAccountID, cfg.CanvasRatePerSec),
		Terms:  terms,
		Logger: log,
	}

	rec := metrics.New()
	start := time.Now()

	res, err := p.Run(ctx, feed, reconcile.CourseOptions{Today: today, BlueprintCourseID: cfg.BlueprintCourseID})
	if err != nil {
		rec.ObserveFailure(feed.Slug())
		writeMetrics(log, rec, cfg.MetricsTextfile)
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), res.CSV)

	if !o.stdoutOnly {
		pub := &delivery.Publisher{Dir: cfg.OutDir, Sinks: sinks, Logger: log}
		rep, err := pub.Publish(ctx, export.FeedFileName(cfg.CanvasBaseURL, feed, today), []byte(res.CSV))
		if rep.LocalPath != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), rep.LocalPath)
		}
		if err != nil {
			rec.ObserveFailure(feed.Slug())
			writeMetrics(log, rec, cfg.MetricsTextfile)
			return err
		}
	}

	rec.Observe(feed.Slug(), res.Fetched, len(res.Rows), res.Excluded, time.Since(start))
	writeMetrics(log, rec, cfg.MetricsTextfile)
	return nil
}

func buildSinks(o *options, cfg config.Config) ([]delivery.Sink, error) {
	if o.stdoutOnly {
		return nil, nil
	}

	var sinks []delivery.Sink
	if o.sftp {
		if err := cfg.SFTP.Validate(); err != nil {
			return nil, err
		}
		sinks = append(sinks, delivery.SFTPSink{Config: sftpclient.Config{
			Host:                  cfg.SFTP.Host,
			Port:                  cfg.SFTP.Port,
			User:                  cfg.SFTP.User,
			Pass:                  cfg.SFTP.Pass,
			RemoteDir:             cfg.SFTP.Dir,
			KnownHostsFile:        cfg.SFTP.KnownHostsFile,
			InsecureIgnoreHostKey: cfg.SFTP.InsecureIgnoreHostKey,
		}})
	}
	if o.s3 {
		if err := cfg.S3.Validate(); err != nil {
			return nil, err
		}
		sinks = append(sinks, delivery.S3Sink{Uploader: objectstore.NewS3(cfg.S3)})
	}
	return sinks, nil
}

// parseToday reads --today as a calendar date in local time; empty means now.
func parseToday(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("--today: want YYYY-MM-DD: %w", err)
	}
	return d, nil
}

// resolveBlueprint applies the command line over the environment value.
func resolveBlueprint(fromEnv, flag string, disabled bool) string {
	switch {
	case disabled:
		return ""
	case flag != "":
		return flag
	}
	return fromEnv
}

func writeMetrics(log *zap.Logger, rec *metrics.Recorder, path string) {
	if err := rec.WriteTextfile(path); err != nil {
		log.Warn("metrics textfile not written", zap.String("path", path), zap.Error(err))
	}
}
