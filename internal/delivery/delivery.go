// Package delivery persists a generated feed locally and hands it to remote sinks.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"go.uber.org/zap"

	"feed-sync/internal/concurrency"
	"feed-sync/internal/export"
	"feed-sync/internal/objectstore"
	"feed-sync/internal/sftpclient"
)

// Sink is a remote destination for a finished feed file.
type Sink interface {
	Name() string
	// Deliver stores payload under name and returns where it landed.
	Deliver(ctx context.Context, name string, payload []byte) (string, error)
}

// Report lists where a feed was written. Locations is keyed by sink name.
type Report struct {
	LocalPath string
	Locations map[string]string
}

type Publisher struct {
	Dir    string
	Sinks  []Sink
	Logger *zap.Logger
}

// Publish writes the local copy first; remote sinks run only after it exists.
// Sink failures are joined; successful sinks still appear in the report.
func (p *Publisher) Publish(ctx context.Context, name string, payload []byte) (Report, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}

	local, err := export.WriteFeedFile(p.Dir, name, payload)
	if err != nil {
		return Report{}, err
	}
	rep := Report{LocalPath: local, Locations: map[string]string{}}
	log.Info("feed file written", zap.String("path", local), zap.Int("bytes", len(payload)))

	var mu sync.Mutex
	errs := concurrency.ForEach(ctx, p.Sinks, concurrency.DefaultOptions(), func(ctx context.Context, _ int, s Sink) error {
		loc, err := s.Deliver(ctx, name, payload)
		if err != nil {
			log.Warn("delivery failed", zap.String("sink", s.Name()), zap.Error(err))
			return fmt.Errorf("deliver to %s: %w", s.Name(), err)
		}
		log.Info("feed delivered", zap.String("sink", s.Name()), zap.String("location", loc))
		mu.Lock()
		rep.Locations[s.Name()] = loc
		mu.Unlock()
		return nil
	})
	return rep, errors.Join(errs...)
}

type SFTPSink struct {
	Config sftpclient.Config
}

func (s SFTPSink) Name() string { return "sftp" }

func (s SFTPSink) Deliver(ctx context.Context, name string, payload []byte) (string, error) {
	if err := sftpclient.Upload(ctx, s.Config, name, bytes.NewReader(payload)); err != nil {
		return "", err
	}
	dir := s.Config.RemoteDir
	if dir == "" {
		dir = "/"
	}
	return fmt.Sprintf("sftp://%s%s", s.Config.Host, path.Join(dir, name)), nil
}

type S3Sink struct {
	Uploader *objectstore.Uploader
}

func (s S3Sink) Name() string { return "s3" }

func (s S3Sink) Deliver(ctx context.Context, name string, payload []byte) (string, error) {
	return s.Uploader.Upload(ctx, name, payload)
}
