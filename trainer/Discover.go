package trainer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/samuelfneumann/drivelearn/utils/clock"
)

// Default intervals between discovery attempts
const (
	DefaultPollInterval  = 5 * time.Second
	DefaultRetryInterval = 5 * time.Second
)

// IPFile returns the path of the file in which the trainer of an
// experiment advertises its addresses
func IPFile(dataDir, experiment string) string {
	return filepath.Join(dataDir, "trainer_ip", experiment, "trainer_ip.txt")
}

// Discovery finds a live trainer from the addresses it advertises in
// a file
type Discovery struct {
	Path    string
	Port    int
	AgentID uuid.UUID
	HTTP    HTTPClient
	Clock   clock.Clock
	Logger  zerolog.Logger

	PollInterval  time.Duration // Wait between reads of a missing file
	RetryInterval time.Duration // Wait after every address failed a ping
}

// NewDiscovery returns a Discovery of the trainer of an experiment
// with default intervals
func NewDiscovery(dataDir, experiment string, port int, agentID uuid.UUID,
	client HTTPClient, c clock.Clock, logger zerolog.Logger) *Discovery {
	return &Discovery{
		Path:          IPFile(dataDir, experiment),
		Port:          port,
		AgentID:       agentID,
		HTTP:          client,
		Clock:         c,
		Logger:        logger.With().Str("component", "discovery").Logger(),
		PollInterval:  DefaultPollInterval,
		RetryInterval: DefaultRetryInterval,
	}
}

// Discover blocks until one of the advertised trainers answers a ping
// and returns a Client of it. Discovery only stops when ctx is done.
func (d *Discovery) Discover(ctx context.Context) (*Client, error) {
	addrs, err := d.waitForAddresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	for cycle := 1; ; cycle++ {
		for _, addr := range addrs {
			client := NewClient(fmt.Sprintf("http://%v:%d", addr, d.Port),
				d.HTTP, d.AgentID)
			if err := client.Ping(ctx); err != nil {
				d.Logger.Debug().Err(err).Str("addr", addr).Msg("ping failed")
				continue
			}
			d.Logger.Info().Str("url", client.URL()).Msg("found trainer")
			return client, nil
		}

		d.Logger.Warn().Int("cycle", cycle).Strs("addrs", addrs).
			Msg("no trainer answered")
		if err := clock.Wait(ctx, d.Clock, d.RetryInterval); err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}
	}
}

// waitForAddresses polls the address file until it exists and lists
// at least one address
func (d *Discovery) waitForAddresses(ctx context.Context) ([]string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		addrs, err := ReadAddresses(d.Path)
		switch {
		case err == nil && len(addrs) > 0:
			return addrs, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}

		d.Logger.Info().Str("path", d.Path).Msg("waiting for trainer address")
		if err := clock.Wait(ctx, d.Clock, d.PollInterval); err != nil {
			return nil, err
		}
	}
}

// ReadAddresses returns the whitespace separated addresses in the
// file at path
func ReadAddresses(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(data)), nil
}
