package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/assetpipe"
	"github.com/gogpu/assetpipe/bitmap"
	"github.com/gogpu/assetpipe/pressure"
	"github.com/gogpu/assetpipe/queue"
)

// retryDelay is how long a rejected file waits before resubmitting.
const retryDelay = 10 * time.Millisecond

type resolveFlags struct {
	budget   int
	queueDir string
	jobs     int
}

func newResolveCmd(c *cli) *cobra.Command {
	var f resolveFlags

	cmd := &cobra.Command{
		Use:   "resolve FILE...",
		Short: "Encode image files and queue each distinct payload once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("budget") {
				f.budget = c.cfg.BudgetBytes
			}
			if f.queueDir == "" {
				f.queueDir = c.cfg.Queue.Dir
			}
			return c.resolve(cmd, f, args)
		},
	}

	cmd.Flags().IntVar(&f.budget, "budget", 0, "raw pixel byte budget per image (default from config)")
	cmd.Flags().StringVar(&f.queueDir, "queue-dir", "", "badger queue directory (default in-memory)")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 8, "files decoded concurrently")
	return cmd
}

func openQueue(c *cli, dir string) (*queue.Badger, error) {
	if dir == "" {
		return queue.OpenBadgerInMemory(queue.WithLogger(c.logger()))
	}
	return queue.OpenBadger(dir, queue.WithLogger(c.logger()))
}

func (c *cli) resolve(cmd *cobra.Command, f resolveFlags, files []string) error {
	q, err := openQueue(c, f.queueDir)
	if err != nil {
		return err
	}
	defer q.Close()

	p, err := assetpipe.New(q, c.cfg.Options()...)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if c.cfg.MemoryPollInterval > 0 {
		w := pressure.NewWatcher(p.MemoryCoordinator(), nil, c.cfg.MemoryPollInterval)
		go func() { _ = w.Run(ctx) }()
	}

	out := cmd.OutOrStdout()
	var (
		mu     sync.Mutex
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, f.jobs))
	for _, file := range files {
		g.Go(func() error {
			r, err := resolveFile(gctx, p, file, f.budget)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case r.OK():
				fmt.Fprintf(out, "%s\t%s\n", r.ID, file)
			case r.Err != nil:
				failed++
				fmt.Fprintf(out, "-\t%s\t%s: %v\n", file, r.Status, r.Err)
			default:
				failed++
				fmt.Fprintf(out, "-\t%s\t%s\n", file, r.Status)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s := p.Stats()
	c.logger().Info("resolve finished",
		"files", len(files), "encodes", s.Encodes, "deliveries", s.Deliveries, "duplicates", s.Duplicates)
	if failed > 0 {
		return fmt.Errorf("%d of %d files produced no identifier", failed, len(files))
	}
	return nil
}

func resolveFile(ctx context.Context, p *assetpipe.Pipeline, path string, budget int) (assetpipe.Result, error) {
	fh, err := os.Open(path)
	if err != nil {
		return assetpipe.Result{}, err
	}
	defer fh.Close()

	buf, err := bitmap.Decode(fh)
	if err != nil {
		return assetpipe.Result{}, fmt.Errorf("%s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	for {
		r, err := p.Submit(assetpipe.NewBitmapAsset(abs, "", buf), budget).Wait(ctx)
		if err != nil {
			return assetpipe.Result{}, err
		}
		// Saturated pools reject instead of blocking; wait for room.
		if r.Status != assetpipe.StatusRejected || errors.Is(r.Err, assetpipe.ErrClosed) {
			return r, nil
		}
		select {
		case <-ctx.Done():
			return assetpipe.Result{}, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}
