package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"specimen-gauge/internal/config"
	"specimen-gauge/internal/session"

	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
)

var (
	liveFlags  annotationFlags
	liveReload bool
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Preview the camera with live measurement; c captures, s saves, d discards, q quits",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		window := gocv.NewWindow("specimen-gauge")
		defer window.Close()

		persister, release, err := openPersister(ctx)
		if err != nil {
			return err
		}
		defer release()

		sess, err := startLive(ctx, window)
		if err != nil {
			return err
		}
		defer func() { sess.End() }()

		var changed <-chan struct{}
		if liveReload {
			w, err := config.NewWatcher(cfg.Path(), 500*time.Millisecond, logger)
			if err != nil {
				logger.Warnw("cli: config reload disabled", "error", err)
			} else {
				w.Start()
				defer w.Stop()
				changed = w.C
				logger.Infow("cli: watching config", "path", cfg.Path())
			}
		}

		var (
			pending      *session.Capture
			reloadWanted bool
		)
		defer func() { pending.Close() }()

		for ctx.Err() == nil {
			select {
			case <-changed:
				reloadWanted = true
			default:
			}
			if reloadWanted && pending == nil {
				reloadWanted = false
				next, err := reloadLive(ctx, sess, window)
				switch {
				case err != nil && sess.State() == session.Idle:
					return err
				case err != nil:
					logger.Warnw("cli: config reload failed, keeping current settings", "error", err)
				default:
					sess = next
				}
			}

			if _, err := sess.Tick(ctx); errors.Is(err, session.ErrDeviceRead) {
				return err
			}

			switch key := window.WaitKey(int(cfg.TickInterval().Milliseconds())); key {
			case 'q', 27:
				return nil
			case 'c':
				if pending != nil {
					fmt.Println("A capture is pending; press s to save or d to discard")
					continue
				}
				if pending, err = sess.Capture(); err != nil {
					logger.Warnw("cli: capture", "error", err)
				}
			case 's':
				if pending == nil {
					continue
				}
				if persister == nil {
					fmt.Println("No store configured; discarding")
					_ = sess.Discard()
				} else if err := sess.Persist(ctx, persister, liveFlags.annotation()); err != nil {
					fmt.Printf("Save failed, capture kept: %v\n", err)
					continue
				} else {
					fmt.Printf("Saved %s\n", pending.ID)
				}
				pending.Close()
				pending = nil
			case 'd':
				if pending != nil {
					_ = sess.Discard()
					pending.Close()
					pending = nil
				}
			}
		}
		return ctx.Err()
	},
}

func startLive(ctx context.Context, window *gocv.Window) (*session.Session, error) {
	opts, err := sessionOptions(cfg.Overlay)
	if err != nil {
		return nil, err
	}
	opts.Display = windowDisplay{window}

	sess, err := session.New(session.OpenCamera(cfg.Camera), opts)
	if err != nil {
		return nil, err
	}
	sess.On(session.EventCaptured, func(data interface{}) {
		c := data.(*session.Capture)
		fmt.Printf("Captured %s: %s\n", c.ID, c.Result)
	})
	sess.On(session.EventDeviceError, func(data interface{}) {
		logger.Errorw("cli: camera failed", "camera", cfg.Camera, "error", data)
	})
	if err := sess.Start(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

// reloadLive reloads the config and restarts the session with it. On
// failure the old config and session stay in place.
func reloadLive(ctx context.Context, old *session.Session, window *gocv.Window) (*session.Session, error) {
	next, err := config.Load(cfg.Path())
	if err != nil {
		return nil, err
	}
	prev := cfg
	cfg = next
	if _, err := sessionOptions(cfg.Overlay); err != nil {
		cfg = prev
		return nil, err
	}

	if err := old.End(); err != nil {
		logger.Warnw("cli: ending session for reload", "error", err)
	}
	sess, err := startLive(ctx, window)
	if err != nil {
		// Camera settings may have changed; fall back to the previous ones.
		cfg = prev
		sess, err = startLive(ctx, window)
		if err != nil {
			return nil, err
		}
	}
	logger.Infow("cli: config reloaded", "rig", cfg.Rig, "strategy", cfg.Strategy, "policy", cfg.Policy)
	return sess, nil
}

type windowDisplay struct {
	w *gocv.Window
}

func (d windowDisplay) Show(frame gocv.Mat) {
	d.w.IMShow(frame)
}

func init() {
	liveFlags.register(liveCmd)
	liveCmd.Flags().BoolVar(&liveReload, "reload", false, "Restart the preview when the config file changes")
	rootCmd.AddCommand(liveCmd)
}
