package cli

import (
	"context"

	"specimen-gauge/internal/config"
	"specimen-gauge/internal/measure"
	"specimen-gauge/internal/narrative"
	"specimen-gauge/internal/rank"
	"specimen-gauge/internal/segment"
	"specimen-gauge/internal/session"
	"specimen-gauge/internal/store"

	"github.com/spf13/cobra"
)

// annotationFlags are shared by every command that persists.
type annotationFlags struct {
	note         string
	operator     string
	patient      string
	excised      bool
	observations string
}

func (a *annotationFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&a.note, "note", "", "Physician note stored with the sample")
	f.StringVar(&a.operator, "operator", "", "Operator name stored with the sample")
	f.StringVar(&a.patient, "patient", "", "Patient CPF; unknown CPFs store the sample unlinked")
	f.BoolVar(&a.excised, "excised", false, "Specimen was already removed from the patient")
	f.StringVar(&a.observations, "observations", "", "Observations passed to the narrative model")
}

func (a *annotationFlags) annotation() session.Annotation {
	return session.Annotation{
		Note:         a.note,
		Operator:     a.operator,
		PatientRef:   a.patient,
		Excised:      a.excised,
		Observations: a.observations,
	}
}

// sessionOptions builds session options from the loaded config.
func sessionOptions(overlay bool) (session.Options, error) {
	prof, err := cfg.Profile()
	if err != nil {
		return session.Options{}, err
	}
	strategy, err := segment.New(cfg.Strategy)
	if err != nil {
		return session.Options{}, err
	}
	policy, err := rank.ParsePolicy(cfg.Policy)
	if err != nil {
		return session.Options{}, err
	}
	opts := session.Options{
		Profile:  prof,
		Strategy: strategy,
		Policy:   policy,
		Engine:   measure.NewEngine(measure.Options{Overlay: overlay, Logger: logger}),
		Logger:   logger,
	}
	if cfg.Gemini.Enabled && cfg.Gemini.APIKey != "" {
		opts.Narrator = narrative.NewGemini(cfg.Gemini.APIKey, cfg.Gemini.Model)
	} else if cfg.Gemini.Enabled {
		logger.Warnw("cli: narrative enabled but GEMINI_API_KEY is not set")
	}
	return opts, nil
}

// openPersister returns the configured store and a release func.
func openPersister(ctx context.Context) (session.Persister, func(), error) {
	switch cfg.Store.Kind {
	case config.StorePostgres:
		pg, err := store.OpenPG(ctx, cfg.Store.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case config.StoreDir:
		d, err := store.NewDirStore(cfg.Store.Dir)
		if err != nil {
			return nil, nil, err
		}
		return d, func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
