// Package scope opens instrument.Scope implementations by model name.
package scope

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ul-gh/hdscope/domain/instrument"
	"github.com/ul-gh/hdscope/infrastructure/scope/rigol"
	"github.com/ul-gh/hdscope/infrastructure/scope/rth"
	"github.com/ul-gh/hdscope/infrastructure/scope/sim"
	"github.com/ul-gh/hdscope/infrastructure/scpi"
)

// ErrUnknownModel indicates a model name no driver serves.
var ErrUnknownModel = errors.New("unknown scope model")

// Model selects a driver.
type Model string

// Supported models.
const (
	ModelAuto  Model = "auto"
	ModelRigol Model = "rigol"
	ModelRTH   Model = "rth"
	ModelSim   Model = "sim"
)

// ParseModel normalises a model name. An empty name means ModelAuto.
func ParseModel(s string) (Model, error) {
	m := Model(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "":
		return ModelAuto, nil
	case ModelAuto, ModelRigol, ModelRTH, ModelSim:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
}

// Options tune how a scope is opened.
type Options struct {
	Timeout  time.Duration
	Channels int
	Logger   *slog.Logger
}

// Open connects to resource with the driver for model. ModelAuto queries
// *IDN? and picks the driver from the manufacturer.
func Open(ctx context.Context, resource string, model Model, opts Options) (instrument.Scope, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if model == ModelSim {
		simOpts := []sim.Option{}
		if opts.Channels > 0 {
			simOpts = append(simOpts, sim.WithChannels(opts.Channels))
		}
		return sim.New(simOpts...), nil
	}
	if model != ModelAuto && model != ModelRigol && model != ModelRTH {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}

	res, err := scpi.ParseResource(resource)
	if err != nil {
		return nil, err
	}
	if model == ModelRTH && res.PortDefaulted() {
		res = res.WithPort(rth.DefaultPort)
	}
	conn, err := scpi.Dial(ctx, res, scpi.WithTimeout(opts.Timeout), scpi.WithLogger(opts.Logger))
	if err != nil {
		return nil, err
	}

	if model == ModelAuto {
		model, err = detect(ctx, conn)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	opts.Logger.Info("instrument opened", slog.String("resource", res.String()), slog.String("model", string(model)))

	if model == ModelRTH {
		return rth.New(conn, opts.Channels), nil
	}
	return rigol.New(conn, opts.Channels), nil
}

func detect(ctx context.Context, conn *scpi.Conn) (Model, error) {
	reply, err := conn.Query(ctx, "*IDN?")
	if err != nil {
		return "", fmt.Errorf("detect model: %w", err)
	}
	id, err := instrument.ParseIdentity(reply)
	if err != nil {
		return "", fmt.Errorf("detect model: %w", err)
	}
	switch {
	case id.IsRigol():
		return ModelRigol, nil
	case id.IsRohdeSchwarz():
		return ModelRTH, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownModel, id)
}
