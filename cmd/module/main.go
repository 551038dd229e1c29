// Package main starts the picar base as a viam module.
package main

import (
	"context"

	goutils "go.viam.com/utils"

	"go.viam.com/rdk/components/base"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/module"

	"github.com/viam-labs/picar/picar"
)

func main() {
	goutils.ContextualMain(mainWithArgs, module.NewLoggerFromArgs("picar"))
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	m, err := module.NewModuleFromArgs(ctx)
	if err != nil {
		return err
	}
	if err := m.AddModelFromRegistry(ctx, base.API, picar.Model); err != nil {
		return err
	}
	if err := m.Start(ctx); err != nil {
		return err
	}
	defer m.Close(ctx)
	<-ctx.Done()
	return nil
}
