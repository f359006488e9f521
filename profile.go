package main

import (
	"log/slog"

	"github.com/pkg/profile"

	"github.com/sambeau/filtr/log"
)

var profileModes = map[string]func(*profile.Profile){
	"cpu": profile.CPUProfile,
	"mem": profile.MemProfile,
}

// startProfile starts profiling in mode, writing into dir. The returned
// function stops it. An empty or unknown mode does nothing.
func startProfile(mode, dir string, logger log.Logger) (stop func()) {
	fn, ok := profileModes[mode]
	if !ok {
		return func() {}
	}

	logger.Debug("profile start", slog.String("mode", mode), slog.String("dir", dir))
	p := profile.Start(fn, profile.ProfilePath(dir), profile.Quiet, profile.NoShutdownHook)

	return func() {
		p.Stop()
		logger.Info("profile written", slog.String("mode", mode), slog.String("dir", dir))
	}
}
