// dualstrusion-go merges two single-extruder toolpaths into one
// dual-extrusion toolpath, or serves merges over JSON-RPC.
//
// Usage:
//
//	dualstrusion-go -left left.gcode -right right.gcode -out merged.gcode [options]
//	dualstrusion-go -serve :7130 [options]
//
// Options:
//
//	-config string   Machine profile (wipe stations, tool identities)
//	-machine string  Machine class: replicator, tom, generic
//	-wipes           Insert wipe blocks at each toolchange
//	-pause           Pause for operator confirmation at each toolchange
//	-no-progress     Do not insert M73 build progress
//	-logfile string  Log file path (default: stderr)
//	-loglevel string DEBUG, INFO, WARN, ERROR
//
// Examples:
//
//	# Merge with the profile's wipe stations
//	dualstrusion-go -config replicator.cfg -wipes -left a.gcode -right b.gcode -out ab.gcode
//
//	# Run the merge service
//	dualstrusion-go -config replicator.cfg -serve :7130
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dualstrusion-go/pkg/config"
	"dualstrusion-go/pkg/log"
	"dualstrusion-go/pkg/merge"
	"dualstrusion-go/pkg/server"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	left, right, out string
	configFile       string
	machine          string
	wipes, pause     bool
	noProgress       bool
	serve            string
	logFile          string
	logLevel         string
	set              map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("dualstrusion-go", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.left, "left", "", "Toolpath for the left extruder")
	fs.StringVar(&o.right, "right", "", "Toolpath for the right extruder")
	fs.StringVar(&o.out, "out", "-", "Merged output file ('-' for stdout)")
	fs.StringVar(&o.configFile, "config", "", "Machine profile")
	fs.StringVar(&o.machine, "machine", "", "Machine class: replicator, tom, generic")
	fs.BoolVar(&o.wipes, "wipes", false, "Insert wipe blocks at each toolchange")
	fs.BoolVar(&o.pause, "pause", false, "Pause for operator confirmation at each toolchange")
	fs.BoolVar(&o.noProgress, "no-progress", false, "Do not insert M73 build progress")
	fs.StringVar(&o.serve, "serve", "", "Serve merges on this address instead of merging files")
	fs.StringVar(&o.logFile, "logfile", "", "Log file path (default: stderr)")
	fs.StringVar(&o.logLevel, "loglevel", "", "Log level: DEBUG, INFO, WARN, ERROR")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	if o.serve == "" && (o.left == "" || o.right == "") {
		fs.Usage()
		return nil, fmt.Errorf("-left and -right are required unless -serve is given")
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	logger := log.New("dualstrusion")
	logger.SetWriter(stderr)
	if o.logFile != "" {
		fileLogger, w, err := log.NewFileLogger("dualstrusion", log.RotationConfig{Filename: o.logFile})
		if err != nil {
			fmt.Fprintf(stderr, "Error opening log file: %v\n", err)
			return 1
		}
		defer w.Close()
		logger = fileLogger
	}
	log.ConfigureFromEnv(logger)
	if o.logLevel != "" {
		logger.SetLevel(log.ParseLevel(o.logLevel))
	}

	opts, err := buildOptions(o, logger)
	if err != nil {
		logger.Error("%v", err)
		return 1
	}

	if o.serve != "" {
		return serve(o.serve, opts, logger)
	}
	return mergeFiles(o, opts, stdout, logger)
}

// buildOptions loads the profile and applies command line overrides.
func buildOptions(o *options, logger *log.Logger) (merge.Options, error) {
	profile := config.DefaultProfile()
	if o.configFile != "" {
		p, err := config.LoadProfile(o.configFile)
		if err != nil {
			return merge.Options{}, err
		}
		p.LogWarnings(logger)
		profile = p
		logger.Info("profile %s: machine %s", o.configFile, profile.Machine)
	}

	opts := profile.Options(logger)
	if o.set["machine"] {
		m, err := merge.ParseMachineClass(o.machine)
		if err != nil {
			return opts, err
		}
		opts.Machine = m
	}
	if o.set["wipes"] {
		opts.UseWipes = o.wipes
	}
	if o.set["pause"] {
		opts.PauseOnToolchange = o.pause
	}
	if o.noProgress {
		opts.Progress = merge.NoProgress
	}
	return opts, nil
}

func mergeFiles(o *options, opts merge.Options, stdout io.Writer, logger *log.Logger) int {
	res, err := merge.CombineFiles(o.left, o.right, opts)
	if err != nil {
		logger.Error("%v", err)
		return 1
	}
	if res.Degradation != nil {
		logger.Warn("%s disabled: %s (%s head)", res.Degradation.Feature, res.Degradation.Reason, res.Degradation.Head)
	}

	if o.out == "-" {
		if _, err := res.WriteTo(stdout); err != nil {
			logger.Error("writing output: %v", err)
			return 1
		}
	} else if err := merge.WriteFile(o.out, res); err != nil {
		logger.Error("%v", err)
		return 1
	}

	logger.WithFields(log.Fields{
		"out":         o.out,
		"lines":       len(res.Lines),
		"toolchanges": res.Toolchanges,
		"warnings":    len(res.Diagnostics),
	}).Info("wrote merged toolpath")
	return 0
}

func serve(addr string, opts merge.Options, logger *log.Logger) int {
	srv := server.New(server.Config{Addr: addr, Defaults: opts, Logger: logger})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server: %v", err)
			return 1
		}
		return 0
	case sig := <-sigCh:
		logger.Info("received %v, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("shutdown: %v", err)
		return 1
	}
	return 0
}
