// dualstrusion-golden runs the merge over a suite of golden cases and
// compares the result with the recorded output.
//
// Each case is a directory under -dir holding left.gcode, right.gcode,
// an optional profile.cfg and expected.gcode. The suite file lists one
// case name per line; blank lines and # comments are skipped.
//
// Modes:
//
//	check   merge, normalize both sides and compare; mismatches write actual.gcode
//	update  merge and overwrite expected.gcode
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dualstrusion-go/pkg/config"
	"dualstrusion-go/pkg/log"
	"dualstrusion-go/pkg/merge"
	"dualstrusion-go/pkg/normalize"
)

const (
	leftFile     = "left.gcode"
	rightFile    = "right.gcode"
	profileFile  = "profile.cfg"
	expectedFile = "expected.gcode"
	actualFile   = "actual.gcode"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func readSuite(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("suite is empty: %s", path)
	}
	return out, nil
}

// mergeCase merges one case with its profile, or the default profile
// when the case has none.
func mergeCase(caseDir string, logger *log.Logger) (*merge.Result, error) {
	profile := config.DefaultProfile()
	cfgPath := filepath.Join(caseDir, profileFile)
	if _, err := os.Stat(cfgPath); err == nil {
		p, err := config.LoadProfile(cfgPath)
		if err != nil {
			return nil, err
		}
		p.LogWarnings(logger)
		profile = p
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return merge.CombineFiles(
		filepath.Join(caseDir, leftFile),
		filepath.Join(caseDir, rightFile),
		profile.Options(logger),
	)
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dualstrusion-golden", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		suite         = fs.String("suite", "testdata/golden/suite.txt", "suite file")
		dir           = fs.String("dir", "testdata/golden", "golden directory")
		only          = fs.String("only", "", "only run a single case")
		mode          = fs.String("mode", "check", "check|update")
		stripComments = fs.Bool("strip-comments", false, "ignore comments when comparing")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *mode != "check" && *mode != "update" {
		fmt.Fprintf(stderr, "ERROR: unknown mode: %s\n", *mode)
		return 2
	}

	logger := log.New("golden")
	logger.SetWriter(stderr)
	log.ConfigureFromEnv(logger)

	cases, err := readSuite(*suite)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 2
	}

	failed := 0
	for _, name := range cases {
		if *only != "" && *only != name {
			continue
		}
		caseDir := filepath.Join(*dir, name)
		res, err := mergeCase(caseDir, logger.With(log.Fields{"case": name}))
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: %s: %v\n", name, err)
			return 2
		}

		if *mode == "update" {
			if err := merge.WriteFile(filepath.Join(caseDir, expectedFile), res); err != nil {
				fmt.Fprintf(stderr, "ERROR: %s: %v\n", name, err)
				return 2
			}
			fmt.Fprintf(stdout, "UPDATED %s (%d lines)\n", name, len(res.Lines))
			continue
		}

		expected, err := merge.ReadLines(filepath.Join(caseDir, expectedFile))
		if err != nil {
			fmt.Fprintf(stderr, "ERROR: missing expected: %v\n", err)
			return 2
		}
		norm := normalize.ForCase(name, *stripComments)
		mm := normalize.Compare(norm.Apply(expected), norm.Apply(res.Lines))
		if mm == nil {
			fmt.Fprintf(stdout, "PASS %s\n", name)
			continue
		}

		failed++
		fmt.Fprintf(stdout, "FAIL %s: line %d\n  expected: %s\n  actual:   %s\n", name, mm.Line, mm.Expected, mm.Actual)
		if err := merge.WriteFile(filepath.Join(caseDir, actualFile), res); err != nil {
			fmt.Fprintf(stderr, "ERROR: %s: %v\n", name, err)
			return 2
		}
	}

	if failed > 0 {
		fmt.Fprintf(stdout, "%d case(s) failed\n", failed)
		return 1
	}
	return 0
}
