// Command estimate scores one questionnaire offline and prints the estimate
// as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/okian/deuce/internal/config"
	"github.com/okian/deuce/internal/domain/estimator"
	"github.com/okian/deuce/internal/domain/profile"
	"github.com/okian/deuce/internal/domain/rating"
	"github.com/okian/deuce/pkg/logger"
)

var errUsage = errors.New("usage: estimate -sport SPORT [-answers FILE]")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sport := fs.String("sport", "", "Sport to score (TENNIS, PICKLEBALL, PADEL)")
	answersFile := fs.String("answers", "-", "JSON file with the answer set, - for stdin")
	useConfig := fs.Bool("config", false, "Apply profile overrides from DEUCE_CONFIG")
	verbose := fs.Bool("verbose", false, "Log scoring details to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sport == "" {
		return errUsage
	}

	sp, err := rating.ParseSport(*sport)
	if err != nil {
		return err
	}
	answers, err := readAnswers(*answersFile, stdin)
	if err != nil {
		return err
	}

	var regOpts []profile.Option
	if *useConfig {
		cfg, err := config.Load(ctx)
		if err != nil {
			return err
		}
		if regOpts, err = cfg.RegistryOptions(); err != nil {
			return err
		}
	}
	reg, err := profile.NewRegistry(regOpts...)
	if err != nil {
		return err
	}

	log := logger.Nop()
	if *verbose {
		if err := logger.Init(logger.WithLevel("debug"), logger.WithOutput(stderr)); err != nil {
			return err
		}
		log = logger.Named("estimate")
	}
	d, err := estimator.New(estimator.WithRegistry(reg), estimator.WithLogger(log))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(d.Estimate(ctx, sp, answers))
}

func readAnswers(name string, stdin io.Reader) (rating.AnswerSet, error) {
	var r io.Reader = stdin
	if name != "-" {
		f, err := os.Open(name) //nolint:gosec // user supplied path
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var answers rating.AnswerSet
	if err := json.NewDecoder(r).Decode(&answers); err != nil {
		if errors.Is(err, io.EOF) {
			return rating.AnswerSet{}, nil
		}
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return answers, nil
}
