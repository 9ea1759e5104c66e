package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/deuce/internal/domain/rating"
)

func TestRun(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given the estimate command", t, func() {
		var out, errOut bytes.Buffer

		convey.Convey("When answers come from stdin", func() {
			in := strings.NewReader(`{"has_dupr":"yes","dupr_singles":4.0,"dupr_doubles":4.0}`)
			err := run(ctx, []string{"-sport", "pickleball"}, in, &out, &errOut)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the DUPR conversion is printed", func() {
				var est rating.Estimate
				convey.So(json.Unmarshal(out.Bytes(), &est), convey.ShouldBeNil)
				convey.So(est.Source, convey.ShouldEqual, rating.SourceDUPR)
				convey.So(est.Singles, convey.ShouldEqual, est.Doubles)
			})
		})

		convey.Convey("When answers come from a file", func() {
			path := filepath.Join(t.TempDir(), "answers.json")
			convey.So(os.WriteFile(path, []byte(`{"experience":"5_to_10_years"}`), 0o600), convey.ShouldBeNil)
			err := run(ctx, []string{"-sport", "TENNIS", "-answers", path}, nil, &out, &errOut)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then a questionnaire estimate is printed", func() {
				var est rating.Estimate
				convey.So(json.Unmarshal(out.Bytes(), &est), convey.ShouldBeNil)
				convey.So(est.Source, convey.ShouldEqual, rating.SourceQuestionnaire)
			})
		})

		convey.Convey("When stdin is empty", func() {
			err := run(ctx, []string{"-sport", "padel"}, strings.NewReader(""), &out, &errOut)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out.Len(), convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("When the sport is missing", func() {
			err := run(ctx, nil, strings.NewReader("{}"), &out, &errOut)
			convey.So(errors.Is(err, errUsage), convey.ShouldBeTrue)
		})

		convey.Convey("When the sport is unknown", func() {
			err := run(ctx, []string{"-sport", "squash"}, strings.NewReader("{}"), &out, &errOut)
			convey.So(errors.Is(err, rating.ErrUnknownSport), convey.ShouldBeTrue)
		})

		convey.Convey("When the answers are not JSON", func() {
			err := run(ctx, []string{"-sport", "tennis"}, strings.NewReader("nope"), &out, &errOut)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "decode answers")
		})
	})
}
