package rating_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/okian/deuce/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseSport(t *testing.T) {
	Convey("Given sport names", t, func() {
		Convey("When the name is known in any case", func() {
			sp, err := rating.ParseSport(" pickleball ")
			So(err, ShouldBeNil)
			So(sp, ShouldEqual, rating.Pickleball)
		})

		Convey("When the name is unknown", func() {
			_, err := rating.ParseSport("squash")
			So(errors.Is(err, rating.ErrUnknownSport), ShouldBeTrue)
		})
	})
}

func TestAnswerSet(t *testing.T) {
	Convey("Given an answer set decoded from JSON", t, func() {
		var answers rating.AnswerSet
		raw := `{"experience":"2_to_5_years","has_dupr":"Yes","dupr_singles":"4.25","dupr_doubles":3.9,
			"skills":{"serve":"advanced","volley":3},"empty":"","flag":0}`
		So(json.Unmarshal([]byte(raw), &answers), ShouldBeNil)

		Convey("Then labels are strings only", func() {
			l, ok := answers.Label("experience")
			So(ok, ShouldBeTrue)
			So(l, ShouldEqual, "2_to_5_years")
			_, ok = answers.Label("dupr_doubles")
			So(ok, ShouldBeFalse)
		})

		Convey("Then numbers parse from numbers and numeric strings", func() {
			v, ok := answers.Number("dupr_singles")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 4.25)
			v, ok = answers.Number("dupr_doubles")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 3.9)
			_, ok = answers.Number("experience")
			So(ok, ShouldBeFalse)
			_, ok = answers.Number("empty")
			So(ok, ShouldBeFalse)
		})

		Convey("Then truthiness follows the flag rules", func() {
			So(answers.Truthy("has_dupr"), ShouldBeTrue)
			So(answers.Truthy("flag"), ShouldBeFalse)
			So(answers.Truthy("missing"), ShouldBeFalse)
			So(answers.Truthy("experience"), ShouldBeFalse)
		})

		Convey("Then the skill matrix keeps raw values", func() {
			m, ok := answers.SkillMatrix()
			So(ok, ShouldBeTrue)
			So(m["serve"], ShouldEqual, "advanced")
			So(m["volley"], ShouldEqual, 3.0)
		})
	})

	Convey("Given non-finite and json.Number values", t, func() {
		answers := rating.AnswerSet{
			"nan":    math.NaN(),
			"inf":    "Inf",
			"num":    json.Number("4.5"),
			"int":    7,
			"bool":   true,
			"yes":    "y",
			"parsed": "TRUE",
		}
		_, ok := answers.Number("nan")
		So(ok, ShouldBeFalse)
		_, ok = answers.Number("inf")
		So(ok, ShouldBeFalse)
		v, ok := answers.Number("num")
		So(ok, ShouldBeTrue)
		So(v, ShouldEqual, 4.5)
		v, _ = answers.Number("int")
		So(v, ShouldEqual, 7.0)
		So(answers.Truthy("bool"), ShouldBeTrue)
		So(answers.Truthy("yes"), ShouldBeTrue)
		So(answers.Truthy("parsed"), ShouldBeTrue)
		So(answers.Truthy("int"), ShouldBeTrue)
	})
}

func TestEstimateHelpers(t *testing.T) {
	Convey("Given a fallback estimate", t, func() {
		est := rating.Fallback(rating.SourceDefault, "nothing answered")

		Convey("Then it is the neutral estimate", func() {
			So(est.Singles, ShouldEqual, rating.BaseRating)
			So(est.Doubles, ShouldEqual, rating.BaseRating)
			So(est.RatingDeviation, ShouldEqual, rating.MaxDeviation)
			So(est.Confidence, ShouldEqual, rating.ConfidenceLow)
			So(est.Detail.FallbackReason, ShouldEqual, "nothing answered")
		})

		Convey("Then Value selects by game mode", func() {
			est.Doubles = 1600
			So(est.Value(rating.Singles), ShouldEqual, 1500)
			So(est.Value(rating.Doubles), ShouldEqual, 1600)
		})
	})

	Convey("Given confidence tiers", t, func() {
		So(rating.ConfidenceLow.Rank(), ShouldBeLessThan, rating.ConfidenceMedium.Rank())
		So(rating.ConfidenceMedium.Rank(), ShouldBeLessThan, rating.ConfidenceMediumHigh.Rank())
		So(rating.ConfidenceMediumHigh.Rank(), ShouldBeLessThan, rating.ConfidenceHigh.Rank())
	})

	Convey("Given deviations outside the range", t, func() {
		So(rating.ClampDeviation(-4), ShouldEqual, 0)
		So(rating.ClampDeviation(900), ShouldEqual, 350)
		So(rating.ClampDeviation(120), ShouldEqual, 120)
	})
}
