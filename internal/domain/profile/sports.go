package profile

import "github.com/okian/deuce/internal/domain/rating"

// Tennis returns the built-in tennis profile.
func Tennis() *Profile {
	return &Profile{
		Sport:      rating.Tennis,
		BaseRating: rating.BaseRating,
		Categories: []Category{
			category(CategoryExperience, ExperienceRange, ExperienceConfidence,
				opt("less_than_1_year", -0.8),
				opt("1_to_2_years", -0.4),
				opt("2_to_5_years", 0.1),
				opt("5_to_10_years", 0.6),
				opt("more_than_10_years", 0.9),
			),
			frequencyCategory(),
			category(CategoryCompetitiveLevel, CompetitiveLevelRange, CompetitiveLevelConfidence,
				opt("recreational", -0.5),
				opt("social", -0.2),
				opt("club", 0.3),
				opt("league", 0.5),
				opt("regional", 0.8),
				opt("national", 1.0),
			),
			category(CategorySelfRating, SelfRatingRange, SelfRatingConfidence,
				opt("beginner", -0.7),
				opt("advanced_beginner", -0.4),
				opt("intermediate", 0.0),
				opt("advanced_intermediate", 0.3),
				opt("advanced", 0.7),
				opt("expert", 1.0),
			),
			category(CategoryTournament, TournamentRange, TournamentConfidence,
				opt("never", -0.3),
				opt("local", 0.2),
				opt("regional", 0.5),
				opt("national", 0.9),
				opt("international", 1.0),
			),
		},
		Skills:         skillCategory(),
		SkillQuestions: []string{"serve", "forehand", "backhand", "volley", "movement"},
		Doubles:        DoublesRule{Kind: DoublesOffsetWhenNegative, Offset: DefaultDoublesOffset},
		GameModes:      bothModes(),
	}
}

// Pickleball returns the built-in pickleball profile.
func Pickleball() *Profile {
	return &Profile{
		Sport:      rating.Pickleball,
		BaseRating: rating.BaseRating,
		Categories: []Category{
			category(CategoryExperience, ExperienceRange, ExperienceConfidence,
				opt("less_than_6_months", -0.8),
				opt("6_to_12_months", -0.5),
				opt("1_to_2_years", -0.1),
				opt("2_to_5_years", 0.4),
				opt("more_than_5_years", 0.8),
			),
			category(CategorySportsBackground, SportsBackgroundRange, SportsBackgroundConfidence,
				opt("none", -0.3),
				opt("team_sports", 0.0),
				opt("other_racket", 0.3),
				opt("padel", 0.4),
				opt("tennis_recreational", 0.4),
				opt("tennis_competitive", 0.7),
			),
			frequencyCategory(),
			category(CategoryCompetitiveLevel, CompetitiveLevelRange, CompetitiveLevelConfidence,
				opt("recreational", -0.5),
				opt("open_play", -0.2),
				opt("club_league", 0.3),
				opt("tournament_amateur", 0.6),
				opt("tournament_pro", 1.0),
			),
			category(CategorySelfRating, SelfRatingRange, SelfRatingConfidence,
				opt("beginner", -0.8),
				opt("novice", -0.5),
				opt("intermediate", 0.0),
				opt("advanced_intermediate", 0.4),
				opt("advanced", 0.7),
				opt("pro", 1.0),
			),
			category(CategoryTournament, TournamentRange, TournamentConfidence,
				opt("never", -0.3),
				opt("local", 0.2),
				opt("regional", 0.5),
				opt("national", 0.9),
				opt("professional", 1.0),
			),
		},
		Skills:         skillCategory(),
		SkillQuestions: []string{"serve_return", "dinking", "third_shot", "volleys", "strategy"},
		Doubles:        DoublesRule{Kind: DoublesOffsetWhenNegative, Offset: DefaultDoublesOffset},
		GameModes:      bothModes(),
	}
}

// Padel returns the built-in padel profile. Padel is played as doubles only,
// so doubles mirrors the computed rating and only a doubles record is kept.
func Padel() *Profile {
	return &Profile{
		Sport:      rating.Padel,
		BaseRating: rating.BaseRating,
		Categories: []Category{
			category(CategoryExperience, ExperienceRange, ExperienceConfidence,
				opt("less_than_6_months", -0.8),
				opt("6_to_12_months", -0.5),
				opt("1_to_2_years", -0.1),
				opt("2_to_5_years", 0.4),
				opt("more_than_5_years", 0.8),
			),
			category(CategorySportsBackground, SportsBackgroundRange, SportsBackgroundConfidence,
				opt("none", -0.3),
				opt("team_sports", 0.0),
				opt("pickleball", 0.3),
				opt("other_racket", 0.3),
				opt("squash", 0.5),
				opt("tennis_recreational", 0.4),
				opt("tennis_competitive", 0.7),
			),
			frequencyCategory(),
			category(CategoryCompetitiveLevel, CompetitiveLevelRange, CompetitiveLevelConfidence,
				opt("recreational", -0.5),
				opt("social", -0.2),
				opt("club_league", 0.3),
				opt("federation_amateur", 0.7),
				opt("federation_pro", 1.0),
			),
			category(CategorySelfRating, SelfRatingRange, SelfRatingConfidence,
				opt("beginner", -0.8),
				opt("low_intermediate", -0.3),
				opt("intermediate", 0.0),
				opt("high_intermediate", 0.4),
				opt("advanced", 0.7),
				opt("pro", 1.0),
			),
			category(CategoryTournament, TournamentRange, TournamentConfidence,
				opt("never", -0.3),
				opt("club", 0.2),
				opt("regional", 0.5),
				opt("national", 0.9),
				opt("international", 1.0),
			),
		},
		Skills:         skillCategory(),
		SkillQuestions: []string{"wall_play", "volley", "bandeja", "serve", "positioning"},
		Doubles:        DoublesRule{Kind: DoublesMirror},
		GameModes:      []rating.GameMode{rating.Doubles},
	}
}
