package loadtest

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"

	"github.com/okian/deuce/internal/domain/profile"
	"github.com/okian/deuce/internal/domain/rating"
)

const (
	randomDivisor = 1_000_000
	// share of pickleball players who report a DUPR benchmark
	duprShare = 0.4
	// share of questions a player leaves unanswered
	skipShare = 0.15
)

// randomFloat returns a value in [0, 1).
func randomFloat() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(randomDivisor))
	if err != nil {
		return 0
	}
	return float64(n.Int64()) / randomDivisor
}

func pick[T any](xs []T) T {
	return xs[int(randomFloat()*float64(len(xs)))]
}

// Generate builds n submissions for distinct players. Answers are drawn from
// the registry's option labels so they score like real questionnaires.
func Generate(reg *profile.Registry, n int, seasonID string) ([]Submission, error) {
	sports := rating.Sports()
	out := make([]Submission, 0, n)
	for i := 0; i < n; i++ {
		sport := pick(sports)
		p, err := reg.Get(sport)
		if err != nil {
			return nil, err
		}
		out = append(out, Submission{
			SubmissionID: uuid.NewString(),
			PlayerID:     uuid.NewString(),
			Sport:        string(sport),
			SeasonID:     seasonID,
			Answers:      answers(p),
		})
	}
	return out, nil
}

func answers(p *profile.Profile) map[string]any {
	a := make(map[string]any, len(p.Categories)+1)
	for i := range p.Categories {
		c := &p.Categories[i]
		if len(c.Options) == 0 || randomFloat() < skipShare {
			continue
		}
		a[c.Name] = pick(c.Options)
	}
	if len(p.SkillQuestions) > 0 && len(p.Skills.Options) > 0 {
		skills := make(map[string]any, len(p.SkillQuestions))
		for _, q := range p.SkillQuestions {
			skills[q] = pick(p.Skills.Options)
		}
		a[rating.KeySkills] = skills
	}
	if p.Sport == rating.Pickleball && randomFloat() < duprShare {
		a[rating.KeyHasDUPR] = true
		a[rating.KeyDUPRSingles] = 2.5 + randomFloat()*3
		a[rating.KeyDUPRDoubles] = 2.5 + randomFloat()*3
		a[rating.KeyDUPRDoublesReliability] = int(randomFloat() * 100)
	}
	return a
}

// ExpectedRecords returns how many records a placement creates for sport.
func ExpectedRecords(reg *profile.Registry, sport string) int {
	p, err := reg.Get(rating.Sport(sport))
	if err != nil {
		return 0
	}
	return len(p.GameModes)
}
