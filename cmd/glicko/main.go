package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/iamasit07/glicko2-ratings/internal/domain"
)

// gameFlags collects repeated -game rating:deviation:volatility:outcome values
type gameFlags []domain.OpponentResult

func (g *gameFlags) String() string {
	return fmt.Sprintf("%d games", len(*g))
}

func (g *gameFlags) Set(value string) error {
	result, err := parseGame(value)
	if err != nil {
		return err
	}
	*g = append(*g, result)
	return nil
}

// parseGame reads "rating:deviation[:volatility]:outcome" on the conventional scale
func parseGame(value string) (domain.OpponentResult, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 && len(parts) != 4 {
		return domain.OpponentResult{}, errors.New("want rating:deviation[:volatility]:outcome")
	}

	nums := make([]float64, len(parts)-1)
	for i, p := range parts[:len(parts)-1] {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.OpponentResult{}, fmt.Errorf("bad number %q", p)
		}
		nums[i] = n
	}
	volatility := domain.DefaultVolatility
	if len(nums) == 3 {
		volatility = nums[2]
	}

	outcome, err := domain.ParseOutcome(parts[len(parts)-1])
	if err != nil {
		return domain.OpponentResult{}, err
	}
	opponent, err := domain.NewRatingStateFromConventional(nums[0], nums[1], volatility)
	if err != nil {
		return domain.OpponentResult{}, err
	}
	return domain.OpponentResult{Opponent: opponent, Outcome: outcome}, nil
}

// parseOpponent reads "rating:deviation" for -probability
func parseOpponent(value string) (domain.RatingState, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return domain.RatingState{}, errors.New("want rating:deviation")
	}
	r, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return domain.RatingState{}, fmt.Errorf("bad rating %q", parts[0])
	}
	rd, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return domain.RatingState{}, fmt.Errorf("bad deviation %q", parts[1])
	}
	return domain.NewRatingStateFromConventional(r, rd, domain.DefaultVolatility)
}

func main() {
	log.SetFlags(0)

	rating := flag.Float64("rating", domain.ConventionalOrigin, "player rating")
	deviation := flag.Float64("deviation", 350, "player rating deviation")
	volatility := flag.Float64("volatility", domain.DefaultVolatility, "player volatility")
	tau := flag.Float64("tau", domain.DefaultTau, "system constant")
	probability := flag.String("probability", "", "print the win probability against rating:deviation")
	verbose := flag.Bool("v", false, "print the intermediate quantities")
	var games gameFlags
	flag.Var(&games, "game", "game result as rating:deviation[:volatility]:outcome (repeatable)")
	flag.Parse()

	subject, err := domain.NewRatingStateFromConventional(*rating, *deviation, *volatility)
	if err != nil {
		log.Fatalf("player: %v", err)
	}

	if *probability != "" {
		opponent, err := parseOpponent(*probability)
		if err != nil {
			log.Fatalf("probability: %v", err)
		}
		fmt.Printf("%.4f\n", domain.WinProbability(subject, opponent))
		return
	}

	if len(games) == 0 {
		fmt.Fprintln(os.Stderr, "no games: the player only loses certainty over an idle period")
		r, rd, vol := subject.Idle().Conventional()
		fmt.Printf("rating=%.2f deviation=%.2f volatility=%.6f\n", r, rd, vol)
		return
	}

	settings := domain.DefaultSettings()
	settings.Tau = *tau
	update := domain.NewRatingPeriodUpdateWithSettings(subject, settings)
	for _, g := range games {
		if err := update.AddOpponent(g.Opponent, g.Outcome); err != nil {
			log.Fatalf("game: %v", err)
		}
	}

	ev, err := update.Evaluate()
	if err != nil {
		log.Fatalf("update: %v", err)
	}

	r, rd, vol := ev.After.Conventional()
	fmt.Printf("rating=%.2f deviation=%.2f volatility=%.6f\n", r, rd, vol)
	if *verbose {
		fmt.Printf("variance=%.5f delta=%.5f pre-period deviation=%.2f iterations=%d\n",
			ev.Variance, ev.Delta, ev.PrePeriodDeviation*domain.ConventionalUnit, ev.Iterations)
	}
}
