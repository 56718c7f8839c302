package rating

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/iamasit07/glicko2-ratings/internal/domain"
	"golang.org/x/sync/errgroup"
)

const leaderboardKeyPrefix = "leaderboard:"

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 500
	DefaultHistoryLimit     = 20
	MaxHistoryLimit         = 200
	maxNameLength           = 64
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrSamePlayer     = errors.New("a player cannot play against themselves")
	ErrInvalidName    = errors.New("player name must be 1-64 characters")
)

type PlayerRepository interface {
	CreatePlayer(ctx context.Context, name string, state domain.RatingState) (int64, error)
	GetPlayerByID(ctx context.Context, playerID int64) (*domain.Player, error)
	GetPlayersByIDs(ctx context.Context, playerIDs []int64) (map[int64]*domain.Player, error)
	ListPlayers(ctx context.Context) ([]domain.Player, error)
	GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

type PeriodRepository interface {
	GetOrCreateOpenPeriod(ctx context.Context) (*domain.RatingPeriod, error)
	RecordGame(ctx context.Context, game domain.Game) (int64, error)
	ListPeriodGames(ctx context.Context, periodID int64) ([]domain.Game, error)
	ClosePeriod(ctx context.Context, periodID int64, changes []domain.RatingChange) (*domain.RatingPeriod, error)
	GetPlayerHistory(ctx context.Context, playerID int64, limit int) ([]domain.RatingChange, error)
}

type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DelPrefix(ctx context.Context, prefix string) error
}

// Notifier pushes rating events to connected clients
type Notifier interface {
	BroadcastMessage(msg domain.ServerMessage)
}

// StartingRating is an optional initial rating on the conventional scale
type StartingRating struct {
	Rating     float64 `json:"rating"`
	Deviation  float64 `json:"deviation"`
	Volatility float64 `json:"volatility"`
}

// PeriodSummary describes a closed rating period
type PeriodSummary struct {
	ClosedPeriodID int64                 `json:"closedPeriodId"`
	NextPeriod     *domain.RatingPeriod  `json:"nextPeriod"`
	Games          int                   `json:"games"`
	Changes        []domain.RatingChange `json:"changes"`
}

type Service struct {
	players  PlayerRepository
	periods  PeriodRepository
	cache    CacheRepository // Optional, can be nil
	notifier Notifier        // Optional, can be nil
	settings domain.Settings
	cacheTTL time.Duration

	leaderboardLimit int

	// games are recorded under the read lock; closing a period takes the
	// write lock so no game lands in a period that is being rated
	mu sync.RWMutex
}

func NewService(players PlayerRepository, periods PeriodRepository, cache CacheRepository, notifier Notifier, settings domain.Settings, cacheTTL time.Duration) *Service {
	return &Service{
		players:  players,
		periods:  periods,
		cache:    cache,
		notifier: notifier,
		settings: settings,
		cacheTTL: cacheTTL,

		leaderboardLimit: DefaultLeaderboardLimit,
	}
}

// SetLeaderboardLimit changes the size served when no limit is requested
func (s *Service) SetLeaderboardLimit(limit int) {
	if limit > 0 {
		s.leaderboardLimit = clamp(limit, DefaultLeaderboardLimit, MaxLeaderboardLimit)
	}
}

func (s *Service) Settings() domain.Settings {
	return s.settings
}

// RegisterPlayer creates a player, starting from the default rating unless
// an initial rating is given
func (s *Service) RegisterPlayer(ctx context.Context, name string, initial *StartingRating) (*domain.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return nil, ErrInvalidName
	}

	state := domain.NewRatingState()
	if initial != nil {
		var err error
		state, err = domain.NewRatingStateFromConventional(initial.Rating, initial.Deviation, initial.Volatility)
		if err != nil {
			return nil, err
		}
	}

	playerID, err := s.players.CreatePlayer(ctx, name, state)
	if err != nil {
		return nil, err
	}

	log.Printf("[RATING] Registered player %s (ID: %d)", name, playerID)
	now := time.Now()
	return &domain.Player{
		ID:        playerID,
		Name:      name,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Service) GetPlayer(ctx context.Context, playerID int64) (*domain.Player, error) {
	player, err := s.players.GetPlayerByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	return player, nil
}

// GetHistory returns a player's most recent rating changes, newest first
func (s *Service) GetHistory(ctx context.Context, playerID int64, limit int) ([]domain.RatingChange, error) {
	if _, err := s.GetPlayer(ctx, playerID); err != nil {
		return nil, err
	}
	return s.periods.GetPlayerHistory(ctx, playerID, clamp(limit, DefaultHistoryLimit, MaxHistoryLimit))
}

// Leaderboard serves the ranking from cache when possible
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	limit = clamp(limit, s.leaderboardLimit, MaxLeaderboardLimit)
	key := fmt.Sprintf("%s%d", leaderboardKeyPrefix, limit)

	if s.cache != nil {
		data, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			log.Printf("[CACHE] Failed to read leaderboard: %v", err)
		case data != "":
			var entries []domain.LeaderboardEntry
			if err := json.Unmarshal([]byte(data), &entries); err == nil {
				return entries, nil
			}
			log.Printf("[CACHE] Discarding malformed leaderboard entry %s", key)
			if err := s.cache.Del(ctx, key); err != nil {
				log.Printf("[CACHE] Failed to delete %s: %v", key, err)
			}
		}
	}

	// a period close must not land between the read and the cache fill
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.players.GetLeaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		data, err := json.Marshal(entries)
		if err == nil {
			if err := s.cache.Set(ctx, key, string(data), s.cacheTTL); err != nil {
				log.Printf("[CACHE] Failed to cache leaderboard: %v", err)
			}
		}
	}
	return entries, nil
}

// RecordGame stores a result in the open rating period. The outcome is from
// playerID's side.
func (s *Service) RecordGame(ctx context.Context, playerID, opponentID int64, outcome domain.Outcome) (*domain.Game, error) {
	if !outcome.Valid() {
		return nil, domain.ErrInvalidOutcome
	}
	if playerID == opponentID {
		return nil, ErrSamePlayer
	}

	players, err := s.players.GetPlayersByIDs(ctx, []int64{playerID, opponentID})
	if err != nil {
		return nil, err
	}
	if players[playerID] == nil || players[opponentID] == nil {
		return nil, ErrPlayerNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	period, err := s.periods.GetOrCreateOpenPeriod(ctx)
	if err != nil {
		return nil, err
	}

	game := domain.Game{
		PeriodID:   period.ID,
		PlayerID:   playerID,
		OpponentID: opponentID,
		Outcome:    outcome,
		PlayedAt:   time.Now(),
	}
	game.ID, err = s.periods.RecordGame(ctx, game)
	if err != nil {
		return nil, err
	}

	log.Printf("[RATING] Recorded game %d in period %d: %s %s against %s",
		game.ID, period.ID, players[playerID].Name, outcome, players[opponentID].Name)

	if s.notifier != nil {
		s.notifier.BroadcastMessage(domain.ServerMessage{
			Type:     domain.MessageGameRecorded,
			PeriodID: period.ID,
			Game:     &game,
		})
	}
	return &game, nil
}

// WinProbability returns the chance that playerID beats opponentID
func (s *Service) WinProbability(ctx context.Context, playerID, opponentID int64) (float64, error) {
	players, err := s.players.GetPlayersByIDs(ctx, []int64{playerID, opponentID})
	if err != nil {
		return 0, err
	}
	if players[playerID] == nil || players[opponentID] == nil {
		return 0, ErrPlayerNotFound
	}
	return domain.WinProbability(players[playerID].State, players[opponentID].State), nil
}

// Preview evaluates what a player's rating would become if the open period
// closed now. Nothing is persisted.
func (s *Service) Preview(ctx context.Context, playerID int64) (*domain.Evaluation, error) {
	player, err := s.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	period, err := s.periods.GetOrCreateOpenPeriod(ctx)
	if err != nil {
		return nil, err
	}
	games, err := s.periods.ListPeriodGames(ctx, period.ID)
	if err != nil {
		return nil, err
	}

	var ids []int64
	for _, game := range games {
		if game.PlayerID == playerID {
			ids = append(ids, game.OpponentID)
		} else if game.OpponentID == playerID {
			ids = append(ids, game.PlayerID)
		}
	}
	if len(ids) == 0 {
		idle := player.State.Idle()
		return &domain.Evaluation{
			Before:             player.State,
			After:              idle,
			PrePeriodDeviation: idle.RatingDeviation,
		}, nil
	}

	opponents, err := s.players.GetPlayersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	update := domain.NewRatingPeriodUpdateWithSettings(player.State, s.settings)
	for _, game := range games {
		opponentID, outcome, ok := sideOf(game, playerID)
		if !ok {
			continue
		}
		opponent, found := opponents[opponentID]
		if !found {
			return nil, fmt.Errorf("opponent %d: %w", opponentID, ErrPlayerNotFound)
		}
		if err := update.AddOpponent(opponent.State, outcome); err != nil {
			return nil, err
		}
	}

	eval, err := update.Evaluate()
	if err != nil {
		return nil, err
	}
	return &eval, nil
}

// Calculate evaluates one rating period without touching storage
func (s *Service) Calculate(subject domain.RatingState, results []domain.OpponentResult) (domain.Evaluation, error) {
	update := domain.NewRatingPeriodUpdateWithSettings(subject, s.settings)
	for i, r := range results {
		if err := update.AddOpponent(r.Opponent, r.Outcome); err != nil {
			return domain.Evaluation{}, fmt.Errorf("result %d: %w", i, err)
		}
	}
	return update.Evaluate()
}

// ClosePeriod rates every player over the open period, persists the new
// states, opens the next period and notifies subscribers.
func (s *Service) ClosePeriod(ctx context.Context) (*PeriodSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	period, err := s.periods.GetOrCreateOpenPeriod(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("[PERIOD] Closing rating period %d", period.ID)

	players, err := s.players.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	games, err := s.periods.ListPeriodGames(ctx, period.ID)
	if err != nil {
		return nil, err
	}

	changes, err := s.computeChanges(ctx, period.ID, players, games)
	if err != nil {
		return nil, fmt.Errorf("period %d: %w", period.ID, err)
	}

	next, err := s.periods.ClosePeriod(ctx, period.ID, changes)
	if err != nil {
		return nil, err
	}
	log.Printf("[PERIOD] Closed period %d: %d games, %d players rated. Period %d is open",
		period.ID, len(games), len(changes), next.ID)

	if s.cache != nil {
		if err := s.cache.DelPrefix(ctx, leaderboardKeyPrefix); err != nil {
			log.Printf("[CACHE] Failed to invalidate leaderboard: %v", err)
		}
	}

	if s.notifier != nil {
		for i := range players {
			p := players[i]
			p.State = changes[i].After
			rating := p.Rating()
			s.notifier.BroadcastMessage(domain.ServerMessage{
				Type:     domain.MessageRatingUpdate,
				PeriodID: period.ID,
				Player:   &rating,
			})
		}
		s.notifier.BroadcastMessage(domain.ServerMessage{
			Type:     domain.MessagePeriodClosed,
			Message:  fmt.Sprintf("rating period %d closed", period.ID),
			PeriodID: period.ID,
		})
	}

	return &PeriodSummary{
		ClosedPeriodID: period.ID,
		NextPeriod:     next,
		Games:          len(games),
		Changes:        changes,
	}, nil
}

// computeChanges returns one change per player, in the order of players.
// Every update reads the pre-period snapshot so the order of evaluation
// does not matter.
func (s *Service) computeChanges(ctx context.Context, periodID int64, players []domain.Player, games []domain.Game) ([]domain.RatingChange, error) {
	index := make(map[int64]int, len(players))
	for i, p := range players {
		index[p.ID] = i
	}

	changes := make([]domain.RatingChange, len(players))
	updates := make([]*domain.RatingPeriodUpdate, len(players))
	now := time.Now()
	for i, p := range players {
		changes[i] = domain.RatingChange{PlayerID: p.ID, PeriodID: periodID, Before: p.State, At: now}
	}

	for _, game := range games {
		pi, ok := index[game.PlayerID]
		if !ok {
			return nil, fmt.Errorf("game %d player %d: %w", game.ID, game.PlayerID, ErrPlayerNotFound)
		}
		oi, ok := index[game.OpponentID]
		if !ok {
			return nil, fmt.Errorf("game %d opponent %d: %w", game.ID, game.OpponentID, ErrPlayerNotFound)
		}
		if err := s.addPairing(updates, changes, players, pi, oi, game.Outcome); err != nil {
			return nil, fmt.Errorf("game %d: %w", game.ID, err)
		}
		if err := s.addPairing(updates, changes, players, oi, pi, game.Outcome.Inverse()); err != nil {
			return nil, fmt.Errorf("game %d: %w", game.ID, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range players {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if updates[i] == nil {
				changes[i].After = players[i].State.Idle()
				return nil
			}
			after, err := updates[i].Compute()
			if err != nil {
				return fmt.Errorf("player %d: %w", players[i].ID, err)
			}
			changes[i].After = after
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return changes, nil
}

func (s *Service) addPairing(updates []*domain.RatingPeriodUpdate, changes []domain.RatingChange, players []domain.Player, subject, opponent int, outcome domain.Outcome) error {
	if updates[subject] == nil {
		updates[subject] = domain.NewRatingPeriodUpdateWithSettings(players[subject].State, s.settings)
	}
	if err := updates[subject].AddOpponent(players[opponent].State, outcome); err != nil {
		return err
	}

	c := &changes[subject]
	c.Games++
	switch outcome {
	case domain.Win:
		c.Wins++
	case domain.Draw:
		c.Draws++
	case domain.Loss:
		c.Losses++
	}
	return nil
}

// sideOf returns the opponent and outcome of a game from playerID's side
func sideOf(game domain.Game, playerID int64) (int64, domain.Outcome, bool) {
	switch playerID {
	case game.PlayerID:
		return game.OpponentID, game.Outcome, true
	case game.OpponentID:
		return game.PlayerID, game.Outcome.Inverse(), true
	}
	return 0, 0, false
}

func clamp(limit, def, upper int) int {
	if limit <= 0 {
		return def
	}
	if limit > upper {
		return upper
	}
	return limit
}
