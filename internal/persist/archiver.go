package persist

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/janpai/server/internal/game"
)

// Archiver bridges the game service's finished-game hook to the games
// table. Inserts run on their own goroutine with a bounded timeout so a
// slow or absent database never stalls game cleanup.
type Archiver struct {
	repo *GameRepo
	log  *zap.Logger
}

func NewArchiver(repo *GameRepo, log *zap.Logger) *Archiver {
	return &Archiver{repo: repo, log: log}
}

func (a *Archiver) RecordFinished(rec game.GameRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		row := &GameRow{
			GameID:     rec.GameID,
			Seed:       rec.Seed,
			ReplayPath: rec.ReplayPath,
		}
		for seat, s := range rec.Seats {
			row.Players = append(row.Players, GamePlayer{
				Seat:   seat,
				Name:   s.Name,
				UserID: s.UserID,
				AI:     s.AI,
			})
		}
		for _, sc := range rec.Scores {
			row.Scores = append(row.Scores, GameScore{
				Seat:  sc.Seat,
				Name:  sc.Name,
				Raw:   sc.RawScore,
				Final: sc.Final,
				Rank:  sc.Rank,
			})
		}
		if err := a.repo.Insert(ctx, row); err != nil {
			a.log.Error("archive game failed",
				zap.String("game_id", rec.GameID), zap.Error(err))
		}
	}()
}
