package main

import (
	"encoding/json"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"dice-duel/internal/config"
	"dice-duel/internal/logging"
	"dice-duel/internal/match"
	"dice-duel/internal/ws"
)

func main() {
	config.LoadDotEnv()
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logCfg.Service = "dumb-bot"
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}

	conn, _, err := websocket.DefaultDialer.Dial(cfg.WSURL, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.WSURL).Msg("dial failed")
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	if err := play(conn, cfg); err != nil {
		log.Error().Err(err).Msg("bot stopped")
		return
	}
	log.Info().Int("rounds", cfg.Rounds).Msg("bot finished")
}

// play queues for a match, rolls as soon as one starts and repeats for the
// configured number of rounds.
func play(conn *websocket.Conn, cfg config.BotConfig) error {
	find := match.FindMatchRequest{GameType: cfg.GameType, Stake: cfg.StakeCC, PlayerID: cfg.PlayerID}
	if err := send(conn, match.EventFindMatch, find); err != nil {
		return err
	}
	played := 0
	for played < cfg.Rounds {
		var msg ws.Outbound
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		switch msg.Type {
		case match.EventWaiting:
			log.Info().Str("game_type", cfg.GameType).Int64("stake", cfg.StakeCC).Msg("waiting for opponent")
		case match.EventGameStart:
			var start match.GameStartPayload
			if err := json.Unmarshal(msg.Data, &start); err != nil {
				return err
			}
			log.Info().Str("match_id", start.MatchID).Str("opponent_id", start.OpponentID).Msg("game started")
			if err := send(conn, match.EventRollDice, match.RollDiceRequest{MatchID: start.MatchID}); err != nil {
				return err
			}
		case match.EventMyRoll:
			var roll match.MyRollPayload
			_ = json.Unmarshal(msg.Data, &roll)
			log.Info().Str("match_id", roll.MatchID).Int("roll", roll.Roll).Msg("rolled")
		case match.EventGameOver:
			var over match.GameOverPayload
			if err := json.Unmarshal(msg.Data, &over); err != nil {
				return err
			}
			won := over.WinnerID != nil && *over.WinnerID == cfg.PlayerID
			log.Info().Str("match_id", over.MatchID).Str("result", string(over.Result)).Bool("won", won).Int64("payout", over.Payout).Msg("game over")
			played++
			if played < cfg.Rounds {
				if err := send(conn, match.EventFindMatch, find); err != nil {
					return err
				}
			}
		case match.EventError:
			var e match.ErrorPayload
			_ = json.Unmarshal(msg.Data, &e)
			log.Warn().Str("code", e.Code).Str("message", e.Message).Msg("server error")
			if e.MatchID == "" {
				return nil
			}
		}
	}
	return nil
}

func send(conn *websocket.Conn, typ string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(ws.Inbound{Type: typ, Data: raw})
}
