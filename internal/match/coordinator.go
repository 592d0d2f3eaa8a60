package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// Coordinator is the single entry point for client events. It owns the
// registry and queue and drives the session manager.
type Coordinator struct {
	ledger   Ledger
	notifier Notifier
	sessions *Manager
	queue    *Queue
	registry *Registry
	validate *validator.Validate
}

func NewCoordinator(led Ledger, notifier Notifier, sessions *Manager) *Coordinator {
	q := NewQueue()
	reg := NewRegistry(q, sessions)
	sessions.binder = reg
	return &Coordinator{
		ledger:   led,
		notifier: notifier,
		sessions: sessions,
		queue:    q,
		registry: reg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (c *Coordinator) Queue() *Queue       { return c.queue }
func (c *Coordinator) Sessions() *Manager  { return c.sessions }
func (c *Coordinator) Registry() *Registry { return c.registry }

// Depths reports how many connections wait in each bucket.
func (c *Coordinator) Depths() []BucketDepth { return c.queue.Depths() }

func (c *Coordinator) Live() int { return c.sessions.Live() }

func (c *Coordinator) Lookup(matchID string) (SessionView, bool) {
	return c.sessions.Lookup(matchID)
}

func (c *Coordinator) Connect(conn string) {
	c.registry.Connect(conn)
}

// Disconnect drops a queued entry or forfeits a live match held by conn.
func (c *Coordinator) Disconnect(ctx context.Context, conn string) {
	c.registry.Disconnect(ctx, conn)
}

// FindMatch queues the connection or pairs it with the oldest waiter on the
// same game type and stake. Errors are also sent to conn as ERROR events.
func (c *Coordinator) FindMatch(ctx context.Context, conn string, req FindMatchRequest) error {
	sent, err := c.findMatch(ctx, conn, req)
	if err != nil && !sent {
		c.notifier.Notify([]string{conn}, EventError, errorPayload(err, ""))
	}
	return err
}

// findMatch reports whether the error was already delivered to the players.
func (c *Coordinator) findMatch(ctx context.Context, conn string, req FindMatchRequest) (bool, error) {
	if err := c.validate.Struct(req); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if c.queue.Queued(conn) || c.sessions.ActiveConn(conn) || c.sessions.ActivePlayer(req.PlayerID) {
		return false, ErrAlreadyActive
	}
	if err := c.registry.BindPlayer(conn, req.PlayerID); err != nil {
		return false, err
	}

	bal, err := c.ledger.Balance(ctx, req.PlayerID)
	if err != nil {
		return false, err
	}
	if bal < req.Stake {
		return false, ErrInsufficientFunds
	}

	key := QueueKey{GameType: req.GameType, Stake: req.Stake}
	res, err := c.queue.Enqueue(QueueEntry{Conn: conn, Player: req.PlayerID, Key: key})
	if err != nil {
		return false, err
	}
	if !res.Paired {
		log.Debug().Str("conn_id", conn).Str("player_id", req.PlayerID).Str("queue", key.String()).Msg("queued")
		c.notifier.Notify([]string{conn}, EventWaiting, WaitingPayload{
			GameType: key.GameType, Stake: key.Stake, Message: "searching for opponent",
		})
		return false, nil
	}

	return c.start(ctx, conn, res)
}

// start opens the pairing in res. When a pairing is refused because one side
// already holds a live match, the other side goes back into its bucket and
// may pair again. Reports whether conn's error was already delivered.
func (c *Coordinator) start(ctx context.Context, conn string, res EnqueueResult) (bool, error) {
	var (
		callerSent bool
		callerErr  error
	)
	for res.Paired {
		view, err := c.sessions.Open(ctx, res)
		if err == nil {
			c.forfeitDropped(ctx, res)
			log.Debug().Str("match_id", view.ID).Msg("paired")
			return callerSent, callerErr
		}
		var conflict *PairingConflict
		if !errors.As(err, &conflict) {
			if res.Opponent.Conn == conn || res.Entry.Conn == conn {
				return true, err
			}
			return callerSent, callerErr
		}

		var innocent *QueueEntry
		for i, e := range []QueueEntry{res.Opponent, res.Entry} {
			if conflict.Live[i] {
				if e.Conn == conn {
					callerSent, callerErr = true, err
				}
				continue
			}
			innocent = &e
		}
		if innocent == nil {
			break
		}
		res, err = c.queue.Enqueue(*innocent)
		if err != nil {
			log.Warn().Err(err).Str("conn_id", innocent.Conn).Msg("requeue_failed")
			break
		}
		if !res.Paired {
			if !c.registry.Connected(innocent.Conn) {
				c.queue.Dequeue(innocent.Conn)
				break
			}
			log.Debug().Str("conn_id", innocent.Conn).Str("player_id", innocent.Player).Msg("requeued_after_conflict")
			c.notifier.Notify([]string{innocent.Conn}, EventWaiting, WaitingPayload{
				GameType: innocent.Key.GameType, Stake: innocent.Key.Stake, Message: "searching for opponent",
			})
		}
	}
	return callerSent, callerErr
}

// forfeitDropped covers a participant that dropped while escrow was in
// flight, before the session was reachable by its connection.
func (c *Coordinator) forfeitDropped(ctx context.Context, res EnqueueResult) {
	for _, e := range []QueueEntry{res.Opponent, res.Entry} {
		if !c.registry.Connected(e.Conn) {
			c.sessions.Forfeit(ctx, e.Conn)
		}
	}
}

// RollDice records the caller's roll in matchID.
func (c *Coordinator) RollDice(ctx context.Context, conn string, req RollDiceRequest) error {
	if err := c.validate.Struct(req); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		c.notifier.Notify([]string{conn}, EventError, errorPayload(err, ""))
		return err
	}
	if _, err := c.sessions.Roll(ctx, req.MatchID, conn); err != nil {
		c.notifier.Notify([]string{conn}, EventError, errorPayload(err, req.MatchID))
		return err
	}
	return nil
}

// Cancel removes conn from the queue. Cancelling when not queued is a no-op.
func (c *Coordinator) Cancel(_ context.Context, conn string) bool {
	removed := c.queue.Dequeue(conn)
	c.notifier.Notify([]string{conn}, EventCancelled, CancelledPayload{Removed: removed})
	return removed
}

// Reject reports a malformed client message back to conn.
func (c *Coordinator) Reject(conn string, err error) {
	c.notifier.Notify([]string{conn}, EventError, errorPayload(fmt.Errorf("%w: %w", ErrInvalidRequest, err), ""))
}
