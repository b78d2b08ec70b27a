package oracle

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// GracePeriod is the time a sequencer must have been up before prices
	// are trusted again.
	GracePeriod = time.Hour
	// ArbitrumSequencerMaxAge bounds the age of an Arbitrum uptime answer.
	// The feed only updates on status changes.
	ArbitrumSequencerMaxAge = 7 * 24 * time.Hour
	// OpStackSequencerMaxAge bounds the age of an OP-Stack uptime answer.
	// Those feeds heartbeat every 24 hours.
	OpStackSequencerMaxAge = 48 * time.Hour
)

func durationSeconds(d time.Duration) uint64 { return uint64(d / time.Second) }

// CheckSequencerUptime fails unless the uptime feed reports a sequencer that
// is up, has been up for at least GracePeriod and whose answer is not stale.
// A zero feed address disables the check.
func CheckSequencerUptime(dir Directory, feed common.Address, opStack bool, now uint64) error {
	if feed == (common.Address{}) {
		return nil
	}
	if dir == nil {
		return fmt.Errorf("oracle: no feed directory to resolve sequencer feed %s", feed.Hex())
	}
	source, err := dir.PriceFeed(feed)
	if err != nil {
		return fmt.Errorf("oracle: resolve sequencer feed %s: %w", feed.Hex(), err)
	}
	round, err := source.LatestRoundData()
	if err != nil {
		return fmt.Errorf("oracle: sequencer feed %s: %w", feed.Hex(), err)
	}
	return checkSequencerRound(round, opStack, now)
}

func checkSequencerRound(round RoundData, opStack bool, now uint64) error {
	if !opStack && round.StartedAt == 0 && round.UpdatedAt == 0 {
		return nil
	}
	maxAge := durationSeconds(ArbitrumSequencerMaxAge)
	if opStack {
		maxAge = durationSeconds(OpStackSequencerMaxAge)
	}
	if now > round.UpdatedAt && now-round.UpdatedAt > maxAge {
		return fmt.Errorf("%w: updated at %d, now %d", ErrSequencerFeedStale, round.UpdatedAt, now)
	}
	if round.Answer != nil && round.Answer.Sign() != 0 {
		return ErrSequencerDown
	}
	if now < round.StartedAt || now-round.StartedAt < durationSeconds(GracePeriod) {
		return &GracePeriodError{StartedAt: round.StartedAt, Now: now}
	}
	return nil
}
