package game

import (
	"fmt"
	"sort"

	"github.com/cbodonnell/econempire/pkg/game/constants"
	"github.com/cbodonnell/econempire/pkg/game/types"
)

// Ledger holds the current tariff rate per key and the append only history
// of every committed write. Writes are ordered by a server sequence number.
type Ledger struct {
	current      map[types.TariffKey]types.TariffRecord
	history      []types.TariffHistoryEntry
	lastSequence uint64
}

func NewLedger() *Ledger {
	return &Ledger{
		current: make(map[types.TariffKey]types.TariffRecord),
	}
}

// Stage validates a submission and returns the records it would commit,
// numbered after the last committed sequence. The ledger is not modified, so
// a submission that fails to persist consumes no sequence numbers.
func (l *Ledger) Stage(game *types.Game, player *types.Player, round int, from types.Country, changes []types.TariffChange, now int64) ([]types.TariffRecord, error) {
	if player.Country == "" || player.Country != from {
		return nil, &ErrAuthorization{
			PlayerID: player.ID,
			Reason:   fmt.Sprintf("cannot set tariffs for %q", from),
		}
	}
	if game == nil {
		return nil, &ErrNoGame{}
	}
	if game.Status != types.GameStatusActive || round != game.CurrentRound {
		return nil, invalidTransition("submit tariffs for", *game)
	}
	if len(changes) == 0 {
		return nil, &ErrInvalidCommand{Reason: "no tariff changes"}
	}
	if len(changes) > constants.MaxTariffChangesPerSubmission {
		return nil, &ErrInvalidCommand{Reason: fmt.Sprintf("at most %d tariff changes per submission", constants.MaxTariffChangesPerSubmission)}
	}

	records := make([]types.TariffRecord, 0, len(changes))
	seq := l.lastSequence
	for _, c := range changes {
		if !c.Product.Valid() {
			return nil, &ErrInvalidCommand{Reason: fmt.Sprintf("unknown product %q", c.Product)}
		}
		if !c.ToCountry.Valid() {
			return nil, &ErrInvalidCommand{Reason: fmt.Sprintf("unknown country %q", c.ToCountry)}
		}
		if c.ToCountry == from {
			return nil, &ErrInvalidCommand{Reason: "cannot set a tariff on your own country"}
		}
		seq++
		records = append(records, types.TariffRecord{
			TariffKey: types.TariffKey{
				Round:       round,
				Product:     c.Product,
				FromCountry: from,
				ToCountry:   c.ToCountry,
			},
			Rate:        c.Rate,
			SubmittedBy: player.ID,
			Timestamp:   now,
			Sequence:    seq,
		})
	}
	return records, nil
}

// Commit applies records. A record replaces the current rate for its key
// only if its sequence is higher. Records at or below the last committed
// sequence were already applied and are skipped.
func (l *Ledger) Commit(records []types.TariffRecord) {
	for _, r := range records {
		if r.Sequence <= l.lastSequence {
			continue
		}
		if existing, ok := l.current[r.TariffKey]; !ok || existing.Sequence < r.Sequence {
			l.current[r.TariffKey] = r
		}
		l.history = append(l.history, r.HistoryEntry())
		l.lastSequence = r.Sequence
	}
}

// Restore rebuilds the ledger from persisted records.
func (l *Ledger) Restore(records []types.TariffRecord) {
	sorted := make([]types.TariffRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	l.current = make(map[types.TariffKey]types.TariffRecord)
	l.history = nil
	l.lastSequence = 0
	l.Commit(sorted)
}

// Rate returns the current record for a key.
func (l *Ledger) Rate(key types.TariffKey) (types.TariffRecord, bool) {
	r, ok := l.current[key]
	return r, ok
}

// Current returns the current rates ordered by round, product and countries.
func (l *Ledger) Current() []types.TariffRecord {
	records := make([]types.TariffRecord, 0, len(l.current))
	for _, r := range l.current {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].TariffKey, records[j].TariffKey
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		if a.Product != b.Product {
			return a.Product < b.Product
		}
		if a.FromCountry != b.FromCountry {
			return a.FromCountry < b.FromCountry
		}
		return a.ToCountry < b.ToCountry
	})
	return records
}

// History returns a copy of the audit log in commit order.
func (l *Ledger) History() []types.TariffHistoryEntry {
	history := make([]types.TariffHistoryEntry, len(l.history))
	copy(history, l.history)
	return history
}

func (l *Ledger) LastSequence() uint64 {
	return l.lastSequence
}
